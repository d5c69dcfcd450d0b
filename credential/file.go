package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// FileSource reads a browser cookie export of the form {"cookies": [{name, value, domain, path, ...}]}.
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load reads and decodes the cookie file.
func (s *FileSource) Load() (*Credential, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: cookie file %q not found", ErrCredentialMissing, s.path)
		}
		return nil, fmt.Errorf("%w: failed to read cookie file %q: %v", ErrCredentialMissing, s.path, err)
	}

	var doc struct {
		Cookies []Cookie `json:"cookies"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w: cookie file %q: %v", ErrCredentialMissing, ErrCredentialMalformed, s.path, err)
	}

	if err := validate(doc.Cookies); err != nil {
		return nil, fmt.Errorf("cookie file %q: %w", s.path, err)
	}

	for i := range doc.Cookies {
		if doc.Cookies[i].Path == "" {
			doc.Cookies[i].Path = "/"
		}
	}

	return &Credential{Cookies: doc.Cookies}, nil
}
