package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyResponse is returned when the model returns no text.
	ErrEmptyResponse = errors.New("empty model response")

	// ErrMalformedResponse is returned when the model's text is not the expected JSON object.
	ErrMalformedResponse = errors.New("malformed model response")
)

// StripCodeFence removes a surrounding markdown code fence such as "```json ... ```".
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx != -1 {
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseResult decodes a model response into a Result. If the unfenced text is not valid JSON,
// the outermost {...} span is tried before giving up.
func ParseResult(raw string) (Result, error) {
	text := StripCodeFence(raw)
	if text == "" {
		return Result{}, ErrEmptyResponse
	}

	var r Result
	err := json.Unmarshal([]byte(text), &r)
	if err == nil {
		return r, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	r = Result{}
	if err := json.Unmarshal([]byte(text[start:end+1]), &r); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return r, nil
}
