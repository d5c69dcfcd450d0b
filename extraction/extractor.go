package extraction

import (
	"context"
	"net/http"
	"time"

	"github.com/hairizuan-noorazman/dashboard-watch/logger"
)

// VisionClient sends one instruction plus one inline image to a vision-language model and
// returns the model's text completion.
type VisionClient interface {
	Complete(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// Extractor reads metrics off dashboard screenshots.
type Extractor struct {
	client  VisionClient
	allow   AllowList
	prompt  string
	timeout time.Duration
	logger  logger.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithAllowList overrides the default metric allow-list.
func WithAllowList(allow AllowList) Option {
	return func(e *Extractor) {
		e.allow = allow
	}
}

// WithRequestTimeout bounds each inference call. Zero means no bound beyond the caller's context.
func WithRequestTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		e.timeout = d
	}
}

// NewExtractor creates an Extractor backed by client.
func NewExtractor(client VisionClient, log logger.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		client: client,
		allow:  DefaultAllowList(),
		logger: logger.ForComponent(log, "extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.prompt = BuildPrompt(e.allow)
	return e
}

// Prompt returns the instruction sent with every screenshot.
func (e *Extractor) Prompt() string {
	return e.prompt
}

// Extract never fails: any client or parse error yields an empty Result, which callers treat
// as "no valid data".
func (e *Extractor) Extract(ctx context.Context, screenshot []byte) Result {
	if len(screenshot) == 0 {
		e.logger.Warn(ctx, "empty screenshot, skipping extraction", nil)
		return Result{}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	mimeType := http.DetectContentType(screenshot)
	started := time.Now()
	raw, err := e.client.Complete(ctx, e.prompt, screenshot, mimeType)
	if err != nil {
		e.logger.Error(ctx, "vision model call failed", map[string]interface{}{
			"error": err.Error(),
		})
		return Result{}
	}

	parsed, err := ParseResult(raw)
	if err != nil {
		e.logger.Error(ctx, "failed to parse model response", map[string]interface{}{
			"error":    err.Error(),
			"response": truncate(raw, 500),
		})
		return Result{}
	}

	validated, rejected := Validate(parsed, e.allow)
	for _, rj := range rejected {
		e.logger.Warn(ctx, "dropped metric", map[string]interface{}{
			"name":   rj.Metric.Name,
			"value":  rj.Metric.Value,
			"reason": rj.Reason,
		})
	}

	e.logger.Info(ctx, "extraction finished", map[string]interface{}{
		"metrics":     len(validated.Metrics),
		"rejected":    len(rejected),
		"duration_ms": time.Since(started).Milliseconds(),
	})
	return validated
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
