package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hairizuan-noorazman/dashboard-watch/logger"
)

// DefaultValueSelector matches the dashboard's metric value elements.
const DefaultValueSelector = `div[class*="index-module_value_"]`

// placeholderValues are rendered by the dashboard skeleton before real data arrives.
var placeholderValues = []string{"", "0", "--"}

// Settled reports whether a value element's text shows loaded data rather than a placeholder.
// It is the Go form of the predicate evaluated in the page.
func Settled(text string) bool {
	text = strings.TrimSpace(text)
	for _, p := range placeholderValues {
		if text == p {
			return false
		}
	}
	return true
}

// ReadinessProber waits for the first value element on the page to leave its placeholder state.
type ReadinessProber struct {
	selector   string
	expression string
	logger     logger.Logger
}

// NewReadinessProber creates a prober for elements matching selector.
func NewReadinessProber(selector string, log logger.Logger) *ReadinessProber {
	if selector == "" {
		selector = DefaultValueSelector
	}
	return &ReadinessProber{
		selector:   selector,
		expression: readinessExpression(selector),
		logger:     logger.ForComponent(log, "readiness"),
	}
}

func readinessExpression(selector string) string {
	quotedSelector, _ := json.Marshal(selector)
	placeholders, _ := json.Marshal(placeholderValues)
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	const text = (el.innerText || el.textContent || "").trim();
	return !%s.includes(text);
})()`, quotedSelector, placeholders)
}

// Expression returns the predicate evaluated in the page.
func (p *ReadinessProber) Expression() string {
	return p.expression
}

// AwaitReady returns true once the tracked value settles, false on timeout or any polling error.
// A timeout is an expected outcome and is logged, not returned.
func (p *ReadinessProber) AwaitReady(ctx context.Context, page Page, timeout time.Duration) bool {
	p.logger.Debug(ctx, "waiting for dashboard data", map[string]interface{}{
		"selector": p.selector,
		"timeout":  timeout.String(),
	})

	started := time.Now()
	ready, err := page.Poll(ctx, p.expression, timeout)
	if err != nil {
		p.logger.Warn(ctx, "readiness polling failed", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	if !ready {
		p.logger.Warn(ctx, "dashboard data did not load in time", map[string]interface{}{
			"timeout": timeout.String(),
		})
		return false
	}

	p.logger.Info(ctx, "dashboard data loaded", map[string]interface{}{
		"waited_ms": time.Since(started).Milliseconds(),
	})
	return true
}
