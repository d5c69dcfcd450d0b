package capture

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hairizuan-noorazman/dashboard-watch/logger"
)

// ClickStrategy selects how a dialog button is clicked.
type ClickStrategy string

const (
	// ClickNative performs a regular click through the automation engine.
	ClickNative ClickStrategy = "click"

	// ClickDispatch dispatches a click event on the element directly. Some onboarding buttons
	// are reported as non-interactable although they are visible.
	ClickDispatch ClickStrategy = "dispatch"
)

// ParseClickStrategy parses "click" or "dispatch".
func ParseClickStrategy(s string) (ClickStrategy, error) {
	switch ClickStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case ClickNative, "":
		return ClickNative, nil
	case ClickDispatch:
		return ClickDispatch, nil
	default:
		return "", fmt.Errorf("unknown click strategy %q", s)
	}
}

// DialogStep is one known onboarding button.
type DialogStep struct {
	Label    string
	Strategy ClickStrategy
}

// DefaultDialogSteps returns the dashboard's onboarding buttons in the order they appear.
func DefaultDialogSteps() []DialogStep {
	return []DialogStep{
		{Label: "知道了", Strategy: ClickNative},
		{Label: "下一步", Strategy: ClickNative},
		{Label: "去体验", Strategy: ClickDispatch},
	}
}

// DialogDismisser clicks away known interstitial dialogs. A button that does not appear within
// the wait timeout means there is nothing to dismiss.
type DialogDismisser struct {
	steps       []DialogStep
	waitTimeout time.Duration
	settle      time.Duration
	logger      logger.Logger
}

// NewDialogDismisser creates a dismisser that tries steps in order.
func NewDialogDismisser(steps []DialogStep, waitTimeout, settle time.Duration, log logger.Logger) *DialogDismisser {
	return &DialogDismisser{
		steps:       steps,
		waitTimeout: waitTimeout,
		settle:      settle,
		logger:      logger.ForComponent(log, "dialogs"),
	}
}

// Dismiss tries every step and returns how many buttons were clicked. It never fails.
func (d *DialogDismisser) Dismiss(ctx context.Context, page Page) int {
	dismissed := 0
	for _, step := range d.steps {
		if ctx.Err() != nil {
			break
		}
		if d.try(ctx, page, step) {
			dismissed++
		}
	}

	if dismissed > 0 {
		d.logger.Info(ctx, "dismissed dialogs", map[string]interface{}{
			"count": dismissed,
		})
	}
	return dismissed
}

func (d *DialogDismisser) try(ctx context.Context, page Page, step DialogStep) bool {
	fields := map[string]interface{}{
		"label":    step.Label,
		"strategy": string(step.Strategy),
	}

	waitCtx, cancelWait := context.WithTimeout(ctx, d.waitTimeout)
	err := page.WaitVisibleText(waitCtx, step.Label)
	cancelWait()
	if err != nil {
		d.logger.Debug(ctx, "dialog button not present", fields)
		return false
	}

	clickCtx, cancelClick := context.WithTimeout(ctx, d.waitTimeout)
	defer cancelClick()
	switch step.Strategy {
	case ClickDispatch:
		err = page.DispatchClickText(clickCtx, step.Label)
	default:
		err = page.ClickText(clickCtx, step.Label)
	}
	if err != nil {
		fields["error"] = err.Error()
		d.logger.Warn(ctx, "failed to click dialog button", fields)
		return false
	}

	d.logger.Debug(ctx, "clicked dialog button", fields)
	_ = sleep(ctx, d.settle)
	return true
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
