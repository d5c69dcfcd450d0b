// Package browser implements capture.Page on top of a headless Chrome driven by chromedp.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/hairizuan-noorazman/dashboard-watch/capture"
	"github.com/hairizuan-noorazman/dashboard-watch/credential"
	"github.com/hairizuan-noorazman/dashboard-watch/logger"
)

// ErrElementNotFound is returned when no element carries the requested text.
var ErrElementNotFound = errors.New("element not found")

// Config controls the Chrome process.
type Config struct {
	Headless     bool
	WindowWidth  int
	WindowHeight int
	UserAgent    string
	ExecPath     string
	PollInterval time.Duration
}

// Launcher starts one Chrome process per Launch call.
type Launcher struct {
	cfg    Config
	logger logger.Logger
}

// NewLauncher creates a Launcher. Zero window dimensions default to a desktop viewport.
func NewLauncher(cfg Config, log logger.Logger) *Launcher {
	if cfg.WindowWidth == 0 || cfg.WindowHeight == 0 {
		cfg.WindowWidth, cfg.WindowHeight = 1920, 1080
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	return &Launcher{
		cfg:    cfg,
		logger: logger.ForComponent(log, "browser"),
	}
}

// Launch starts Chrome and opens a blank tab. The browser's lifetime is detached from ctx
// cancellation; it ends only when the returned page is closed.
func (l *Launcher) Launch(ctx context.Context) (capture.Page, error) {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(l.cfg.WindowWidth, l.cfg.WindowHeight),
		chromedp.Flag("headless", l.cfg.Headless),
	)
	if l.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.cfg.UserAgent))
	}
	if l.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.cfg.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	s := &Session{
		tabCtx:       tabCtx,
		cancelTab:    cancelTab,
		cancelAlloc:  cancelAlloc,
		pollInterval: l.cfg.PollInterval,
		logger:       l.logger,
	}

	// The first Run allocates the browser and must use the tab context itself: the browser
	// lives as long as the context handed to that call.
	stop := context.AfterFunc(ctx, cancelTab)
	err := chromedp.Run(tabCtx)
	stop()
	if err != nil {
		s.Close()
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	l.logger.Info(ctx, "browser started", map[string]interface{}{
		"headless": l.cfg.Headless,
		"width":    l.cfg.WindowWidth,
		"height":   l.cfg.WindowHeight,
	})
	return s, nil
}

// Session is one Chrome tab.
type Session struct {
	tabCtx       context.Context
	cancelTab    context.CancelFunc
	cancelAlloc  context.CancelFunc
	pollInterval time.Duration
	logger       logger.Logger

	closeOnce sync.Once
	closeErr  error
}

// run executes actions on the tab while honouring the caller's cancellation and deadline.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	if ctxErr := runCtx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}

// SetCookies installs the credential's cookies in the browser.
func (s *Session) SetCookies(ctx context.Context, cookies []credential.Cookie) error {
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			params := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithHTTPOnly(c.HTTPOnly).
				WithSecure(c.Secure)
			if c.Expires > 0 {
				expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
				params = params.WithExpires(&expires)
			}
			if sameSite, ok := parseSameSite(c.SameSite); ok {
				params = params.WithSameSite(sameSite)
			}
			if err := params.Do(ctx); err != nil {
				return fmt.Errorf("failed to set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	}))
}

func parseSameSite(v string) (network.CookieSameSite, bool) {
	switch strings.ToLower(v) {
	case "strict":
		return network.CookieSameSiteStrict, true
	case "lax":
		return network.CookieSameSiteLax, true
	case "none", "no_restriction":
		return network.CookieSameSiteNone, true
	default:
		return "", false
	}
}

// Navigate loads url and waits for the body element. It waits for the load event, not for
// network idle, since the dashboard keeps telemetry connections open.
func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// Reload reloads the current page and waits for the body element.
func (s *Session) Reload(ctx context.Context) error {
	return s.run(ctx,
		chromedp.Reload(),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// WaitVisibleText waits until an element whose own text is exactly text is visible.
func (s *Session) WaitVisibleText(ctx context.Context, text string) error {
	var found bool
	return s.run(ctx, chromedp.Poll(visibleTextExpression(text), &found,
		chromedp.WithPollingInterval(s.pollInterval),
	))
}

// ClickText scrolls the first visible element with the given text into view and clicks its
// centre with real mouse events.
func (s *Session) ClickText(ctx context.Context, text string) error {
	var pt struct {
		Found bool    `json:"found"`
		X     float64 `json:"x"`
		Y     float64 `json:"y"`
	}
	return s.run(ctx,
		chromedp.Evaluate(clickPointExpression(text), &pt),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if !pt.Found {
				return fmt.Errorf("%w: %q", ErrElementNotFound, text)
			}
			return chromedp.MouseClickXY(pt.X, pt.Y).Do(ctx)
		}),
	)
}

// DispatchClickText dispatches a click event on the first element with the given text,
// whether or not the browser considers it interactable.
func (s *Session) DispatchClickText(ctx context.Context, text string) error {
	var dispatched bool
	if err := s.run(ctx, chromedp.Evaluate(dispatchClickExpression(text), &dispatched)); err != nil {
		return err
	}
	if !dispatched {
		return fmt.Errorf("%w: %q", ErrElementNotFound, text)
	}
	return nil
}

// ScrollToTop scrolls the window to the origin.
func (s *Session) ScrollToTop(ctx context.Context) error {
	var done bool
	return s.run(ctx, chromedp.Evaluate(`(window.scrollTo(0, 0), true)`, &done))
}

// Poll evaluates expression until it is truthy or timeout elapses.
func (s *Session) Poll(ctx context.Context, expression string, timeout time.Duration) (bool, error) {
	var ok bool
	err := s.run(ctx, chromedp.Poll(expression, &ok,
		chromedp.WithPollingTimeout(timeout),
		chromedp.WithPollingInterval(s.pollInterval),
	))
	if err != nil {
		if ctx.Err() == nil && isPollTimeout(err) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// isPollTimeout reports whether err means the predicate never held within the polling timeout.
func isPollTimeout(err error) bool {
	return errors.Is(err, chromedp.ErrPollingTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// Screenshot captures the full scrollable page as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// Close closes the tab, then the browser, and waits for the Chrome process to exit.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		err := chromedp.Cancel(s.tabCtx)
		s.cancelTab()
		s.cancelAlloc()
		if err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = fmt.Errorf("failed to close browser: %w", err)
		}
	})
	return s.closeErr
}

// textXPath matches elements whose own text, whitespace-normalised, equals text.
func textXPath(text string) string {
	return fmt.Sprintf(`//*[normalize-space(text())=%s]`, xpathLiteral(text))
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		quoted = append(quoted, `"`+p+`"`)
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

const findElementsJS = `function(xpath, visibleOnly) {
	const snapshot = document.evaluate(xpath, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
	const out = [];
	for (let i = 0; i < snapshot.snapshotLength; i++) {
		const el = snapshot.snapshotItem(i);
		if (visibleOnly) {
			const rect = el.getBoundingClientRect();
			const style = window.getComputedStyle(el);
			if (rect.width === 0 || rect.height === 0 || style.visibility === "hidden" || style.display === "none") {
				continue;
			}
		}
		out.push(el);
	}
	return out;
}`

func visibleTextExpression(text string) string {
	return fmt.Sprintf(`(%s)(%s, true).length > 0`, findElementsJS, jsString(textXPath(text)))
}

func clickPointExpression(text string) string {
	return fmt.Sprintf(`(() => {
	const els = (%s)(%s, true);
	if (els.length === 0) return {found: false, x: 0, y: 0};
	els[0].scrollIntoView({block: "center", inline: "center"});
	const rect = els[0].getBoundingClientRect();
	return {found: true, x: rect.left + rect.width / 2, y: rect.top + rect.height / 2};
})()`, findElementsJS, jsString(textXPath(text)))
}

func dispatchClickExpression(text string) string {
	return fmt.Sprintf(`(() => {
	const els = (%s)(%s, false);
	if (els.length === 0) return false;
	els[0].dispatchEvent(new MouseEvent("click", {bubbles: true, cancelable: true, view: window}));
	return true;
})()`, findElementsJS, jsString(textXPath(text)))
}
