// Package capture drives the dashboard browser session: it authenticates, keeps the page
// fresh, waits for asynchronously rendered data to settle, and hands screenshots to the
// extractor on a fixed interval.
package capture

import (
	"context"
	"time"

	"github.com/hairizuan-noorazman/dashboard-watch/credential"
)

// Page is the browser capability the capture loop consumes. One Page is owned by exactly one
// Loop for its whole lifetime and is never used concurrently.
type Page interface {
	// SetCookies applies the session credential before the first navigation.
	SetCookies(ctx context.Context, cookies []credential.Cookie) error

	// Navigate loads url and returns once the DOM is ready.
	Navigate(ctx context.Context, url string) error

	// Reload reloads the current page and returns once the DOM is ready.
	Reload(ctx context.Context) error

	// WaitVisibleText blocks until an element whose text is exactly text is visible.
	WaitVisibleText(ctx context.Context, text string) error

	// ClickText clicks the first visible element whose text is exactly text.
	ClickText(ctx context.Context, text string) error

	// DispatchClickText dispatches a click event directly on the first element whose text is
	// exactly text, bypassing actionability checks.
	DispatchClickText(ctx context.Context, text string) error

	// ScrollToTop scrolls the window to the origin.
	ScrollToTop(ctx context.Context) error

	// Poll evaluates expression with the engine's own polling until it is truthy or timeout
	// elapses. A timeout is reported as false with a nil error.
	Poll(ctx context.Context, expression string, timeout time.Duration) (bool, error)

	// Screenshot captures the full page as PNG.
	Screenshot(ctx context.Context) ([]byte, error)

	// Close releases the page and its browser. It must be safe to call once after any error.
	Close() error
}

// Launcher opens a browser session with a single page.
type Launcher interface {
	Launch(ctx context.Context) (Page, error)
}
