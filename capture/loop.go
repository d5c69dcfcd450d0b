package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hairizuan-noorazman/dashboard-watch/credential"
	"github.com/hairizuan-noorazman/dashboard-watch/extraction"
	"github.com/hairizuan-noorazman/dashboard-watch/logger"
	"github.com/hairizuan-noorazman/dashboard-watch/state"
)

// ErrNavigationFailed is returned by Run when the first navigation to the target page fails.
var ErrNavigationFailed = errors.New("initial navigation failed")

// Status strings published to the state store.
const (
	StatusAuthenticating = "authenticating..."
	StatusOpening        = "opening target page..."
	StatusUpdating       = "updating..."
	StatusNoData         = "extraction produced no valid data"
	StatusNotReady       = "timed out waiting for data"
	StatusReloadTimeout  = "page reload timed out"
	StatusStopped        = "stopped"
)

// Phase is the loop's lifecycle state.
type Phase string

const (
	PhaseStarting          Phase = "starting"
	PhaseAuthenticating    Phase = "authenticating"
	PhaseNavigatingInitial Phase = "navigating_initial"
	PhaseSteadyState       Phase = "steady_state"
	PhaseTerminated        Phase = "terminated"
)

// Outcome is the result of one steady-state cycle.
type Outcome string

const (
	OutcomeUpdated       Outcome = "updated"
	OutcomeNoData        Outcome = "no_data"
	OutcomeNotReady      Outcome = "not_ready"
	OutcomeReloadTimeout Outcome = "reload_timeout"
	OutcomeFailed        Outcome = "failed"
	OutcomeCancelled     Outcome = "cancelled"
)

// Extractor reads metrics from a screenshot. It must not fail; an empty result means no data.
type Extractor interface {
	Extract(ctx context.Context, screenshot []byte) extraction.Result
}

// ArtifactSink persists screenshots.
type ArtifactSink interface {
	SaveCapture(ctx context.Context, image []byte) error
	SaveDebug(ctx context.Context, image []byte, reason string) error
}

// Config holds the loop's target and timing.
type Config struct {
	TargetURL         string
	StartDelay        time.Duration
	NavigationTimeout time.Duration
	ReadyTimeout      time.Duration
	RefreshInterval   time.Duration
	ScrollSettle      time.Duration
}

// Dependencies are the collaborators a Loop drives.
type Dependencies struct {
	Credentials credential.Source
	Launcher    Launcher
	Dismisser   *DialogDismisser
	Prober      *ReadinessProber
	Extractor   Extractor
	Artifacts   ArtifactSink
	State       state.Store
}

// Loop owns one browser page and refreshes the shared state from it on a fixed interval.
type Loop struct {
	cfg    Config
	deps   Dependencies
	logger logger.Logger
}

// NewLoop creates a capture loop.
func NewLoop(cfg Config, deps Dependencies, log logger.Logger) *Loop {
	return &Loop{
		cfg:    cfg,
		deps:   deps,
		logger: logger.ForComponent(log, "capture"),
	}
}

// Run blocks until ctx is cancelled or a startup step fails fatally. The browser is closed
// before Run returns. Faults inside a steady-state cycle never end the loop.
func (l *Loop) Run(ctx context.Context) error {
	l.enter(ctx, PhaseStarting)
	if err := sleep(ctx, l.cfg.StartDelay); err != nil {
		return l.stopped(ctx, err)
	}

	l.enter(ctx, PhaseAuthenticating)
	l.deps.State.SetStatus(StatusAuthenticating)
	cred, err := l.deps.Credentials.Load()
	if err != nil {
		return l.fatal(ctx, fmt.Sprintf("fatal: could not load credential: %v", err), err)
	}
	l.logger.Info(ctx, "credential loaded", map[string]interface{}{
		"cookies": len(cred.Cookies),
	})

	l.enter(ctx, PhaseNavigatingInitial)
	l.deps.State.SetStatus(StatusOpening)
	page, err := l.deps.Launcher.Launch(ctx)
	if err != nil {
		return l.fatal(ctx, fmt.Sprintf("fatal: could not start browser: %v", err), fmt.Errorf("failed to launch browser: %w", err))
	}
	defer l.closePage(ctx, page)

	if err := page.SetCookies(ctx, cred.Cookies); err != nil {
		if ctx.Err() != nil {
			return l.stopped(ctx, ctx.Err())
		}
		return l.fatal(ctx, fmt.Sprintf("fatal: could not apply credential: %v", err), fmt.Errorf("failed to set cookies: %w", err))
	}

	if err := l.navigateInitial(ctx, page); err != nil {
		if ctx.Err() != nil {
			return l.stopped(ctx, ctx.Err())
		}
		reason := "fatal: could not open target page, check that the credential is still valid"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "fatal: timed out opening target page, check that the credential is still valid"
		}
		l.saveDebug(ctx, page, "initial-navigation")
		return l.fatal(ctx, reason, fmt.Errorf("%w: %w", ErrNavigationFailed, err))
	}
	l.deps.Dismisser.Dismiss(ctx, page)

	l.enter(ctx, PhaseSteadyState)
	for {
		l.RunCycle(ctx, page)
		if ctx.Err() != nil {
			return l.stopped(ctx, ctx.Err())
		}
		if err := sleep(ctx, l.cfg.RefreshInterval); err != nil {
			return l.stopped(ctx, err)
		}
	}
}

func (l *Loop) navigateInitial(ctx context.Context, page Page) error {
	navCtx, cancel := context.WithTimeout(ctx, l.cfg.NavigationTimeout)
	defer cancel()

	l.logger.Info(ctx, "opening target page", map[string]interface{}{
		"url":     l.cfg.TargetURL,
		"timeout": l.cfg.NavigationTimeout.String(),
	})
	return page.Navigate(navCtx, l.cfg.TargetURL)
}

// RunCycle performs one reload, wait, screenshot and extract pass. Any error or panic is
// absorbed here and reported through the status.
func (l *Loop) RunCycle(ctx context.Context, page Page) (outcome Outcome) {
	log := l.logger.WithField("cycle_id", uuid.NewString())
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			outcome = l.failed(ctx, log, page, fmt.Errorf("panic: %v", r))
		}
		log.Info(ctx, "cycle finished", map[string]interface{}{
			"outcome":     string(outcome),
			"duration_ms": time.Since(started).Milliseconds(),
		})
	}()

	l.deps.State.SetStatus(StatusUpdating)
	outcome, err := l.cycle(ctx, log, page)
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeCancelled
		}
		return l.failed(ctx, log, page, err)
	}
	return outcome
}

func (l *Loop) cycle(ctx context.Context, log logger.Logger, page Page) (Outcome, error) {
	reloadCtx, cancel := context.WithTimeout(ctx, l.cfg.NavigationTimeout)
	err := page.Reload(reloadCtx)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeCancelled, nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn(ctx, "page reload timed out", map[string]interface{}{
				"timeout": l.cfg.NavigationTimeout.String(),
			})
			l.deps.State.SetStatus(StatusReloadTimeout)
			l.saveDebug(ctx, page, "reload-timeout")
			return OutcomeReloadTimeout, nil
		}
		return OutcomeFailed, fmt.Errorf("reload failed: %w", err)
	}

	l.deps.Dismisser.Dismiss(ctx, page)

	if err := page.ScrollToTop(ctx); err != nil {
		return OutcomeFailed, fmt.Errorf("scroll to top failed: %w", err)
	}
	if err := sleep(ctx, l.cfg.ScrollSettle); err != nil {
		return OutcomeCancelled, nil
	}

	if !l.deps.Prober.AwaitReady(ctx, page, l.cfg.ReadyTimeout) {
		if ctx.Err() != nil {
			return OutcomeCancelled, nil
		}
		l.deps.State.SetStatus(StatusNotReady)
		l.saveDebug(ctx, page, "ready-timeout")
		return OutcomeNotReady, nil
	}

	img, err := page.Screenshot(ctx)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("screenshot failed: %w", err)
	}
	if err := l.deps.Artifacts.SaveCapture(ctx, img); err != nil {
		log.Warn(ctx, "failed to store capture", map[string]interface{}{
			"error": err.Error(),
		})
	}

	result := l.deps.Extractor.Extract(ctx, img)
	if ctx.Err() != nil {
		return OutcomeCancelled, nil
	}
	if result.Empty() {
		l.deps.State.SetStatus(StatusNoData)
		return OutcomeNoData, nil
	}

	l.deps.State.Replace(&result, UpdatedStatus(l.cfg.RefreshInterval))
	log.Info(ctx, "dashboard data updated", map[string]interface{}{
		"metrics":     len(result.Metrics),
		"update_time": result.UpdateTime,
	})
	return OutcomeUpdated, nil
}

// UpdatedStatus is the status after a successful cycle.
func UpdatedStatus(interval time.Duration) string {
	return fmt.Sprintf("data updated, next refresh in %ds", int(interval.Round(time.Second)/time.Second))
}

// FailedStatus is the status after a cycle fault.
func FailedStatus(err error) string {
	return fmt.Sprintf("iteration failed, retrying: %v", err)
}

func (l *Loop) failed(ctx context.Context, log logger.Logger, page Page, err error) Outcome {
	log.Error(ctx, "capture cycle failed", map[string]interface{}{
		"error": err.Error(),
	})
	l.deps.State.SetStatus(FailedStatus(err))
	l.saveDebug(ctx, page, "error")
	return OutcomeFailed
}

// saveDebug is best effort: a page that cannot be screenshotted or stored is only logged.
func (l *Loop) saveDebug(ctx context.Context, page Page, reason string) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Warn(ctx, "debug screenshot panicked", map[string]interface{}{
				"reason": reason,
				"panic":  fmt.Sprint(r),
			})
		}
	}()

	shotCtx, cancel := context.WithTimeout(ctx, l.cfg.ReadyTimeout)
	defer cancel()

	img, err := page.Screenshot(shotCtx)
	if err != nil {
		l.logger.Warn(ctx, "failed to take debug screenshot", map[string]interface{}{
			"reason": reason,
			"error":  err.Error(),
		})
		return
	}
	if err := l.deps.Artifacts.SaveDebug(ctx, img, reason); err != nil {
		l.logger.Warn(ctx, "failed to store debug screenshot", map[string]interface{}{
			"reason": reason,
			"error":  err.Error(),
		})
	}
}

func (l *Loop) closePage(ctx context.Context, page Page) {
	if err := page.Close(); err != nil {
		l.logger.Warn(ctx, "failed to close browser", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	l.logger.Info(ctx, "browser closed", nil)
}

func (l *Loop) enter(ctx context.Context, phase Phase) {
	l.logger.Info(ctx, "capture phase", map[string]interface{}{
		"phase": string(phase),
	})
}

func (l *Loop) fatal(ctx context.Context, status string, err error) error {
	l.logger.Error(ctx, "capture loop terminated", map[string]interface{}{
		"error": err.Error(),
	})
	l.deps.State.SetStatus(status)
	l.enter(ctx, PhaseTerminated)
	return err
}

func (l *Loop) stopped(ctx context.Context, err error) error {
	l.deps.State.SetStatus(StatusStopped)
	l.enter(ctx, PhaseTerminated)
	return err
}
