package capture

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairizuan-noorazman/dashboard-watch/credential"
	"github.com/hairizuan-noorazman/dashboard-watch/extraction"
	"github.com/hairizuan-noorazman/dashboard-watch/logger"
	"github.com/hairizuan-noorazman/dashboard-watch/state"
)

type loopFixture struct {
	page      *fakePage
	launcher  *fakeLauncher
	artifacts *recordingArtifacts
	state     *state.MemoryStore
	log       *logger.TestLogger
	loop      *Loop
}

func newLoopFixture(page *fakePage, source credential.Source, ex Extractor) *loopFixture {
	log := logger.NewTestLogger()
	f := &loopFixture{
		page:      page,
		launcher:  &fakeLauncher{page: page},
		artifacts: &recordingArtifacts{},
		state:     state.NewMemoryStore(state.StatusInitializing),
		log:       log,
	}
	f.loop = NewLoop(Config{
		TargetURL:         "https://dashboard.example.com/overview",
		NavigationTimeout: 50 * time.Millisecond,
		ReadyTimeout:      100 * time.Millisecond,
		RefreshInterval:   10 * time.Millisecond,
	}, Dependencies{
		Credentials: source,
		Launcher:    f.launcher,
		Dismisser:   NewDialogDismisser(DefaultDialogSteps(), 5*time.Millisecond, 0, log),
		Prober:      NewReadinessProber("", log),
		Extractor:   ex,
		Artifacts:   f.artifacts,
		State:       f.state,
	}, log)
	return f
}

// start runs the loop in the background and returns a function that cancels it and waits.
func (f *loopFixture) start(t *testing.T) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.loop.Run(ctx) }()

	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(2 * time.Second):
			t.Fatal("capture loop did not stop after cancellation")
			return nil
		}
	}
}

func TestLoop_Run_CredentialMissing(t *testing.T) {
	page := newFakePage("1")
	f := newLoopFixture(page, credential.NewFileSource("/nonexistent/cookies.json"), fixedResult("1"))

	err := f.loop.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, credential.ErrCredentialMissing)
	assert.True(t, strings.HasPrefix(f.state.Snapshot().Status, "fatal: could not load credential"))
	assert.Equal(t, int32(0), f.launcher.launched.Load())
	assert.Nil(t, f.state.Snapshot().Data)
}

func TestLoop_Run_CredentialUnconfigured(t *testing.T) {
	source, err := credential.NewSource(credential.Config{})
	require.NoError(t, err)
	f := newLoopFixture(newFakePage("1"), source, fixedResult("1"))

	err = f.loop.Run(context.Background())

	assert.ErrorIs(t, err, credential.ErrCredentialMissing)
	assert.True(t, strings.HasPrefix(f.state.Snapshot().Status, "fatal: could not load credential"))
	assert.Equal(t, int32(0), f.launcher.launched.Load())
}

func TestLoop_Run_LaunchFailure(t *testing.T) {
	f := newLoopFixture(newFakePage("1"), validCredential(), fixedResult("1"))
	f.launcher.err = errors.New("chrome not found")

	err := f.loop.Run(context.Background())

	require.Error(t, err)
	assert.True(t, strings.HasPrefix(f.state.Snapshot().Status, "fatal: could not start browser"))
}

func TestLoop_Run_InitialNavigationFailure(t *testing.T) {
	page := newFakePage("1")
	page.navigateErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
	f := newLoopFixture(page, validCredential(), fixedResult("1"))

	err := f.loop.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNavigationFailed)
	assert.True(t, strings.HasPrefix(f.state.Snapshot().Status, "fatal:"))
	assert.Equal(t, []string{"initial-navigation"}, f.artifacts.Debug())
	assert.Equal(t, int32(1), page.closed.Load())
	assert.NotContains(t, page.Calls(), "reload")
}

func TestLoop_Run_UpdatesStateAndStops(t *testing.T) {
	page := newFakePage("1,234", "知道了")
	f := newLoopFixture(page, validCredential(), fixedResult("1,234"))

	stop := f.start(t)
	require.Eventually(t, func() bool {
		return f.state.Snapshot().Data != nil
	}, 2*time.Second, 5*time.Millisecond)

	// let a few more cycles run before stopping
	require.Eventually(t, func() bool {
		return f.artifacts.Captures() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	err := stop()
	assert.ErrorIs(t, err, context.Canceled)

	snap := f.state.Snapshot()
	assert.Equal(t, StatusStopped, snap.Status)
	require.NotNil(t, snap.Data)
	assert.Equal(t, "1,234", snap.Data.Metrics[0].Value)
	assert.Equal(t, int32(1), page.closed.Load())
	assert.False(t, page.overlapped.Load(), "page operations overlapped")

	calls := page.Calls()
	require.GreaterOrEqual(t, len(calls), 3)
	assert.Equal(t, []string{"set_cookies", "navigate", "wait:知道了"}, calls[:3])
	assert.Contains(t, calls, "click:知道了")
}

func TestLoop_Run_CancelWhileWaitingClosesBrowser(t *testing.T) {
	page := newFakePage("0")
	f := newLoopFixture(page, validCredential(), fixedResult("1"))
	f.loop.cfg.ReadyTimeout = time.Minute

	stop := f.start(t)
	require.Eventually(t, func() bool {
		return page.polls.Load() > 0
	}, 2*time.Second, 5*time.Millisecond)

	started := time.Now()
	err := stop()

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(started), time.Second)
	assert.Equal(t, int32(1), page.closed.Load())
	assert.Equal(t, StatusStopped, f.state.Snapshot().Status)
	assert.Empty(t, f.artifacts.Debug())
}

func TestLoop_Run_CancelDuringStartDelay(t *testing.T) {
	f := newLoopFixture(newFakePage("1"), validCredential(), fixedResult("1"))
	f.loop.cfg.StartDelay = time.Minute

	stop := f.start(t)
	err := stop()

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), f.launcher.launched.Load())
	assert.Equal(t, StatusStopped, f.state.Snapshot().Status)
}

func TestLoop_RunCycle_FaultIsolation(t *testing.T) {
	page := newFakePage("1,234")
	var ex Extractor = fixedResult("100")
	f := newLoopFixture(page, validCredential(), extractFunc(func(ctx context.Context, b []byte) extraction.Result {
		return ex.Extract(ctx, b)
	}))
	ctx := context.Background()

	require.Equal(t, OutcomeUpdated, f.loop.RunCycle(ctx, page))
	lastGood := f.state.Snapshot().Data
	require.NotNil(t, lastGood)
	assert.Equal(t, UpdatedStatus(10*time.Millisecond), f.state.Snapshot().Status)

	t.Run("extractor panic", func(t *testing.T) {
		ex = extractFunc(panicking)
		assert.Equal(t, OutcomeFailed, f.loop.RunCycle(ctx, page))

		snap := f.state.Snapshot()
		assert.True(t, strings.HasPrefix(snap.Status, "iteration failed, retrying: panic:"))
		assert.Equal(t, lastGood, snap.Data)
		assert.Contains(t, f.artifacts.Debug(), "error")
	})

	t.Run("no valid data", func(t *testing.T) {
		ex = extractFunc(func(ctx context.Context, b []byte) extraction.Result {
			return extraction.Result{}
		})
		assert.Equal(t, OutcomeNoData, f.loop.RunCycle(ctx, page))

		snap := f.state.Snapshot()
		assert.Equal(t, StatusNoData, snap.Status)
		assert.Equal(t, lastGood, snap.Data)
	})

	t.Run("data never settles", func(t *testing.T) {
		ex = fixedResult("999")
		page.setText("--")
		defer page.setText("1,234")

		assert.Equal(t, OutcomeNotReady, f.loop.RunCycle(ctx, page))

		snap := f.state.Snapshot()
		assert.Equal(t, StatusNotReady, snap.Status)
		assert.Equal(t, lastGood, snap.Data)
		assert.Contains(t, f.artifacts.Debug(), "ready-timeout")
	})

	t.Run("screenshot failure", func(t *testing.T) {
		page.screenshotErr = errBoom
		defer func() { page.screenshotErr = nil }()

		assert.Equal(t, OutcomeFailed, f.loop.RunCycle(ctx, page))
		snap := f.state.Snapshot()
		assert.Contains(t, snap.Status, "boom")
		assert.Equal(t, lastGood, snap.Data)
	})

	t.Run("reload error", func(t *testing.T) {
		page.setReload(func(ctx context.Context) error { return errBoom })
		defer page.setReload(nil)

		assert.Equal(t, OutcomeFailed, f.loop.RunCycle(ctx, page))
		assert.Equal(t, FailedStatus(errors.New("reload failed: boom")), f.state.Snapshot().Status)
	})

	t.Run("capture storage failure does not block update", func(t *testing.T) {
		ex = fixedResult("555")
		f.artifacts.err = errBoom
		defer func() { f.artifacts.err = nil }()

		assert.Equal(t, OutcomeUpdated, f.loop.RunCycle(ctx, page))
		assert.Equal(t, "555", f.state.Snapshot().Data.Metrics[0].Value)
		assert.True(t, f.log.HasMessage("failed to store capture"))
	})

	t.Run("recovers on next cycle", func(t *testing.T) {
		ex = fixedResult("200")
		assert.Equal(t, OutcomeUpdated, f.loop.RunCycle(ctx, page))
		assert.Equal(t, "200", f.state.Snapshot().Data.Metrics[0].Value)
	})
}

func TestLoop_RunCycle_ReloadTimeout(t *testing.T) {
	page := newFakePage("1,234")
	f := newLoopFixture(page, validCredential(), fixedResult("1"))
	ctx := context.Background()

	page.setReload(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.Equal(t, OutcomeReloadTimeout, f.loop.RunCycle(ctx, page))
	assert.Equal(t, int32(0), page.polls.Load(), "readiness must not be awaited after a reload timeout")
	assert.Equal(t, StatusReloadTimeout, f.state.Snapshot().Status)
	assert.Equal(t, []string{"reload-timeout"}, f.artifacts.Debug())
	assert.Nil(t, f.state.Snapshot().Data)

	page.setReload(nil)
	assert.Equal(t, OutcomeUpdated, f.loop.RunCycle(ctx, page))
	assert.Equal(t, int32(1), page.polls.Load())
	assert.NotNil(t, f.state.Snapshot().Data)
}

func TestUpdatedStatus(t *testing.T) {
	assert.Equal(t, "data updated, next refresh in 15s", UpdatedStatus(15*time.Second))
	assert.Equal(t, "data updated, next refresh in 2s", UpdatedStatus(1500*time.Millisecond))
}
