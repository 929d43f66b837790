package install_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedirsath07/ExpireGuard/internal/install"
	"github.com/mohamedirsath07/ExpireGuard/pkg/clock"
)

type fakeState struct {
	dismissedAt time.Time
}

func (s *fakeState) LastDispatch(_ context.Context) (time.Time, error)          { return time.Time{}, nil }
func (s *fakeState) SetLastDispatch(_ context.Context, _ time.Time) error       { return nil }
func (s *fakeState) WaitingVersion(_ context.Context) (int, bool, error)        { return 0, false, nil }
func (s *fakeState) SetWaitingVersion(_ context.Context, _ int) error           { return nil }
func (s *fakeState) ClearWaitingVersion(_ context.Context) error                { return nil }
func (s *fakeState) ActiveVersion(_ context.Context) (int, bool, error)         { return 0, false, nil }
func (s *fakeState) SetActiveVersion(_ context.Context, _ int) error            { return nil }
func (s *fakeState) InstallDismissedAt(_ context.Context) (time.Time, error)    { return s.dismissedAt, nil }
func (s *fakeState) SetInstallDismissedAt(_ context.Context, t time.Time) error {
	s.dismissedAt = t
	return nil
}

var now = time.Date(2026, time.August, 28, 9, 0, 0, 0, time.UTC)

func acceptingPrompt(accepted bool) *install.Prompt {
	return &install.Prompt{
		Trigger: func(_ context.Context) (bool, error) { return accepted, nil },
	}
}

func TestController_CaptureMakesInstallable(t *testing.T) {
	c := install.NewController(&fakeState{}, install.WithClock(clock.NewFake(now)))

	assert.Equal(t, install.StateUnavailable, c.State())
	assert.False(t, c.CanInstall())

	c.Capture(context.Background(), acceptingPrompt(true))
	assert.Equal(t, install.StateAvailable, c.State())
	assert.True(t, c.CanInstall())
}

func TestController_CaptureOnlyOncePerPageLoad(t *testing.T) {
	c := install.NewController(&fakeState{}, install.WithClock(clock.NewFake(now)))

	first := 0
	c.Capture(context.Background(), &install.Prompt{
		Trigger: func(_ context.Context) (bool, error) { first++; return true, nil },
	})
	c.Capture(context.Background(), acceptingPrompt(true)) // ignored

	accepted, err := c.Install(context.Background())
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Equal(t, 1, first, "only the first captured prompt may fire")
}

func TestController_InstallAccepted(t *testing.T) {
	c := install.NewController(&fakeState{}, install.WithClock(clock.NewFake(now)))
	c.Capture(context.Background(), acceptingPrompt(true))

	accepted, err := c.Install(context.Background())
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.True(t, c.IsInstalled())
	assert.Equal(t, install.StateAccepted, c.State())
	assert.False(t, c.CanInstall(), "prompt consumed")
}

func TestController_InstallDeclined(t *testing.T) {
	c := install.NewController(&fakeState{}, install.WithClock(clock.NewFake(now)))
	c.Capture(context.Background(), acceptingPrompt(false))

	accepted, err := c.Install(context.Background())
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.False(t, c.IsInstalled())
	assert.Equal(t, install.StateDismissed, c.State())
}

func TestController_InstallWithoutPrompt(t *testing.T) {
	c := install.NewController(&fakeState{}, install.WithClock(clock.NewFake(now)))

	accepted, err := c.Install(context.Background())
	require.NoError(t, err)
	assert.False(t, accepted)
}

func TestController_InstallTriggerError(t *testing.T) {
	c := install.NewController(&fakeState{}, install.WithClock(clock.NewFake(now)))
	c.Capture(context.Background(), &install.Prompt{
		Trigger: func(_ context.Context) (bool, error) { return false, errors.New("platform refused") },
	})

	_, err := c.Install(context.Background())
	require.Error(t, err)
	assert.Equal(t, install.StateUnavailable, c.State())
}

func TestController_DismissSuppressesRecapture(t *testing.T) {
	state := &fakeState{}
	fc := clock.NewFake(now)
	c := install.NewController(state, install.WithClock(fc))
	c.Capture(context.Background(), acceptingPrompt(true))

	c.Dismiss(context.Background())
	assert.Equal(t, install.StateDismissed, c.State())
	assert.True(t, state.dismissedAt.Equal(now))

	// Six days later a fresh page load still suppresses the prompt.
	fc.Advance(6 * 24 * time.Hour)
	later := install.NewController(state, install.WithClock(fc))
	later.Capture(context.Background(), acceptingPrompt(true))
	assert.False(t, later.CanInstall())

	// Past the window it is offered again.
	fc.Advance(2 * 24 * time.Hour)
	again := install.NewController(state, install.WithClock(fc))
	again.Capture(context.Background(), acceptingPrompt(true))
	assert.True(t, again.CanInstall())
}

func TestController_SuppressWindowConfigurable(t *testing.T) {
	state := &fakeState{dismissedAt: now.Add(-2 * time.Hour)}
	fc := clock.NewFake(now)

	short := install.NewController(state,
		install.WithClock(fc), install.WithSuppressWindow(time.Hour))
	short.Capture(context.Background(), acceptingPrompt(true))
	assert.True(t, short.CanInstall(), "dismissal older than the window must not suppress")

	long := install.NewController(state,
		install.WithClock(fc), install.WithSuppressWindow(72*time.Hour))
	long.Capture(context.Background(), acceptingPrompt(true))
	assert.False(t, long.CanInstall())
}

func TestController_MarkInstalled(t *testing.T) {
	c := install.NewController(&fakeState{}, install.WithClock(clock.NewFake(now)))
	c.Capture(context.Background(), acceptingPrompt(true))

	c.MarkInstalled()
	assert.True(t, c.IsInstalled())
	assert.False(t, c.CanInstall())

	// No further capture once installed.
	c.Capture(context.Background(), acceptingPrompt(true))
	assert.False(t, c.CanInstall())
}
