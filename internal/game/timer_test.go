package game_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wurban88/AI-Prompt-Game/internal/game"
	"github.com/wurban88/AI-Prompt-Game/internal/store"
)

// startedGame spins up an engine with a running countdown of the given
// length.
func startedGame(t *testing.T, length int) (*game.Engine, *store.Memory, *clockHarness) {
	t.Helper()
	e, st, fc := newTestEngine(t)
	g := mustCreateGame(t, e)
	ctx := context.Background()
	require.NoError(t, e.UpdateSettings(ctx, g.ID, game.Settings{RoundLength: &length}))
	mustAddTeam(t, e, g.ID, "Alpha")
	mustAddTeam(t, e, g.ID, "Beta")
	require.NoError(t, e.Start(ctx, g.ID))
	return e, st, &clockHarness{t: t, fc: fc, st: st, gameID: g.ID}
}

type clockHarness struct {
	t      *testing.T
	fc     fakeClock
	st     *store.Memory
	gameID string
}

type fakeClock interface {
	Advance(d time.Duration)
	BlockUntil(n int)
}

// tickOnce advances the fake clock by one second and waits until the
// countdown goroutine has applied the write.
func (h *clockHarness) tickOnce(wantLeft int) {
	h.t.Helper()
	h.fc.BlockUntil(1)
	h.fc.Advance(time.Second)
	require.Eventually(h.t, func() bool {
		g, err := h.st.GetGame(context.Background(), h.gameID)
		return err == nil && g.TimeLeft == wantLeft
	}, 2*time.Second, 5*time.Millisecond, "countdown should reach %d", wantLeft)
}

func (h *clockHarness) game() *game.Game {
	h.t.Helper()
	g, err := h.st.GetGame(context.Background(), h.gameID)
	require.NoError(h.t, err)
	return g
}

func TestCountdownDecrementsOncePerSecond(t *testing.T) {
	_, _, h := startedGame(t, 120)

	h.tickOnce(119)
	h.tickOnce(118)
	h.tickOnce(117)

	g := h.game()
	require.True(t, g.IsRunning)
	require.Equal(t, 117, g.TimeLeft)
}

func TestCountdownStopsAtZero(t *testing.T) {
	_, _, h := startedGame(t, 30)

	for left := 29; left >= 0; left-- {
		h.tickOnce(left)
	}

	g := h.game()
	require.Equal(t, 0, g.TimeLeft)
	require.False(t, g.IsRunning, "exhausting the countdown must stop the clock")
}

func TestStartTimerAtZeroRestoresFloor(t *testing.T) {
	e, _, h := startedGame(t, 30)
	for left := 29; left >= 0; left-- {
		h.tickOnce(left)
	}

	require.NoError(t, e.StartTimer(context.Background(), h.gameID))
	g := h.game()
	require.Equal(t, 30, g.TimeLeft, "restart at zero should restore the floor")
	require.True(t, g.IsRunning)

	h.tickOnce(29)
}

func TestStopTimerPausesCountdown(t *testing.T) {
	e, _, h := startedGame(t, 120)
	h.tickOnce(119)

	require.NoError(t, e.StopTimer(context.Background(), h.gameID))
	g := h.game()
	require.False(t, g.IsRunning)
	require.Equal(t, 119, g.TimeLeft)

	// further clock movement changes nothing while paused
	h.fc.Advance(5 * time.Second)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 119, h.game().TimeLeft)
}

func TestResetTimerRestoresRoundLength(t *testing.T) {
	e, _, h := startedGame(t, 120)
	h.tickOnce(119)
	h.tickOnce(118)

	require.NoError(t, e.ResetTimer(context.Background(), h.gameID))
	g := h.game()
	require.False(t, g.IsRunning)
	require.Equal(t, 120, g.TimeLeft)
}

func TestRestartImmediatelyAfterExhaustion(t *testing.T) {
	e, _, h := startedGame(t, 30)
	for left := 29; left >= 0; left-- {
		h.tickOnce(left)
	}

	// the exhausted ticker goroutine may still be winding down at this
	// point; restarting must not be swallowed by its stale registration
	require.NoError(t, e.StartTimer(context.Background(), h.gameID))
	g := h.game()
	require.True(t, g.IsRunning)
	require.Equal(t, 30, g.TimeLeft)

	h.tickOnce(29)
	h.tickOnce(28)
}

func TestStartTimerWhileRunningKeepsOneCountdown(t *testing.T) {
	e, _, h := startedGame(t, 120)
	h.tickOnce(119)

	require.NoError(t, e.StartTimer(context.Background(), h.gameID))

	// still exactly one countdown: each second removes exactly one
	h.tickOnce(118)
	h.tickOnce(117)
	require.Equal(t, 117, h.game().TimeLeft)
}

func TestTimeLeftNeverNegative(t *testing.T) {
	_, _, h := startedGame(t, 30)
	for left := 29; left >= 0; left-- {
		h.tickOnce(left)
		require.GreaterOrEqual(t, h.game().TimeLeft, 0)
	}
}
