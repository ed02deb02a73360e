package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wurban88/AI-Prompt-Game/internal/game"
)

func memGame(t *testing.T, m *Memory) *game.Game {
	t.Helper()
	g := &game.Game{
		ID:           "g1",
		Rounds:       3,
		CurrentRound: 1,
		Mode:         game.ModeAny,
		RoundLength:  180,
		TwistEnabled: true,
		Phase:        game.PhaseSetup,
		TimeLeft:     180,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, m.CreateGame(context.Background(), g))
	return g
}

func TestMemoryGameRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	memGame(t, m)

	got, err := m.GetGame(ctx, "g1")
	require.NoError(t, err)
	require.Equal(t, game.PhaseSetup, got.Phase)

	_, err = m.GetGame(ctx, "missing")
	require.ErrorIs(t, err, game.ErrNotFound)
}

func TestMemoryPartialUpdate(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	memGame(t, m)

	phase := game.PhasePrompt
	left := 90
	running := true
	ch := game.Challenge{ID: 7, Mode: game.ModeSpeed, Text: "go"}
	tw := "emoji only"
	require.NoError(t, m.UpdateGame(ctx, "g1", game.GameUpdate{
		Phase:     &phase,
		TimeLeft:  &left,
		IsRunning: &running,
		Challenge: &ch,
		Twist:     &tw,
	}))

	got, err := m.GetGame(ctx, "g1")
	require.NoError(t, err)
	require.Equal(t, game.PhasePrompt, got.Phase)
	require.Equal(t, 90, got.TimeLeft)
	require.True(t, got.IsRunning)
	require.Equal(t, 3, got.Rounds, "untouched fields keep their value")
	require.NotNil(t, got.CurrentChallenge)
	require.Equal(t, 7, got.CurrentChallenge.ID)
	require.Equal(t, "emoji only", got.CurrentTwist)

	// ClearTwist wipes the twist without touching anything else
	require.NoError(t, m.UpdateGame(ctx, "g1", game.GameUpdate{ClearTwist: true}))
	got, err = m.GetGame(ctx, "g1")
	require.NoError(t, err)
	require.Empty(t, got.CurrentTwist)
	require.NotNil(t, got.CurrentChallenge)
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	memGame(t, m)

	got, err := m.GetGame(ctx, "g1")
	require.NoError(t, err)
	got.Phase = game.PhaseEnd

	again, err := m.GetGame(ctx, "g1")
	require.NoError(t, err)
	require.Equal(t, game.PhaseSetup, again.Phase, "mutating a returned game must not affect the store")
}

func TestMemorySubscribeDeliversEvents(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	memGame(t, m)

	events := make(chan game.Event, 16)
	unsub := m.Subscribe("g1", func(ev game.Event) { events <- ev })
	defer unsub()

	left := 10
	require.NoError(t, m.UpdateGame(ctx, "g1", game.GameUpdate{TimeLeft: &left}))

	select {
	case ev := <-events:
		require.Equal(t, "games", ev.Table)
		require.Equal(t, "g1", ev.GameID)
	case <-time.After(time.Second):
		t.Fatal("no change event delivered")
	}
}

func TestMemoryUnsubscribeStopsEvents(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	memGame(t, m)

	events := make(chan game.Event, 16)
	unsub := m.Subscribe("g1", func(ev game.Event) { events <- ev })
	unsub()

	left := 10
	require.NoError(t, m.UpdateGame(ctx, "g1", game.GameUpdate{TimeLeft: &left}))

	select {
	case ev := <-events:
		t.Fatalf("unexpected event after unsubscribe: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemorySubscriptionScopedToGame(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	memGame(t, m)
	other := &game.Game{ID: "g2", Rounds: 1, CurrentRound: 1, Phase: game.PhaseSetup, CreatedAt: time.Now().UTC()}
	require.NoError(t, m.CreateGame(ctx, other))

	events := make(chan game.Event, 16)
	unsub := m.Subscribe("g1", func(ev game.Event) { events <- ev })
	defer unsub()

	left := 5
	require.NoError(t, m.UpdateGame(ctx, "g2", game.GameUpdate{TimeLeft: &left}))

	select {
	case ev := <-events:
		t.Fatalf("received event for another game: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryTeamAndChildRecords(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	memGame(t, m)

	t1 := &game.Team{ID: "t1", GameID: "g1", Name: "Alpha", CreatedAt: time.Now().UTC()}
	t2 := &game.Team{ID: "t2", GameID: "g1", Name: "Beta", CreatedAt: time.Now().UTC().Add(time.Second)}
	require.NoError(t, m.CreateTeam(ctx, t1))
	require.NoError(t, m.CreateTeam(ctx, t2))

	teams, err := m.ListTeams(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, teams, 2)
	require.Equal(t, "t1", teams[0].ID, "teams ordered by creation")

	require.NoError(t, m.UpsertSubmissionField(ctx, "g1", "t1", 1, game.FieldPrompt, "hello"))
	require.NoError(t, m.UpsertSubmissionField(ctx, "g1", "t1", 1, game.FieldNotes, "applied twist"))
	subs, err := m.ListSubmissions(ctx, "g1", 1)
	require.NoError(t, err)
	require.Len(t, subs, 1, "per-field writes land on the same row")
	require.Equal(t, "hello", subs[0].Prompt)
	require.Equal(t, "applied twist", subs[0].Notes)

	require.NoError(t, m.UpsertScoreField(ctx, "g1", "t1", 1, game.FieldClarity, 4))
	scores, err := m.ListScores(ctx, "g1", 1)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	require.Equal(t, 4, scores[0].Clarity)

	// deleting the team removes its children
	require.NoError(t, m.DeleteTeam(ctx, "g1", "t1"))
	subs, err = m.ListSubmissions(ctx, "g1", 1)
	require.NoError(t, err)
	require.Empty(t, subs)
	scores, err = m.ListScores(ctx, "g1", 1)
	require.NoError(t, err)
	require.Empty(t, scores)
}

func TestMemoryDeleteRoundData(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	memGame(t, m)
	require.NoError(t, m.CreateTeam(ctx, &game.Team{ID: "t1", GameID: "g1", Name: "Alpha", CreatedAt: time.Now().UTC()}))

	require.NoError(t, m.UpsertSubmissionField(ctx, "g1", "t1", 1, game.FieldPrompt, "round one"))
	require.NoError(t, m.UpsertSubmissionField(ctx, "g1", "t1", 2, game.FieldPrompt, "round two"))
	require.NoError(t, m.UpsertScoreField(ctx, "g1", "t1", 1, game.FieldPower, 3))

	require.NoError(t, m.DeleteRoundData(ctx, "g1", 1))

	subs, err := m.ListSubmissions(ctx, "g1", 1)
	require.NoError(t, err)
	require.Empty(t, subs)
	subs, err = m.ListSubmissions(ctx, "g1", 2)
	require.NoError(t, err)
	require.Len(t, subs, 1, "other rounds untouched")
	scores, err := m.ListScores(ctx, "g1", 1)
	require.NoError(t, err)
	require.Empty(t, scores)
}

func TestMemoryUpsertRejectsUnknownTeam(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	memGame(t, m)

	err := m.UpsertSubmissionField(ctx, "g1", "ghost", 1, game.FieldPrompt, "x")
	require.ErrorIs(t, err, game.ErrNotFound)
	err = m.UpsertScoreField(ctx, "g1", "ghost", 1, game.FieldClarity, 3)
	require.ErrorIs(t, err, game.ErrNotFound)

	subs, err := m.ListSubmissions(ctx, "g1", 1)
	require.NoError(t, err)
	require.Empty(t, subs, "no row may be created for a team that does not exist")
}

func TestMemoryUnknownFieldRejected(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	memGame(t, m)
	require.NoError(t, m.CreateTeam(ctx, &game.Team{ID: "t1", GameID: "g1", Name: "Alpha", CreatedAt: time.Now().UTC()}))

	err := m.UpsertSubmissionField(ctx, "g1", "t1", 1, "bogus", "x")
	require.ErrorIs(t, err, game.ErrUnknownField)
	err = m.UpsertScoreField(ctx, "g1", "t1", 1, "bogus", 1)
	require.ErrorIs(t, err, game.ErrUnknownField)
}
