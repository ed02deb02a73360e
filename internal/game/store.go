package game

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// Submission and score field names accepted by the per-field upserts.
const (
	FieldPrompt = "prompt"
	FieldOutput = "output"
	FieldNotes  = "notes"

	FieldCreativity = "creativity"
	FieldClarity    = "clarity"
	FieldPower      = "power"
)

// Event signals that rows in one table changed for one game. Payloads carry
// no row data on purpose: delivery is at-least-once and unordered, so
// subscribers refetch the affected collection instead of applying diffs.
type Event struct {
	Table  string `json:"table"` // "games" | "teams" | "submissions" | "scores"
	GameID string `json:"gameId"`
}

// GameUpdate is a partial update of the session record. Nil pointers leave
// the field untouched. ClearTwist removes the current twist (used when a
// round is drawn with twists disabled).
type GameUpdate struct {
	Rounds         *int
	CurrentRound   *int
	Mode           *Mode
	RoundLength    *int
	TwistEnabled   *bool
	Phase          *Phase
	TimeLeft       *int
	IsRunning      *bool
	Challenge      *Challenge
	Twist          *string
	ClearTwist     bool
	FinalizedRound *int
}

// Store is the persistence boundary for one or more game sessions. The
// engine treats it as a key-value layer with change notification; it makes
// no assumption about the backing engine.
type Store interface {
	CreateGame(ctx context.Context, g *Game) error
	GetGame(ctx context.Context, id string) (*Game, error)
	UpdateGame(ctx context.Context, id string, u GameUpdate) error
	DeleteGame(ctx context.Context, id string) error

	CreateTeam(ctx context.Context, t *Team) error
	ListTeams(ctx context.Context, gameID string) ([]*Team, error)
	UpdateTeamScore(ctx context.Context, gameID, teamID string, score int) error
	// DeleteTeam removes the team together with its submissions and scores.
	DeleteTeam(ctx context.Context, gameID, teamID string) error

	UpsertSubmissionField(ctx context.Context, gameID, teamID string, round int, field, value string) error
	ListSubmissions(ctx context.Context, gameID string, round int) ([]*Submission, error)

	UpsertScoreField(ctx context.Context, gameID, teamID string, round int, field string, value int) error
	ListScores(ctx context.Context, gameID string, round int) ([]*Score, error)

	// DeleteRoundData removes all submissions and scores for one round.
	DeleteRoundData(ctx context.Context, gameID string, round int) error

	// Subscribe registers fn for change events scoped to gameID. fn may be
	// invoked concurrently and must not call back into the store
	// synchronously with held locks. The returned func unsubscribes.
	Subscribe(gameID string, fn func(Event)) (unsubscribe func())
}

func ValidSubmissionField(field string) bool {
	return field == FieldPrompt || field == FieldOutput || field == FieldNotes
}

func ValidScoreField(field string) bool {
	return field == FieldCreativity || field == FieldClarity || field == FieldPower
}
