package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/wurban88/AI-Prompt-Game/internal/game"
)

//go:embed schema.sql
var embeddedSchema embed.FS

// SQLite persists sessions in a single sqlite database. Change events are
// published from this process after each successful write; with a single
// server owning the file that covers every mutation.
type SQLite struct {
	*notifier
	db *sql.DB
}

var _ game.Store = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database at path and applies the schema.
// Foreign keys are enabled through the DSN so that every connection the pool
// opens enforces them, not just the one that ran the setup.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &SQLite{notifier: newNotifier(), db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) initSchema() error {
	b, err := embeddedSchema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = s.db.Exec(strings.TrimSpace(string(b)))
	return err
}

func (s *SQLite) CreateGame(ctx context.Context, g *game.Game) error {
	var chID sql.NullInt64
	var chMode, chText, twist sql.NullString
	if g.CurrentChallenge != nil {
		chID = sql.NullInt64{Int64: int64(g.CurrentChallenge.ID), Valid: true}
		chMode = sql.NullString{String: string(g.CurrentChallenge.Mode), Valid: true}
		chText = sql.NullString{String: g.CurrentChallenge.Text, Valid: true}
	}
	if g.CurrentTwist != "" {
		twist = sql.NullString{String: g.CurrentTwist, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO games(id, rounds, current_round, mode, round_length, twist_enabled,
                  phase, time_left, is_running, challenge_id, challenge_mode,
                  challenge_text, twist, finalized_round, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Rounds, g.CurrentRound, string(g.Mode), g.RoundLength, g.TwistEnabled,
		string(g.Phase), g.TimeLeft, g.IsRunning, chID, chMode, chText, twist,
		g.FinalizedRound, g.CreatedAt)
	if err != nil {
		return err
	}
	s.publish(game.Event{Table: tableGames, GameID: g.ID})
	return nil
}

func (s *SQLite) GetGame(ctx context.Context, id string) (*game.Game, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, rounds, current_round, mode, round_length, twist_enabled, phase,
       time_left, is_running, challenge_id, challenge_mode, challenge_text,
       twist, finalized_round, created_at
FROM games WHERE id = ?`, id)

	var g game.Game
	var mode, phase string
	var chID sql.NullInt64
	var chMode, chText, twist sql.NullString
	err := row.Scan(&g.ID, &g.Rounds, &g.CurrentRound, &mode, &g.RoundLength,
		&g.TwistEnabled, &phase, &g.TimeLeft, &g.IsRunning, &chID, &chMode,
		&chText, &twist, &g.FinalizedRound, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, game.ErrNotFound
		}
		return nil, err
	}
	g.Mode = game.Mode(mode)
	g.Phase = game.Phase(phase)
	if chID.Valid {
		g.CurrentChallenge = &game.Challenge{
			ID:   int(chID.Int64),
			Mode: game.Mode(chMode.String),
			Text: chText.String,
		}
	}
	if twist.Valid {
		g.CurrentTwist = twist.String
	}
	return &g, nil
}

func (s *SQLite) UpdateGame(ctx context.Context, id string, u game.GameUpdate) error {
	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if u.Rounds != nil {
		set("rounds", *u.Rounds)
	}
	if u.CurrentRound != nil {
		set("current_round", *u.CurrentRound)
	}
	if u.Mode != nil {
		set("mode", string(*u.Mode))
	}
	if u.RoundLength != nil {
		set("round_length", *u.RoundLength)
	}
	if u.TwistEnabled != nil {
		set("twist_enabled", *u.TwistEnabled)
	}
	if u.Phase != nil {
		set("phase", string(*u.Phase))
	}
	if u.TimeLeft != nil {
		set("time_left", *u.TimeLeft)
	}
	if u.IsRunning != nil {
		set("is_running", *u.IsRunning)
	}
	if u.Challenge != nil {
		set("challenge_id", u.Challenge.ID)
		set("challenge_mode", string(u.Challenge.Mode))
		set("challenge_text", u.Challenge.Text)
	}
	if u.Twist != nil {
		set("twist", *u.Twist)
	}
	if u.ClearTwist {
		set("twist", nil)
	}
	if u.FinalizedRound != nil {
		set("finalized_round", *u.FinalizedRound)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := s.db.ExecContext(ctx, `UPDATE games SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return game.ErrNotFound
	}
	s.publish(game.Event{Table: tableGames, GameID: id})
	return nil
}

func (s *SQLite) DeleteGame(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return game.ErrNotFound
	}
	s.publish(game.Event{Table: tableGames, GameID: id})
	return nil
}

func (s *SQLite) CreateTeam(ctx context.Context, t *game.Team) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO teams(id, game_id, name, score, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.GameID, t.Name, t.Score, t.CreatedAt)
	if err != nil {
		return err
	}
	s.publish(game.Event{Table: tableTeams, GameID: t.GameID})
	return nil
}

func (s *SQLite) ListTeams(ctx context.Context, gameID string) ([]*game.Team, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, score, created_at FROM teams WHERE game_id = ? ORDER BY created_at, id`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []*game.Team
	for rows.Next() {
		t := &game.Team{GameID: gameID}
		if err := rows.Scan(&t.ID, &t.Name, &t.Score, &t.CreatedAt); err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (s *SQLite) UpdateTeamScore(ctx context.Context, gameID, teamID string, score int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE teams SET score = ? WHERE id = ? AND game_id = ?`, score, teamID, gameID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return game.ErrNotFound
	}
	s.publish(game.Event{Table: tableTeams, GameID: gameID})
	return nil
}

func (s *SQLite) DeleteTeam(ctx context.Context, gameID, teamID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM teams WHERE id = ? AND game_id = ?`, teamID, gameID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return game.ErrNotFound
	}
	// foreign keys cascade the child rows
	s.publish(game.Event{Table: tableTeams, GameID: gameID})
	s.publish(game.Event{Table: tableSubmissions, GameID: gameID})
	s.publish(game.Event{Table: tableScores, GameID: gameID})
	return nil
}

func (s *SQLite) UpsertSubmissionField(ctx context.Context, gameID, teamID string, round int, field, value string) error {
	if !game.ValidSubmissionField(field) {
		return fmt.Errorf("submission field %q: %w", field, game.ErrUnknownField)
	}
	q := fmt.Sprintf(`
INSERT INTO submissions(id, game_id, team_id, round, %[1]s)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(game_id, team_id, round) DO UPDATE SET %[1]s = excluded.%[1]s`, field)
	if _, err := s.db.ExecContext(ctx, q, uuid.NewString(), gameID, teamID, round, value); err != nil {
		return err
	}
	s.publish(game.Event{Table: tableSubmissions, GameID: gameID})
	return nil
}

func (s *SQLite) ListSubmissions(ctx context.Context, gameID string, round int) ([]*game.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, team_id, prompt, output, notes
FROM submissions WHERE game_id = ? AND round = ?`, gameID, round)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*game.Submission
	for rows.Next() {
		sub := &game.Submission{GameID: gameID, Round: round}
		if err := rows.Scan(&sub.ID, &sub.TeamID, &sub.Prompt, &sub.Output, &sub.Notes); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *SQLite) UpsertScoreField(ctx context.Context, gameID, teamID string, round int, field string, value int) error {
	if !game.ValidScoreField(field) {
		return fmt.Errorf("score field %q: %w", field, game.ErrUnknownField)
	}
	q := fmt.Sprintf(`
INSERT INTO scores(id, game_id, team_id, round, %[1]s)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(game_id, team_id, round) DO UPDATE SET %[1]s = excluded.%[1]s`, field)
	if _, err := s.db.ExecContext(ctx, q, uuid.NewString(), gameID, teamID, round, value); err != nil {
		return err
	}
	s.publish(game.Event{Table: tableScores, GameID: gameID})
	return nil
}

func (s *SQLite) ListScores(ctx context.Context, gameID string, round int) ([]*game.Score, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, team_id, creativity, clarity, power
FROM scores WHERE game_id = ? AND round = ?`, gameID, round)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []*game.Score
	for rows.Next() {
		sc := &game.Score{GameID: gameID, Round: round}
		if err := rows.Scan(&sc.ID, &sc.TeamID, &sc.Creativity, &sc.Clarity, &sc.Power); err != nil {
			return nil, err
		}
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}

func (s *SQLite) DeleteRoundData(ctx context.Context, gameID string, round int) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM submissions WHERE game_id = ? AND round = ?`, gameID, round); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM scores WHERE game_id = ? AND round = ?`, gameID, round); err != nil {
		return err
	}
	s.publish(game.Event{Table: tableSubmissions, GameID: gameID})
	s.publish(game.Event{Table: tableScores, GameID: gameID})
	return nil
}
