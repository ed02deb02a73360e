package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/wurban88/AI-Prompt-Game/internal/game"
)

// roundKey addresses a team's per-round child record.
type roundKey struct {
	teamID string
	round  int
}

// Memory is the in-process store used for development and tests. Structure
// follows the sqlite store: one table per aggregate, keyed by game.
type Memory struct {
	*notifier

	mu    sync.RWMutex
	games map[string]*game.Game
	teams map[string]map[string]*game.Team         // gameID -> teamID
	subs  map[string]map[roundKey]*game.Submission // gameID -> (team, round)
	marks map[string]map[roundKey]*game.Score      // gameID -> (team, round)
}

func NewMemory() *Memory {
	return &Memory{
		notifier: newNotifier(),
		games:    make(map[string]*game.Game),
		teams:    make(map[string]map[string]*game.Team),
		subs:     make(map[string]map[roundKey]*game.Submission),
		marks:    make(map[string]map[roundKey]*game.Score),
	}
}

var _ game.Store = (*Memory)(nil)

func (m *Memory) CreateGame(_ context.Context, g *game.Game) error {
	m.mu.Lock()
	cp := *g
	m.games[g.ID] = &cp
	m.teams[g.ID] = make(map[string]*game.Team)
	m.subs[g.ID] = make(map[roundKey]*game.Submission)
	m.marks[g.ID] = make(map[roundKey]*game.Score)
	m.mu.Unlock()
	m.publish(game.Event{Table: tableGames, GameID: g.ID})
	return nil
}

func (m *Memory) GetGame(_ context.Context, id string) (*game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	if !ok {
		return nil, game.ErrNotFound
	}
	cp := *g
	if g.CurrentChallenge != nil {
		c := *g.CurrentChallenge
		cp.CurrentChallenge = &c
	}
	return &cp, nil
}

func (m *Memory) UpdateGame(_ context.Context, id string, u game.GameUpdate) error {
	m.mu.Lock()
	g, ok := m.games[id]
	if !ok {
		m.mu.Unlock()
		return game.ErrNotFound
	}
	applyGameUpdate(g, u)
	m.mu.Unlock()
	m.publish(game.Event{Table: tableGames, GameID: id})
	return nil
}

func applyGameUpdate(g *game.Game, u game.GameUpdate) {
	if u.Rounds != nil {
		g.Rounds = *u.Rounds
	}
	if u.CurrentRound != nil {
		g.CurrentRound = *u.CurrentRound
	}
	if u.Mode != nil {
		g.Mode = *u.Mode
	}
	if u.RoundLength != nil {
		g.RoundLength = *u.RoundLength
	}
	if u.TwistEnabled != nil {
		g.TwistEnabled = *u.TwistEnabled
	}
	if u.Phase != nil {
		g.Phase = *u.Phase
	}
	if u.TimeLeft != nil {
		g.TimeLeft = *u.TimeLeft
	}
	if u.IsRunning != nil {
		g.IsRunning = *u.IsRunning
	}
	if u.Challenge != nil {
		c := *u.Challenge
		g.CurrentChallenge = &c
	}
	if u.Twist != nil {
		g.CurrentTwist = *u.Twist
	}
	if u.ClearTwist {
		g.CurrentTwist = ""
	}
	if u.FinalizedRound != nil {
		g.FinalizedRound = *u.FinalizedRound
	}
}

func (m *Memory) DeleteGame(_ context.Context, id string) error {
	m.mu.Lock()
	if _, ok := m.games[id]; !ok {
		m.mu.Unlock()
		return game.ErrNotFound
	}
	delete(m.games, id)
	delete(m.teams, id)
	delete(m.subs, id)
	delete(m.marks, id)
	m.mu.Unlock()
	m.publish(game.Event{Table: tableGames, GameID: id})
	return nil
}

func (m *Memory) CreateTeam(_ context.Context, t *game.Team) error {
	m.mu.Lock()
	teams, ok := m.teams[t.GameID]
	if !ok {
		m.mu.Unlock()
		return game.ErrNotFound
	}
	cp := *t
	teams[t.ID] = &cp
	m.mu.Unlock()
	m.publish(game.Event{Table: tableTeams, GameID: t.GameID})
	return nil
}

func (m *Memory) ListTeams(_ context.Context, gameID string) ([]*game.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	teams, ok := m.teams[gameID]
	if !ok {
		return nil, game.ErrNotFound
	}
	out := make([]*game.Team, 0, len(teams))
	for _, t := range teams {
		cp := *t
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) UpdateTeamScore(_ context.Context, gameID, teamID string, score int) error {
	m.mu.Lock()
	t, ok := m.teams[gameID][teamID]
	if !ok {
		m.mu.Unlock()
		return game.ErrNotFound
	}
	t.Score = score
	m.mu.Unlock()
	m.publish(game.Event{Table: tableTeams, GameID: gameID})
	return nil
}

func (m *Memory) DeleteTeam(_ context.Context, gameID, teamID string) error {
	m.mu.Lock()
	teams, ok := m.teams[gameID]
	if !ok || teams[teamID] == nil {
		m.mu.Unlock()
		return game.ErrNotFound
	}
	delete(teams, teamID)
	for k := range m.subs[gameID] {
		if k.teamID == teamID {
			delete(m.subs[gameID], k)
		}
	}
	for k := range m.marks[gameID] {
		if k.teamID == teamID {
			delete(m.marks[gameID], k)
		}
	}
	m.mu.Unlock()
	m.publish(game.Event{Table: tableTeams, GameID: gameID})
	m.publish(game.Event{Table: tableSubmissions, GameID: gameID})
	m.publish(game.Event{Table: tableScores, GameID: gameID})
	return nil
}

func (m *Memory) UpsertSubmissionField(_ context.Context, gameID, teamID string, round int, field, value string) error {
	if !game.ValidSubmissionField(field) {
		return fmt.Errorf("submission field %q: %w", field, game.ErrUnknownField)
	}
	m.mu.Lock()
	subs, ok := m.subs[gameID]
	if !ok || m.teams[gameID][teamID] == nil {
		m.mu.Unlock()
		return game.ErrNotFound
	}
	k := roundKey{teamID: teamID, round: round}
	s := subs[k]
	if s == nil {
		s = &game.Submission{ID: uuid.NewString(), GameID: gameID, TeamID: teamID, Round: round}
		subs[k] = s
	}
	switch field {
	case game.FieldPrompt:
		s.Prompt = value
	case game.FieldOutput:
		s.Output = value
	case game.FieldNotes:
		s.Notes = value
	}
	m.mu.Unlock()
	m.publish(game.Event{Table: tableSubmissions, GameID: gameID})
	return nil
}

func (m *Memory) ListSubmissions(_ context.Context, gameID string, round int) ([]*game.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	subs, ok := m.subs[gameID]
	if !ok {
		return nil, game.ErrNotFound
	}
	var out []*game.Submission
	for k, s := range subs {
		if k.round == round {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) UpsertScoreField(_ context.Context, gameID, teamID string, round int, field string, value int) error {
	if !game.ValidScoreField(field) {
		return fmt.Errorf("score field %q: %w", field, game.ErrUnknownField)
	}
	m.mu.Lock()
	marks, ok := m.marks[gameID]
	if !ok || m.teams[gameID][teamID] == nil {
		m.mu.Unlock()
		return game.ErrNotFound
	}
	k := roundKey{teamID: teamID, round: round}
	s := marks[k]
	if s == nil {
		s = &game.Score{ID: uuid.NewString(), GameID: gameID, TeamID: teamID, Round: round}
		marks[k] = s
	}
	switch field {
	case game.FieldCreativity:
		s.Creativity = value
	case game.FieldClarity:
		s.Clarity = value
	case game.FieldPower:
		s.Power = value
	}
	m.mu.Unlock()
	m.publish(game.Event{Table: tableScores, GameID: gameID})
	return nil
}

func (m *Memory) ListScores(_ context.Context, gameID string, round int) ([]*game.Score, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	marks, ok := m.marks[gameID]
	if !ok {
		return nil, game.ErrNotFound
	}
	var out []*game.Score
	for k, s := range marks {
		if k.round == round {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) DeleteRoundData(_ context.Context, gameID string, round int) error {
	m.mu.Lock()
	if _, ok := m.games[gameID]; !ok {
		m.mu.Unlock()
		return game.ErrNotFound
	}
	for k := range m.subs[gameID] {
		if k.round == round {
			delete(m.subs[gameID], k)
		}
	}
	for k := range m.marks[gameID] {
		if k.round == round {
			delete(m.marks[gameID], k)
		}
	}
	m.mu.Unlock()
	m.publish(game.Event{Table: tableSubmissions, GameID: gameID})
	m.publish(game.Event{Table: tableScores, GameID: gameID})
	return nil
}
