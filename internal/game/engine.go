package game

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var (
	ErrNotEnoughTeams   = errors.New("need at least two teams to start")
	ErrInvalidPhase     = errors.New("invalid phase for action")
	ErrTimerRunning     = errors.New("timer must be stopped or exhausted")
	ErrAlreadyFinalized = errors.New("round already finalized")
	ErrEmptyPool        = errors.New("no challenges for selected mode")
	ErrEmptyTeamName    = errors.New("team name is empty")
	ErrUnknownField     = errors.New("unknown field")
	ErrBadSettings      = errors.New("invalid game settings")
)

const (
	defaultRounds      = 3
	defaultRoundLength = 180 // seconds
	minRounds          = 1
	maxRounds          = 10
	minRoundLength     = 30
	maxRoundLength     = 900

	// restartFloor is applied when the timer is started at zero, so it never
	// visibly runs at 0.
	restartFloor = 30
	// twistFloor is the minimum twist phase length.
	twistFloor = 45
)

// Engine owns every transition of the session phase machine and the
// countdown tickers. All mutations go through the store; connected clients
// learn about them via the store's change events.
type Engine struct {
	store  Store
	picker *Picker
	clock  clockwork.Clock

	mu      sync.Mutex
	locks   map[string]*sync.Mutex   // serializes facilitator actions per game
	tickers map[string]chan struct{} // running countdowns by game id
}

func NewEngine(st Store, picker *Picker, clock clockwork.Clock) *Engine {
	return &Engine{
		store:   st,
		picker:  picker,
		clock:   clock,
		locks:   make(map[string]*sync.Mutex),
		tickers: make(map[string]chan struct{}),
	}
}

// lockGame serializes phase/timer/scoring mutations for one game. Two
// facilitator tabs racing the same action get applied one after the other,
// so guards like FinalizedRound actually hold.
func (e *Engine) lockGame(gameID string) func() {
	e.mu.Lock()
	l := e.locks[gameID]
	if l == nil {
		l = &sync.Mutex{}
		e.locks[gameID] = l
	}
	e.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// CreateGame creates a fresh session in the setup phase with default
// settings.
func (e *Engine) CreateGame(ctx context.Context) (*Game, error) {
	g := &Game{
		ID:           uuid.NewString(),
		Rounds:       defaultRounds,
		CurrentRound: 1,
		Mode:         ModeAny,
		RoundLength:  defaultRoundLength,
		TwistEnabled: true,
		Phase:        PhaseSetup,
		TimeLeft:     defaultRoundLength,
		IsRunning:    false,
		CreatedAt:    e.clock.Now().UTC(),
	}
	if err := e.store.CreateGame(ctx, g); err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	return g, nil
}

// Settings is a partial update of the setup-phase knobs.
type Settings struct {
	Rounds       *int  `json:"rounds"`
	Mode         *Mode `json:"mode"`
	RoundLength  *int  `json:"roundLength"`
	TwistEnabled *bool `json:"twistEnabled"`
}

// UpdateSettings changes game settings. Only allowed while in setup.
func (e *Engine) UpdateSettings(ctx context.Context, gameID string, s Settings) error {
	defer e.lockGame(gameID)()

	g, err := e.store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if g.Phase != PhaseSetup {
		return ErrInvalidPhase
	}

	u := GameUpdate{Rounds: s.Rounds, TwistEnabled: s.TwistEnabled}
	if s.Rounds != nil && (*s.Rounds < minRounds || *s.Rounds > maxRounds) {
		return ErrBadSettings
	}
	if s.Mode != nil {
		if !validMode(*s.Mode) {
			return ErrBadSettings
		}
		u.Mode = s.Mode
	}
	if s.RoundLength != nil {
		if *s.RoundLength < minRoundLength || *s.RoundLength > maxRoundLength {
			return ErrBadSettings
		}
		u.RoundLength = s.RoundLength
		// keep the idle countdown display in step with the new length
		u.TimeLeft = s.RoundLength
	}
	return e.store.UpdateGame(ctx, gameID, u)
}

// AddTeam registers a team. Blank names are rejected with ErrEmptyTeamName;
// callers that want the original "silently ignore" behavior drop that error.
func (e *Engine) AddTeam(ctx context.Context, gameID, name string) (*Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyTeamName
	}
	if _, err := e.store.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	t := &Team{
		ID:        uuid.NewString(),
		GameID:    gameID,
		Name:      name,
		Score:     0,
		CreatedAt: e.clock.Now().UTC(),
	}
	if err := e.store.CreateTeam(ctx, t); err != nil {
		return nil, fmt.Errorf("create team: %w", err)
	}
	return t, nil
}

// RemoveTeam deletes a team and everything it submitted or was scored.
// Other teams' cumulative scores are untouched.
func (e *Engine) RemoveTeam(ctx context.Context, gameID, teamID string) error {
	return e.store.DeleteTeam(ctx, gameID, teamID)
}

// EditSubmission writes one submission field for the current round. There is
// no phase gate here: participants may type at any time, the UI decides what
// to show.
func (e *Engine) EditSubmission(ctx context.Context, gameID, teamID, field, value string) error {
	if !ValidSubmissionField(field) {
		return ErrUnknownField
	}
	g, err := e.store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	return e.store.UpsertSubmissionField(ctx, gameID, teamID, g.CurrentRound, field, value)
}

// SetScore writes one judged criterion for the current round, clamped to
// [0,5].
func (e *Engine) SetScore(ctx context.Context, gameID, teamID, field string, value int) error {
	if !ValidScoreField(field) {
		return ErrUnknownField
	}
	g, err := e.store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	return e.store.UpsertScoreField(ctx, gameID, teamID, g.CurrentRound, field, clampCriterion(value))
}

// Start leaves setup for the first prompt phase: draws a challenge (and
// twist, if enabled), arms the countdown and clears any stale data for the
// current round (left over from a previous "play again" cycle).
func (e *Engine) Start(ctx context.Context, gameID string) error {
	defer e.lockGame(gameID)()

	g, err := e.store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if g.Phase != PhaseSetup {
		return ErrInvalidPhase
	}
	teams, err := e.store.ListTeams(ctx, gameID)
	if err != nil {
		return err
	}
	if len(teams) < 2 {
		return ErrNotEnoughTeams
	}

	u, err := e.drawRound(g)
	if err != nil {
		return err
	}
	if err := e.store.DeleteRoundData(ctx, gameID, g.CurrentRound); err != nil {
		return fmt.Errorf("clear round data: %w", err)
	}
	u.Phase = phasePtr(PhasePrompt)
	u.TimeLeft = intPtr(g.RoundLength)
	u.IsRunning = boolPtr(true)
	if err := e.store.UpdateGame(ctx, gameID, u); err != nil {
		return err
	}
	e.startTicker(gameID)
	return nil
}

// Advance moves the phase machine forward from prompt, twist or results.
// Scoring exits through Finalize, end through PlayAgain.
func (e *Engine) Advance(ctx context.Context, gameID string) error {
	defer e.lockGame(gameID)()

	g, err := e.store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}

	switch g.Phase {
	case PhasePrompt:
		if g.IsRunning {
			return ErrTimerRunning
		}
		if g.TwistEnabled {
			u := GameUpdate{
				Phase:     phasePtr(PhaseTwist),
				TimeLeft:  intPtr(twistLength(g.RoundLength)),
				IsRunning: boolPtr(true),
			}
			if err := e.store.UpdateGame(ctx, gameID, u); err != nil {
				return err
			}
			e.startTicker(gameID)
			return nil
		}
		e.stopTicker(gameID)
		return e.store.UpdateGame(ctx, gameID, GameUpdate{
			Phase:     phasePtr(PhaseScoring),
			IsRunning: boolPtr(false),
		})

	case PhaseTwist:
		if g.IsRunning {
			return ErrTimerRunning
		}
		e.stopTicker(gameID)
		return e.store.UpdateGame(ctx, gameID, GameUpdate{
			Phase:     phasePtr(PhaseScoring),
			IsRunning: boolPtr(false),
		})

	case PhaseResults:
		if g.CurrentRound >= g.Rounds {
			return e.store.UpdateGame(ctx, gameID, GameUpdate{Phase: phasePtr(PhaseEnd)})
		}
		next := g.CurrentRound + 1
		u, err := e.drawRound(g)
		if err != nil {
			return err
		}
		if err := e.store.DeleteRoundData(ctx, gameID, next); err != nil {
			return fmt.Errorf("clear round data: %w", err)
		}
		u.CurrentRound = intPtr(next)
		u.Phase = phasePtr(PhasePrompt)
		u.TimeLeft = intPtr(g.RoundLength)
		u.IsRunning = boolPtr(true)
		if err := e.store.UpdateGame(ctx, gameID, u); err != nil {
			return err
		}
		e.startTicker(gameID)
		return nil

	default:
		return ErrInvalidPhase
	}
}

// Finalize folds the current round's totals into the cumulative team scores
// and moves to results. A round can only be finalized once; replays return
// ErrAlreadyFinalized and change nothing.
func (e *Engine) Finalize(ctx context.Context, gameID string) error {
	defer e.lockGame(gameID)()

	g, err := e.store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if g.Phase != PhaseScoring {
		return ErrInvalidPhase
	}
	if g.FinalizedRound >= g.CurrentRound {
		return ErrAlreadyFinalized
	}

	teams, err := e.store.ListTeams(ctx, gameID)
	if err != nil {
		return err
	}
	scores, err := e.store.ListScores(ctx, gameID, g.CurrentRound)
	if err != nil {
		return err
	}
	byTeam := make(map[string]*Score, len(scores))
	for _, s := range scores {
		byTeam[s.TeamID] = s
	}
	for _, t := range teams {
		total := byTeam[t.ID].Total()
		if total == 0 {
			continue
		}
		if err := e.store.UpdateTeamScore(ctx, gameID, t.ID, t.Score+total); err != nil {
			return fmt.Errorf("update team score: %w", err)
		}
	}
	return e.store.UpdateGame(ctx, gameID, GameUpdate{
		Phase:          phasePtr(PhaseResults),
		FinalizedRound: intPtr(g.CurrentRound),
	})
}

// PlayAgain returns an ended game to setup for another run. Teams and their
// cumulative scores are kept; only phase and round counters reset.
func (e *Engine) PlayAgain(ctx context.Context, gameID string) error {
	defer e.lockGame(gameID)()

	g, err := e.store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if g.Phase != PhaseEnd {
		return ErrInvalidPhase
	}
	return e.store.UpdateGame(ctx, gameID, GameUpdate{
		Phase:          phasePtr(PhaseSetup),
		CurrentRound:   intPtr(1),
		FinalizedRound: intPtr(0),
		TimeLeft:       intPtr(g.RoundLength),
		IsRunning:      boolPtr(false),
	})
}

// Reset deletes the whole session, children included.
func (e *Engine) Reset(ctx context.Context, gameID string) error {
	defer e.lockGame(gameID)()
	e.stopTicker(gameID)
	return e.store.DeleteGame(ctx, gameID)
}

// drawRound picks the next challenge and twist according to the game's
// settings.
func (e *Engine) drawRound(g *Game) (GameUpdate, error) {
	c, err := e.picker.Challenge(g.Mode)
	if err != nil {
		return GameUpdate{}, err
	}
	u := GameUpdate{Challenge: &c}
	if g.TwistEnabled {
		tw, err := e.picker.Twist()
		if err != nil {
			return GameUpdate{}, err
		}
		u.Twist = &tw
	} else {
		u.ClearTwist = true
	}
	return u, nil
}

func twistLength(roundLength int) int {
	if l := roundLength / 3; l > twistFloor {
		return l
	}
	return twistFloor
}

func validMode(m Mode) bool {
	for _, known := range Modes {
		if m == known {
			return true
		}
	}
	return false
}

// Snapshot is the full aggregate clients refetch after a change event.
type Snapshot struct {
	Game        *Game                  `json:"game"`
	Teams       []*Team                `json:"teams"`       // creation order
	Leaderboard []*Team                `json:"leaderboard"` // score descending
	Submissions map[string]*Submission `json:"submissions"` // by team id, current round
	Scores      map[string]*Score      `json:"scores"`      // by team id, current round
	RoundTotals map[string]int         `json:"roundTotals"` // by team id
}

func (e *Engine) Snapshot(ctx context.Context, gameID string) (*Snapshot, error) {
	g, err := e.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	teams, err := e.store.ListTeams(ctx, gameID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(teams, func(i, j int) bool { return teams[i].CreatedAt.Before(teams[j].CreatedAt) })

	subs, err := e.store.ListSubmissions(ctx, gameID, g.CurrentRound)
	if err != nil {
		return nil, err
	}
	scores, err := e.store.ListScores(ctx, gameID, g.CurrentRound)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Game:        g,
		Teams:       teams,
		Submissions: make(map[string]*Submission, len(subs)),
		Scores:      make(map[string]*Score, len(scores)),
		RoundTotals: make(map[string]int, len(teams)),
	}
	for _, s := range subs {
		snap.Submissions[s.TeamID] = s
	}
	for _, s := range scores {
		snap.Scores[s.TeamID] = s
	}
	for _, t := range teams {
		snap.RoundTotals[t.ID] = snap.Scores[t.ID].Total()
	}

	snap.Leaderboard = make([]*Team, len(teams))
	copy(snap.Leaderboard, teams)
	sort.SliceStable(snap.Leaderboard, func(i, j int) bool {
		return snap.Leaderboard[i].Score > snap.Leaderboard[j].Score
	})
	return snap, nil
}

func phasePtr(p Phase) *Phase { return &p }
func intPtr(v int) *int       { return &v }
func boolPtr(v bool) *bool    { return &v }
