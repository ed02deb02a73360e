package game

import (
	"time"
)

type Phase string

const (
	PhaseSetup   Phase = "setup"
	PhasePrompt  Phase = "prompt"
	PhaseTwist   Phase = "twist"
	PhaseScoring Phase = "scoring"
	PhaseResults Phase = "results"
	PhaseEnd     Phase = "end"
)

type Mode string

const (
	ModeAny       Mode = "Any"
	ModeStory     Mode = "Story"
	ModeImage     Mode = "Image"
	ModeBusiness  Mode = "Business"
	ModeMeme      Mode = "Meme"
	ModeSpeed     Mode = "Speed"
	ModeHaiku     Mode = "Haiku"
	ModeCorporate Mode = "Corporate"
)

// Modes lists every selectable game mode, ModeAny first.
var Modes = []Mode{ModeAny, ModeStory, ModeImage, ModeBusiness, ModeMeme, ModeSpeed, ModeHaiku, ModeCorporate}

type Challenge struct {
	ID   int    `json:"id"`
	Mode Mode   `json:"mode"`
	Text string `json:"text"`
}

// Game is the shared session record every client renders from. The phase,
// round and timer fields are only ever written by the Engine; team and
// submission records are open to any connected client.
type Game struct {
	ID               string     `json:"id"`
	Rounds           int        `json:"rounds"`
	CurrentRound     int        `json:"currentRound"`
	Mode             Mode       `json:"mode"`
	RoundLength      int        `json:"roundLength"` // seconds
	TwistEnabled     bool       `json:"twistEnabled"`
	Phase            Phase      `json:"phase"`
	TimeLeft         int        `json:"timeLeft"` // seconds
	IsRunning        bool       `json:"isRunning"`
	CurrentChallenge *Challenge `json:"currentChallenge"`
	CurrentTwist     string     `json:"currentTwist,omitempty"`
	// FinalizedRound is the highest round whose totals have already been
	// folded into the cumulative team scores. Guards double-finalize.
	FinalizedRound int       `json:"finalizedRound"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Team struct {
	ID        string    `json:"id"`
	GameID    string    `json:"gameId"`
	Name      string    `json:"name"`
	Score     int       `json:"score"` // cumulative across finalized rounds
	CreatedAt time.Time `json:"createdAt"`
}

// Submission holds one team's entry for one round. Fields are edited
// independently, one at a time, mirroring the participant UI.
type Submission struct {
	ID     string `json:"id"`
	GameID string `json:"gameId"`
	TeamID string `json:"teamId"`
	Round  int    `json:"round"`
	Prompt string `json:"prompt"`
	Output string `json:"output"`
	Notes  string `json:"notes"`
}

type Score struct {
	ID         string `json:"id"`
	GameID     string `json:"gameId"`
	TeamID     string `json:"teamId"`
	Round      int    `json:"round"`
	Creativity int    `json:"creativity"`
	Clarity    int    `json:"clarity"`
	Power      int    `json:"power"`
}

// Total is the round total for one team: the three judged criteria summed,
// each clamped to [0,5]. A nil Score counts as zero.
func (s *Score) Total() int {
	if s == nil {
		return 0
	}
	return clampCriterion(s.Creativity) + clampCriterion(s.Clarity) + clampCriterion(s.Power)
}

func clampCriterion(v int) int {
	if v < 0 {
		return 0
	}
	if v > 5 {
		return 5
	}
	return v
}
