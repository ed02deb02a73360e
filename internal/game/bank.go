package game

import (
	"math/rand"
	"sync"
)

// DefaultChallenges is the built-in challenge bank.
var DefaultChallenges = []Challenge{
	{ID: 1, Mode: ModeStory, Text: "Write a 150-word story about a robot who learns to dream."},
	{ID: 2, Mode: ModeStory, Text: "Explain photosynthesis to a 6-year-old using a bedtime story."},
	{ID: 3, Mode: ModeImage, Text: "Design a poster of a 1920s travel ad for a city on Mars."},
	{ID: 4, Mode: ModeBusiness, Text: "Draft a 2-sentence process improvement for reducing support call handle time by 10%."},
	{ID: 5, Mode: ModeBusiness, Text: "Create a one-paragraph elevator pitch for a new student finance self-serve portal."},
	{ID: 6, Mode: ModeImage, Text: "Create an image prompt for a mascot celebrating a big Cubs win in outer space."},
	{ID: 7, Mode: ModeSpeed, Text: "Turn this weak prompt into a strong one: 'make it better'"},
	{ID: 8, Mode: ModeMeme, Text: "Craft a meme caption about coffee-powered deployments on Friday at 4:59pm."},
	{ID: 9, Mode: ModeCorporate, Text: "Generate 3 bullet points for a status update on an AI pilot with measurable KPIs."},
	{ID: 10, Mode: ModeHaiku, Text: "Turn an incident postmortem into a respectful 3-line haiku with action items."},
}

// DefaultTwists is the built-in twist bank.
var DefaultTwists = []string{
	"Add one unexpected constraint (e.g., double-acrostic, emoji-only, ABAB rhyme).",
	"Change the audience to: executives with 30 seconds to spare.",
	"Rewrite in the voice of a 1980s infomercial.",
	"Make it bilingual (English + your choice) in one response.",
	"Enforce hard limits: 2 sentences, max 20 words total.",
	"Introduce a tasteful plot twist in the final line.",
	"Switch the format to bullet points with exactly 5 bullets.",
	"Turn seriousness into humor (or vice versa), but preserve facts.",
	"Make it data-driven: add 2 plausible metrics.",
	"Force a persona: 'meticulous auditor' or 'chaotic creative director'.",
}

// Picker draws random challenges and twists from its banks.
type Picker struct {
	mu         sync.Mutex
	rng        *rand.Rand
	challenges []Challenge
	twists     []string
}

func NewPicker(challenges []Challenge, twists []string, seed int64) *Picker {
	return &Picker{
		rng:        rand.New(rand.NewSource(seed)),
		challenges: challenges,
		twists:     twists,
	}
}

// Challenge selects uniformly at random from the bank entries matching mode.
// ModeAny draws from the full bank. An empty filtered pool is ErrEmptyPool,
// never a nil challenge.
func (p *Picker) Challenge(mode Mode) (Challenge, error) {
	pool := p.challenges
	if mode != ModeAny {
		pool = nil
		for _, c := range p.challenges {
			if c.Mode == mode {
				pool = append(pool, c)
			}
		}
	}
	if len(pool) == 0 {
		return Challenge{}, ErrEmptyPool
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return pool[p.rng.Intn(len(pool))], nil
}

// Twist selects uniformly at random from the twist bank.
func (p *Picker) Twist() (string, error) {
	if len(p.twists) == 0 {
		return "", ErrEmptyPool
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.twists[p.rng.Intn(len(p.twists))], nil
}
