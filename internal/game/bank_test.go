package game_test

import (
	"errors"
	"testing"

	"github.com/wurban88/AI-Prompt-Game/internal/game"
)

func TestPickerFiltersByMode(t *testing.T) {
	p := game.NewPicker(game.DefaultChallenges, game.DefaultTwists, 42)

	seen := map[int]int{}
	for i := 0; i < 2000; i++ {
		c, err := p.Challenge(game.ModeStory)
		if err != nil {
			t.Fatalf("draw %d: %v", i, err)
		}
		if c.Mode != game.ModeStory {
			t.Fatalf("drew a %s challenge in Story mode", c.Mode)
		}
		seen[c.ID]++
	}
	// the bank holds exactly two Story entries; both should show up
	if len(seen) != 2 {
		t.Fatalf("expected exactly 2 distinct Story challenges, got %d", len(seen))
	}
}

func TestPickerAnyDrawsFullBank(t *testing.T) {
	p := game.NewPicker(game.DefaultChallenges, game.DefaultTwists, 42)

	seen := map[int]bool{}
	for i := 0; i < 5000; i++ {
		c, err := p.Challenge(game.ModeAny)
		if err != nil {
			t.Fatalf("draw %d: %v", i, err)
		}
		seen[c.ID] = true
	}
	if len(seen) != len(game.DefaultChallenges) {
		t.Fatalf("Any mode should reach the whole bank over repeated draws, saw %d of %d", len(seen), len(game.DefaultChallenges))
	}
}

func TestPickerEmptyPool(t *testing.T) {
	bank := []game.Challenge{{ID: 1, Mode: game.ModeStory, Text: "only story"}}
	p := game.NewPicker(bank, nil, 1)

	if _, err := p.Challenge(game.ModeHaiku); !errors.Is(err, game.ErrEmptyPool) {
		t.Fatalf("expected ErrEmptyPool, got %v", err)
	}
	if _, err := p.Twist(); !errors.Is(err, game.ErrEmptyPool) {
		t.Fatalf("expected ErrEmptyPool for empty twist bank, got %v", err)
	}
}

func TestPickerTwist(t *testing.T) {
	p := game.NewPicker(nil, game.DefaultTwists, 7)
	tw, err := p.Twist()
	if err != nil {
		t.Fatalf("twist: %v", err)
	}
	found := false
	for _, known := range game.DefaultTwists {
		if tw == known {
			found = true
		}
	}
	if !found {
		t.Fatalf("twist %q not from the bank", tw)
	}
}
