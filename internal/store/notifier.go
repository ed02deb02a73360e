package store

import (
	"sync"

	"github.com/wurban88/AI-Prompt-Game/internal/game"
)

// notifier fans change events out to per-game subscribers. Delivery is
// asynchronous and at-least-once; subscribers refetch the affected
// collection rather than trusting the event payload.
type notifier struct {
	mu   sync.Mutex
	subs map[string]map[int]func(game.Event)
	next int
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[string]map[int]func(game.Event))}
}

func (n *notifier) Subscribe(gameID string, fn func(game.Event)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs[gameID] == nil {
		n.subs[gameID] = make(map[int]func(game.Event))
	}
	id := n.next
	n.next++
	n.subs[gameID][id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if m := n.subs[gameID]; m != nil {
			delete(m, id)
			if len(m) == 0 {
				delete(n.subs, gameID)
			}
		}
	}
}

func (n *notifier) publish(ev game.Event) {
	n.mu.Lock()
	fns := make([]func(game.Event), 0, len(n.subs[ev.GameID]))
	for _, fn := range n.subs[ev.GameID] {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		go fn(ev)
	}
}

const (
	tableGames       = "games"
	tableTeams       = "teams"
	tableSubmissions = "submissions"
	tableScores      = "scores"
)
