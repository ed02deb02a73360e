package game

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// StartTimer resumes the countdown. Starting at zero first restores a small
// floor so the timer never visibly runs at 0.
func (e *Engine) StartTimer(ctx context.Context, gameID string) error {
	defer e.lockGame(gameID)()

	g, err := e.store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	u := GameUpdate{IsRunning: boolPtr(true)}
	if g.TimeLeft == 0 {
		u.TimeLeft = intPtr(restartFloor)
	}
	if err := e.store.UpdateGame(ctx, gameID, u); err != nil {
		return err
	}
	e.startTicker(gameID)
	return nil
}

// StopTimer pauses the countdown without resetting it.
func (e *Engine) StopTimer(ctx context.Context, gameID string) error {
	defer e.lockGame(gameID)()
	e.stopTicker(gameID)
	return e.store.UpdateGame(ctx, gameID, GameUpdate{IsRunning: boolPtr(false)})
}

// ResetTimer stops the countdown and restores the full round length.
func (e *Engine) ResetTimer(ctx context.Context, gameID string) error {
	defer e.lockGame(gameID)()

	g, err := e.store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	e.stopTicker(gameID)
	return e.store.UpdateGame(ctx, gameID, GameUpdate{
		IsRunning: boolPtr(false),
		TimeLeft:  intPtr(g.RoundLength),
	})
}

// startTicker launches the once-per-second countdown for a game, replacing
// any ticker already registered. The old entry may belong to a goroutine that
// is mid-exit after exhausting the countdown, so a no-op here could leave a
// "running" timer with nobody ticking it; closing and replacing makes start
// safe at any moment. Exactly one live ticker per game exists at any time.
func (e *Engine) startTicker(gameID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if old, ok := e.tickers[gameID]; ok {
		close(old)
	}
	stop := make(chan struct{})
	e.tickers[gameID] = stop
	go e.runTicker(gameID, stop)
}

// stopTicker cancels a game's countdown goroutine, if any.
func (e *Engine) stopTicker(gameID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if stop, ok := e.tickers[gameID]; ok {
		close(stop)
		delete(e.tickers, gameID)
	}
}

// Close cancels every running countdown. Called on server shutdown so no
// orphaned writer keeps mutating the store.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, stop := range e.tickers {
		close(stop)
		delete(e.tickers, id)
	}
}

func (e *Engine) runTicker(gameID string, stop chan struct{}) {
	tk := e.clock.NewTicker(time.Second)
	defer tk.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tk.Chan():
			// a replacement may have landed between the tick firing and us
			// reading it; only the registered ticker gets to write
			if !e.isCurrent(gameID, stop) {
				return
			}
			if !e.tick(gameID) {
				e.retireTicker(gameID, stop)
				return
			}
		}
	}
}

func (e *Engine) isCurrent(gameID string, own chan struct{}) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tickers[gameID] == own
}

// tick applies one second of countdown. Returns false when the ticker should
// exit: timer paused elsewhere, countdown exhausted, or game gone.
func (e *Engine) tick(gameID string) bool {
	defer e.lockGame(gameID)()

	ctx := context.Background()
	g, err := e.store.GetGame(ctx, gameID)
	if err != nil {
		return false
	}
	if !g.IsRunning {
		return false
	}
	if g.TimeLeft <= 1 {
		// exhausting the countdown stops the clock in the same tick
		if err := e.store.UpdateGame(ctx, gameID, GameUpdate{
			TimeLeft:  intPtr(0),
			IsRunning: boolPtr(false),
		}); err != nil {
			log.Error().Err(err).Str("gameId", gameID).Msg("timer stop write failed")
		}
		return false
	}
	if err := e.store.UpdateGame(ctx, gameID, GameUpdate{TimeLeft: intPtr(g.TimeLeft - 1)}); err != nil {
		log.Error().Err(err).Str("gameId", gameID).Msg("timer tick write failed")
	}
	return true
}

// retireTicker removes a ticker entry that is exiting on its own, unless it
// was already replaced by a newer one.
func (e *Engine) retireTicker(gameID string, own chan struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cur, ok := e.tickers[gameID]; ok && cur == own {
		delete(e.tickers, gameID)
	}
}
