// Package dispatch sends assembled quotations to suppliers one at a time,
// behind a two-state safety interlock.
package dispatch

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"chandler/internal/errs"
)

type GuardState string

const (
	Locked   GuardState = "locked"
	Unlocked GuardState = "unlocked"
)

// Guard is the send interlock. It starts Locked, unlocks only on an exact
// confirmation phrase, and relocks itself after the idle duration with no
// lock or send activity. At most one countdown is ever live: every entry into
// Unlocked starts a fresh one and every exit cancels it.
type Guard struct {
	mu        sync.Mutex
	state     GuardState
	challenge string
	idle      time.Duration
	timer     *time.Timer
	gen       uint64
}

func NewGuard(challenge string, idle time.Duration) *Guard {
	return &Guard{state: Locked, challenge: challenge, idle: idle}
}

func (g *Guard) State() GuardState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Unlock transitions Locked -> Unlocked when the confirmation text exactly
// equals the configured challenge. Any mismatch leaves the guard Locked and
// returns a validation failure.
func (g *Guard) Unlock(confirmation string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if confirmation != g.challenge {
		return &errs.ValidationError{Field: "confirmation", Detail: "confirmation text does not match"}
	}

	g.state = Unlocked
	g.startCountdown()
	zap.L().Info("dispatch: guard unlocked", zap.Duration("idle_timeout", g.idle))
	return nil
}

// Lock transitions to Locked and cancels any running countdown. Safe to call
// in any state.
func (g *Guard) Lock() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopCountdown()
	if g.state != Locked {
		g.state = Locked
		zap.L().Info("dispatch: guard locked")
	}
}

// Touch restarts the idle countdown on send activity. A no-op while Locked.
func (g *Guard) Touch() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == Unlocked {
		g.startCountdown()
	}
}

// Ensure returns a LockedError while the guard is Locked.
func (g *Guard) Ensure() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != Unlocked {
		return &errs.LockedError{}
	}
	return nil
}

// startCountdown must be called with the mutex held. The generation counter
// makes an already-fired stale timer a no-op.
func (g *Guard) startCountdown() {
	g.stopCountdown()
	if g.idle <= 0 {
		return
	}

	g.gen++
	generation := g.gen
	g.timer = time.AfterFunc(g.idle, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.gen != generation || g.state != Unlocked {
			return
		}
		g.state = Locked
		g.timer = nil
		zap.L().Info("dispatch: guard auto-relocked after idle timeout")
	})
}

// stopCountdown must be called with the mutex held.
func (g *Guard) stopCountdown() {
	g.gen++
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}
