// Package ticker drives the engine's single logical writer: either a
// periodic real-time timer, or an externally supplied explicit delta.
package ticker

import (
	"log/slog"
	"time"
)

// Handler advances the engine by delta. It must not block on anything but
// the engine lock it acquires internally.
type Handler func(delta time.Duration)

// Ticker fires Handler either on its own periodic timer ("internal" mode)
// or only when Advance is called explicitly ("external" mode). Exactly one
// mode is active per process, matching the engine's single-writer
// discipline: the same handler is never invoked concurrently with itself.
type Ticker struct {
	period   time.Duration // 0 means external mode
	handler  Handler
	lastTick time.Time

	stop chan struct{}
}

// New creates a ticker. period == 0 selects external mode: Run does
// nothing and the caller must drive time via Advance.
func New(period time.Duration, handler Handler) *Ticker {
	return &Ticker{period: period, handler: handler, stop: make(chan struct{})}
}

// External reports whether this ticker requires explicit Advance calls
// (period == 0), matching the REST layer's decision to register
// POST /api/v1/game/tick only in this mode.
func (t *Ticker) External() bool {
	return t.period <= 0
}

// Run starts the internal periodic timer. It blocks until Stop is called.
// In external mode it returns immediately.
func (t *Ticker) Run() {
	if t.External() {
		return
	}
	t.lastTick = time.Now()
	timer := time.NewTimer(t.period)
	defer timer.Stop()
	slog.Info("ticker started", "period", t.period)
	for {
		select {
		case <-t.stop:
			slog.Info("ticker stopped")
			return
		case now := <-timer.C:
			delta := now.Sub(t.lastTick)
			t.lastTick = now
			t.handler(delta)
			timer.Reset(t.period)
		}
	}
}

// Stop halts the internal periodic timer. Safe to call even in external
// mode, where it is a no-op.
func (t *Ticker) Stop() {
	if t.External() {
		return
	}
	close(t.stop)
}

// Advance drives the engine forward by delta. Used by the external-mode
// REST endpoint; calling it while in internal mode is a caller error (the
// REST layer never registers the route in that mode, so this never races
// the periodic timer in practice).
func (t *Ticker) Advance(delta time.Duration) {
	t.handler(delta)
}
