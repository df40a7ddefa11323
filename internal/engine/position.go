package engine

import (
	"errors"
	"time"
)

var (
	ErrPositionOpen = errors.New("Позиция уже открыта.")
	ErrNoPosition   = errors.New("Нет открытой позиции по паре.")
)

// Position is the single open holding. Only the loop goroutine mutates it;
// readers get copies through Snapshot.
type Position struct {
	ID         string
	Pair       string
	EntryPrice float64
	Quantity   float64
	OpenedAt   time.Time
	StopLoss   float64
	TakeProfit float64
	HoldLimit  time.Duration
	Recovered  bool
}

func (p Position) Elapsed(now time.Time) time.Duration {
	return now.Sub(p.OpenedAt)
}

func (p Position) Remaining(now time.Time) time.Duration {
	left := p.HoldLimit - p.Elapsed(now)
	if left < 0 {
		return 0
	}
	return left
}

func (p Position) Expired(now time.Time) bool {
	return p.Elapsed(now) >= p.HoldLimit
}

// Snapshot returns a copy of the current position, if any.
func (e *Engine) Snapshot() (Position, bool) {
	e.snapMu.RLock()
	defer e.snapMu.RUnlock()

	if e.snapshot == nil {
		return Position{}, false
	}
	return *e.snapshot, true
}

func (e *Engine) setPosition(p *Position) {
	e.position = p
	e.publish()
}

// publish must follow every mutation of e.position.
func (e *Engine) publish() {
	e.snapMu.Lock()
	defer e.snapMu.Unlock()

	if e.position == nil {
		e.snapshot = nil
		return
	}
	cp := *e.position
	e.snapshot = &cp
}
