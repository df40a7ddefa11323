package journal

import (
	"context"
	"time"
)

const (
	ReasonExpiredProfit = "expired_profit"
	ReasonStopLoss      = "stop_loss"
	ReasonTakeProfit    = "take_profit"
	ReasonDust          = "dust"
	ReasonManual        = "manual"
)

// Entry describes an opened or adopted position.
type Entry struct {
	ID         string
	Pair       string
	EntryPrice float64
	Quantity   float64
	OpenedAt   time.Time
	StopLoss   float64
	TakeProfit float64
	Recovered  bool
}

// Trade is a closed position.
type Trade struct {
	ID         string
	Pair       string
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	OpenedAt   time.Time
	ClosedAt   time.Time
	Profit     float64
	ProfitPct  float64
	Reason     string
}

type Journal interface {
	RecordOpen(ctx context.Context, e Entry) error
	RecordClose(ctx context.Context, t Trade) error
}

// Nop discards everything. Used when no DSN is configured.
type Nop struct{}

func (Nop) RecordOpen(context.Context, Entry) error { return nil }

func (Nop) RecordClose(context.Context, Trade) error { return nil }
