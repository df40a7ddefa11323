package engine

import (
	"context"
	"spotbot/internal/strategy"
	"time"
)

// After an extension 1/extendLeftDiv of the new hold window is left.
const extendLeftDiv = 5

// recalculateRisk sets SL/TP of the open position from recent volatility.
// On any failure the previous levels stay and false is returned; the failure
// is logged here, callers only decide what to report.
func (e *Engine) recalculateRisk(ctx context.Context) bool {
	pos := e.position
	if pos == nil {
		return false
	}
	entry := e.logEntry(pos.Pair)

	candles, err := e.client.GetCandles(ctx, pos.Pair, e.cfg.Bot.Interval, e.cfg.Risk.VolatilityCandles)
	if err != nil {
		entry.WithError(err).Error("Не удалось получить свечи для расчёта волатильности, SL/TP не изменены.")
		return false
	}

	closes := make([]float64, 0, len(candles))
	for _, c := range candles {
		closes = append(closes, c.Close)
	}
	vol, err := strategy.Volatility(closes)
	if err != nil {
		entry.WithError(err).Error("Не удалось рассчитать волатильность, SL/TP не изменены.")
		return false
	}

	pos.StopLoss, pos.TakeProfit = RiskLevels(pos.EntryPrice, vol, e.cfg.Risk)
	e.publish()

	slPct, tpPct := RiskPercents(vol, e.cfg.Risk)
	entry.WithFields(map[string]interface{}{
		"volatility":  vol,
		"stop_loss":   pos.StopLoss,
		"take_profit": pos.TakeProfit,
		"sl_pct":      slPct * 100,
		"tp_pct":      tpPct * 100,
	}).Info("SL/TP пересчитаны по волатильности.")
	return true
}

// extendDeadline gives a losing expired position more time: the hold window
// grows to max_hold×expansion and 20% of it is left.
func (e *Engine) extendDeadline(ctx context.Context, now time.Time, pct float64) {
	pos := e.position
	newMax := time.Duration(float64(e.cfg.Risk.MaxHold) * e.cfg.Risk.LossTimeExpansion)

	pos.HoldLimit = newMax
	pos.OpenedAt = now.Add(-(newMax - newMax/extendLeftDiv))
	e.publish()

	recalculated := e.recalculateRisk(ctx)

	e.logEntry(pos.Pair).WithFields(map[string]interface{}{
		"profit_pct":        pct,
		"hold_limit":        newMax.String(),
		"remaining":         pos.Remaining(now).String(),
		"stop_loss":         pos.StopLoss,
		"take_profit":       pos.TakeProfit,
		"risk_recalculated": recalculated,
	}).Warn("Позиция в убытке по истечении времени, срок удержания продлён.")
}
