package engine

import (
	"context"
	"fmt"
	"spotbot/internal/journal"
	"spotbot/internal/models"
	"time"
)

// checkPosition evaluates exit conditions of the open position in priority
// order: expiry, stop loss, take profit.
func (e *Engine) checkPosition(ctx context.Context) error {
	pos := e.position
	if pos == nil {
		return nil
	}
	entry := e.logEntry(pos.Pair)

	price, err := e.client.GetPrice(ctx, pos.Pair)
	if err != nil {
		return fmt.Errorf("Не удалось получить цену %s: %w", pos.Pair, err)
	}

	now := e.now()
	pct := profitPct(pos.EntryPrice, price)

	if pos.Expired(now) {
		if price > pos.EntryPrice {
			entry.WithFields(map[string]interface{}{
				"price":      price,
				"profit_pct": pct,
			}).Warn("Время удержания истекло, позиция в прибыли. Продаём.")
			return e.execute(ctx, pos.Pair, models.OrderSideSell, journal.ReasonExpiredProfit)
		}
		e.extendDeadline(ctx, now, pct)
		return nil
	}

	if price <= pos.StopLoss {
		entry.WithFields(map[string]interface{}{
			"price":      price,
			"stop_loss":  pos.StopLoss,
			"profit_pct": pct,
		}).Warn("Сработал стоп-лосс.")
		return e.execute(ctx, pos.Pair, models.OrderSideSell, journal.ReasonStopLoss)
	}

	if price >= pos.TakeProfit {
		entry.WithFields(map[string]interface{}{
			"price":       price,
			"take_profit": pos.TakeProfit,
			"profit_pct":  pct,
		}).Info("Достигнут тейк-профит.")
		return e.execute(ctx, pos.Pair, models.OrderSideSell, journal.ReasonTakeProfit)
	}

	entry.WithFields(map[string]interface{}{
		"price":      price,
		"profit_pct": fmt.Sprintf("%.2f", pct),
		"remaining":  pos.Remaining(now).Round(time.Second).String(),
	}).Info("Позиция активна.")
	return nil
}
