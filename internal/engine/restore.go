package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CheckExistingPosition adopts a base-asset holding left from a previous run.
// Pairs are checked in configured order; holdings worth less than
// min_balance_usd are ignored and the first real one is adopted with half of
// the hold window already spent.
func (e *Engine) CheckExistingPosition(ctx context.Context) error {
	if e.position != nil {
		return nil
	}

	for _, pair := range e.cfg.Bot.Pairs {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry := e.logEntry(pair)
		asset := e.cfg.BaseAsset(pair)

		balance, err := e.client.GetBalance(ctx, asset)
		if err != nil {
			entry.WithError(err).Error("Не удалось получить баланс при восстановлении позиции.")
			continue
		}
		total := balance.Total()
		if total <= 0 {
			continue
		}

		price, err := e.client.GetPrice(ctx, pair)
		if err != nil {
			entry.WithError(err).Error("Не удалось получить цену при восстановлении позиции.")
			continue
		}

		value := total * price
		if value < e.cfg.Bot.MinBalanceUSD {
			entry.WithFields(map[string]interface{}{
				"asset":   asset,
				"balance": total,
				"value":   value,
			}).Warn("Найден остаток ниже минимальной стоимости, пропускаем.")
			continue
		}

		pos := &Position{
			ID:         uuid.NewString(),
			Pair:       pair,
			EntryPrice: price,
			Quantity:   total,
			OpenedAt:   e.now().Add(-e.cfg.Risk.MaxHold / 2),
			HoldLimit:  e.cfg.Risk.MaxHold,
			Recovered:  true,
		}
		pos.StopLoss, pos.TakeProfit = staticLevels(price, e.cfg.Risk)
		e.setPosition(pos)
		recalculated := e.recalculateRisk(ctx)

		entry.WithFields(map[string]interface{}{
			"asset":             asset,
			"qty":               total,
			"price":             price,
			"value":             value,
			"stop_loss":         pos.StopLoss,
			"take_profit":       pos.TakeProfit,
			"remaining":         pos.Remaining(e.now()).Round(time.Second).String(),
			"risk_recalculated": recalculated,
		}).Warn("Восстановлена существующая позиция.")

		e.recordOpen(ctx, pos)
		return nil
	}

	e.logEntry("").Info("Существующих позиций не найдено.")
	return nil
}
