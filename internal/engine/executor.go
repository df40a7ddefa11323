package engine

import (
	"context"
	"errors"
	"fmt"
	"spotbot/internal/exchange"
	"spotbot/internal/journal"
	"spotbot/internal/models"
	"strings"
	"time"

	"github.com/google/uuid"
)

const journalTimeout = 5 * time.Second

// Execute places a market order for pair and updates the position when it
// fills. A buy while a position is open returns ErrPositionOpen, a sell
// without a matching position returns ErrNoPosition; neither touches the
// exchange.
func (e *Engine) Execute(ctx context.Context, pair string, side models.OrderSide) error {
	return e.execute(ctx, pair, side, journal.ReasonManual)
}

func (e *Engine) execute(ctx context.Context, pair string, side models.OrderSide, reason string) error {
	// a submitted order has to settle even if shutdown starts meanwhile
	orderCtx := context.WithoutCancel(ctx)
	// one client order id for every attempt, so a resubmit of an order that
	// reached the exchange is rejected as a duplicate
	linkID := newLinkID()
	tries := 0

	err := e.retry.Do(ctx, e.sleep, func() error {
		tries++
		if tries > 1 {
			settled, err := e.settleEarlier(orderCtx, pair, side, reason, linkID)
			if err != nil || settled {
				return err
			}
		}
		if side == models.OrderSideBuy {
			return e.buy(orderCtx, pair, linkID)
		}
		return e.sell(orderCtx, pair, reason, linkID)
	}, func(attempt int, wait time.Duration, err error) {
		e.logEntry(pair).WithError(err).WithFields(map[string]interface{}{
			"side":    side,
			"attempt": attempt,
			"wait":    wait.String(),
		}).Warn("Временная ошибка биржи, повторяем ордер.")
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrPositionOpen), errors.Is(err, ErrNoPosition):
		e.logEntry(pair).WithField("side", side).Warn(err.Error())
		return err
	case exchange.IsTransient(err):
		e.logEntry(pair).WithError(err).WithField("side", side).Error("Попытки исполнения ордера исчерпаны.")
	}
	return err
}

func newLinkID() string {
	return "sb" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// adjustedLinkID names the single resubmission after a lot-size rejection.
func adjustedLinkID(linkID string) string {
	return linkID + "r"
}

// settleEarlier looks for a fill of an order sent by a previous attempt whose
// response was lost, and applies it instead of sending another order.
func (e *Engine) settleEarlier(ctx context.Context, pair string, side models.OrderSide, reason, linkID string) (bool, error) {
	for _, id := range []string{linkID, adjustedLinkID(linkID)} {
		fill, ok, err := e.client.FindFill(ctx, pair, id)
		if err != nil {
			return false, fmt.Errorf("Не удалось проверить ордер %s: %w", id, err)
		}
		if !ok {
			continue
		}

		e.logEntry(pair).WithFields(map[string]interface{}{
			"side":     side,
			"link_id":  id,
			"order_id": fill.OrderID,
		}).Warn("Ордер предыдущей попытки уже исполнен, повтор не нужен.")

		if side == models.OrderSideBuy {
			if e.position == nil {
				e.openPosition(ctx, pair, fill, fill.Price, fill.Qty)
			}
			return true, nil
		}
		if pos := e.position; pos != nil && pos.Pair == pair {
			e.closePosition(ctx, pos, fill, fill.Price, fill.Qty, reason)
		}
		return true, nil
	}
	return false, nil
}

func (e *Engine) buy(ctx context.Context, pair, linkID string) error {
	if e.position != nil {
		return ErrPositionOpen
	}

	price, err := e.client.GetPrice(ctx, pair)
	if err != nil {
		return fmt.Errorf("Не удалось получить цену %s: %w", pair, err)
	}
	lot, err := e.client.GetLotConstraint(ctx, pair)
	if err != nil {
		return fmt.Errorf("Не удалось получить ограничения лота %s: %w", pair, err)
	}
	qty, err := BuyQuantity(e.cfg.Bot.OrderValueUSD, price, lot)
	if err != nil {
		return err
	}

	fill, err := e.client.SubmitMarketOrder(ctx, pair, models.OrderSideBuy, qty, linkID)
	if err != nil {
		if exchange.IsLotSize(err) {
			return e.adjustAndBuy(ctx, pair, linkID, err)
		}
		e.orderFailed(pair, models.OrderSideBuy, qty, price, err)
		return fmt.Errorf("Ошибка покупки %s: %w", pair, err)
	}

	e.openPosition(ctx, pair, fill, price, qty)
	return nil
}

// adjustAndBuy resubmits once with fresh price and lot rules after the
// exchange rejected the quantity.
func (e *Engine) adjustAndBuy(ctx context.Context, pair, linkID string, cause error) error {
	entry := e.logEntry(pair)
	entry.WithError(cause).Warn("Биржа отклонила количество, пересчитываем покупку.")

	price, err := e.client.GetPrice(ctx, pair)
	if err != nil {
		return fmt.Errorf("Не удалось получить цену %s: %w", pair, err)
	}
	lot, err := e.client.GetLotConstraint(ctx, pair)
	if err != nil {
		return fmt.Errorf("Не удалось получить ограничения лота %s: %w", pair, err)
	}
	qty, err := BuyQuantity(e.cfg.Bot.OrderValueUSD, price, lot)
	if err != nil {
		return err
	}

	fill, err := e.client.SubmitMarketOrder(ctx, pair, models.OrderSideBuy, qty, adjustedLinkID(linkID))
	if err != nil {
		e.orderFailed(pair, models.OrderSideBuy, qty, price, err)
		return fmt.Errorf("Ошибка повторной покупки %s: %w", pair, err)
	}

	e.openPosition(ctx, pair, fill, price, qty)
	return nil
}

func (e *Engine) sell(ctx context.Context, pair, reason, linkID string) error {
	pos := e.position
	if pos == nil || pos.Pair != pair {
		return ErrNoPosition
	}

	lot, err := e.client.GetLotConstraint(ctx, pair)
	if err != nil {
		return fmt.Errorf("Не удалось получить ограничения лота %s: %w", pair, err)
	}
	balance, err := e.client.GetBalance(ctx, e.cfg.BaseAsset(pair))
	if err != nil {
		return fmt.Errorf("Не удалось получить баланс %s: %w", pair, err)
	}

	qty := SellQuantity(balance.Free, lot)
	if qty <= 0 || qty < lot.MinQty {
		e.abandonDust(ctx, pos, balance.Free, lot)
		return nil
	}

	price, err := e.client.GetPrice(ctx, pair)
	if err != nil {
		return fmt.Errorf("Не удалось получить цену %s: %w", pair, err)
	}

	fill, err := e.client.SubmitMarketOrder(ctx, pair, models.OrderSideSell, qty, linkID)
	if err != nil {
		if exchange.IsLotSize(err) {
			return e.adjustAndSell(ctx, pos, price, reason, linkID, err)
		}
		e.orderFailed(pair, models.OrderSideSell, qty, price, err)
		return fmt.Errorf("Ошибка продажи %s: %w", pair, err)
	}

	e.closePosition(ctx, pos, fill, price, qty, reason)
	return nil
}

// adjustAndSell resubmits once using the freshly fetched free balance.
func (e *Engine) adjustAndSell(ctx context.Context, pos *Position, price float64, reason, linkID string, cause error) error {
	entry := e.logEntry(pos.Pair)
	entry.WithError(cause).Warn("Биржа отклонила количество, пересчитываем продажу.")

	lot, err := e.client.GetLotConstraint(ctx, pos.Pair)
	if err != nil {
		return fmt.Errorf("Не удалось получить ограничения лота %s: %w", pos.Pair, err)
	}
	balance, err := e.client.GetBalance(ctx, e.cfg.BaseAsset(pos.Pair))
	if err != nil {
		return fmt.Errorf("Не удалось получить баланс %s: %w", pos.Pair, err)
	}

	qty := SellQuantity(balance.Free, lot)
	if qty <= 0 || qty < lot.MinQty {
		entry.WithField("qty", qty).Error("Скорректированное количество меньше минимального.")
		e.abandonDust(ctx, pos, balance.Free, lot)
		return nil
	}

	fill, err := e.client.SubmitMarketOrder(ctx, pos.Pair, models.OrderSideSell, qty, adjustedLinkID(linkID))
	if err != nil {
		e.orderFailed(pos.Pair, models.OrderSideSell, qty, price, err)
		return fmt.Errorf("Ошибка повторной продажи %s: %w", pos.Pair, err)
	}

	e.closePosition(ctx, pos, fill, price, qty, reason)
	return nil
}

func (e *Engine) openPosition(ctx context.Context, pair string, fill models.Fill, price, qty float64) {
	entryPrice := price
	if fill.Price > 0 {
		entryPrice = fill.Price
	}
	if fill.Qty > 0 {
		qty = fill.Qty
	}

	pos := &Position{
		ID:         uuid.NewString(),
		Pair:       pair,
		EntryPrice: entryPrice,
		Quantity:   qty,
		OpenedAt:   e.now(),
		HoldLimit:  e.cfg.Risk.MaxHold,
	}
	pos.StopLoss, pos.TakeProfit = staticLevels(entryPrice, e.cfg.Risk)
	e.setPosition(pos)

	e.logEntry(pair).WithFields(map[string]interface{}{
		"order_id":    fill.OrderID,
		"price":       entryPrice,
		"qty":         qty,
		"stop_loss":   pos.StopLoss,
		"take_profit": pos.TakeProfit,
	}).Info("Позиция открыта.")

	e.recordOpen(ctx, pos)
}

func (e *Engine) closePosition(ctx context.Context, pos *Position, fill models.Fill, price, qty float64, reason string) {
	exitPrice := price
	if fill.Price > 0 {
		exitPrice = fill.Price
	}
	if fill.Qty > 0 {
		qty = fill.Qty
	}

	trade := journal.Trade{
		ID:         pos.ID,
		Pair:       pos.Pair,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exitPrice,
		Quantity:   qty,
		OpenedAt:   pos.OpenedAt,
		ClosedAt:   e.now(),
		Profit:     (exitPrice - pos.EntryPrice) * qty,
		ProfitPct:  profitPct(pos.EntryPrice, exitPrice),
		Reason:     reason,
	}
	e.setPosition(nil)

	e.logEntry(pos.Pair).WithFields(map[string]interface{}{
		"order_id":   fill.OrderID,
		"price":      exitPrice,
		"qty":        qty,
		"profit":     trade.Profit,
		"profit_pct": fmt.Sprintf("%.2f", trade.ProfitPct),
		"reason":     reason,
	}).Info("Позиция закрыта.")

	e.recordClose(ctx, trade)
}

// abandonDust forgets a position whose sellable quantity is below the lot
// minimum. The coins stay on the account.
func (e *Engine) abandonDust(ctx context.Context, pos *Position, free float64, lot exchange.LotConstraint) {
	e.logEntry(pos.Pair).WithFields(map[string]interface{}{
		"free":    free,
		"min_qty": lot.MinQty,
		"step":    lot.StepSize,
	}).Warn("Остаток меньше минимального лота, позиция сброшена без продажи.")

	e.setPosition(nil)
	e.recordClose(ctx, journal.Trade{
		ID:         pos.ID,
		Pair:       pos.Pair,
		EntryPrice: pos.EntryPrice,
		Quantity:   free,
		OpenedAt:   pos.OpenedAt,
		ClosedAt:   e.now(),
		Reason:     journal.ReasonDust,
	})
}

func (e *Engine) orderFailed(pair string, side models.OrderSide, qty, price float64, err error) {
	entry := e.logEntry(pair).WithError(err).WithFields(map[string]interface{}{
		"side":  side,
		"qty":   qty,
		"price": price,
	})
	if exchange.IsTransient(err) {
		entry.Warn("Ордер не исполнен из-за временной ошибки.")
		return
	}
	entry.Error("Ордер отклонён биржей.")
}

func (e *Engine) recordOpen(ctx context.Context, pos *Position) {
	if e.journal == nil {
		return
	}
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()

	err := e.journal.RecordOpen(jctx, journal.Entry{
		ID:         pos.ID,
		Pair:       pos.Pair,
		EntryPrice: pos.EntryPrice,
		Quantity:   pos.Quantity,
		OpenedAt:   pos.OpenedAt,
		StopLoss:   pos.StopLoss,
		TakeProfit: pos.TakeProfit,
		Recovered:  pos.Recovered,
	})
	if err != nil {
		e.logEntry(pos.Pair).WithError(err).Warn("Не удалось записать позицию в журнал.")
	}
}

func (e *Engine) recordClose(ctx context.Context, trade journal.Trade) {
	if e.journal == nil {
		return
	}
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()

	if err := e.journal.RecordClose(jctx, trade); err != nil {
		e.logEntry(trade.Pair).WithError(err).Warn("Не удалось записать сделку в журнал.")
	}
}
