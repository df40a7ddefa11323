package rest

import (
	"context"
	"errors"
	"fmt"
	"spotbot/internal/exchange"
	"net/http"
	"net/url"
	"spotbot/internal/models"
	"strconv"
	"time"
)

// Bybit answers this code when orderLinkId was already used.
const duplicateLinkIDCode = 170141

// SubmitMarketOrder places a spot market order sized in the base coin and
// waits briefly for its executions to report the average fill price. An empty
// linkID gets a fresh one. When the exchange already knows linkID the fill of
// that earlier order is returned instead.
func (c *Client) SubmitMarketOrder(ctx context.Context, symbol string, side models.OrderSide, qty float64, linkID string) (models.Fill, error) {
	if linkID == "" {
		linkID = newLinkID()
	}
	order := models.Order{
		LinkID:     linkID,
		Symbol:     symbol,
		Side:       side,
		Type:       models.OrderTypeMarket,
		Qty:        qty,
		MarketUnit: "baseCoin",
		CreateTime: time.Now(),
	}

	placed, err := c.placeOrder(ctx, order)
	if err != nil {
		if isDuplicateLinkID(err) {
			return c.fillAfterDuplicate(ctx, order, err)
		}
		return models.Fill{}, err
	}

	c.log.WithOrderID(placed.ID).WithField("component", "bybit_rest").WithField("symbol", symbol).WithFields(map[string]interface{}{
		"side":    side,
		"qty":     qty,
		"link_id": placed.LinkID,
	}).Debug("Market ордер принят биржей.")

	fill, err := c.waitFill(ctx, placed)
	if err != nil {
		c.log.WithOrderID(placed.ID).WithError(err).Warn("Не удалось получить исполнение ордера, используется запрошенный объём.")
		return models.Fill{
			OrderID:   placed.ID,
			LinkID:    placed.LinkID,
			Symbol:    symbol,
			Side:      side,
			Qty:       qty,
			Timestamp: time.Now(),
		}, nil
	}

	return fill, nil
}

// FindFill reports the executions of the order placed under linkID, if any.
func (c *Client) FindFill(ctx context.Context, symbol, linkID string) (models.Fill, bool, error) {
	return c.getFill(ctx, models.Order{Symbol: symbol, LinkID: linkID})
}

func isDuplicateLinkID(err error) bool {
	var apiErr *exchange.APIError
	return errors.As(err, &apiErr) && apiErr.Code == duplicateLinkIDCode
}

func (c *Client) fillAfterDuplicate(ctx context.Context, order models.Order, cause error) (models.Fill, error) {
	log := c.log.WithComponent("bybit_rest").WithField("link_id", order.LinkID)

	fill, err := c.waitFill(ctx, order)
	if err != nil {
		log.WithError(err).Error("Ордер с этим link_id уже существует, но его исполнение не найдено.")
		return models.Fill{}, fmt.Errorf("Повторный ордер %s: %w", order.LinkID, cause)
	}

	log.WithField("order_id", fill.OrderID).Info("Ордер с этим link_id уже исполнен, повтор не нужен.")
	return fill, nil
}

func (c *Client) placeOrder(ctx context.Context, order models.Order) (models.Order, error) {
	body := map[string]any{
		"category":    "spot",
		"symbol":      order.Symbol,
		"side":        order.Side,
		"orderType":   order.Type,
		"qty":         formatQty(order.Qty),
		"marketUnit":  order.MarketUnit,
		"orderLinkId": order.LinkID,
	}

	var resp bybitResponse[struct {
		OrderID     string `json:"orderId"`
		OrderLinkID string `json:"orderLinkId"`
	}]

	if err := c.doRequest(ctx, http.MethodPost, "/v5/order/create", nil, body, true, &resp); err != nil {
		return models.Order{}, err
	}

	order.ID = resp.Result.OrderID
	order.Status = models.OrderStatusNew
	return order, nil
}

func (c *Client) waitFill(ctx context.Context, order models.Order) (models.Fill, error) {
	var lastErr error
	for i := 0; i < c.fillPollAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return models.Fill{}, ctx.Err()
			case <-time.After(c.fillPollDelay):
			}
		}

		fill, ok, err := c.getFill(ctx, order)
		if err != nil {
			lastErr = err
			continue
		}
		if ok {
			return fill, nil
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("Исполнения ордера %s (%s) не найдены.", order.ID, order.LinkID)
	}
	return models.Fill{}, lastErr
}

// getFill aggregates all executions of the order into one volume weighted
// fill. The order is looked up by its exchange id, or by link id while the
// exchange id is unknown.
func (c *Client) getFill(ctx context.Context, order models.Order) (models.Fill, bool, error) {
	params := url.Values{}
	params.Set("category", "spot")
	params.Set("symbol", order.Symbol)
	if order.ID != "" {
		params.Set("orderId", order.ID)
	} else {
		params.Set("orderLinkId", order.LinkID)
	}

	var resp bybitResponse[executionResult]

	if err := c.doRequest(ctx, http.MethodGet, "/v5/execution/list", params, nil, true, &resp); err != nil {
		return models.Fill{}, false, err
	}

	var qty, cost float64
	var last time.Time
	orderID, side := order.ID, order.Side
	for _, item := range resp.Result.List {
		if order.ID != "" && item.OrderID != order.ID {
			continue
		}
		if order.ID == "" && item.OrderLink != order.LinkID {
			continue
		}
		if orderID == "" {
			orderID = item.OrderID
		}
		if side == "" {
			side = models.OrderSide(item.Side)
		}
		price, _ := strconv.ParseFloat(item.ExecPrice, 64)
		execQty, _ := strconv.ParseFloat(item.ExecQty, 64)
		tsMs, _ := strconv.ParseInt(item.ExecTime, 10, 64)

		qty += execQty
		cost += price * execQty
		if ts := time.UnixMilli(tsMs); ts.After(last) {
			last = ts
		}
	}

	if qty == 0 {
		return models.Fill{}, false, nil
	}

	return models.Fill{
		OrderID:   orderID,
		LinkID:    order.LinkID,
		Symbol:    order.Symbol,
		Side:      side,
		Price:     cost / qty,
		Qty:       qty,
		Timestamp: last,
	}, true, nil
}
