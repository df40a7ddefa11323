package exchange

import (
	"context"
	"errors"
	"fmt"
	"spotbot/internal/models"
)

var (
	// ErrTransient marks failures worth retrying: network errors, rate limits, 5xx.
	ErrTransient = errors.New("Временная ошибка биржи.")
	// ErrLotSize marks an order rejected for violating the pair's quantity step or minimum.
	ErrLotSize = errors.New("Нарушение ограничений lot size.")
	// ErrBadData marks malformed or missing market data.
	ErrBadData = errors.New("Некорректные рыночные данные.")
)

// APIError is a non-zero exchange return code. It unwraps to one of the
// sentinel errors above when the code is classified.
type APIError struct {
	Status int
	Code   int
	Msg    string
	kind   error
}

func NewAPIError(status, code int, msg string, kind error) *APIError {
	return &APIError{Status: status, Code: code, Msg: msg, kind: kind}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Ошибка биржи: %s (code=%d, status=%d)", e.Msg, e.Code, e.Status)
}

func (e *APIError) Unwrap() error {
	return e.kind
}

type LotConstraint struct {
	StepSize float64
	MinQty   float64
}

type Balance struct {
	Coin   string
	Free   float64
	Locked float64
}

func (b Balance) Total() float64 {
	return b.Free + b.Locked
}

type MarketData interface {
	GetCandles(ctx context.Context, pair, interval string, limit int) ([]models.Candle, error)
	GetPrice(ctx context.Context, pair string) (float64, error)
	GetLotConstraint(ctx context.Context, pair string) (LotConstraint, error)
	GetBalance(ctx context.Context, asset string) (Balance, error)
}

// OrderSubmitter places market orders under a caller chosen client order id.
// Resubmitting the same id must not create a second order; FindFill reports
// whether an order with that id has executed.
type OrderSubmitter interface {
	SubmitMarketOrder(ctx context.Context, pair string, side models.OrderSide, qty float64, linkID string) (models.Fill, error)
	FindFill(ctx context.Context, pair, linkID string) (models.Fill, bool, error)
}

type Client interface {
	MarketData
	OrderSubmitter
}

func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

func IsLotSize(err error) bool {
	return errors.Is(err, ErrLotSize)
}
