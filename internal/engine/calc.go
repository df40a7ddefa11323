package engine

import (
	"errors"
	"math"
	"spotbot/internal/config"
	"spotbot/internal/exchange"

	"github.com/shopspring/decimal"
)

// Stop loss never goes tighter than vol×slVolFactor allows; take profit is
// always tpToSLRatio times the stop distance.
const (
	slVolFactor = 1.5
	tpToSLRatio = 2.0
	qtyDecimals = 8
)

var errBadPrice = errors.New("Некорректная цена для расчёта количества.")

// FloorToStep rounds qty down to a multiple of step in decimal arithmetic, so
// 0.015 with step 0.0001 stays 0.015.
func FloorToStep(qty, step float64) float64 {
	if step <= 0 {
		return qty
	}
	q := decimal.NewFromFloat(qty)
	s := decimal.NewFromFloat(step)
	return q.Div(s).Floor().Mul(s).InexactFloat64()
}

// BuyQuantity converts a quote notional into a base quantity that satisfies
// the lot constraint.
func BuyQuantity(notional, price float64, lot exchange.LotConstraint) (float64, error) {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, errBadPrice
	}
	raw := decimal.NewFromFloat(notional).
		Div(decimal.NewFromFloat(price)).
		Round(qtyDecimals).
		InexactFloat64()

	qty := FloorToStep(raw, lot.StepSize)
	if qty < lot.MinQty {
		qty = lot.MinQty
	}
	return qty, nil
}

// SellQuantity is the largest step multiple not above the free balance.
func SellQuantity(free float64, lot exchange.LotConstraint) float64 {
	if free <= 0 {
		return 0
	}
	return FloorToStep(free, lot.StepSize)
}

// RiskPercents returns the stop loss and take profit distances as fractions of
// the entry price.
func RiskPercents(volatility float64, risk config.RiskConfig) (slPct, tpPct float64) {
	slPct = math.Min(risk.MaxSLVolatility, math.Max(risk.StopLossPct, volatility*slVolFactor))
	return slPct, slPct * tpToSLRatio
}

// RiskLevels returns absolute stop loss and take profit prices.
func RiskLevels(entry, volatility float64, risk config.RiskConfig) (stopLoss, takeProfit float64) {
	slPct, tpPct := RiskPercents(volatility, risk)
	return entry * (1 - slPct), entry * (1 + tpPct)
}

// staticLevels are used right after entry, before any volatility is known.
func staticLevels(entry float64, risk config.RiskConfig) (stopLoss, takeProfit float64) {
	return entry * (1 - risk.StopLossPct), entry * (1 + risk.TakeProfitPct)
}

func profitPct(entry, price float64) float64 {
	if entry == 0 {
		return 0
	}
	return (price - entry) / entry * 100
}
