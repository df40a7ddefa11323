package rest

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// formatQty prints the shortest decimal form of qty, never an exponent.
func formatQty(qty float64) string {
	return decimal.NewFromFloat(qty).String()
}

// newLinkID fits Bybit's 36 character orderLinkId limit.
func newLinkID() string {
	return "sb-" + strings.ReplaceAll(uuid.New().String(), "-", "")
}
