package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"spotbot/internal/exchange"
)

// GetBalance returns free and locked amounts of one coin. A coin missing from
// the wallet is a zero balance, not an error.
func (c *Client) GetBalance(ctx context.Context, coin string) (exchange.Balance, error) {
	params := url.Values{}
	params.Set("accountType", c.accountType)
	params.Set("coin", coin)

	var resp bybitResponse[walletResult]

	if err := c.doRequest(ctx, http.MethodGet, "/v5/account/wallet-balance", params, nil, true, &resp); err != nil {
		return exchange.Balance{}, err
	}

	for _, account := range resp.Result.List {
		for _, item := range account.Coin {
			if item.Coin != coin {
				continue
			}

			wallet, err := parseFloatOrZero(item.WalletBalance)
			if err != nil {
				return exchange.Balance{}, fmt.Errorf("Некорректное значение walletBalance=%q: %w", item.WalletBalance, exchange.ErrBadData)
			}
			locked, err := parseFloatOrZero(item.Locked)
			if err != nil {
				return exchange.Balance{}, fmt.Errorf("Некорректное значение locked=%q: %w", item.Locked, exchange.ErrBadData)
			}

			free := wallet - locked
			if item.Free != "" {
				free, err = parseFloatOrZero(item.Free)
				if err != nil {
					return exchange.Balance{}, fmt.Errorf("Некорректное значение free=%q: %w", item.Free, exchange.ErrBadData)
				}
			}
			if free < 0 {
				free = 0
			}

			return exchange.Balance{
				Coin:   coin,
				Free:   free,
				Locked: locked,
			}, nil
		}
	}

	return exchange.Balance{Coin: coin}, nil
}
