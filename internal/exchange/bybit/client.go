package bybit

import (
	"context"
	"spotbot/internal/exchange"
	"spotbot/internal/exchange/bybit/rest"
	"spotbot/internal/exchange/bybit/ws"
	"spotbot/internal/logger"
	"time"
)

// Client serves prices from the public ticker stream while they are fresh and
// falls back to REST otherwise. Everything else goes through REST.
type Client struct {
	*rest.Client

	wsPublic    *ws.Client
	priceMaxAge time.Duration
	log         *logger.Logger
}

var _ exchange.Client = (*Client)(nil)

func New(baseURL, wsPublicURL, accountType, apiKey, secret string, priceMaxAge time.Duration, log *logger.Logger) *Client {
	c := &Client{
		Client:      rest.New(baseURL, apiKey, secret, accountType, log),
		priceMaxAge: priceMaxAge,
		log:         log,
	}
	if wsPublicURL != "" {
		c.wsPublic = ws.New(wsPublicURL, log)
	}
	return c
}

// Start opens the ticker stream for symbols. A failed connection only
// disables the stream; prices keep coming from REST.
func (c *Client) Start(ctx context.Context, symbols []string) {
	if c.wsPublic == nil {
		return
	}
	if err := c.wsPublic.Connect(ctx, symbols); err != nil {
		c.log.WithComponent("bybit").WithError(err).Warn("Поток тикеров недоступен, цены будут запрашиваться через REST.")
		c.wsPublic = nil
	}
}

func (c *Client) Close() {
	if c.wsPublic != nil {
		c.wsPublic.Close()
	}
}

func (c *Client) GetPrice(ctx context.Context, symbol string) (float64, error) {
	if c.wsPublic != nil {
		if price, ok := c.wsPublic.LastPrice(symbol, c.priceMaxAge); ok {
			return price, nil
		}
	}
	return c.Client.GetPrice(ctx, symbol)
}
