package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"spotbot/internal/exchange"
	"spotbot/internal/models"
	"strconv"
	"strings"
	"time"
)

func (c *Client) GetLotConstraint(ctx context.Context, symbol string) (exchange.LotConstraint, error) {
	params := url.Values{}
	params.Set("category", "spot")
	params.Set("symbol", symbol)

	var resp bybitResponse[instrumentInfo]

	if err := c.doRequest(ctx, http.MethodGet, "/v5/market/instruments-info", params, nil, false, &resp); err != nil {
		return exchange.LotConstraint{}, err
	}

	if len(resp.Result.List) == 0 {
		return exchange.LotConstraint{}, fmt.Errorf("Торговая пара не найдена: %s: %w", symbol, exchange.ErrBadData)
	}

	info := resp.Result.List[0]

	step, err := parseFloatOrZero(info.LotSizeFilter.QtyStep)
	if err != nil {
		return exchange.LotConstraint{}, fmt.Errorf("Некорректное значение qtyStep=%q: %w", info.LotSizeFilter.QtyStep, exchange.ErrBadData)
	}

	if step == 0 {
		step, err = parseFloatOrZero(info.LotSizeFilter.BasePrecision)
		if err != nil {
			return exchange.LotConstraint{}, fmt.Errorf("Некорректное значение basePrecision=%q: %w", info.LotSizeFilter.BasePrecision, exchange.ErrBadData)
		}
	}

	if step == 0 {
		return exchange.LotConstraint{}, fmt.Errorf("Не удалось определить шаг объёма для торговой пары %s: %w", symbol, exchange.ErrBadData)
	}

	minQty, err := parseFloatOrZero(info.LotSizeFilter.MinOrderQty)
	if err != nil {
		return exchange.LotConstraint{}, fmt.Errorf("Некорректное значение minOrderQty=%q: %w", info.LotSizeFilter.MinOrderQty, exchange.ErrBadData)
	}

	return exchange.LotConstraint{
		StepSize: step,
		MinQty:   minQty,
	}, nil
}

// GetCandles returns klines oldest first. Bybit sends them newest first.
func (c *Client) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	bybitInterval, span, err := parseInterval(interval)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("category", "spot")
	params.Set("symbol", symbol)
	params.Set("interval", bybitInterval)
	params.Set("limit", strconv.Itoa(limit))

	var resp bybitResponse[klineResult]

	if err := c.doRequest(ctx, http.MethodGet, "/v5/market/kline", params, nil, false, &resp); err != nil {
		return nil, err
	}

	candles := make([]models.Candle, 0, len(resp.Result.List))
	for i := len(resp.Result.List) - 1; i >= 0; i-- {
		row := resp.Result.List[i]
		if len(row) < 6 {
			return nil, fmt.Errorf("Некорректная свеча %v: %w", row, exchange.ErrBadData)
		}

		startMs, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("Некорректное время свечи %q: %w", row[0], exchange.ErrBadData)
		}

		values := make([]float64, 5)
		for j := range values {
			values[j], err = strconv.ParseFloat(row[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("Некорректное значение свечи %q: %w", row[j+1], exchange.ErrBadData)
			}
		}

		openTime := time.UnixMilli(startMs)
		candles = append(candles, models.Candle{
			OpenTime:  openTime,
			Open:      values[0],
			High:      values[1],
			Low:       values[2],
			Close:     values[3],
			Volume:    values[4],
			CloseTime: openTime.Add(span - time.Millisecond),
		})
	}

	return candles, nil
}

func (c *Client) GetPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("category", "spot")
	params.Set("symbol", symbol)

	var resp bybitResponse[tickerResult]

	if err := c.doRequest(ctx, http.MethodGet, "/v5/market/tickers", params, nil, false, &resp); err != nil {
		return 0, err
	}

	if len(resp.Result.List) == 0 {
		return 0, fmt.Errorf("Тикер не найден: %s: %w", symbol, exchange.ErrBadData)
	}

	price, err := strconv.ParseFloat(resp.Result.List[0].LastPrice, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("Некорректная цена %q: %w", resp.Result.List[0].LastPrice, exchange.ErrBadData)
	}

	return price, nil
}

var intervals = map[string]struct {
	code string
	span time.Duration
}{
	"1m":  {"1", time.Minute},
	"3m":  {"3", 3 * time.Minute},
	"5m":  {"5", 5 * time.Minute},
	"15m": {"15", 15 * time.Minute},
	"30m": {"30", 30 * time.Minute},
	"1h":  {"60", time.Hour},
	"2h":  {"120", 2 * time.Hour},
	"4h":  {"240", 4 * time.Hour},
	"6h":  {"360", 6 * time.Hour},
	"12h": {"720", 12 * time.Hour},
	"1d":  {"D", 24 * time.Hour},
	"1w":  {"W", 7 * 24 * time.Hour},
}

// parseInterval accepts both "5m" style and native Bybit codes ("5", "D").
func parseInterval(interval string) (string, time.Duration, error) {
	key := strings.ToLower(strings.TrimSpace(interval))
	if iv, ok := intervals[key]; ok {
		return iv.code, iv.span, nil
	}
	for _, iv := range intervals {
		if strings.EqualFold(iv.code, interval) {
			return iv.code, iv.span, nil
		}
	}
	return "", 0, fmt.Errorf("Неподдерживаемый интервал: %s", interval)
}

func parseFloatOrZero(value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.ParseFloat(value, 64)
}
