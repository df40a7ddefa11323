package ws

import (
	"encoding/json"
	"spotbot/internal/models"
	"strconv"
)

type tickerData struct {
	Symbol    string `json:"symbol"`
	LastPrice string `json:"lastPrice"`
	Seq       int64  `json:"seq"`
	TS        int64  `json:"ts"`
}

// handleTicker stores the price with the local receive time, so staleness is
// measured against our own clock.
func (w *Client) handleTicker(msg Message) {
	var data []tickerData

	if err := json.Unmarshal(msg.Data, &data); err != nil {
		var single tickerData
		if err := json.Unmarshal(msg.Data, &single); err != nil {
			w.logEntry().WithError(err).Warn("Не удалось разобрать ticker.")
			return
		}
		data = append(data, single)
	}

	received := w.now()
	for _, item := range data {
		price, err := strconv.ParseFloat(item.LastPrice, 64)
		if err != nil || price <= 0 {
			continue
		}

		seq := item.Seq
		if seq == 0 {
			if item.TS > 0 {
				seq = item.TS
			} else {
				seq = msg.TS
			}
		}

		w.mu.Lock()
		prev, ok := w.tickers[item.Symbol]
		if !ok || seq >= prev.Sequence {
			w.tickers[item.Symbol] = models.Ticker{
				Symbol:    item.Symbol,
				LastPrice: price,
				Timestamp: received,
				Sequence:  seq,
			}
		}
		w.mu.Unlock()
	}
}
