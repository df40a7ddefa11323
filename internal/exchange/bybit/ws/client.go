package ws

import (
	"context"
	"spotbot/internal/logger"
	"spotbot/internal/models"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

func New(url string, log *logger.Logger) *Client {
	return &Client{
		url:          url,
		log:          log,
		tickers:      make(map[string]models.Ticker),
		stopCh:       make(chan struct{}),
		reconnectMin: 1 * time.Second,
		reconnectMax: 30 * time.Second,
		pingInterval: 20 * time.Second,
		now:          time.Now,
	}
}

// Connect dials the public stream, subscribes to tickers of symbols and
// starts the reader and keepalive goroutines.
func (w *Client) Connect(ctx context.Context, symbols []string) error {
	w.logEntry().WithField("url", w.url).Info("Подключение к WS.")

	conn, err := w.dial(ctx)
	if err != nil {
		return err
	}

	w.conn = conn
	w.symbols = symbols

	if err := w.subscribe(); err != nil {
		_ = conn.Close()
		return err
	}

	w.logEntry().WithField("symbols", strings.Join(symbols, ",")).Info("WS соединение установлено.")

	go w.readLoop()
	go w.pingLoop()

	return nil
}

func (w *Client) Close() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.writeMu.Lock()
		defer w.writeMu.Unlock()
		if w.conn != nil {
			_ = w.conn.Close()
		}
	})
}

// LastPrice returns the cached last price if it is not older than maxAge.
func (w *Client) LastPrice(symbol string, maxAge time.Duration) (float64, bool) {
	w.mu.RLock()
	ticker, ok := w.tickers[symbol]
	w.mu.RUnlock()

	if !ok || ticker.LastPrice <= 0 {
		return 0, false
	}
	if w.now().Sub(ticker.Timestamp) > maxAge {
		return 0, false
	}
	return ticker.LastPrice, true
}

func (w *Client) subscribe() error {
	args := make([]string, 0, len(w.symbols))
	for _, symbol := range w.symbols {
		args = append(args, "tickers."+symbol)
	}
	return w.writeJSON(OpMessage{Op: "subscribe", Args: args})
}

func (w *Client) writeJSON(v any) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.conn.WriteJSON(v)
}

func (w *Client) pingLoop() {
	ticker := time.NewTicker(w.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			if err := w.writeJSON(OpMessage{Op: "ping"}); err != nil {
				w.logEntry().WithError(err).Debug("Не удалось отправить ping.")
			}
		}
	}
}

func (w *Client) logEntry() *logrus.Entry {
	return w.log.WithComponent("bybit_ws")
}
