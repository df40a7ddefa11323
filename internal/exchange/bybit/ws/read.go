package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const readLimit = 2 << 20

func (w *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return nil, fmt.Errorf("Не удалось подключиться к WS: %w", err)
	}
	conn.SetReadLimit(readLimit)
	return conn, nil
}

func (w *Client) readLoop() {
	for {
		_, data, err := w.conn.ReadMessage()
		if err == nil {
			w.handleMessage(data)
			continue
		}
		if w.stopping() {
			return
		}

		w.logEntry().WithError(err).Warn("Соединение WS прервано.")
		if !w.reconnect() {
			return
		}
	}
}

func (w *Client) handleMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		w.logEntry().WithError(err).Warn("Не удалось разобрать WS сообщение.")
		return
	}

	switch {
	case strings.HasPrefix(msg.Topic, "tickers."):
		w.handleTicker(msg)
	case msg.Op == "subscribe" && msg.Success != nil && !*msg.Success:
		w.logEntry().WithField("ret_msg", msg.RetMsg).Error("Биржа отклонила подписку на тикеры.")
	}
}

// reconnect redials with exponential backoff until it succeeds or the client
// is closed. Tickers received before the drop stay cached and age out.
func (w *Client) reconnect() bool {
	for attempt := 0; ; attempt++ {
		wait := w.backoff(attempt)
		w.logEntry().WithField("wait", wait.String()).Info("Переподключение к WS.")

		select {
		case <-w.stopCh:
			return false
		case <-time.After(wait):
		}

		conn, err := w.dial(context.Background())
		if err != nil {
			w.logEntry().WithError(err).Warn("Переподключение не удалось.")
			continue
		}

		w.writeMu.Lock()
		old := w.conn
		w.conn = conn
		w.writeMu.Unlock()
		if old != nil {
			_ = old.Close()
		}

		if err := w.subscribe(); err != nil {
			w.logEntry().WithError(err).Warn("Не удалось восстановить подписки WS.")
			continue
		}

		w.logEntry().Info("WS переподключён.")
		return true
	}
}

func (w *Client) backoff(attempt int) time.Duration {
	d := w.reconnectMin
	for i := 0; i < attempt && d < w.reconnectMax; i++ {
		d *= 2
	}
	if d > w.reconnectMax {
		return w.reconnectMax
	}
	return d
}

func (w *Client) stopping() bool {
	select {
	case <-w.stopCh:
		return true
	default:
		return false
	}
}
