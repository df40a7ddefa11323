package ws

import (
	"encoding/json"
	"spotbot/internal/logger"
	"spotbot/internal/models"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client keeps the last ticker of every subscribed spot symbol from the
// public stream. It never places orders.
type Client struct {
	url          string
	log          *logger.Logger
	conn         *websocket.Conn
	writeMu      sync.Mutex
	mu           sync.RWMutex
	tickers      map[string]models.Ticker
	stopCh       chan struct{}
	stopOnce     sync.Once
	symbols      []string
	reconnectMin time.Duration
	reconnectMax time.Duration
	pingInterval time.Duration
	now          func() time.Time
}

// Message covers both topic pushes and op acknowledgements.
type Message struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	TS      int64           `json:"ts"`
	Op      string          `json:"op"`
	Success *bool           `json:"success"`
	RetMsg  string          `json:"ret_msg"`
	Data    json.RawMessage `json:"data"`
}

type OpMessage struct {
	Op   string   `json:"op"`
	Args []string `json:"args,omitempty"`
}
