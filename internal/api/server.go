package api

import (
	"context"
	"errors"
	"net/http"
	"spotbot/internal/engine"
	"spotbot/internal/logger"
	"time"

	"github.com/gin-gonic/gin"
)

type PositionSource interface {
	Snapshot() (engine.Position, bool)
}

type positionView struct {
	ID         string    `json:"id"`
	Pair       string    `json:"pair"`
	EntryPrice float64   `json:"entry_price"`
	Quantity   float64   `json:"quantity"`
	OpenedAt   time.Time `json:"opened_at"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	HoldLimit  string    `json:"hold_limit"`
	Remaining  string    `json:"remaining"`
	Recovered  bool      `json:"recovered"`
}

// Server exposes read-only bot status over HTTP.
type Server struct {
	srv    *http.Server
	source PositionSource
	log    *logger.Logger
	now    func() time.Time
}

func New(addr string, source PositionSource, log *logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{source: source, log: log, now: time.Now}
	r := gin.New()
	r.Use(gin.Recovery())
	s.registerRoutes(r)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/position", func(c *gin.Context) {
		pos, ok := s.source.Snapshot()
		if !ok {
			c.JSON(http.StatusOK, gin.H{"position": nil})
			return
		}
		now := s.now()
		c.JSON(http.StatusOK, gin.H{"position": positionView{
			ID:         pos.ID,
			Pair:       pos.Pair,
			EntryPrice: pos.EntryPrice,
			Quantity:   pos.Quantity,
			OpenedAt:   pos.OpenedAt,
			StopLoss:   pos.StopLoss,
			TakeProfit: pos.TakeProfit,
			HoldLimit:  pos.HoldLimit.String(),
			Remaining:  pos.Remaining(now).Round(time.Second).String(),
			Recovered:  pos.Recovered,
		}})
	})
}

func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithComponent("api").WithField("addr", s.srv.Addr).Info("API статуса запущен.")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
