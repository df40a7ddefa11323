package engine

import (
	"strings"

	"github.com/sirupsen/logrus"
)

func (e *Engine) logEntry(pair string) *logrus.Entry {
	entry := e.log.WithComponent("engine")
	if pair != "" {
		entry = entry.WithField("symbol", pair)
	}
	return entry
}

func (e *Engine) logBanner() {
	e.logEntry("").WithFields(map[string]interface{}{
		"pairs":         strings.Join(e.cfg.Bot.Pairs, ","),
		"interval":      e.cfg.Bot.Interval,
		"candles":       e.cfg.Bot.CandleCount,
		"score_min":     e.cfg.Bot.ScoreMinEntry,
		"order_usd":     e.cfg.Bot.OrderValueUSD,
		"stop_loss_pct": e.cfg.Risk.StopLossPct * 100,
		"take_prof_pct": e.cfg.Risk.TakeProfitPct * 100,
		"max_sl_pct":    e.cfg.Risk.MaxSLVolatility * 100,
		"max_hold":      e.cfg.Risk.MaxHold.String(),
		"check_every":   e.cfg.Bot.CheckInterval.String(),
	}).Info("Спотовый бот запущен.")
}
