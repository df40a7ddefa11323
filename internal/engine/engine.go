package engine

import (
	"context"
	"errors"
	"fmt"
	"spotbot/internal/config"
	"spotbot/internal/exchange"
	"spotbot/internal/journal"
	"spotbot/internal/logger"
	"spotbot/internal/models"
	"spotbot/internal/strategy"
	"sync"
	"time"
)

type Engine struct {
	cfg     *config.Config
	client  exchange.Client
	journal journal.Journal
	log     *logger.Logger

	periods strategy.Periods
	retry   RetryPolicy

	// owned by the loop goroutine
	position *Position

	snapMu   sync.RWMutex
	snapshot *Position

	now   func() time.Time
	sleep sleepFunc
}

func New(cfg *config.Config, client exchange.Client, j journal.Journal, log *logger.Logger) *Engine {
	if j == nil {
		j = journal.Nop{}
	}
	return &Engine{
		cfg:     cfg,
		client:  client,
		journal: j,
		log:     log,
		periods: periodsFromConfig(cfg),
		retry:   DefaultRetryPolicy(),
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

func periodsFromConfig(cfg *config.Config) strategy.Periods {
	ind := cfg.Indicators
	return strategy.Periods{
		Window:       cfg.Bot.CandleCount,
		RSI:          ind.RSIPeriod,
		MACDFast:     ind.MACDFast,
		MACDSlow:     ind.MACDSlow,
		MACDSignal:   ind.MACDSignal,
		SMAShort:     ind.SMAShort,
		SMALong:      ind.SMALong,
		EMAShort:     ind.EMAShort,
		EMALong:      ind.EMALong,
		BB:           ind.BBPeriod,
		BBDeviations: ind.BBDeviations,
		StochK:       ind.StochKPeriod,
		StochD:       ind.StochDPeriod,
		VolumeAvg:    ind.VolumeAvgPeriod,
	}
}

// Start recovers a leftover position and runs the trading loop until ctx is
// cancelled. Cancellation is noticed between ticks and during sleeps only.
func (e *Engine) Start(ctx context.Context) error {
	e.logBanner()

	if err := e.CheckExistingPosition(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	}

	for {
		if ctx.Err() != nil {
			e.logEntry("").Info("Торговый цикл остановлен.")
			return nil
		}

		wait := e.cfg.Bot.CheckInterval
		if err := e.tick(ctx); err != nil {
			e.logEntry("").WithError(err).WithField("cooldown", e.cfg.Bot.ErrorCooldown.String()).
				Error("Ошибка в торговом цикле.")
			wait = e.cfg.Bot.ErrorCooldown
		}

		if err := e.sleep(ctx, wait); err != nil {
			e.logEntry("").Info("Торговый цикл остановлен.")
			return nil
		}
	}
}

// tick performs one iteration: exit checks while a position is open, then a
// scan for an entry once no position is held, so a sale and the next buy may
// share a tick.
func (e *Engine) tick(ctx context.Context) error {
	if e.position != nil {
		if err := e.checkPosition(ctx); err != nil {
			return err
		}
		if e.position != nil {
			return nil
		}
	}
	return e.scan(ctx)
}

func (e *Engine) scan(ctx context.Context) error {
	for _, pair := range e.cfg.Bot.Pairs {
		buy, err := e.analyze(ctx, pair)
		if err != nil {
			e.logEntry(pair).WithError(err).Error("Ошибка анализа пары.")
			continue
		}
		if buy {
			return e.execute(ctx, pair, models.OrderSideBuy, "")
		}
	}
	return nil
}

// analyze reports whether pair is a buy right now.
func (e *Engine) analyze(ctx context.Context, pair string) (bool, error) {
	candles, err := e.client.GetCandles(ctx, pair, e.cfg.Bot.Interval, e.cfg.Bot.CandleCount)
	if err != nil {
		return false, fmt.Errorf("Не удалось получить свечи %s: %w", pair, err)
	}

	set, err := strategy.Calculate(candles, e.periods)
	if err != nil {
		if errors.Is(err, strategy.ErrInsufficientData) {
			e.logEntry(pair).WithField("candles", len(candles)).Debug("Недостаточно свечей, пара пропущена.")
			return false, nil
		}
		return false, err
	}

	score := strategy.Score(set, e.cfg.Bot.VolumeMultiplier)
	entry := e.logEntry(pair).WithFields(set.Map()).WithField("score", score)

	if e.position == nil && strategy.ShouldEnter(set, score, e.cfg.Bot.ScoreMinEntry, e.cfg.Bot.VolumeMultiplier) {
		entry.Info("Сигнал на покупку.")
		return true, nil
	}
	entry.Debug("Сигнала нет.")
	return false, nil
}
