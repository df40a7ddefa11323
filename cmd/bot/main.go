package main

import (
	"context"
	"os"
	"os/signal"
	"spotbot/internal/api"
	"spotbot/internal/config"
	"spotbot/internal/engine"
	"spotbot/internal/exchange/bybit"
	"spotbot/internal/journal"
	"spotbot/internal/logger"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Runtime.Log.Level,
		Format:     cfg.Runtime.Log.Format,
		Output:     cfg.Runtime.Log.File,
		Console:    cfg.Runtime.Log.Console,
		MaxSize:    cfg.Runtime.Log.MaxSize,
		MaxBackups: cfg.Runtime.Log.MaxBackups,
		MaxAge:     cfg.Runtime.Log.MaxAge,
		Compress:   cfg.Runtime.Log.Compress,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := bybit.New(
		cfg.Exchange.BaseUrl,
		cfg.Exchange.WSPublicURL,
		cfg.Exchange.AccountType,
		cfg.Exchange.ApiKey,
		cfg.Exchange.Secret,
		cfg.Exchange.PriceMaxAge,
		log,
	)
	client.Start(ctx, cfg.Bot.Pairs)
	defer client.Close()

	var trades journal.Journal = journal.Nop{}
	if cfg.Runtime.JournalDSN != "" {
		pg, err := journal.NewPostgres(ctx, cfg.Runtime.JournalDSN, log)
		if err != nil {
			log.WithError(err).Warn("Журнал сделок отключён.")
		} else {
			defer pg.Close()
			trades = pg
		}
	}

	eng := engine.New(cfg, client, trades, log)

	if cfg.Runtime.APIAddr != "" {
		srv := api.New(cfg.Runtime.APIAddr, eng, log)
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.WithError(err).Error("API статуса завершился с ошибкой.")
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := eng.Start(ctx); err != nil {
			log.WithError(err).Error("\"Двигатель\" завершился с ошибкой.")
		}
	}()

	select {
	case <-sigCh:
		log.Info("Получен сигнал остановки, ждём завершения текущей итерации.")
		cancel()
		<-done
	case <-done:
	}

	log.Info("Бот остановлен.")
}
