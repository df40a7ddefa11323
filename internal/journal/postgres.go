package journal

import (
	"context"
	"fmt"
	"spotbot/internal/logger"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS spot_trades (
		id VARCHAR(64) PRIMARY KEY,
		symbol VARCHAR(20) NOT NULL,
		entry_price DECIMAL(20, 8) NOT NULL,
		exit_price DECIMAL(20, 8),
		quantity DECIMAL(20, 8) NOT NULL,
		entry_time TIMESTAMPTZ NOT NULL,
		exit_time TIMESTAMPTZ,
		stop_loss DECIMAL(20, 8),
		take_profit DECIMAL(20, 8),
		pnl DECIMAL(20, 8),
		pnl_percent DECIMAL(10, 4),
		close_reason VARCHAR(32),
		recovered BOOLEAN NOT NULL DEFAULT FALSE,
		status VARCHAR(10) NOT NULL DEFAULT 'OPEN',
		updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_spot_trades_symbol ON spot_trades(symbol)`,
	`CREATE INDEX IF NOT EXISTS idx_spot_trades_status ON spot_trades(status)`,
}

const insertOpen = `
INSERT INTO spot_trades (id, symbol, entry_price, quantity, entry_time, stop_loss, take_profit, recovered, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'OPEN')
ON CONFLICT (id) DO NOTHING`

// A close for a position opened before the journal existed still lands as a row.
const upsertClose = `
INSERT INTO spot_trades (id, symbol, entry_price, exit_price, quantity, entry_time, exit_time, pnl, pnl_percent, close_reason, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'CLOSED')
ON CONFLICT (id) DO UPDATE SET
	exit_price = EXCLUDED.exit_price,
	quantity = EXCLUDED.quantity,
	exit_time = EXCLUDED.exit_time,
	pnl = EXCLUDED.pnl,
	pnl_percent = EXCLUDED.pnl_percent,
	close_reason = EXCLUDED.close_reason,
	status = 'CLOSED',
	updated_at = CURRENT_TIMESTAMP`

type Postgres struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

var _ Journal = (*Postgres)(nil)

// NewPostgres connects, pings and applies migrations.
func NewPostgres(ctx context.Context, dsn string, log *logger.Logger) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("Некорректный DSN журнала: %w", err)
	}
	poolConfig.MaxConns = 4
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("Не удалось создать пул соединений журнала: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("База журнала недоступна: %w", err)
	}

	p := &Postgres{pool: pool, log: log}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.WithComponent("journal").Info("Журнал сделок подключён.")
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("Ошибка миграции журнала: %w", err)
		}
	}
	return nil
}

func (p *Postgres) RecordOpen(ctx context.Context, e Entry) error {
	_, err := p.pool.Exec(ctx, insertOpen,
		e.ID, e.Pair, e.EntryPrice, e.Quantity, e.OpenedAt, e.StopLoss, e.TakeProfit, e.Recovered)
	if err != nil {
		return fmt.Errorf("Не удалось записать открытие позиции: %w", err)
	}
	return nil
}

func (p *Postgres) RecordClose(ctx context.Context, t Trade) error {
	_, err := p.pool.Exec(ctx, upsertClose,
		t.ID, t.Pair, t.EntryPrice, t.ExitPrice, t.Quantity, t.OpenedAt, t.ClosedAt, t.Profit, t.ProfitPct, t.Reason)
	if err != nil {
		return fmt.Errorf("Не удалось записать закрытие позиции: %w", err)
	}
	return nil
}

func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}
