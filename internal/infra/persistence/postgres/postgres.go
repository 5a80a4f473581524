package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"tenantauth/config"
	"tenantauth/internal/domain/lifecycle"
	"tenantauth/internal/errors"

	pgLib "github.com/slighter12/go-lib/database/postgres"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const (
	dbPoolMonitorInterval       = 5 * time.Second
	dbPoolWarnDurationThreshold = 50 * time.Millisecond
)

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// New creates the PostgreSQL client backing every auth repository.
func New(params Params) (*gorm.DB, error) {
	db, err := pgLib.New(params.Config.Postgres)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create PostgreSQL client")
	}
	db = db.Session(&gorm.Session{
		// Multi-step flows (registration, rotation) open explicit transactions via TransactionManager.
		SkipDefaultTransaction: true,
		Logger:                 newGormSlogLogger(params.Logger, params.Config),
	})

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get PostgreSQL sql.DB")
	}

	monitorCtx, cancelMonitor := context.WithCancel(context.Background())

	// Add lifecycle management
	params.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, lifecycle.DefaultTimeout)
			defer cancel()

			if err := sqlDB.PingContext(ctx); err != nil {
				return errors.Wrap(err, "failed to ping PostgreSQL")
			}

			go newPoolMonitor(params.Logger, sqlDB).run(monitorCtx, dbPoolMonitorInterval)
			params.Logger.Info("PostgreSQL connected")

			return nil
		},
		OnStop: func(_ context.Context) error {
			cancelMonitor()

			return sqlDB.Close()
		},
	})

	return db, nil
}

// poolMonitor reports connection pool contention. Waiting for a connection is the first sign
// that login bursts outgrow MaxOpenConns.
type poolMonitor struct {
	logger *slog.Logger
	stats  func() sql.DBStats
	prev   sql.DBStats
}

func newPoolMonitor(logger *slog.Logger, sqlDB *sql.DB) *poolMonitor {
	return &poolMonitor{
		logger: logger.With(slog.String("component", "pgpool")),
		stats:  sqlDB.Stats,
		prev:   sqlDB.Stats(),
	}
}

func (m *poolMonitor) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.observe(ctx, m.stats())
		}
	}
}

// observe logs the wait delta since the previous sample, if any.
func (m *poolMonitor) observe(ctx context.Context, cur sql.DBStats) {
	waitCount := cur.WaitCount - m.prev.WaitCount
	waitDuration := cur.WaitDuration - m.prev.WaitDuration
	m.prev = cur
	if waitCount <= 0 {
		return
	}

	level := slog.LevelDebug
	if waitDuration >= dbPoolWarnDurationThreshold {
		level = slog.LevelWarn
	}
	m.logger.LogAttrs(ctx, level, "Postgres pool wait",
		slog.Int64("wait_count", waitCount),
		slog.Duration("wait_duration", waitDuration),
		slog.Duration("avg_wait", waitDuration/time.Duration(waitCount)),
		slog.Int("open_conns", cur.OpenConnections),
		slog.Int("in_use_conns", cur.InUse),
		slog.Int("max_open_conns", cur.MaxOpenConnections),
	)
}
