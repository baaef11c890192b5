// Package database owns the PostgreSQL pool the document stores share.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/lifecycle"
)

const pingInterval = 500 * time.Millisecond

// System exposes the pool and registers its lifecycle hooks.
type System interface {
	Connection() *sql.DB
	// Schema names the PostgreSQL schema holding the document tables.
	Schema() string
	Start(lc *lifecycle.Coordinator) error
}

type database struct {
	conn        *sql.DB
	schema      string
	logger      *slog.Logger
	connTimeout time.Duration
}

// New parses the connection settings and sizes the pool. No connection is
// made until the startup hook pings the server.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	connCfg, err := pgx.ParseConfig(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	connCfg.ConnectTimeout = cfg.ConnTimeoutDuration()

	db := stdlib.OpenDB(*connCfg)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &database{
		conn:        db,
		schema:      cfg.Schema,
		logger:      logger.With("system", "database", "host", cfg.Host, "database", cfg.Name),
		connTimeout: cfg.ConnTimeoutDuration(),
	}, nil
}

func (d *database) Connection() *sql.DB {
	return d.conn
}

func (d *database) Schema() string {
	return d.schema
}

// Start pings until the server answers or connTimeout elapses, so a
// database container that is still booting does not fail startup.
func (d *database) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup(lifecycle.Hook{
		Name:     "database",
		Required: true,
		Run:      d.waitReady,
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		stats := d.conn.Stats()
		if err := d.conn.Close(); err != nil {
			d.logger.Error("database close failed", "error", err)
			return
		}
		d.logger.Info("database pool closed",
			"open", stats.OpenConnections,
			"wait_count", stats.WaitCount,
			"wait_duration", stats.WaitDuration,
		)
	})

	return nil
}

func (d *database) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.connTimeout)
	defer cancel()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		err := d.conn.PingContext(ctx)
		if err == nil {
			d.logger.Info("database ready", "attempts", attempt)
			return nil
		}

		select {
		case <-ctx.Done():
			d.logger.Error("database unreachable", "attempts", attempt, "error", err)
			return fmt.Errorf("ping database: %w", err)
		case <-ticker.C:
		}
	}
}
