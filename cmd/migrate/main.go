package main

import (
	"embed"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

type options struct {
	dsn     string
	up      bool
	down    bool
	steps   int
	version bool
	force   int
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil)).With("cmd", "migrate")

	opts, forced := parseFlags()

	if err := run(opts, forced, logger); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() (options, bool) {
	var opts options
	flag.StringVar(&opts.dsn, "dsn", "", "Database URL (defaults to the FES_DB_* settings)")
	flag.BoolVar(&opts.up, "up", false, "Apply all pending migrations")
	flag.BoolVar(&opts.down, "down", false, "Revert all migrations")
	flag.IntVar(&opts.steps, "steps", 0, "Apply N migrations (negative reverts)")
	flag.BoolVar(&opts.version, "version", false, "Print the current schema version")
	flag.IntVar(&opts.force, "force", -1, "Force the schema version without running migrations")
	flag.Parse()

	forced := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "force" {
			forced = true
		}
	})
	return opts, forced
}

func run(opts options, forced bool, logger *slog.Logger) error {
	dsn := opts.dsn
	if dsn == "" {
		db, err := config.LoadDatabase()
		if err != nil {
			return err
		}
		dsn = db.URL()
		logger = logger.With("host", db.Host, "database", db.Name, "schema", db.Schema)
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer m.Close()

	switch {
	case opts.version:
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("no migrations applied")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read version: %w", err)
		}
		logger.Info("schema version", "version", v, "dirty", dirty)
	case forced:
		if err := m.Force(opts.force); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
		logger.Warn("schema version forced", "version", opts.force)
	case opts.up:
		if err := ignoreNoChange(m.Up()); err != nil {
			return fmt.Errorf("up: %w", err)
		}
		logger.Info("migrations applied")
	case opts.down:
		if err := ignoreNoChange(m.Down()); err != nil {
			return fmt.Errorf("down: %w", err)
		}
		logger.Info("migrations reverted")
	case opts.steps != 0:
		if err := ignoreNoChange(m.Steps(opts.steps)); err != nil {
			return fmt.Errorf("steps %d: %w", opts.steps, err)
		}
		logger.Info("migration steps applied", "steps", opts.steps)
	default:
		fmt.Fprintln(os.Stderr, "usage: migrate [-dsn url] -up | -down | -steps N | -version | -force N")
		flag.PrintDefaults()
	}
	return nil
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
