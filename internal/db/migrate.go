package db

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/memohai/frontline/internal/config"
)

// MigrateCommands lists the commands accepted by RunMigrate.
var MigrateCommands = []string{"up", "down", "version", "force", "steps"}

// RunMigrate applies or rolls back the directory schema.
// migrationsFS must contain the .sql files at its root.
// Supported commands: "up", "down", "version", "force N", "steps N".
func RunMigrate(logger *slog.Logger, cfg config.PostgresConfig, migrationsFS fs.FS, command string, args []string) error {
	return RunMigrateDSN(logger, DSN(cfg), migrationsFS, command, args)
}

// RunMigrateDSN is RunMigrate for an explicit connection string.
func RunMigrateDSN(logger *slog.Logger, dsn string, migrationsFS fs.FS, command string, args []string) error {
	n, err := parseMigrateCommand(command, args)
	if err != nil {
		return err
	}
	if logger == nil {
		logger = slog.Default()
	}

	sourceDriver, err := iofs.New(migrationsFS, ".")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, dsn)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	defer m.Close()
	m.Log = &migrateLogger{logger: logger}

	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate up: %w", err)
		}
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down: %w", err)
		}
	case "steps":
		if err := m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate steps: %w", err)
		}
	case "force":
		if err := m.Force(n); err != nil {
			return fmt.Errorf("migrate force: %w", err)
		}
	}

	ver, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		logger.Info("no migration applied", slog.String("command", command))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate version: %w", err)
	}
	logger.Info("migration state", slog.String("command", command), slog.Uint64("version", uint64(ver)), slog.Bool("dirty", dirty))
	return nil
}

// parseMigrateCommand validates command and returns its numeric argument for force/steps.
func parseMigrateCommand(command string, args []string) (int, error) {
	switch command {
	case "up", "down", "version":
		return 0, nil
	case "force", "steps":
		if len(args) == 0 {
			return 0, fmt.Errorf("%s requires a number argument", command)
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return 0, fmt.Errorf("invalid %s argument %q: %w", command, args[0], err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unknown migrate command: %s (use: up, down, version, force, steps)", command)
	}
}

type migrateLogger struct {
	logger *slog.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

func (l *migrateLogger) Verbose() bool {
	return false
}
