package modules

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/fx"

	"github.com/memohai/frontline/internal/alerts"
	"github.com/memohai/frontline/internal/analytics"
	"github.com/memohai/frontline/internal/boot"
	"github.com/memohai/frontline/internal/config"
	"github.com/memohai/frontline/internal/conversations"
	"github.com/memohai/frontline/internal/customers"
	"github.com/memohai/frontline/internal/db"
	"github.com/memohai/frontline/internal/logger"
	"github.com/memohai/frontline/internal/routing"
)

var InfraModule = fx.Module(
	"infra",
	fx.Provide(
		provideLogger,
		boot.ProvideRuntimeConfig,
		provideDirectory,
		provideGateway,
		provideMailer,
		provideTracker,
		provideRand,
	),
)

// ---------------------------------------------------------------------------
// infrastructure providers
// ---------------------------------------------------------------------------

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDirectory(lc fx.Lifecycle, log *slog.Logger, cfg config.Config) (customers.Directory, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Directory.Driver)) {
	case "", "memory":
		store, err := customers.LoadMemoryStore(cfg.Directory.SeedPath)
		if err != nil {
			return nil, err
		}
		log.Info("customer directory ready", slog.String("driver", "memory"), slog.String("seed", cfg.Directory.SeedPath))
		return store, nil
	case "postgres":
		pool, err := db.Open(context.Background(), cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				pool.Close()
				return nil
			},
		})
		log.Info("customer directory ready", slog.String("driver", "postgres"), slog.String("database", cfg.Postgres.Database))
		return customers.NewPostgresStore(pool), nil
	default:
		return nil, fmt.Errorf("unknown directory driver: %s", cfg.Directory.Driver)
	}
}

func provideGateway(log *slog.Logger, rc *boot.RuntimeConfig) (conversations.Gateway, error) {
	return conversations.NewTwilioGateway(log, rc.TwilioAccountSID, rc.TwilioAuthToken)
}

func provideMailer(log *slog.Logger, cfg config.Config) (alerts.Mailer, error) {
	return alerts.New(log, cfg.Email)
}

func provideTracker(lc fx.Lifecycle, log *slog.Logger, cfg config.Config) (analytics.Tracker, error) {
	tracker, err := analytics.New(log, cfg.Analytics)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tracker.Close()
		},
	})
	return tracker, nil
}

func provideRand() routing.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
