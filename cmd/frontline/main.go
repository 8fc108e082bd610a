package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/memohai/frontline/cmd/frontline/modules"
	migrations "github.com/memohai/frontline/db"
	"github.com/memohai/frontline/internal/config"
	"github.com/memohai/frontline/internal/customers"
	"github.com/memohai/frontline/internal/db"
	"github.com/memohai/frontline/internal/logger"
	"github.com/memohai/frontline/internal/version"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "frontline",
		Short:         "Conversation callbacks for the Frontline messaging front-end",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.toml (defaults to $CONFIG_PATH or ./config.toml)")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newDirectoryCmd(),
		newVersionCmd(),
	)
	return root
}

func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP callback server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			app := fx.New(
				fx.Supply(cfg),
				modules.InfraModule,
				modules.DomainModule,
				modules.HandlersModule,
				modules.ServerModule,
				fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
					return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
				}),
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate <" + strings.Join(db.MigrateCommands, "|") + "> [N]",
		Short:     "Apply or roll back the directory schema",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: db.MigrateCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(db.MigrateCommands, args[0]) {
				return fmt.Errorf("unknown migrate command %q", args[0])
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger.Init(cfg.Log.Level, cfg.Log.Format)
			sub, err := migrations.Migrations()
			if err != nil {
				return err
			}
			return db.RunMigrate(logger.L, cfg.Postgres, sub, args[0], args[1:])
		},
	}
}

func newDirectoryCmd() *cobra.Command {
	dir := &cobra.Command{
		Use:   "directory",
		Short: "Manage the Postgres customer directory",
	}
	dir.AddCommand(&cobra.Command{
		Use:   "import <seed.yaml>",
		Short: "Upsert workers and customers from a YAML seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger.Init(cfg.Log.Level, cfg.Log.Format)
			seed, err := customers.ReadSeed(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			pool, err := db.Open(ctx, cfg.Postgres)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer pool.Close()

			n, err := customers.NewPostgresStore(pool).Import(ctx, seed)
			if err != nil {
				return err
			}
			logger.Info("directory imported", slog.Int("customers", n), slog.Int("workers", len(seed.Workers)))
			return nil
		},
	})
	return dir
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Frontline callbacks %s\n", version.GetInfo())
		},
	}
}
