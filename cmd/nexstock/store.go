package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"NexStock/internal/config"
	"NexStock/internal/inventory"
	"NexStock/pkg/kit"
)

type env struct {
	cfg   *config.Config
	log   *zap.Logger
	store inventory.Store
	close func()
}

func loadEnv(ctx context.Context, opts *rootOptions, metrics *inventory.Metrics) (*env, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, err
	}

	log := kit.NewLogger(cfg.App.Name, cfg.Logger.Level)

	store, closeStore, err := openStore(ctx, cfg.Store, log, metrics)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}

	return &env{
		cfg:   cfg,
		log:   log,
		store: store,
		close: func() {
			closeStore()
			_ = log.Sync()
		},
	}, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig, log *zap.Logger, metrics *inventory.Metrics) (inventory.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		s := inventory.NewPostgresStore(pool, cfg.Document, log)
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return s, pool.Close, nil
	default:
		s, err := inventory.NewFileStore(cfg.Path, log, metrics)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	}
}

// withService opens the configured store for one command invocation.
func withService(cmd *cobra.Command, opts *rootOptions, fn func(svc *inventory.Service) error) error {
	e, err := loadEnv(cmd.Context(), opts, nil)
	if err != nil {
		return err
	}
	defer e.close()

	return fn(inventory.NewService(e.store, nil))
}
