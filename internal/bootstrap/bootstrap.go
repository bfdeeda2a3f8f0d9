// Package bootstrap assembles the stores and services shared by the
// commands from a loaded Config.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hongyue0721/image-fill-site/internal/assets"
	"github.com/hongyue0721/image-fill-site/internal/generation"
	"github.com/hongyue0721/image-fill-site/internal/imagegen"
	"github.com/hongyue0721/image-fill-site/internal/infra"
	"github.com/hongyue0721/image-fill-site/internal/latest"
	"github.com/hongyue0721/image-fill-site/internal/metrics"
	"github.com/hongyue0721/image-fill-site/internal/settings"
	"github.com/hongyue0721/image-fill-site/internal/storage"
)

type Components struct {
	Settings  *settings.Store
	Assets    *assets.Store
	Latest    *latest.Store
	Generator *imagegen.Orchestrator
	Service   *generation.Service

	pool *pgxpool.Pool
}

// Close releases the database pool when the postgres backend is in use.
func (c *Components) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}

// Build wires every component. collector may be nil.
func Build(ctx context.Context, cfg *infra.Config, logger infra.Logger, collector *metrics.Collector) (*Components, error) {
	dataFiles, err := storage.NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open data dir: %w", err)
	}
	uploadFiles, err := storage.NewFileStore(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("open upload dir: %w", err)
	}

	c := &Components{
		Settings: settings.NewStore(dataFiles, os.LookupEnv, logger),
		Assets:   assets.NewStore(uploadFiles, logger),
	}
	if err := c.Assets.EnsureDefaults(ctx, cfg.DefaultOriginalPath, cfg.DefaultMaskPath); err != nil {
		return nil, err
	}
	if _, err := c.Settings.Load(ctx); err != nil {
		return nil, fmt.Errorf("initialise settings: %w", err)
	}

	records, err := c.recordStore(ctx, cfg, dataFiles, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	var (
		commitObserver  latest.CommitObserver
		attemptObserver imagegen.Observer
	)
	if collector != nil {
		commitObserver, attemptObserver = collector, collector
	}

	c.Latest, err = latest.NewStore(latest.Options{Records: records, Base: c.Assets, Observer: commitObserver})
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Generator, err = imagegen.NewOrchestrator(imagegen.OrchestratorOptions{
		Assets:   c.Assets,
		Logger:   &logger,
		Observer: attemptObserver,
	})
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Service, err = generation.NewService(generation.Options{
		Settings:  c.Settings,
		Generator: c.Generator,
		Latest:    c.Latest,
		Assets:    c.Assets,
	})
	if err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Components) recordStore(ctx context.Context, cfg *infra.Config, files *storage.FileStore, logger infra.Logger) (latest.RecordStore, error) {
	if cfg.LatestStore != infra.LatestStorePostgres {
		return latest.NewFileRecordStore(files, logger), nil
	}
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.pool = pool
	pg := latest.NewPostgresRecordStore(infra.NewSQLRunner(pool, logger))
	if err := pg.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure latest image table: %w", err)
	}
	return pg, nil
}
