package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/hongyue0721/image-fill-site/internal/bootstrap"
	"github.com/hongyue0721/image-fill-site/internal/http/handlers"
	httpapi "github.com/hongyue0721/image-fill-site/internal/http/httpapi"
	"github.com/hongyue0721/image-fill-site/internal/infra"
	"github.com/hongyue0721/image-fill-site/internal/metrics"
)

func main() {
	if err := infra.LoadEnvFiles("config.con", ".env"); err != nil {
		panic(err)
	}
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	comps, err := bootstrap.Build(ctx, cfg, logger, collector)
	if err != nil {
		logger.Fatal().Err(err).Msg("bootstrap failed")
	}
	defer comps.Close()

	app, err := handlers.NewApp(handlers.Options{
		Generator:      comps.Service,
		Settings:       comps.Settings,
		Assets:         comps.Assets,
		Latest:         comps.Latest,
		AdminPassword:  cfg.AdminPassword,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("build handlers")
	}
	if cfg.AdminPassword == "admin123" {
		logger.Warn().Msg("ADMIN_PASSWORD is the default, change it before exposing the admin page")
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Metrics:           collector,
		Logger:            logger,
		PublicDir:         cfg.PublicDir,
		CORSOrigins:       cfg.CORSAllowedOrigins,
		RateLimitPerMin:   cfg.RateLimitPerMin,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})
	server := infra.NewHTTPServer(cfg, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("addr", server.Addr()).
			Str("latest_store", cfg.LatestStore).
			Msg("api listening")
		return server.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return
	}
	logger.Info().Msg("server stopped")
}
