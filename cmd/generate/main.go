package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/hongyue0721/image-fill-site/internal/bootstrap"
	"github.com/hongyue0721/image-fill-site/internal/infra"
)

func main() {
	var text string
	flag.StringVar(&text, "text", "", "Visitor text to fill into the prompt template")
	flag.Parse()

	if err := infra.LoadEnvFiles("config.con", ".env"); err != nil {
		fmt.Fprintf(os.Stderr, "load env files: %v\n", err)
		os.Exit(1)
	}
	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	requestID := uuid.NewString()
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "generate").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	comps, err := bootstrap.Build(ctx, cfg, logger, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer comps.Close()

	out, err := comps.Service.Run(ctx, requestID, text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation %s failed: %v\n", requestID, err)
		comps.Close()
		os.Exit(1)
	}
	fmt.Printf("request %s: %d bytes of %s from %s committed\n", out.RequestID, out.Bytes, out.MIME, out.Provider)
}
