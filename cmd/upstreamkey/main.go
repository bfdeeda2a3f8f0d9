package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hongyue0721/image-fill-site/internal/infra"
	"github.com/hongyue0721/image-fill-site/internal/settings"
	"github.com/hongyue0721/image-fill-site/internal/storage"
)

func main() {
	var (
		slotFlag    string
		keyFlag     string
		baseURLFlag string
		modelFlag   string
		enableFlag  bool
		disableFlag bool
	)
	flag.StringVar(&slotFlag, "slot", settings.SlotPrimary, "Upstream slot to configure (primary or secondary)")
	flag.StringVar(&keyFlag, "key", "", "API key for the slot (fallbacks to UPSTREAM_<SLOT>_API_KEY)")
	flag.StringVar(&baseURLFlag, "base-url", "", "Base URL of the OpenAI-compatible upstream")
	flag.StringVar(&modelFlag, "model", "", "Model name sent with each edit")
	flag.BoolVar(&enableFlag, "enable", false, "Enable the slot")
	flag.BoolVar(&disableFlag, "disable", false, "Disable the slot")
	flag.Parse()

	slot := strings.TrimSpace(strings.ToLower(slotFlag))
	switch slot {
	case settings.SlotPrimary, settings.SlotSecondary:
	default:
		fmt.Fprintf(os.Stderr, "unsupported slot %q\n", slotFlag)
		os.Exit(1)
	}
	if enableFlag && disableFlag {
		fmt.Fprintln(os.Stderr, "-enable and -disable are mutually exclusive")
		os.Exit(1)
	}

	if err := infra.LoadEnvFiles("config.con", ".env"); err != nil {
		fmt.Fprintf(os.Stderr, "load env files: %v\n", err)
		os.Exit(1)
	}
	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = strings.TrimSpace(os.Getenv("UPSTREAM_" + strings.ToUpper(slot) + "_API_KEY"))
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	files, err := storage.NewFileStore(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open data dir: %v\n", err)
		os.Exit(1)
	}
	logger := infra.NewLogger("cli").With().Str("cmd", "upstreamkey").Str("slot", slot).Logger()
	store := settings.NewStore(files, os.LookupEnv, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	next, err := store.Update(ctx, func(prev settings.Settings) (settings.Settings, error) {
		u := prev.Slot(slot)
		if key != "" {
			u.APIKey = key
		}
		if v := strings.TrimSpace(baseURLFlag); v != "" {
			u.BaseURL = v
		}
		if v := strings.TrimSpace(modelFlag); v != "" {
			u.Model = v
		}
		switch {
		case enableFlag:
			u.Enabled = true
		case disableFlag:
			u.Enabled = false
		}
		return settings.Sanitize(prev, prev), nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to update %s upstream: %v\n", slot, err)
		os.Exit(1)
	}

	u := next.Slot(slot)
	fmt.Printf("%s upstream %s updated (enabled=%t, model=%s, key set=%t)\n", slot, u.Name, u.Enabled, u.Model, u.APIKey != "")
}
