package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/hongyue0721/image-fill-site/internal/domain"
	"github.com/hongyue0721/image-fill-site/internal/generation"
	"github.com/hongyue0721/image-fill-site/internal/imagegen"
	"github.com/hongyue0721/image-fill-site/internal/infra"
	"github.com/hongyue0721/image-fill-site/internal/settings"
)

const defaultMaxUploadBytes = 25 << 20

type Generator interface {
	Run(ctx context.Context, requestID, text string) (*generation.Outcome, error)
}

type SettingsStore interface {
	Load(ctx context.Context) (settings.Settings, error)
	Update(ctx context.Context, fn func(prev settings.Settings) (settings.Settings, error)) (settings.Settings, error)
}

type AssetStore interface {
	Original(ctx context.Context) (imagegen.Part, error)
	Mask(ctx context.Context) (imagegen.Part, error)
	ReplaceOriginal(ctx context.Context, data []byte) error
	ReplaceMask(ctx context.Context, data []byte) error
	OriginalMIME() string
	MaskMIME() string
}

type LatestStore interface {
	Current(ctx context.Context) ([]byte, string, error)
	Latest(ctx context.Context) (*domain.ImageRecord, error)
	Reset(ctx context.Context) error
	HasLatest(ctx context.Context) bool
}

type Options struct {
	Generator      Generator
	Settings       SettingsStore
	Assets         AssetStore
	Latest         LatestStore
	AdminPassword  string
	MaxUploadBytes int64
	Logger         infra.Logger
	Now            func() time.Time
}

// App holds the dependencies shared by every HTTP handler.
type App struct {
	generator      Generator
	settings       SettingsStore
	assets         AssetStore
	latest         LatestStore
	adminPassword  string
	maxUploadBytes int64
	logger         infra.Logger
	now            func() time.Time
}

func NewApp(opts Options) (*App, error) {
	if opts.Generator == nil || opts.Settings == nil || opts.Assets == nil || opts.Latest == nil {
		return nil, errors.New("handlers: generator, settings, assets and latest are required")
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &App{
		generator:      opts.Generator,
		settings:       opts.Settings,
		assets:         opts.Assets,
		latest:         opts.Latest,
		adminPassword:  opts.AdminPassword,
		maxUploadBytes: maxUpload,
		logger:         opts.Logger,
		now:            now,
	}, nil
}

// AdminPassword is the shared secret checked by the admin routes.
func (a *App) AdminPassword() string { return a.adminPassword }

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]string{"error": msg})
}

func (a *App) binary(w http.ResponseWriter, mime string, data []byte) {
	w.Header().Set("Content-Type", mime)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// log prefers the request-scoped logger installed by middleware.
func (a *App) log(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &a.logger
}

func decodeJSON(r *http.Request, limit int64, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, limit))
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	return json.Unmarshal(body, v)
}
