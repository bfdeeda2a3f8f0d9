// Package generation runs one visitor request end to end: validate the text,
// build the prompt, call the upstreams and commit the resulting image.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hongyue0721/image-fill-site/internal/domain"
	"github.com/hongyue0721/image-fill-site/internal/imagegen"
	"github.com/hongyue0721/image-fill-site/internal/settings"
)

var (
	ErrTextRequired = fmt.Errorf("%w: text is required", domain.ErrInvalidPrompt)
	ErrTextTooLong  = fmt.Errorf("%w: text too long (max %d)", domain.ErrInvalidPrompt, imagegen.MaxVisitorTextRunes)
)

type SettingsSource interface {
	Load(ctx context.Context) (settings.Settings, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string, cfg domain.GenerationConfig) (*domain.EditResult, error)
}

type Committer interface {
	Commit(ctx context.Context, result domain.EditResult) error
}

type AssetChecker interface {
	Ready(ctx context.Context) bool
}

type Options struct {
	Settings  SettingsSource
	Generator Generator
	Latest    Committer
	Assets    AssetChecker
	Now       func() time.Time
}

type Service struct {
	settings  SettingsSource
	generator Generator
	latest    Committer
	assets    AssetChecker
	now       func() time.Time
}

// Outcome describes a committed generation.
type Outcome struct {
	RequestID   string
	Provider    string
	Prompt      string
	MIME        string
	Bytes       int
	CommittedAt time.Time
}

func NewService(opts Options) (*Service, error) {
	if opts.Settings == nil || opts.Generator == nil || opts.Latest == nil || opts.Assets == nil {
		return nil, errors.New("generation: settings, generator, latest and assets are required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		settings:  opts.Settings,
		generator: opts.Generator,
		latest:    opts.Latest,
		assets:    opts.Assets,
		now:       now,
	}, nil
}

// Validate normalises visitor text and enforces the length limit.
func Validate(text string) (string, error) {
	clean := imagegen.NormalizeVisitorText(text)
	switch n := imagegen.VisitorTextLength(clean); {
	case n == 0:
		return "", ErrTextRequired
	case n > imagegen.MaxVisitorTextRunes:
		return "", ErrTextTooLong
	}
	return clean, nil
}

// Run generates and commits an image for text. An empty requestID gets a
// fresh UUID.
func (s *Service) Run(ctx context.Context, requestID, text string) (*Outcome, error) {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	clean, err := Validate(text)
	if err != nil {
		return nil, err
	}
	if !s.assets.Ready(ctx) {
		return nil, domain.ErrAssetsMissing
	}

	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	prompt := imagegen.BuildPrompt(cfg.PromptTemplate, clean)

	log := zerolog.Ctx(ctx).With().Str("request_id", requestID).Logger()
	ctx = log.WithContext(ctx)

	result, err := s.generator.Generate(ctx, prompt, cfg.GenerationConfig())
	if err != nil {
		return nil, err
	}
	if err := s.latest.Commit(context.WithoutCancel(ctx), *result); err != nil {
		return nil, fmt.Errorf("commit image: %w", err)
	}
	log.Info().Str("provider", result.Provider).Int("bytes", len(result.Data)).Msg("latest image committed")

	return &Outcome{
		RequestID:   requestID,
		Provider:    result.Provider,
		Prompt:      prompt,
		MIME:        result.MIME,
		Bytes:       len(result.Data),
		CommittedAt: s.now(),
	}, nil
}
