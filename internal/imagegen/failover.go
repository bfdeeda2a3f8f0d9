package imagegen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/hongyue0721/image-fill-site/internal/domain"
	"github.com/hongyue0721/image-fill-site/internal/infra"
)

// Attempt outcomes reported to an Observer.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomePayload  = "payload"
	OutcomeNetwork  = "network"
	OutcomeNoneUp   = "no_upstream"
	OutcomeFailed   = "failed"
)

// Observer receives per-attempt and per-generation outcomes.
type Observer interface {
	ObserveAttempt(provider, outcome string, elapsed time.Duration)
	ObserveGeneration(outcome string)
}

type OrchestratorOptions struct {
	Editor   Editor
	Assets   AssetSource
	Logger   *infra.Logger
	Observer Observer
}

// Orchestrator tries the configured upstreams one after another and returns
// the first image produced.
type Orchestrator struct {
	editor   Editor
	assets   AssetSource
	logger   *infra.Logger
	observer Observer
}

func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	if opts.Assets == nil {
		return nil, errors.New("imagegen: asset source is required")
	}
	editor := opts.Editor
	if editor == nil {
		editor = NewHTTPEditor(HTTPEditorOptions{})
	}
	logger := opts.Logger
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	return &Orchestrator{
		editor:   editor,
		assets:   opts.Assets,
		logger:   logger,
		observer: opts.Observer,
	}, nil
}

// Generate sends prompt to the eligible upstreams in primary, secondary
// order. Candidates run strictly one at a time; the first success wins and
// only the last failure is returned when all of them fail.
func (o *Orchestrator) Generate(ctx context.Context, prompt string, cfg domain.GenerationConfig) (*domain.EditResult, error) {
	log := o.loggerFor(ctx)
	candidates := cfg.Upstreams.Candidates()
	if len(candidates) == 0 {
		o.observeGeneration(OutcomeNoneUp)
		log.Warn().Msg("generation skipped: no eligible upstream")
		return nil, domain.ErrNoUpstreamAvailable
	}

	timeout := cfg.RequestTimeout()
	var lastErr error
	for i, upstream := range candidates {
		image, err := o.assets.Original(ctx)
		if err != nil {
			o.observeGeneration(OutcomeFailed)
			return nil, fmt.Errorf("read base image: %w", err)
		}
		mask, err := o.assets.Mask(ctx)
		if err != nil {
			o.observeGeneration(OutcomeFailed)
			return nil, fmt.Errorf("read mask image: %w", err)
		}

		start := time.Now()
		result, err := o.editor.Edit(ctx, EditAttempt{
			Upstream: upstream,
			Prompt:   prompt,
			Image:    image,
			Mask:     mask,
			Timeout:  timeout,
		})
		elapsed := time.Since(start)
		if err == nil {
			if result.Provider == "" {
				result.Provider = upstream.Name
			}
			o.observeAttempt(upstream.Name, OutcomeSuccess, elapsed)
			o.observeGeneration(OutcomeSuccess)
			log.Info().
				Str("provider", upstream.Name).
				Int("attempt", i+1).
				Str("mime", result.MIME).
				Int("bytes", len(result.Data)).
				Dur("elapsed", elapsed).
				Msg("upstream edit succeeded")
			return result, nil
		}

		lastErr = err
		o.observeAttempt(upstream.Name, attemptOutcome(err), elapsed)
		log.Warn().
			Err(err).
			Str("provider", upstream.Name).
			Int("attempt", i+1).
			Int("candidates", len(candidates)).
			Dur("elapsed", elapsed).
			Msg("upstream edit failed")
	}

	o.observeGeneration(OutcomeFailed)
	return nil, lastErr
}

func (o *Orchestrator) loggerFor(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return o.logger
}

func (o *Orchestrator) observeAttempt(provider, outcome string, elapsed time.Duration) {
	if o.observer != nil {
		o.observer.ObserveAttempt(provider, outcome, elapsed)
	}
}

func (o *Orchestrator) observeGeneration(outcome string) {
	if o.observer != nil {
		o.observer.ObserveGeneration(outcome)
	}
}

func attemptOutcome(err error) string {
	var (
		rejected *domain.UpstreamRejectedError
		payload  *domain.UpstreamPayloadError
	)
	switch {
	case errors.As(err, &rejected):
		return OutcomeRejected
	case errors.As(err, &payload):
		return OutcomePayload
	default:
		return OutcomeNetwork
	}
}
