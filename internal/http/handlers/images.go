package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hongyue0721/image-fill-site/internal/domain"
	"github.com/hongyue0721/image-fill-site/internal/generation"
	"github.com/hongyue0721/image-fill-site/internal/middleware"
	"github.com/hongyue0721/image-fill-site/internal/settings"
)

const (
	maxJSONBody = 1 << 20

	// generateMargin covers settings, prompt, commit and the reply itself.
	generateMargin = 30 * time.Second
)

type generateRequest struct {
	Text string `json:"text"`
}

type generateResponse struct {
	OK        bool   `json:"ok"`
	RequestID string `json:"request_id"`
	Provider  string `json:"provider,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
	Error     string `json:"error,omitempty"`
}

// CurrentImage serves the latest generated image, or the original when none
// has been committed.
func (a *App) CurrentImage(w http.ResponseWriter, r *http.Request) {
	data, mime, err := a.latest.Current(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "image missing")
			return
		}
		a.log(r).Error().Err(err).Msg("read current image")
		a.error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	middleware.SetNoCache(w)
	a.binary(w, mime, data)
}

func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, maxJSONBody, &req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid payload")
		return
	}

	a.extendDeadlines(w, r)

	requestID := middleware.RequestIDFromContext(r.Context())
	out, err := a.generator.Run(r.Context(), requestID, req.Text)
	switch {
	case errors.Is(err, generation.ErrTextRequired):
		a.error(w, http.StatusBadRequest, "text is required")
		return
	case errors.Is(err, generation.ErrTextTooLong):
		a.error(w, http.StatusBadRequest, "text too long (max 120)")
		return
	case errors.Is(err, domain.ErrAssetsMissing):
		a.error(w, http.StatusUnprocessableEntity, domain.ErrAssetsMissing.Error())
		return
	case err != nil:
		a.log(r).Warn().Err(err).Msg("generation failed")
		a.json(w, http.StatusBadGateway, generateResponse{
			OK:        false,
			RequestID: requestID,
			Error:     err.Error(),
		})
		return
	}

	a.json(w, http.StatusOK, generateResponse{
		OK:        true,
		RequestID: out.RequestID,
		Provider:  out.Provider,
		ImageURL:  fmt.Sprintf("/api/images/current?t=%d", a.now().UnixMilli()),
	})
}

// generationBudget bounds one generate request. Every candidate may spend a
// full timeout on the edit call and another on the image download. Zero
// means no bound.
func generationBudget(cfg settings.Settings) time.Duration {
	timeout := cfg.GenerationConfig().RequestTimeout()
	if timeout <= 0 {
		return 0
	}
	candidates := max(len(cfg.Upstreams.Candidates()), 1)
	return time.Duration(candidates)*2*timeout + generateMargin
}

// extendDeadlines replaces the server-wide read and write timeouts for a
// generate request, which may legitimately outlast them while failing over.
func (a *App) extendDeadlines(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.settings.Load(r.Context())
	if err != nil {
		a.log(r).Warn().Err(err).Msg("load settings for deadline")
		return
	}
	var deadline time.Time
	if budget := generationBudget(cfg); budget > 0 {
		deadline = time.Now().Add(budget)
	}
	rc := http.NewResponseController(w)
	for _, set := range []func(time.Time) error{rc.SetReadDeadline, rc.SetWriteDeadline} {
		if err := set(deadline); err != nil && !errors.Is(err, http.ErrNotSupported) {
			a.log(r).Warn().Err(err).Msg("extend connection deadline")
		}
	}
}
