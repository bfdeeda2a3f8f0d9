package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// PublicConfig exposes the visitor-facing settings.
func (a *App) PublicConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.settings.Load(r.Context())
	if err != nil {
		a.log(r).Error().Err(err).Msg("load settings")
		a.error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	a.json(w, http.StatusOK, cfg.Public(a.latest.HasLatest(r.Context())))
}
