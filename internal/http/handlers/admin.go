package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hongyue0721/image-fill-site/internal/domain"
	"github.com/hongyue0721/image-fill-site/internal/imagegen"
	"github.com/hongyue0721/image-fill-site/internal/middleware"
	"github.com/hongyue0721/image-fill-site/internal/settings"
)

type loginRequest struct {
	Password string `json:"password"`
}

func (a *App) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, maxJSONBody, &req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if !middleware.PasswordMatches(a.adminPassword, req.Password) {
		a.json(w, http.StatusUnauthorized, map[string]any{"ok": false, "error": "invalid password"})
		return
	}
	a.json(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *App) AdminConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.settings.Load(r.Context())
	if err != nil {
		a.log(r).Error().Err(err).Msg("load settings")
		a.error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	a.json(w, http.StatusOK, cfg)
}

// AdminUpdateConfig merges the posted document over the stored settings.
func (a *App) AdminUpdateConfig(w http.ResponseWriter, r *http.Request) {
	patch, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid payload")
		return
	}

	var invalid bool
	next, err := a.settings.Update(r.Context(), func(prev settings.Settings) (settings.Settings, error) {
		next, err := settings.Apply(prev, patch)
		invalid = err != nil
		return next, err
	})
	if err != nil {
		if invalid {
			a.error(w, http.StatusBadRequest, "invalid config payload")
			return
		}
		a.log(r).Error().Err(err).Msg("save settings")
		a.error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	a.log(r).Info().
		Bool("primary_enabled", next.Upstreams.Primary.Enabled).
		Bool("secondary_enabled", next.Upstreams.Secondary.Enabled).
		Msg("settings updated")
	a.json(w, http.StatusOK, map[string]any{"ok": true, "config": next})
}

func (a *App) AdminOriginal(w http.ResponseWriter, r *http.Request) {
	part, err := a.assets.Original(r.Context())
	a.serveAsset(w, r, part, a.assets.OriginalMIME(), err, "original image missing")
}

func (a *App) AdminMask(w http.ResponseWriter, r *http.Request) {
	part, err := a.assets.Mask(r.Context())
	a.serveAsset(w, r, part, a.assets.MaskMIME(), err, "mask image missing")
}

func (a *App) serveAsset(w http.ResponseWriter, r *http.Request, part imagegen.Part, mime string, err error, missing string) {
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, missing)
			return
		}
		a.log(r).Error().Err(err).Msg("read asset")
		a.error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	middleware.SetNoCache(w)
	a.binary(w, mime, part.Data)
}

func (a *App) UploadOriginal(w http.ResponseWriter, r *http.Request) {
	a.upload(w, r, "original", a.assets.ReplaceOriginal)
}

func (a *App) UploadMask(w http.ResponseWriter, r *http.Request) {
	a.upload(w, r, "mask", a.assets.ReplaceMask)
}

func (a *App) upload(w http.ResponseWriter, r *http.Request, slot string, replace func(ctx context.Context, data []byte) error) {
	data, status, msg := a.readUpload(w, r)
	if status != 0 {
		a.error(w, status, msg)
		return
	}
	if err := replace(r.Context(), data); err != nil {
		a.log(r).Error().Err(err).Str("slot", slot).Msg("store upload")
		a.error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	a.log(r).Info().Str("slot", slot).Int("bytes", len(data)).Msg("asset replaced")
	a.json(w, http.StatusOK, map[string]any{"ok": true})
}

// readUpload extracts the "file" part. A non-zero status reports a client
// error with msg.
func (a *App) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, int, string) {
	tooLarge := "file too large (max " + humanBytes(a.maxUploadBytes) + ")"
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, http.StatusBadRequest, tooLarge
		}
		return nil, http.StatusBadRequest, "file is required"
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, http.StatusBadRequest, "file is required"
	}
	defer file.Close()

	if !strings.HasPrefix(strings.ToLower(header.Header.Get("Content-Type")), "image/") {
		return nil, http.StatusBadRequest, "image file required"
	}
	if header.Size > a.maxUploadBytes {
		return nil, http.StatusBadRequest, tooLarge
	}
	data, err := io.ReadAll(io.LimitReader(file, a.maxUploadBytes+1))
	if err != nil {
		return nil, http.StatusBadRequest, "file is required"
	}
	if int64(len(data)) > a.maxUploadBytes {
		return nil, http.StatusBadRequest, tooLarge
	}
	if len(data) == 0 {
		return nil, http.StatusBadRequest, "file is required"
	}
	return data, 0, ""
}

func (a *App) ResetLatest(w http.ResponseWriter, r *http.Request) {
	if err := a.latest.Reset(r.Context()); err != nil {
		a.log(r).Error().Err(err).Msg("reset latest image")
		a.error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	a.log(r).Info().Msg("latest image reset")
	a.json(w, http.StatusOK, map[string]any{"ok": true})
}

func humanBytes(n int64) string {
	if n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	if n%(1<<10) == 0 {
		return fmt.Sprintf("%dKB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}
