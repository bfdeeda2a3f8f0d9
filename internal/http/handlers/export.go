package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hongyue0721/image-fill-site/internal/domain"
	"github.com/hongyue0721/image-fill-site/internal/imagegen"
	"github.com/hongyue0721/image-fill-site/pkg/zip"
)

// ExportAssets bundles the original, the mask and the latest generated image
// into one zip download. Missing slots are left out.
func (a *App) ExportAssets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var entries []zip.Asset

	if part, err := a.assets.Original(ctx); err == nil {
		entries = append(entries, zip.Asset{Filename: "original" + imagegen.ExtensionForMIME(a.assets.OriginalMIME()), MIME: a.assets.OriginalMIME(), Data: part.Data})
	} else if !errors.Is(err, domain.ErrNotFound) {
		a.log(r).Error().Err(err).Msg("read original for export")
		a.error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if part, err := a.assets.Mask(ctx); err == nil {
		entries = append(entries, zip.Asset{Filename: "mask" + imagegen.ExtensionForMIME(a.assets.MaskMIME()), MIME: a.assets.MaskMIME(), Data: part.Data})
	} else if !errors.Is(err, domain.ErrNotFound) {
		a.log(r).Error().Err(err).Msg("read mask for export")
		a.error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if rec, err := a.latest.Latest(ctx); err == nil {
		entries = append(entries, zip.Asset{Filename: "latest" + imagegen.ExtensionForMIME(rec.MIME), MIME: rec.MIME, Data: rec.Data})
	} else if !errors.Is(err, domain.ErrNotFound) {
		a.log(r).Error().Err(err).Msg("read latest for export")
		a.error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if len(entries) == 0 {
		a.error(w, http.StatusNotFound, "no assets to export")
		return
	}

	now := a.now()
	archive, err := zip.ArchiveAssets(entries, now)
	if err != nil {
		a.log(r).Error().Err(err).Msg("build export archive")
		a.error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "image-fill-assets-"+now.Format("20060102")+".zip"))
	a.binary(w, "application/zip", archive)
}
