// Package assets manages the two uploaded source images: the base picture
// and the mask marking the region to fill.
package assets

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hongyue0721/image-fill-site/internal/domain"
	"github.com/hongyue0721/image-fill-site/internal/imagegen"
	"github.com/hongyue0721/image-fill-site/internal/infra"
	"github.com/hongyue0721/image-fill-site/internal/storage"
)

const (
	OriginalKey = "original.jpg"
	MaskKey     = "mask.png"
)

type Store struct {
	files  *storage.FileStore
	logger infra.Logger
}

func NewStore(files *storage.FileStore, logger infra.Logger) *Store {
	return &Store{files: files, logger: logger}
}

// EnsureDefaults seeds empty slots from the bundled images. Missing source
// files are skipped.
func (s *Store) EnsureDefaults(ctx context.Context, originalSrc, maskSrc string) error {
	for key, src := range map[string]string{OriginalKey: originalSrc, MaskKey: maskSrc} {
		if s.files.Exists(key) || src == "" {
			continue
		}
		data, err := os.ReadFile(src)
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Warn().Str("slot", key).Str("source", src).Msg("default asset missing")
			continue
		}
		if err != nil {
			return fmt.Errorf("assets: read default %s: %w", src, err)
		}
		if _, err := s.files.Write(ctx, key, data); err != nil {
			return fmt.Errorf("assets: seed %s: %w", key, err)
		}
		s.logger.Info().Str("slot", key).Str("source", src).Msg("seeded default asset")
	}
	return nil
}

// Original reads the base image from disk.
func (s *Store) Original(ctx context.Context) (imagegen.Part, error) {
	return s.read(ctx, OriginalKey)
}

// Mask reads the mask image from disk.
func (s *Store) Mask(ctx context.Context) (imagegen.Part, error) {
	return s.read(ctx, MaskKey)
}

func (s *Store) ReplaceOriginal(ctx context.Context, data []byte) error {
	return s.replace(ctx, OriginalKey, data)
}

func (s *Store) ReplaceMask(ctx context.Context, data []byte) error {
	return s.replace(ctx, MaskKey, data)
}

// Ready reports whether both slots hold an image.
func (s *Store) Ready(context.Context) bool {
	return s.files.Exists(OriginalKey) && s.files.Exists(MaskKey)
}

func (s *Store) OriginalMIME() string { return imagegen.MIMEByExtension(OriginalKey) }

func (s *Store) MaskMIME() string { return imagegen.MIMEByExtension(MaskKey) }

func (s *Store) read(ctx context.Context, key string) (imagegen.Part, error) {
	data, err := s.files.Read(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return imagegen.Part{}, fmt.Errorf("assets: %s missing: %w", key, domain.ErrNotFound)
		}
		return imagegen.Part{}, err
	}
	return imagegen.Part{Filename: key, Data: data}, nil
}

func (s *Store) replace(ctx context.Context, key string, data []byte) error {
	if len(data) == 0 {
		return errors.New("assets: empty upload")
	}
	if _, err := s.files.Write(ctx, key, data); err != nil {
		return fmt.Errorf("assets: write %s: %w", key, err)
	}
	return nil
}

var _ imagegen.AssetSource = (*Store)(nil)
