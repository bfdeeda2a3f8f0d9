// Package latest keeps the most recently generated image and serves it, or
// the original base image when nothing has been generated yet.
package latest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hongyue0721/image-fill-site/internal/domain"
	"github.com/hongyue0721/image-fill-site/internal/imagegen"
)

// RecordStore persists the single latest image record. Load returns
// domain.ErrNotFound when no record exists. Save must replace the record in
// one step so Load never sees a partial write. Exists must not read the
// image bytes.
type RecordStore interface {
	Load(ctx context.Context) (*domain.ImageRecord, error)
	Exists(ctx context.Context) (bool, error)
	Save(ctx context.Context, rec domain.ImageRecord) error
	Delete(ctx context.Context) error
}

// BaseImage supplies the fallback shown before any generation.
type BaseImage interface {
	Original(ctx context.Context) (imagegen.Part, error)
}

// CommitObserver is notified after each successful commit.
type CommitObserver interface {
	ObserveCommit(provider string)
}

type Store struct {
	records  RecordStore
	base     BaseImage
	observer CommitObserver
	now      func() time.Time
}

type Options struct {
	Records  RecordStore
	Base     BaseImage
	Observer CommitObserver
	Now      func() time.Time
}

func NewStore(opts Options) (*Store, error) {
	if opts.Records == nil {
		return nil, errors.New("latest: record store is required")
	}
	if opts.Base == nil {
		return nil, errors.New("latest: base image source is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{records: opts.Records, base: opts.Base, observer: opts.Observer, now: now}, nil
}

// Current returns the committed image, or the original base image when no
// record exists.
func (s *Store) Current(ctx context.Context) ([]byte, string, error) {
	rec, err := s.records.Load(ctx)
	switch {
	case err == nil:
		mime := strings.TrimSpace(rec.MIME)
		if mime == "" {
			mime = domain.MIMEUnknown
		}
		return rec.Data, mime, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, "", fmt.Errorf("latest: load record: %w", err)
	}

	part, err := s.base.Original(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("latest: read base image: %w", err)
	}
	return part.Data, imagegen.MIMEByExtension(part.Filename), nil
}

// Commit replaces the latest record with result.
func (s *Store) Commit(ctx context.Context, result domain.EditResult) error {
	if len(result.Data) == 0 {
		return errors.New("latest: refusing to commit empty image")
	}
	rec := domain.ImageRecord{
		Data:        result.Data,
		MIME:        result.MIME,
		Provider:    result.Provider,
		Version:     uuid.NewString(),
		CommittedAt: s.now().UTC(),
	}
	if err := s.records.Save(ctx, rec); err != nil {
		return fmt.Errorf("latest: save record: %w", err)
	}
	if s.observer != nil {
		s.observer.ObserveCommit(result.Provider)
	}
	return nil
}

// Reset removes the latest record. Resetting an empty store succeeds.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.records.Delete(ctx); err != nil {
		return fmt.Errorf("latest: delete record: %w", err)
	}
	return nil
}

// Latest returns the committed record, or domain.ErrNotFound when nothing
// has been generated. Unlike Current it never falls back to the original.
func (s *Store) Latest(ctx context.Context) (*domain.ImageRecord, error) {
	rec, err := s.records.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("latest: load record: %w", err)
	}
	if strings.TrimSpace(rec.MIME) == "" {
		rec.MIME = domain.MIMEUnknown
	}
	return rec, nil
}

// HasLatest reports whether a generated image is committed.
func (s *Store) HasLatest(ctx context.Context) bool {
	ok, err := s.records.Exists(ctx)
	return err == nil && ok
}
