package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/hongyue0721/image-fill-site/internal/domain"
	"github.com/hongyue0721/image-fill-site/internal/infra"
	"github.com/hongyue0721/image-fill-site/internal/storage"
)

// FileName is the settings document inside the data directory.
const FileName = "config.json"

// Store reads settings from disk on every Load so edits apply to the next
// request without a restart.
type Store struct {
	files  *storage.FileStore
	lookup LookupFunc
	logger infra.Logger

	// mu serialises read-modify-write cycles from Update.
	mu sync.Mutex
}

func NewStore(files *storage.FileStore, lookup LookupFunc, logger infra.Logger) *Store {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &Store{files: files, lookup: lookup, logger: logger}
}

// Load returns the persisted settings merged over the defaults. A missing
// file is created with the defaults; an unreadable one yields the defaults.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	defaults := Defaults(s.lookup)
	raw, err := s.files.Read(ctx, FileName)
	if errors.Is(err, domain.ErrNotFound) {
		if err := s.Save(ctx, defaults); err != nil {
			return defaults, err
		}
		return defaults, nil
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("settings unreadable, using defaults")
		return defaults, nil
	}

	merged := defaults
	if err := json.Unmarshal(raw, &merged); err != nil {
		s.logger.Warn().Err(err).Msg("settings invalid, using defaults")
		return defaults, nil
	}
	return merged, nil
}

// Save writes s atomically as indented JSON.
func (s *Store) Save(ctx context.Context, settings Settings) error {
	raw, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	if _, err := s.files.Write(ctx, FileName, raw); err != nil {
		return fmt.Errorf("settings: save: %w", err)
	}
	return nil
}

// Update loads the current settings, passes them to fn and saves the result.
func (s *Store) Update(ctx context.Context, fn func(prev Settings) (Settings, error)) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.Load(ctx)
	if err != nil {
		return prev, err
	}
	next, err := fn(prev)
	if err != nil {
		return prev, err
	}
	if err := s.Save(ctx, next); err != nil {
		return prev, err
	}
	return next, nil
}
