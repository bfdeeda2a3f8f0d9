package latest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hongyue0721/image-fill-site/internal/domain"
	"github.com/hongyue0721/image-fill-site/internal/infra"
	"github.com/hongyue0721/image-fill-site/internal/storage"
)

const (
	metaKey    = "latest-meta.json"
	blobPrefix = "latest-image-"
	blobSuffix = ".bin"
	// legacyBlobKey is the unversioned blob written by older deployments.
	legacyBlobKey = "latest-image.bin"
)

type fileMeta struct {
	MIME        string    `json:"mime"`
	Blob        string    `json:"blob,omitempty"`
	Version     string    `json:"version,omitempty"`
	Provider    string    `json:"provider,omitempty"`
	CommittedAt time.Time `json:"committedAt"`
}

// FileRecordStore keeps the record as a versioned blob plus a metadata file.
// Renaming the metadata file into place is the commit point.
type FileRecordStore struct {
	files  *storage.FileStore
	logger infra.Logger

	// mu orders writers inside this process so blob cleanup never removes a
	// blob another commit is about to publish. Readers do not take it.
	mu sync.Mutex
}

func NewFileRecordStore(files *storage.FileStore, logger infra.Logger) *FileRecordStore {
	return &FileRecordStore{files: files, logger: logger}
}

func (f *FileRecordStore) Load(ctx context.Context) (*domain.ImageRecord, error) {
	// A concurrent commit may remove the blob between reading the meta and
	// reading the blob; the second pass sees the newer meta.
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		meta, err := f.readMeta(ctx)
		if err != nil {
			return nil, err
		}
		data, err := f.files.Read(ctx, meta.blobKey())
		if err == nil {
			mime := meta.MIME
			if strings.TrimSpace(mime) == "" {
				mime = domain.MIMEUnknown
			}
			return &domain.ImageRecord{
				Data:        data,
				MIME:        mime,
				Provider:    meta.Provider,
				Version:     meta.Version,
				CommittedAt: meta.CommittedAt,
			}, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// Exists checks the meta and its blob without reading the image.
func (f *FileRecordStore) Exists(ctx context.Context) (bool, error) {
	for attempt := 0; attempt < 2; attempt++ {
		meta, err := f.readMeta(ctx)
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if f.files.Exists(meta.blobKey()) {
			return true, nil
		}
	}
	return false, nil
}

func (f *FileRecordStore) Save(ctx context.Context, rec domain.ImageRecord) error {
	if strings.TrimSpace(rec.Version) == "" {
		return errors.New("latest: record version is required")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	meta := fileMeta{
		MIME:        rec.MIME,
		Blob:        blobPrefix + rec.Version + blobSuffix,
		Version:     rec.Version,
		Provider:    rec.Provider,
		CommittedAt: rec.CommittedAt,
	}
	if _, err := f.files.Write(ctx, meta.Blob, rec.Data); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		_ = f.files.Remove(context.WithoutCancel(ctx), meta.Blob)
		return fmt.Errorf("encode meta: %w", err)
	}
	if _, err := f.files.Write(ctx, metaKey, raw); err != nil {
		_ = f.files.Remove(context.WithoutCancel(ctx), meta.Blob)
		return fmt.Errorf("write meta: %w", err)
	}

	f.removeBlobs(context.WithoutCancel(ctx), meta.Blob)
	return nil
}

// Delete removes the meta first so readers stop seeing the record before any
// blob disappears.
func (f *FileRecordStore) Delete(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.files.Remove(ctx, metaKey); err != nil {
		return err
	}
	f.removeBlobs(context.WithoutCancel(ctx), "")
	return nil
}

func (f *FileRecordStore) readMeta(ctx context.Context) (fileMeta, error) {
	raw, err := f.files.Read(ctx, metaKey)
	if err != nil {
		return fileMeta{}, err
	}
	var meta fileMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		f.logger.Warn().Err(err).Msg("latest meta unreadable, treating as empty")
		return fileMeta{}, fmt.Errorf("latest: decode meta: %w", domain.ErrNotFound)
	}
	return meta, nil
}

func (m fileMeta) blobKey() string {
	if strings.TrimSpace(m.Blob) == "" {
		return legacyBlobKey
	}
	return m.Blob
}

// removeBlobs deletes every blob except keep. Failures are logged only; a
// leftover blob never affects what readers see.
func (f *FileRecordStore) removeBlobs(ctx context.Context, keep string) {
	keys, err := f.files.List(ctx, blobPrefix)
	if err != nil {
		f.logger.Warn().Err(err).Msg("list latest blobs")
		return
	}
	keys = append(keys, legacyBlobKey)
	for _, key := range keys {
		if key == keep {
			continue
		}
		if err := f.files.Remove(ctx, key); err != nil {
			f.logger.Warn().Err(err).Str("blob", key).Msg("remove stale latest blob")
		}
	}
}

var _ RecordStore = (*FileRecordStore)(nil)
