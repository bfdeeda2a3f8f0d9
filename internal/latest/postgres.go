package latest

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/hongyue0721/image-fill-site/internal/domain"
	"github.com/hongyue0721/image-fill-site/internal/infra"
	"github.com/hongyue0721/image-fill-site/internal/sqlinline"
)

// PostgresRecordStore keeps the record in a single-row table. Each write is
// one upsert statement, so readers see the old or the new row.
type PostgresRecordStore struct {
	db infra.SQLExecutor
}

func NewPostgresRecordStore(db infra.SQLExecutor) *PostgresRecordStore {
	return &PostgresRecordStore{db: db}
}

// EnsureSchema creates the backing table when it does not exist.
func (p *PostgresRecordStore) EnsureSchema(ctx context.Context) error {
	_, err := p.db.Exec(ctx, sqlinline.QEnsureLatestImageTable)
	return err
}

func (p *PostgresRecordStore) Load(ctx context.Context) (*domain.ImageRecord, error) {
	var rec domain.ImageRecord
	err := p.db.QueryRow(ctx, sqlinline.QSelectLatestImage).
		Scan(&rec.Data, &rec.MIME, &rec.Provider, &rec.Version, &rec.CommittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (p *PostgresRecordStore) Exists(ctx context.Context) (bool, error) {
	var ok bool
	if err := p.db.QueryRow(ctx, sqlinline.QLatestImageExists).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (p *PostgresRecordStore) Save(ctx context.Context, rec domain.ImageRecord) error {
	_, err := p.db.Exec(ctx, sqlinline.QUpsertLatestImage, rec.Data, rec.MIME, rec.Provider, rec.Version, rec.CommittedAt)
	return err
}

func (p *PostgresRecordStore) Delete(ctx context.Context) error {
	_, err := p.db.Exec(ctx, sqlinline.QDeleteLatestImage)
	return err
}

var _ RecordStore = (*PostgresRecordStore)(nil)
