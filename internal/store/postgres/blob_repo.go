package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"agenda/internal/store"
)

type calendarBlob struct {
	bun.BaseModel `bun:"table:calendar_blobs"`

	Key       string    `bun:"key,pk"`
	Value     string    `bun:"value,type:jsonb,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

var _ bun.BeforeAppendModelHook = (*calendarBlob)(nil)

func (b *calendarBlob) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery, *bun.UpdateQuery:
		b.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// BlobRepo stores each collection as one jsonb row keyed by collection name.
type BlobRepo struct {
	db bun.IDB
}

func NewBlobRepo(db bun.IDB) *BlobRepo {
	return &BlobRepo{db: db}
}

// EnsureSchema creates the calendar_blobs table when it does not exist.
func (r *BlobRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.NewCreateTable().
		Model((*calendarBlob)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (r *BlobRepo) Get(ctx context.Context, key string) ([]byte, error) {
	var row calendarBlob
	err := r.db.NewSelect().
		Model(&row).
		Where("key = ?", key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return []byte(row.Value), nil
}

func (r *BlobRepo) Put(ctx context.Context, key string, value []byte) error {
	row := calendarBlob{Key: key, Value: string(value)}
	_, err := r.db.NewInsert().
		Model(&row).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}
