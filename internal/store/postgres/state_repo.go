package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"gobarber/client/internal/store"
)

type stateRow struct {
	bun.BaseModel `bun:"table:client_state"`

	Namespace string    `bun:"namespace,pk"`
	Key       string    `bun:"key,pk"`
	Value     string    `bun:"value,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (r *stateRow) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		r.UpdatedAt = now
	}
	return nil
}

// StateRepo is a store.KeyValue over the client_state table. Rows are scoped
// by namespace so several clients can share one database.
type StateRepo struct {
	db        *bun.DB
	namespace string
}

func NewStateRepo(db *bun.DB, namespace string) *StateRepo {
	return &StateRepo{db: db, namespace: strings.TrimSpace(namespace)}
}

func (r *StateRepo) Get(ctx context.Context, key string) (string, error) {
	var row stateRow
	err := r.db.NewSelect().
		Model(&row).
		Where("namespace = ?", r.namespace).
		Where("key = ?", key).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return row.Value, nil
}

func (r *StateRepo) GetMany(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	var rows []stateRow
	err := r.db.NewSelect().
		Model(&rows).
		Where("namespace = ?", r.namespace).
		Where("key IN (?)", bun.In(keys)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

func (r *StateRepo) SetMany(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for k, v := range entries {
			row := stateRow{Namespace: r.namespace, Key: k, Value: v}
			_, err := tx.NewInsert().
				Model(&row).
				On("CONFLICT (namespace, key) DO UPDATE").
				Set("value = EXCLUDED.value").
				Set("updated_at = EXCLUDED.updated_at").
				Exec(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *StateRepo) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*stateRow)(nil)).
			Where("namespace = ?", r.namespace).
			Where("key IN (?)", bun.In(keys)).
			Exec(ctx)
		return err
	})
}

func (r *StateRepo) Close() error {
	return Close(r.db)
}
