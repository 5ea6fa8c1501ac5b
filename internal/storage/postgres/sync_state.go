package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"etsy_importer/internal/domain"
)

type SyncStateStore struct {
	db *sqlx.DB
}

func NewSyncStateStore(db *sqlx.DB) *SyncStateStore {
	return &SyncStateStore{db: db}
}

func (s *SyncStateStore) Get(ctx context.Context, storeID string) (*domain.SyncState, error) {
	var state domain.SyncState
	query := `
		SELECT id, store_id, last_synced_at, last_run_id, total_created
		FROM sync_state
		WHERE store_id = $1`

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &state, query, storeID)
	if errors.Is(err, sql.ErrNoRows) {
		// Return empty state for stores never synced
		return &domain.SyncState{
			StoreID:      storeID,
			LastSyncedAt: time.Time{},
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *SyncStateStore) Update(ctx context.Context, state *domain.SyncState) error {
	query := `
		INSERT INTO sync_state (store_id, last_synced_at, last_run_id, total_created)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (store_id) DO UPDATE SET
			last_synced_at = EXCLUDED.last_synced_at,
			last_run_id = EXCLUDED.last_run_id,
			total_created = EXCLUDED.total_created`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		state.StoreID,
		state.LastSyncedAt,
		state.LastRunID,
		state.TotalCreated,
	)
	return err
}
