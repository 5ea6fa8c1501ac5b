package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"etsy_importer/internal/domain"
)

const uniqueViolation = "23505"

type RecordStore struct {
	db *sqlx.DB
}

func NewRecordStore(db *sqlx.DB) *RecordStore {
	return &RecordStore{db: db}
}

const recordColumns = `id, content_type, external_id, title, body, status, thumbnail_attachment_id, created_at`

// FindByExternalID returns the record imported from the given remote id, or
// nil when there is none.
func (s *RecordStore) FindByExternalID(ctx context.Context, contentType, externalID string) (*domain.ContentRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE content_type = $1 AND external_id = $2`
	return s.findOne(ctx, query, contentType, externalID)
}

// FindByTitle returns the oldest record with exactly this title, or nil.
func (s *RecordStore) FindByTitle(ctx context.Context, contentType, title string) (*domain.ContentRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE content_type = $1 AND title = $2 ORDER BY id LIMIT 1`
	return s.findOne(ctx, query, contentType, title)
}

func (s *RecordStore) Get(ctx context.Context, id int64) (*domain.ContentRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE id = $1`
	return s.findOne(ctx, query, id)
}

func (s *RecordStore) findOne(ctx context.Context, query string, args ...interface{}) (*domain.ContentRecord, error) {
	var record domain.ContentRecord
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &record, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Create inserts a record and returns its id. Inserting a second record for
// the same remote id fails with domain.ErrDuplicateRecord.
func (s *RecordStore) Create(ctx context.Context, record *domain.ContentRecord) (int64, error) {
	query := `
		INSERT INTO records (content_type, external_id, title, body, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		record.ContentType,
		record.ExternalID,
		record.Title,
		record.Body,
		record.Status,
	).Scan(&id)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return 0, fmt.Errorf("%w: %s %s", domain.ErrDuplicateRecord, record.ContentType, record.ExternalID)
	}
	if err != nil {
		return 0, err
	}

	return id, nil
}

func (s *RecordStore) SetMetadata(ctx context.Context, recordID int64, key, value string) error {
	query := `
		INSERT INTO record_meta (record_id, meta_key, meta_value)
		VALUES ($1, $2, $3)
		ON CONFLICT (record_id, meta_key) DO UPDATE SET meta_value = EXCLUDED.meta_value`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, recordID, key, value)
	return err
}

func (s *RecordStore) GetMetadata(ctx context.Context, recordID int64) (map[string]string, error) {
	rows, err := GetExecutor(ctx, s.db).QueryxContext(ctx,
		`SELECT meta_key, meta_value FROM record_meta WHERE record_id = $1`,
		recordID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		result[key] = value
	}

	return result, rows.Err()
}

// Count returns how many records of the content type exist.
func (s *RecordStore) Count(ctx context.Context, contentType string) (int64, error) {
	var count int64
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &count,
		`SELECT COUNT(*) FROM records WHERE content_type = $1`, contentType)
	return count, err
}
