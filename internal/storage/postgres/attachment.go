package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"etsy_importer/internal/domain"
)

type AttachmentStore struct {
	db *sqlx.DB
}

func NewAttachmentStore(db *sqlx.DB) *AttachmentStore {
	return &AttachmentStore{db: db}
}

func (s *AttachmentStore) CreateAttachment(ctx context.Context, attachment *domain.Attachment) (int64, error) {
	query := `
		INSERT INTO attachments (parent_record_id, source_url, filename, rank, local_ref)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		attachment.ParentRecordID,
		attachment.SourceURL,
		attachment.Filename,
		attachment.Rank,
		attachment.LocalRef,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	return id, nil
}

// SetPrimaryAttachment marks the attachment as the record's thumbnail. The
// attachment must belong to the record.
func (s *AttachmentStore) SetPrimaryAttachment(ctx context.Context, recordID, attachmentID int64) error {
	query := `
		UPDATE records SET thumbnail_attachment_id = a.id
		FROM attachments a
		WHERE records.id = $1 AND a.id = $2 AND a.parent_record_id = records.id`

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, recordID, attachmentID)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("attachment %d does not belong to record %d", attachmentID, recordID)
	}
	return nil
}

func (s *AttachmentStore) ListByRecord(ctx context.Context, recordID int64) ([]domain.Attachment, error) {
	query := `
		SELECT id, parent_record_id, source_url, filename, rank, local_ref, created_at
		FROM attachments
		WHERE parent_record_id = $1
		ORDER BY rank, id`

	var attachments []domain.Attachment
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &attachments, query, recordID)
	return attachments, err
}
