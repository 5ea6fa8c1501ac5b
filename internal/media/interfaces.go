package media

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"etsy_importer/internal/domain"
)

type ImageSource interface {
	FetchListingImages(ctx context.Context, listingID, apiKey string) ([]domain.ImageRef, error)
	Download(ctx context.Context, imageURL string) ([]byte, error)
}

type BlobStore interface {
	Save(ctx context.Context, key string, data []byte) (string, error)
}

type AttachmentStore interface {
	CreateAttachment(ctx context.Context, attachment *domain.Attachment) (int64, error)
	SetPrimaryAttachment(ctx context.Context, recordID, attachmentID int64) error
}
