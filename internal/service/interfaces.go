package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"etsy_importer/internal/domain"
	"etsy_importer/internal/source/etsy"
)

type Catalog interface {
	FetchActiveListings(ctx context.Context, creds domain.Credentials) ([]etsy.Listing, error)
}

type RecordStore interface {
	FindByExternalID(ctx context.Context, contentType, externalID string) (*domain.ContentRecord, error)
	FindByTitle(ctx context.Context, contentType, title string) (*domain.ContentRecord, error)
	Create(ctx context.Context, record *domain.ContentRecord) (int64, error)
	SetMetadata(ctx context.Context, recordID int64, key, value string) error
}

type TermStore interface {
	AttachTerms(ctx context.Context, recordID int64, taxonomy string, names []string) error
}

type MediaIngestor interface {
	Ingest(ctx context.Context, recordID int64, listingID, apiKey string) (*domain.MediaOutcome, error)
}

type SyncStateStore interface {
	Get(ctx context.Context, storeID string) (*domain.SyncState, error)
	Update(ctx context.Context, state *domain.SyncState) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, record *domain.ContentRecord, runID string) error
	Close() error
}
