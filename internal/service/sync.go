package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"etsy_importer/internal/config"
	"etsy_importer/internal/domain"
	"etsy_importer/internal/metrics"
	"etsy_importer/internal/source/etsy"
)

const stateUpdateTimeout = 10 * time.Second

// metadataKeys fixes the order metadata is written in.
var metadataKeys = []string{
	domain.MetaPrice,
	domain.MetaCurrency,
	domain.MetaURL,
	domain.MetaMade,
	domain.MetaMadeFor,
}

type SyncService struct {
	catalog   Catalog
	records   RecordStore
	terms     TermStore
	media     MediaIngestor
	syncState SyncStateStore
	txManager TransactionManager
	publisher Publisher
	logger    *slog.Logger
	config    config.SyncConfig

	mu      sync.Mutex
	running map[string]struct{}
}

// NewSyncService wires the import pipeline. publisher may be nil.
func NewSyncService(
	catalog Catalog,
	records RecordStore,
	terms TermStore,
	media MediaIngestor,
	syncState SyncStateStore,
	txManager TransactionManager,
	publisher Publisher,
	logger *slog.Logger,
	cfg config.SyncConfig,
) *SyncService {
	return &SyncService{
		catalog:   catalog,
		records:   records,
		terms:     terms,
		media:     media,
		syncState: syncState,
		txManager: txManager,
		publisher: publisher,
		logger:    logger.With("component", "sync"),
		config:    cfg,
		running:   make(map[string]struct{}),
	}
}

// Sync imports every active listing of the store that has no content record
// yet. Per-listing failures are collected in the result and never abort the
// run; only a failed listings fetch ends it early.
func (s *SyncService) Sync(ctx context.Context, creds domain.Credentials) (*domain.SyncResult, error) {
	if !s.acquire(creds.StoreID) {
		metrics.RunRejected()
		return nil, fmt.Errorf("%w: %s", domain.ErrRunInProgress, creds.StoreID)
	}
	defer s.release(creds.StoreID)

	if s.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RunTimeout)
		defer cancel()
	}

	result := &domain.SyncResult{
		RunID:     uuid.NewString(),
		StoreID:   creds.StoreID,
		StartedAt: time.Now(),
	}
	logger := s.logger.With("store_id", creds.StoreID, "run_id", result.RunID)

	logger.Info("starting sync",
		"dedup_key", s.config.DedupKey,
		"run_timeout", s.config.RunTimeout,
	)

	listings, err := s.catalog.FetchActiveListings(ctx, creds)
	if err != nil {
		result.Fail("", domain.StageFetch, err)
		result.Duration = time.Since(result.StartedAt)
		metrics.ObserveRun(result, err)
		logger.Error("fetch listings failed", "error", err)
		return result, fmt.Errorf("fetch listings: %w", err)
	}

	logger.Info("fetched listings", "count", len(listings))

	for i := range listings {
		if ctx.Err() != nil {
			s.abandon(result, listings[i:], ctx.Err())
			logger.Warn("run deadline reached, abandoning remaining listings",
				"abandoned", len(listings)-i,
			)
			break
		}
		result.Processed++
		s.processListing(ctx, logger, creds, listings[i], result)
	}

	result.Duration = time.Since(result.StartedAt)

	if err := s.updateSyncState(ctx, result); err != nil {
		metrics.ObserveRun(result, err)
		return result, fmt.Errorf("update sync state: %w", err)
	}

	metrics.ObserveRun(result, nil)

	logger.Info("sync completed",
		"processed", result.Processed,
		"created", result.Created,
		"skipped", result.Skipped,
		"failures", len(result.Failures),
		"duration", result.Duration,
	)

	return result, nil
}

func (s *SyncService) acquire(storeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.running[storeID]; busy {
		return false
	}
	s.running[storeID] = struct{}{}
	return true
}

func (s *SyncService) release(storeID string) {
	s.mu.Lock()
	delete(s.running, storeID)
	s.mu.Unlock()
}

func (s *SyncService) abandon(result *domain.SyncResult, remaining []etsy.Listing, cause error) {
	for _, raw := range remaining {
		result.Fail(strconv.FormatInt(raw.ListingID, 10), domain.StageDeadline, cause)
	}
}

func (s *SyncService) processListing(ctx context.Context, logger *slog.Logger, creds domain.Credentials, raw etsy.Listing, result *domain.SyncResult) {
	listing, err := etsy.Normalize(raw)
	if err != nil {
		result.Fail(strconv.FormatInt(raw.ListingID, 10), domain.StageNormalize, err)
		logger.Warn("skipping malformed listing", "listing_id", raw.ListingID, "error", err)
		return
	}

	logger = logger.With("listing_id", listing.ListingID)

	existing, err := s.findExisting(ctx, listing)
	if err != nil {
		result.Fail(listing.ListingID, domain.StageLookup, err)
		logger.Error("lookup failed", "error", err)
		return
	}
	if existing != nil {
		result.Skipped++
		logger.Debug("listing already imported", "record_id", existing.ID)
		return
	}

	record, err := s.createRecord(ctx, listing)
	if errors.Is(err, domain.ErrDuplicateRecord) {
		result.Skipped++
		logger.Debug("listing imported concurrently", "error", err)
		return
	}
	if err != nil {
		result.Fail(listing.ListingID, domain.StageCreate, err)
		logger.Error("create record failed", "error", err)
		return
	}
	result.Created++

	s.ingestMedia(ctx, logger, creds, record, result)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, record, result.RunID); err != nil {
			result.Fail(listing.ListingID, domain.StagePublish, err)
			logger.Error("publish record failed", "record_id", record.ID, "error", err)
		}
	}

	logger.Info("listing imported", "record_id", record.ID)
}

func (s *SyncService) findExisting(ctx context.Context, listing domain.Listing) (*domain.ContentRecord, error) {
	if s.config.DedupKey == config.DedupByTitle {
		return s.records.FindByTitle(ctx, domain.ContentTypeProduct, listing.Title)
	}
	return s.records.FindByExternalID(ctx, domain.ContentTypeProduct, listing.ListingID)
}

// createRecord writes the record, its metadata and its terms in one
// transaction.
func (s *SyncService) createRecord(ctx context.Context, listing domain.Listing) (*domain.ContentRecord, error) {
	record := &domain.ContentRecord{
		ContentType: domain.ContentTypeProduct,
		ExternalID:  listing.ListingID,
		Title:       listing.Title,
		Body:        listing.Description,
		Status:      domain.StatusPublish,
		Metadata:    buildMetadata(listing),
		Categories:  listing.CategoryPath,
		Tags:        listing.Tags,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		id, err := s.records.Create(txCtx, record)
		if err != nil {
			return fmt.Errorf("create record: %w", err)
		}

		for _, key := range metadataKeys {
			if err := s.records.SetMetadata(txCtx, id, key, record.Metadata[key]); err != nil {
				return fmt.Errorf("set metadata %s: %w", key, err)
			}
		}

		if len(record.Categories) > 0 {
			if err := s.terms.AttachTerms(txCtx, id, domain.TaxonomyCategory, record.Categories); err != nil {
				return fmt.Errorf("attach categories: %w", err)
			}
		}
		if len(record.Tags) > 0 {
			if err := s.terms.AttachTerms(txCtx, id, domain.TaxonomyTag, record.Tags); err != nil {
				return fmt.Errorf("attach tags: %w", err)
			}
		}

		record.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	record.CreatedAt = time.Now().UTC()
	return record, nil
}

func buildMetadata(listing domain.Listing) map[string]string {
	return map[string]string{
		domain.MetaPrice:    listing.Price,
		domain.MetaCurrency: listing.CurrencyCode,
		domain.MetaURL:      listing.URL,
		domain.MetaMade:     strings.ReplaceAll(listing.WhenMade, "_", "-"),
		domain.MetaMadeFor:  listing.Recipient,
	}
}

// ingestMedia attaches the listing images to a committed record. Failures
// are reported but the record stays.
func (s *SyncService) ingestMedia(ctx context.Context, logger *slog.Logger, creds domain.Credentials, record *domain.ContentRecord, result *domain.SyncResult) {
	outcome, err := s.media.Ingest(ctx, record.ID, record.ExternalID, creds.APIKey)
	if err != nil {
		result.Fail(record.ExternalID, domain.StageMedia, err)
		logger.Error("media ingestion failed", "record_id", record.ID, "error", err)
		return
	}

	for _, imgErr := range outcome.Errors {
		result.Fail(record.ExternalID, domain.StageMedia, imgErr)
		logger.Warn("image not imported", "record_id", record.ID, "error", imgErr)
	}

	record.ThumbnailAttachmentID = outcome.ThumbnailID
}

func (s *SyncService) updateSyncState(ctx context.Context, result *domain.SyncResult) error {
	// The run context may already be past its deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stateUpdateTimeout)
	defer cancel()

	state, err := s.syncState.Get(ctx, result.StoreID)
	if err != nil {
		return err
	}

	state.StoreID = result.StoreID
	state.LastSyncedAt = time.Now()
	state.LastRunID = result.RunID
	state.TotalCreated += int64(result.Created)

	return s.syncState.Update(ctx, state)
}
