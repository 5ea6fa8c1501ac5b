package media

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strconv"

	"golang.org/x/sync/errgroup"

	"etsy_importer/internal/domain"
)

const primaryRank = 1

// Ingestor downloads the images of a listing, stores them as attachments of
// a content record and marks the rank 1 image as the record's thumbnail.
type Ingestor struct {
	source      ImageSource
	blobs       BlobStore
	attachments AttachmentStore
	concurrency int
	logger      *slog.Logger
}

func NewIngestor(source ImageSource, blobs BlobStore, attachments AttachmentStore, concurrency int, logger *slog.Logger) *Ingestor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Ingestor{
		source:      source,
		blobs:       blobs,
		attachments: attachments,
		concurrency: concurrency,
		logger:      logger.With("component", "media"),
	}
}

// Ingest stores every image of the listing under recordID. A failure to list
// the images is returned as an error; failures of single images are collected
// in the outcome and do not stop the others.
func (i *Ingestor) Ingest(ctx context.Context, recordID int64, listingID, apiKey string) (*domain.MediaOutcome, error) {
	images, err := i.source.FetchListingImages(ctx, listingID, apiKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMedia, err)
	}

	stored := make([]*domain.Attachment, len(images))
	errs := make([]error, len(images))

	var g errgroup.Group
	g.SetLimit(i.concurrency)

	for idx, img := range images {
		idx, img := idx, img
		g.Go(func() error {
			attachment, err := i.ingestImage(ctx, recordID, img)
			if err != nil {
				errs[idx] = fmt.Errorf("%w: image %d (rank %d): %w", domain.ErrMedia, img.ImageID, img.Rank, err)
				return nil
			}
			stored[idx] = attachment
			return nil
		})
	}
	_ = g.Wait()

	outcome := &domain.MediaOutcome{}
	for idx := range images {
		if errs[idx] != nil {
			outcome.Errors = append(outcome.Errors, errs[idx])
			continue
		}
		outcome.Attachments = append(outcome.Attachments, *stored[idx])
	}

	for _, attachment := range outcome.Attachments {
		if attachment.Rank != primaryRank {
			continue
		}
		if err := i.attachments.SetPrimaryAttachment(ctx, recordID, attachment.ID); err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Errorf("%w: set thumbnail: %w", domain.ErrMedia, err))
			break
		}
		id := attachment.ID
		outcome.ThumbnailID = &id
		break
	}

	i.logger.Debug("ingested listing images",
		"listing_id", listingID,
		"record_id", recordID,
		"images", len(images),
		"stored", len(outcome.Attachments),
		"errors", len(outcome.Errors),
		"has_thumbnail", outcome.ThumbnailID != nil,
	)

	return outcome, nil
}

func (i *Ingestor) ingestImage(ctx context.Context, recordID int64, img domain.ImageRef) (*domain.Attachment, error) {
	data, err := i.source.Download(ctx, img.URL)
	if err != nil {
		return nil, err
	}

	filename := filenameFromURL(img.URL, img.ImageID)
	ref, err := i.blobs.Save(ctx, blobKey(recordID, img.ImageID, filename), data)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", filename, err)
	}

	attachment := &domain.Attachment{
		ParentRecordID: recordID,
		SourceURL:      img.URL,
		Filename:       filename,
		Rank:           img.Rank,
		LocalRef:       ref,
	}

	id, err := i.attachments.CreateAttachment(ctx, attachment)
	if err != nil {
		return nil, fmt.Errorf("create attachment: %w", err)
	}
	attachment.ID = id

	return attachment, nil
}

// blobKey is unique per image: listing images often share the final URL
// segment.
func blobKey(recordID, imageID int64, filename string) string {
	return strconv.FormatInt(recordID, 10) + "/" + strconv.FormatInt(imageID, 10) + "-" + filename
}

// filenameFromURL returns the last path segment of the image URL, falling
// back to a name built from the image id.
func filenameFromURL(raw string, imageID int64) string {
	fallback := "image-" + strconv.FormatInt(imageID, 10)

	u, err := url.Parse(raw)
	if err != nil {
		return fallback
	}
	name := path.Base(u.Path)
	switch name {
	case "", ".", "..", "/":
		return fallback
	}
	return name
}
