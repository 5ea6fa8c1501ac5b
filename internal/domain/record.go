package domain

import "time"

const (
	ContentTypeProduct = "etsy_products"
	StatusPublish      = "publish"

	TaxonomyCategory = "etsy_category"
	TaxonomyTag      = "etsy_tag"
)

// Metadata keys written on every created record.
const (
	MetaPrice    = "product_price"
	MetaCurrency = "product_currency"
	MetaURL      = "product_url"
	MetaMade     = "product_made"
	MetaMadeFor  = "product_made_for"
)

type ContentRecord struct {
	ID                    int64             `db:"id" json:"id"`
	ContentType           string            `db:"content_type" json:"content_type"`
	ExternalID            string            `db:"external_id" json:"external_id"`
	Title                 string            `db:"title" json:"title"`
	Body                  string            `db:"body" json:"body"`
	Status                string            `db:"status" json:"status"`
	ThumbnailAttachmentID *int64            `db:"thumbnail_attachment_id" json:"thumbnail_attachment_id,omitempty"`
	Metadata              map[string]string `db:"-" json:"metadata,omitempty"`
	Categories            []string          `db:"-" json:"categories,omitempty"`
	Tags                  []string          `db:"-" json:"tags,omitempty"`
	CreatedAt             time.Time         `db:"created_at" json:"created_at"`
}

type Attachment struct {
	ID             int64     `db:"id" json:"id"`
	ParentRecordID int64     `db:"parent_record_id" json:"parent_record_id"`
	SourceURL      string    `db:"source_url" json:"source_url"`
	Filename       string    `db:"filename" json:"filename"`
	Rank           int       `db:"rank" json:"rank"`
	LocalRef       string    `db:"local_ref" json:"local_ref"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type Term struct {
	ID       int64  `db:"id"`
	Taxonomy string `db:"taxonomy"`
	Name     string `db:"name"`
	Slug     string `db:"slug"`
}

// MediaOutcome is the result of ingesting the images of one listing.
// Errors holds per-image failures; they never abort the remaining images.
type MediaOutcome struct {
	Attachments []Attachment
	ThumbnailID *int64
	Errors      []error
}
