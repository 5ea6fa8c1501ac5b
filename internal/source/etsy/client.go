package etsy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"etsy_importer/internal/domain"
	"etsy_importer/internal/metrics"
)

const (
	endpointListings = "listings"
	endpointImages   = "images"
	endpointDownload = "download"

	maxResponseBytes = 8 << 20
)

// Config holds Etsy client configuration.
type Config struct {
	BaseURL           string
	PageSize          int
	MaxPages          int
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	DownloadTimeout   time.Duration
	MaxDownloadBytes  int64
}

// Client talks to the Etsy Open API v2 and downloads listing images.
type Client struct {
	httpClient       *http.Client
	downloadClient   *http.Client
	baseURL          string
	pageSize         int
	maxPages         int
	limiter          *rate.Limiter
	maxAttempts      int
	initialBackoff   time.Duration
	maxBackoff       time.Duration
	maxDownloadBytes int64
	logger           *slog.Logger
}

// New creates a new Etsy client.
func New(cfg Config, logger *slog.Logger) *Client {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := int(cfg.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		downloadClient: &http.Client{
			Timeout: cfg.DownloadTimeout,
		},
		baseURL:          cfg.BaseURL,
		pageSize:         cfg.PageSize,
		maxPages:         cfg.MaxPages,
		limiter:          rate.NewLimiter(limit, burst),
		maxAttempts:      maxAttempts,
		initialBackoff:   cfg.InitialBackoff,
		maxBackoff:       cfg.MaxBackoff,
		maxDownloadBytes: cfg.MaxDownloadBytes,
		logger:           logger.With("component", "etsy"),
	}
}

// FetchActiveListings returns every active listing of the store, newest
// first. Pages are requested in order and concatenated, so the created-date
// ordering of the API holds across page boundaries.
func (c *Client) FetchActiveListings(ctx context.Context, creds domain.Credentials) ([]Listing, error) {
	var all []Listing
	offset := 0

	for page := 0; page < c.maxPages; page++ {
		resp, err := c.fetchListingsPage(ctx, creds, offset)
		if err != nil {
			return nil, fmt.Errorf("fetch listings offset %d: %w", offset, err)
		}

		all = append(all, resp.Results...)

		c.logger.Debug("fetched listings page",
			"store_id", creds.StoreID,
			"offset", offset,
			"listings", len(resp.Results),
			"total", len(all),
		)

		next := resp.Pagination.NextOffset
		if next == nil || *next <= offset || len(resp.Results) == 0 {
			return all, nil
		}
		offset = *next
	}

	c.logger.Warn("listing pagination stopped at page limit",
		"store_id", creds.StoreID,
		"max_pages", c.maxPages,
		"total", len(all),
	)
	return all, nil
}

func (c *Client) fetchListingsPage(ctx context.Context, creds domain.Credentials, offset int) (*ListingsResponse, error) {
	query := url.Values{}
	query.Set("sort_on", "created")
	query.Set("sort_order", "down")
	query.Set("limit", strconv.Itoa(c.pageSize))
	query.Set("offset", strconv.Itoa(offset))
	query.Set("api_key", creds.APIKey)

	endpoint := fmt.Sprintf("%s/shops/%s/listings/active?%s", c.baseURL, url.PathEscape(creds.StoreID), query.Encode())

	var resp ListingsResponse
	if err := c.getJSON(ctx, endpointListings, endpoint, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchListingImages returns the images of one listing in API order.
func (c *Client) FetchListingImages(ctx context.Context, listingID, apiKey string) ([]domain.ImageRef, error) {
	query := url.Values{}
	query.Set("api_key", apiKey)

	endpoint := fmt.Sprintf("%s/listings/%s/images?%s", c.baseURL, url.PathEscape(listingID), query.Encode())

	var resp ImagesResponse
	if err := c.getJSON(ctx, endpointImages, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("fetch images for listing %s: %w", listingID, err)
	}

	refs := make([]domain.ImageRef, 0, len(resp.Results))
	for _, img := range resp.Results {
		refs = append(refs, domain.ImageRef{
			ImageID: img.ListingImageID,
			URL:     img.URLFull,
			Rank:    img.Rank,
		})
	}
	return refs, nil
}

// Download fetches the bytes of an image. Bodies larger than the configured
// limit are rejected.
func (c *Client) Download(ctx context.Context, imageURL string) ([]byte, error) {
	var data []byte
	err := c.withRetry(ctx, endpointDownload, func() error {
		var err error
		data, err = c.download(ctx, imageURL)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", imageURL, err)
	}
	return data, nil
}

func (c *Client) download(ctx context.Context, imageURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &Failure{Err: fmt.Errorf("rate limit: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, &Failure{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", "EtsyImporter/1.0")

	start := time.Now()
	resp, err := c.downloadClient.Do(req)
	if err != nil {
		metrics.RecordRequest(endpointDownload, 0, time.Since(start))
		return nil, &Failure{Err: fmt.Errorf("execute request: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxDownloadBytes+1))
	metrics.RecordRequest(endpointDownload, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, &Failure{Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Failure{StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status: %d", resp.StatusCode)}
	}
	if int64(len(data)) > c.maxDownloadBytes {
		return nil, &Failure{StatusCode: resp.StatusCode, Err: fmt.Errorf("image exceeds %d bytes", c.maxDownloadBytes)}
	}

	return data, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, rawURL string, out resultSet) error {
	return c.withRetry(ctx, endpoint, func() error {
		return c.doRequest(ctx, endpoint, rawURL, out)
	})
}

func (c *Client) withRetry(ctx context.Context, endpoint string, call func() error) error {
	var err error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err = call()
		if err == nil {
			return nil
		}

		var failure *Failure
		if !errors.As(err, &failure) || !failure.Retryable() || ctx.Err() != nil {
			return err
		}

		if attempt == c.maxAttempts {
			break
		}

		backoff := c.calculateBackoff(attempt)
		c.logger.Warn("request failed, retrying",
			"endpoint", endpoint,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return &Failure{Err: ctx.Err()}
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("after %d attempts: %w", c.maxAttempts, err)
}

func (c *Client) doRequest(ctx context.Context, endpoint, rawURL string, out resultSet) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &Failure{Err: fmt.Errorf("rate limit: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &Failure{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "EtsyImporter/1.0")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordRequest(endpoint, 0, time.Since(start))
		return &Failure{Err: fmt.Errorf("execute request: %w", stripURL(err))}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	metrics.RecordRequest(endpoint, resp.StatusCode, time.Since(start))
	if err != nil {
		return &Failure{Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Failure{
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Err:        fmt.Errorf("unexpected status: %d", resp.StatusCode),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &Failure{StatusCode: resp.StatusCode, Body: string(body), Err: fmt.Errorf("decode response: %w", err)}
	}
	if !out.hasResults() {
		return &Failure{StatusCode: resp.StatusCode, Body: string(body), Err: errors.New("decode response: missing results")}
	}

	return nil
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > c.maxBackoff {
		backoff = c.maxBackoff
	}
	return backoff
}

// stripURL drops the request URL from transport errors; it carries the API key.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
