package etsy

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"etsy_importer/internal/domain"
)

var (
	textPolicy = bluemonday.StrictPolicy()
	bodyPolicy = bluemonday.UGCPolicy()
)

// Normalize maps a raw listing to its domain form. Text fields are stripped
// of markup, the description keeps only post-safe HTML and the URL is kept
// only when it is an absolute http(s) URL.
func Normalize(raw Listing) (domain.Listing, error) {
	if raw.ListingID == 0 {
		return domain.Listing{}, fmt.Errorf("%w: missing listing_id", domain.ErrMalformedListing)
	}

	id := strconv.FormatInt(raw.ListingID, 10)

	title := strings.TrimSpace(textPolicy.Sanitize(raw.Title))
	if title == "" {
		return domain.Listing{}, fmt.Errorf("%w: listing %s has no title", domain.ErrMalformedListing, id)
	}

	return domain.Listing{
		ListingID:    id,
		Title:        title,
		Description:  bodyPolicy.Sanitize(raw.Description),
		Price:        strings.TrimSpace(textPolicy.Sanitize(raw.Price)),
		CurrencyCode: strings.TrimSpace(textPolicy.Sanitize(raw.CurrencyCode)),
		URL:          cleanURL(raw.URL),
		WhenMade:     strings.TrimSpace(textPolicy.Sanitize(raw.WhenMade)),
		Recipient:    strings.TrimSpace(textPolicy.Sanitize(raw.Recipient)),
		CategoryPath: cleanTerms(raw.CategoryPath),
		Tags:         cleanTerms(raw.Tags),
	}, nil
}

func cleanURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// cleanTerms trims names, drops empty ones and removes duplicates while
// keeping the first occurrence in place.
func cleanTerms(names []string) []string {
	if len(names) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
