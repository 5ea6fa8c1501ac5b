package etsy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etsy_importer/internal/domain"
)

func TestNormalize_MapsFields(t *testing.T) {
	raw := Listing{
		ListingID:    123456789,
		Title:        "  Blue Ceramic Mug  ",
		Description:  "Handmade <b>mug</b>",
		Price:        "18.00",
		CurrencyCode: "USD",
		URL:          "https://www.etsy.com/listing/123456789/blue-ceramic-mug",
		WhenMade:     "made_to_order",
		Recipient:    "unisex_adults",
		CategoryPath: []string{"Home", "Kitchen"},
		Tags:         []string{"mug", "ceramic"},
	}

	got, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, "123456789", got.ListingID)
	assert.Equal(t, "Blue Ceramic Mug", got.Title)
	assert.Equal(t, "Handmade <b>mug</b>", got.Description)
	assert.Equal(t, "18.00", got.Price)
	assert.Equal(t, "USD", got.CurrencyCode)
	assert.Equal(t, "https://www.etsy.com/listing/123456789/blue-ceramic-mug", got.URL)
	assert.Equal(t, "made_to_order", got.WhenMade)
	assert.Equal(t, "unisex_adults", got.Recipient)
	assert.Equal(t, []string{"Home", "Kitchen"}, got.CategoryPath)
	assert.Equal(t, []string{"mug", "ceramic"}, got.Tags)
}

func TestNormalize_SanitizesMarkup(t *testing.T) {
	raw := Listing{
		ListingID:   1,
		Title:       "<script>alert(1)</script>Mug",
		Description: `<p onclick="steal()">Nice</p><script>alert(1)</script>`,
	}

	got, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, "Mug", got.Title)
	assert.Equal(t, "<p>Nice</p>", got.Description)
}

func TestNormalize_DropsInvalidURL(t *testing.T) {
	for _, raw := range []string{"javascript:alert(1)", "not a url", "/relative/path", ""} {
		got, err := Normalize(Listing{ListingID: 1, Title: "Mug", URL: raw})
		require.NoError(t, err)
		assert.Empty(t, got.URL, "url %q", raw)
	}
}

func TestNormalize_CleansTerms(t *testing.T) {
	got, err := Normalize(Listing{
		ListingID:    1,
		Title:        "Mug",
		CategoryPath: []string{" Home ", "", "Home", "Kitchen"},
		Tags:         []string{"  "},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Home", "Kitchen"}, got.CategoryPath)
	assert.Empty(t, got.Tags)
}

func TestNormalize_MissingRequiredFields(t *testing.T) {
	cases := map[string]Listing{
		"no id":           {Title: "Mug"},
		"no title":        {ListingID: 1},
		"markup title":    {ListingID: 1, Title: "<br/>"},
		"whitespace only": {ListingID: 1, Title: "   "},
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Normalize(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrMalformedListing))
		})
	}
}
