package domain

// Credentials is the API key and store identifier a run is executed with.
type Credentials struct {
	StoreID string
	APIKey  string
}

// Listing is a remote storefront listing after normalization.
type Listing struct {
	ListingID    string
	Title        string
	Description  string
	Price        string
	CurrencyCode string
	URL          string
	WhenMade     string
	Recipient    string
	CategoryPath []string
	Tags         []string
}

// ImageRef points at one remote image of a listing. Rank is 1-based.
type ImageRef struct {
	ImageID int64
	URL     string
	Rank    int
}
