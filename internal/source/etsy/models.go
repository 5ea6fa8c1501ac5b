package etsy

// ListingsResponse is the body of the active listings endpoint.
type ListingsResponse struct {
	Count      int        `json:"count"`
	Results    []Listing  `json:"results"`
	Pagination Pagination `json:"pagination"`
}

type Pagination struct {
	EffectiveLimit  int  `json:"effective_limit"`
	EffectiveOffset int  `json:"effective_offset"`
	NextOffset      *int `json:"next_offset"`
	EffectivePage   int  `json:"effective_page"`
	NextPage        *int `json:"next_page"`
}

type Listing struct {
	ListingID    int64    `json:"listing_id"`
	State        string   `json:"state"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Price        string   `json:"price"`
	CurrencyCode string   `json:"currency_code"`
	URL          string   `json:"url"`
	WhenMade     string   `json:"when_made"`
	Recipient    string   `json:"recipient"`
	CategoryPath []string `json:"category_path"`
	Tags         []string `json:"tags"`
	CreationTsz  int64    `json:"creation_tsz"`
}

// ImagesResponse is the body of the listing images endpoint.
type ImagesResponse struct {
	Count   int     `json:"count"`
	Results []Image `json:"results"`
}

type Image struct {
	ListingImageID int64  `json:"listing_image_id"`
	ListingID      int64  `json:"listing_id"`
	URLFull        string `json:"url_fullxfull"`
	Rank           int    `json:"rank"`
}

// resultSet is implemented by responses that must carry a results array.
type resultSet interface {
	hasResults() bool
}

func (r *ListingsResponse) hasResults() bool { return r.Results != nil }

func (r *ImagesResponse) hasResults() bool { return r.Results != nil }
