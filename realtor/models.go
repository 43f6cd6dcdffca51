package realtor

import "time"

// Status is the marketed state of a listing, derived from its flags.
type Status string

const (
	StatusForSale    Status = "For Sale"
	StatusPending    Status = "Pending"
	StatusComingSoon Status = "Coming Soon"
)

// RawEntry is one result from the search API, shape as delivered upstream.
// Nested objects are pointers because the API omits or nulls most of them.
type RawEntry struct {
	PropertyID   string          `json:"property_id"`
	ListingID    string          `json:"listing_id"`
	ListPrice    *float64        `json:"list_price"`
	ListDate     string          `json:"list_date"`
	Status       string          `json:"status"`
	Permalink    string          `json:"permalink"`
	Tags         []string        `json:"tags"`
	Description  *RawDescription `json:"description"`
	Location     *RawLocation    `json:"location"`
	Flags        *RawFlags       `json:"flags"`
	PrimaryPhoto *RawPhoto       `json:"primary_photo"`
	Photos       []RawPhoto      `json:"photos"`
	VirtualTours []RawTour       `json:"virtual_tours"`
}

type RawDescription struct {
	Type      *string  `json:"type"`
	Text      *string  `json:"text"`
	Beds      *float64 `json:"beds"`
	Baths     *float64 `json:"baths"`
	Garage    *float64 `json:"garage"`
	Stories   *float64 `json:"stories"`
	Sqft      *float64 `json:"sqft"`
	LotSqft   *float64 `json:"lot_sqft"`
	YearBuilt *float64 `json:"year_built"`
}

type RawLocation struct {
	Address *RawAddress `json:"address"`
	County  *RawCounty  `json:"county"`
}

type RawAddress struct {
	Line       string         `json:"line"`
	PostalCode string         `json:"postal_code"`
	StateCode  string         `json:"state_code"`
	City       string         `json:"city"`
	Coordinate *RawCoordinate `json:"coordinate"`
}

type RawCoordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type RawCounty struct {
	Name string `json:"name"`
}

type RawFlags struct {
	IsComingSoon      bool `json:"is_coming_soon"`
	IsPending         bool `json:"is_pending"`
	IsForeclosure     bool `json:"is_foreclosure"`
	IsContingent      bool `json:"is_contingent"`
	IsNewConstruction bool `json:"is_new_construction"`
	IsNewListing      bool `json:"is_new_listing"`
	IsPriceReduced    bool `json:"is_price_reduced"`
	IsPlan            bool `json:"is_plan"`
	IsSubdivision     bool `json:"is_subdivision"`
}

type RawPhoto struct {
	Href string `json:"href"`
}

type RawTour struct {
	Href string `json:"href"`
	Type string `json:"type"`
}

// ListingRecord is the flat, typed unit of pipeline output. Optional numeric
// fields are nil when the source had no value; no sentinel ever appears here.
type ListingRecord struct {
	ID               string
	ListDate         time.Time
	HouseType        string // raw type with underscores replaced, "" when absent
	HouseTypeImputed string
	Price            int
	Street           string
	City             string
	State            string
	PostalCode       string
	Address          string // "street, city, state zip"
	Text             string

	Beds      *int
	Baths     *int
	Garage    *int
	Stories   *int
	Sqft      *int
	LotSqft   *int
	YearBuilt *int

	Tags   string // comma-joined, title-cased; "" when absent
	County string
	Lat    *float64
	Lon    *float64

	IsComingSoon      bool
	IsPending         bool
	IsForeclosure     bool
	IsContingent      bool
	IsNewConstruction bool
	IsNewListing      bool
	IsPriceReduced    bool
	IsPlan            bool
	IsSubdivision     bool
	Status            Status

	PrimaryPhoto   string
	Photos         []string // rewritten CDN variants
	PhotoFilenames []string
	VirtualTour    string
}

// PhotoAsset pairs a downloadable photo URL with its remote-store filename.
type PhotoAsset struct {
	URL      string
	Filename string
}

// Assets returns the record's photo set keyed the way the remote store is.
func (r ListingRecord) Assets() []PhotoAsset {
	out := make([]PhotoAsset, 0, len(r.Photos))
	for i, href := range r.Photos {
		if href == "" || i >= len(r.PhotoFilenames) {
			continue
		}
		out = append(out, PhotoAsset{URL: href, Filename: r.PhotoFilenames[i]})
	}
	return out
}
