// Package property provides the listing domain model: coercion of raw
// spreadsheet cells, the display projection, and query helpers.
package property

// Status is the publication state of a listing row.
type Status string

const (
	StatusPublished Status = "published"
	StatusDraft     Status = "draft"
)

// Published reports whether s marks a row eligible for display.
func (s Status) Published() bool {
	return s == StatusPublished
}

// ImageErrorSentinel is what the sheet writes into an image cell whose
// formula failed. Such cells are treated as empty.
const ImageErrorSentinel = "#ERROR!"

// MaxImages is the number of image columns a row carries.
const MaxImages = 3

// SourceRecord is one row of the listings sheet after coercion.
type SourceRecord struct {
	ListingID     string            `json:"listing_id"`
	Status        Status            `json:"status"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	OperationType string            `json:"operation_type"`
	PropertyType  string            `json:"property_type"`
	Price         float64           `json:"price"`
	Currency      string            `json:"currency"`
	PricePeriod   string            `json:"price_period"`
	Bedrooms      int               `json:"bedrooms"`
	Bathrooms     int               `json:"bathrooms"`
	ParkingSpaces int               `json:"parking_spaces"`
	BuiltAreaM2   float64           `json:"built_area_m2"`
	LotAreaM2     float64           `json:"lot_area_m2"`
	YearBuilt     int               `json:"year_built"`
	ImagesCount   int               `json:"images_count"`
	Lat           float64           `json:"lat"`
	Lng           float64           `json:"lng"`
	Neighborhood  string            `json:"neighborhood"`
	City          string            `json:"city"`
	State         string            `json:"state"`
	Country       string            `json:"country"`
	ImageURLs     [MaxImages]string `json:"image_urls"`
	Amenities     []string          `json:"amenities"`
	Tags          []string          `json:"tags"`
	Featured      bool              `json:"featured"`
	Slug          string            `json:"slug"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// DisplayRecord is the presentation-ready projection of a SourceRecord.
// Price keeps the raw amount so range filters never re-parse PriceLabel.
type DisplayRecord struct {
	ID             string   `json:"id"`
	Image          string   `json:"image"`
	Images         []string `json:"images"`
	AgentImage     string   `json:"agent_image"`
	OperationType  string   `json:"operation_type"`
	OperationLabel string   `json:"operation_label"`
	PropertyType   string   `json:"property_type"`
	Title          string   `json:"title"`
	Location       string   `json:"location"`
	City           string   `json:"city"`
	Beds           int      `json:"beds"`
	Baths          int      `json:"baths"`
	Parking        int      `json:"parking"`
	Area           string   `json:"area"`
	LotArea        string   `json:"lot_area,omitempty"`
	YearBuilt      int      `json:"year_built,omitempty"`
	Price          float64  `json:"price"`
	Currency       string   `json:"currency"`
	PriceLabel     string   `json:"price_label"`
	Period         string   `json:"period"`
	Description    string   `json:"description"`
	Amenities      []string `json:"amenities"`
	Tags           []string `json:"tags"`
	Featured       bool     `json:"featured"`
	Slug           string   `json:"slug"`
}
