package property

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numberPrefix matches the leading numeric part of a cell such as "120 m2".
var numberPrefix = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`)

// numberNoise strips currency symbols and spacing from sheet-formatted numbers.
var numberNoise = strings.NewReplacer("$", "", " ", "", "\u00a0", "")

// groupedPrefix matches thousands grouping such as "2,500,000".
var groupedPrefix = regexp.MustCompile(`^[-+]?\d{1,3}(,\d{3})+`)

// CoerceFloat reads a cell as a number. Blank or unreadable cells yield 0.
// Commas are read as thousands separators only in groups of three, so a
// decimal comma such as "2,5" reads as 2.
func CoerceFloat(raw string) float64 {
	s := stripGrouping(numberNoise.Replace(strings.TrimSpace(raw)))
	if s == "" {
		return 0
	}

	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return finite(v)
	}

	// Fall back to the leading number, the way a spreadsheet user reads "3 rec".
	m := numberPrefix.FindString(s)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return finite(v)
}

func stripGrouping(s string) string {
	loc := groupedPrefix.FindStringIndex(s)
	if loc == nil {
		return s
	}
	end := loc[1]
	if end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == ',') {
		return s
	}
	return strings.ReplaceAll(s[:end], ",", "") + s[end:]
}

// CoerceInt reads a cell as a whole number, truncating any fraction.
func CoerceInt(raw string) int {
	f := math.Trunc(CoerceFloat(raw))
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0
	}
	return int(f)
}

// CoerceBool accepts "true" and the Spanish "verdadero" in any case.
func CoerceBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "verdadero":
		return true
	}
	return false
}

// CoerceList splits a comma-delimited cell. An empty cell yields an empty list.
func CoerceList(raw string) []string {
	items := []string{}
	if strings.TrimSpace(raw) == "" {
		return items
	}
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			items = append(items, p)
		}
	}
	return items
}

// NormalizeHeader turns a raw header cell into the field name Set expects.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.TrimSpace(h))
}

// Set coerces raw according to the semantics of field and stores it.
// Unknown fields are kept in Extra. Set never fails.
func (r *SourceRecord) Set(field, raw string) {
	field = NormalizeHeader(field)
	s := strings.TrimSpace(raw)

	switch field {
	case "listing_id":
		r.ListingID = s
	case "status":
		r.Status = Status(strings.ToLower(s))
	case "title":
		r.Title = s
	case "description":
		r.Description = s
	case "operation_type":
		r.OperationType = s
	case "property_type":
		r.PropertyType = s
	case "price":
		r.Price = nonNegative(CoerceFloat(raw))
	case "currency":
		r.Currency = strings.ToUpper(s)
	case "price_period":
		r.PricePeriod = s
	case "bedrooms":
		r.Bedrooms = max(CoerceInt(raw), 0)
	case "bathrooms":
		r.Bathrooms = max(CoerceInt(raw), 0)
	case "parking_spaces":
		r.ParkingSpaces = max(CoerceInt(raw), 0)
	case "built_area_m2":
		r.BuiltAreaM2 = nonNegative(CoerceFloat(raw))
	case "lot_area_m2":
		r.LotAreaM2 = nonNegative(CoerceFloat(raw))
	case "year_built":
		r.YearBuilt = max(CoerceInt(raw), 0)
	case "images_count":
		r.ImagesCount = max(CoerceInt(raw), 0)
	case "lat":
		r.Lat = CoerceFloat(raw)
	case "lng":
		r.Lng = CoerceFloat(raw)
	case "neighborhood":
		r.Neighborhood = s
	case "city":
		r.City = s
	case "state":
		r.State = s
	case "country":
		r.Country = s
	case "image1_url":
		r.ImageURLs[0] = s
	case "image2_url":
		r.ImageURLs[1] = s
	case "image3_url":
		r.ImageURLs[2] = s
	case "amenities":
		r.Amenities = CoerceList(raw)
	case "tags":
		r.Tags = CoerceList(raw)
	case "featured":
		r.Featured = CoerceBool(raw)
	case "slug":
		r.Slug = s
	case "":
		// Unnamed column.
	default:
		if r.Extra == nil {
			r.Extra = make(map[string]string)
		}
		r.Extra[field] = s
	}
}

// FromRow builds a record from a header row and one data row. Missing cells
// read as empty; cells beyond the header are ignored.
func FromRow(header, row []string) SourceRecord {
	var r SourceRecord
	for i, field := range header {
		var cell string
		if i < len(row) {
			cell = row[i]
		}
		r.Set(field, cell)
	}
	if r.Amenities == nil {
		r.Amenities = []string{}
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	return r
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
