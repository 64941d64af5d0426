package property

import (
	"slices"
	"strings"
)

// FeaturedFirst returns a copy of records with featured entries moved ahead
// of the rest. Relative order inside each group is kept.
func FeaturedFirst(records []DisplayRecord) []DisplayRecord {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b DisplayRecord) int {
		switch {
		case a.Featured && !b.Featured:
			return -1
		case !a.Featured && b.Featured:
			return 1
		}
		return 0
	})
	return out
}

// Criteria selects listings in Filter. Empty strings and nil bounds are
// ignored; every set criterion must match.
type Criteria struct {
	PropertyType  string   `json:"property_type,omitempty"`
	OperationType string   `json:"operation_type,omitempty"`
	MinPrice      *float64 `json:"min_price,omitempty"`
	MaxPrice      *float64 `json:"max_price,omitempty"`
	MinBedrooms   *int     `json:"min_bedrooms,omitempty"`
	MaxBedrooms   *int     `json:"max_bedrooms,omitempty"`
	City          string   `json:"city,omitempty"`
	FeaturedOnly  bool     `json:"featured,omitempty"`
}

// Matches reports whether d satisfies every criterion in c.
func (c Criteria) Matches(d DisplayRecord) bool {
	if c.PropertyType != "" && !containsFold(d.PropertyType, c.PropertyType) {
		return false
	}
	if c.OperationType != "" &&
		!containsFold(d.OperationType, c.OperationType) &&
		!containsFold(d.OperationLabel, c.OperationType) {
		return false
	}
	if c.City != "" && !containsFold(d.City, c.City) {
		return false
	}
	if c.MinPrice != nil && d.Price < *c.MinPrice {
		return false
	}
	if c.MaxPrice != nil && d.Price > *c.MaxPrice {
		return false
	}
	if c.MinBedrooms != nil && d.Beds < *c.MinBedrooms {
		return false
	}
	if c.MaxBedrooms != nil && d.Beds > *c.MaxBedrooms {
		return false
	}
	if c.FeaturedOnly && !d.Featured {
		return false
	}
	return true
}

// Filter returns the records matching c, in order.
func Filter(records []DisplayRecord, c Criteria) []DisplayRecord {
	return where(records, c.Matches)
}

// Search matches query case-insensitively against title, description,
// location and tags. A blank query returns records unchanged.
func Search(records []DisplayRecord, query string) []DisplayRecord {
	q := strings.TrimSpace(query)
	if q == "" {
		return records
	}
	return where(records, func(d DisplayRecord) bool {
		if containsFold(d.Title, q) || containsFold(d.Description, q) || containsFold(d.Location, q) {
			return true
		}
		return slices.ContainsFunc(d.Tags, func(tag string) bool {
			return containsFold(tag, q)
		})
	})
}

// Featured returns only featured records.
func Featured(records []DisplayRecord) []DisplayRecord {
	return where(records, func(d DisplayRecord) bool { return d.Featured })
}

// ByType matches t against the property type or the operation label.
func ByType(records []DisplayRecord, t string) []DisplayRecord {
	return where(records, func(d DisplayRecord) bool {
		return containsFold(d.PropertyType, t) || containsFold(d.OperationLabel, t)
	})
}

// ByCity matches city against the location label.
func ByCity(records []DisplayRecord, city string) []DisplayRecord {
	return where(records, func(d DisplayRecord) bool {
		return containsFold(d.Location, city)
	})
}

func where(records []DisplayRecord, keep func(DisplayRecord) bool) []DisplayRecord {
	out := []DisplayRecord{}
	for _, d := range records {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
