package property

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	// FallbackImage is shown when a row has no usable image.
	FallbackImage = "/img/houses/1.jpg"
	// DefaultAgentImage is the avatar shown on every card.
	DefaultAgentImage = "/img/agent.jpg"
)

// Labels maps source codes to display strings for one locale.
type Labels struct {
	Operations map[string]string
	Periods    map[string]string
	// TotalPeriod is used for one-time prices (empty, "total", "one_time").
	TotalPeriod string
	AreaUnit    string
}

var labelsByLocale = map[string]Labels{
	"en": {
		Operations: map[string]string{
			"sale": "For Sale",
			"rent": "For Rent",
		},
		Periods: map[string]string{
			"per_month": "/ Month",
			"per_week":  "/ Week",
			"per_day":   "/ Day",
		},
		TotalPeriod: "/ Total",
		AreaUnit:    "m²",
	},
	"es": {
		Operations: map[string]string{
			"sale": "En Venta",
			"rent": "En Renta",
		},
		Periods: map[string]string{
			"per_month": "/ Mes",
			"per_week":  "/ Semana",
			"per_day":   "/ Día",
		},
		TotalPeriod: "/ Total",
		AreaUnit:    "m²",
	},
}

// DefaultLocale matches the site's default language.
const DefaultLocale = "es"

// Locales returns the supported locale codes.
func Locales() []string {
	return []string{"es", "en"}
}

// ValidLocale returns true if a label table exists for locale.
func ValidLocale(locale string) bool {
	_, ok := labelsByLocale[locale]
	return ok
}

// Transformer builds DisplayRecords for one locale.
type Transformer struct {
	locale  string
	labels  Labels
	printer *message.Printer
}

// NewTransformer creates a transformer for locale, falling back to the
// default locale when it is unknown.
func NewTransformer(locale string) *Transformer {
	labels, ok := labelsByLocale[locale]
	if !ok {
		locale = DefaultLocale
		labels = labelsByLocale[locale]
	}
	tag := language.English
	if locale == "es" {
		tag = language.LatinAmericanSpanish
	}
	return &Transformer{
		locale:  locale,
		labels:  labels,
		printer: message.NewPrinter(tag),
	}
}

// Locale returns the locale the transformer renders for.
func (t *Transformer) Locale() string {
	return t.locale
}

// Display projects a source record for presentation. It never fails.
func (t *Transformer) Display(r SourceRecord) DisplayRecord {
	images := ValidImages(r.ImageURLs)
	image := FallbackImage
	if len(images) > 0 {
		image = images[0]
	}

	d := DisplayRecord{
		ID:             r.ListingID,
		Image:          image,
		Images:         images,
		AgentImage:     DefaultAgentImage,
		OperationType:  r.OperationType,
		OperationLabel: t.OperationLabel(r.OperationType),
		PropertyType:   r.PropertyType,
		Title:          r.Title,
		Location:       joinLocation(r.Neighborhood, r.City),
		City:           r.City,
		Beds:           r.Bedrooms,
		Baths:          r.Bathrooms,
		Parking:        r.ParkingSpaces,
		Area:           t.AreaLabel(r.BuiltAreaM2),
		YearBuilt:      r.YearBuilt,
		Price:          r.Price,
		Currency:       r.Currency,
		PriceLabel:     t.PriceLabel(r.Price, r.Currency),
		Period:         t.PeriodLabel(r.PricePeriod),
		Description:    r.Description,
		Amenities:      nonNil(r.Amenities),
		Tags:           nonNil(r.Tags),
		Featured:       r.Featured,
		Slug:           r.Slug,
	}
	if r.LotAreaM2 > 0 {
		d.LotArea = t.AreaLabel(r.LotAreaM2)
	}
	return d
}

// ResolveImage returns the first usable image URL, or FallbackImage.
func ResolveImage(urls [MaxImages]string) string {
	if images := ValidImages(urls); len(images) > 0 {
		return images[0]
	}
	return FallbackImage
}

// ValidImages returns the non-empty candidates that are not the error
// sentinel, in order.
func ValidImages(urls [MaxImages]string) []string {
	images := []string{}
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || u == ImageErrorSentinel {
			continue
		}
		images = append(images, u)
	}
	return images
}

// PriceLabel formats an amount with grouping. USD and MXN get a "$" prefix;
// other currencies are suffixed with their code.
func (t *Transformer) PriceLabel(price float64, currency string) string {
	amount := t.formatNumber(price)
	switch currency {
	case "USD", "MXN":
		return "$" + amount
	case "":
		return amount
	}
	return fmt.Sprintf("%s %s", amount, currency)
}

// AreaLabel formats square meters with the unit suffix.
func (t *Transformer) AreaLabel(m2 float64) string {
	return fmt.Sprintf("%s %s", t.formatNumber(m2), t.labels.AreaUnit)
}

// OperationLabel maps an operation code; unknown codes pass through.
func (t *Transformer) OperationLabel(code string) string {
	if label, ok := t.labels.Operations[strings.ToLower(code)]; ok {
		return label
	}
	return code
}

// PeriodLabel maps a price period code; unknown codes pass through.
func (t *Transformer) PeriodLabel(code string) string {
	c := strings.ToLower(code)
	if label, ok := t.labels.Periods[c]; ok {
		return label
	}
	switch c {
	case "", "total", "one_time", "once":
		return t.labels.TotalPeriod
	}
	return code
}

func (t *Transformer) formatNumber(v float64) string {
	return t.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

func joinLocation(neighborhood, city string) string {
	var parts []string
	for _, p := range []string{neighborhood, city} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
