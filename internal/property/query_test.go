package property

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func ids(records []DisplayRecord) []string {
	out := []string{}
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestFeaturedFirstStable(t *testing.T) {
	in := []DisplayRecord{
		{ID: "A"},
		{ID: "B", Featured: true},
		{ID: "C"},
		{ID: "D", Featured: true},
	}

	got := FeaturedFirst(in)

	if diff := cmp.Diff([]string{"B", "D", "A", "C"}, ids(got)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"A", "B", "C", "D"}, ids(in)); diff != "" {
		t.Errorf("input was mutated (-want +got):\n%s", diff)
	}
}

func intPtr(i int) *int { return &i }
func floatPtr(f float64) *float64 { return &f }

func sampleRecords() []DisplayRecord {
	return []DisplayRecord{
		{ID: "1", Title: "Casa Jade", City: "Tulum", Location: "Aldea Zama, Tulum", Beds: 2, Price: 250000,
			PropertyType: "house", OperationType: "sale", OperationLabel: "For Sale", Tags: []string{"jungle"}},
		{ID: "2", Title: "Villa Coral", City: "Tulum", Location: "Region 15, Tulum", Beds: 4, Price: 900000,
			PropertyType: "villa", OperationType: "sale", OperationLabel: "For Sale", Featured: true, Tags: []string{"beach"}},
		{ID: "3", Title: "Loft Centro", City: "Mérida", Location: "Centro, Mérida", Beds: 1, Price: 1200,
			PropertyType: "apartment", OperationType: "rent", OperationLabel: "For Rent", Description: "Near the plaza",
			Tags: []string{"downtown"}},
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{"empty criteria matches all", Criteria{}, []string{"1", "2", "3"}},
		{"city and min bedrooms", Criteria{City: "Tulum", MinBedrooms: intPtr(3)}, []string{"2"}},
		{"city case insensitive", Criteria{City: "tulum"}, []string{"1", "2"}},
		{"max bedrooms inclusive", Criteria{MaxBedrooms: intPtr(2)}, []string{"1", "3"}},
		{"price range inclusive", Criteria{MinPrice: floatPtr(1200), MaxPrice: floatPtr(250000)}, []string{"1", "3"}},
		{"min price only", Criteria{MinPrice: floatPtr(300000)}, []string{"2"}},
		{"operation by code", Criteria{OperationType: "rent"}, []string{"3"}},
		{"operation by label", Criteria{OperationType: "for sale"}, []string{"1", "2"}},
		{"property type", Criteria{PropertyType: "VILLA"}, []string{"2"}},
		{"featured only", Criteria{FeaturedOnly: true}, []string{"2"}},
		{"no match", Criteria{City: "Cancún"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Filter(sampleRecords(), tt.criteria))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Filter mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"blank returns all", "  ", []string{"1", "2", "3"}},
		{"title", "villa", []string{"2"}},
		{"description", "PLAZA", []string{"3"}},
		{"location", "aldea", []string{"1"}},
		{"tag", "beach", []string{"2"}},
		{"no match", "penthouse", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Search(sampleRecords(), tt.query))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Search(%q) mismatch (-want +got):\n%s", tt.query, diff)
			}
		})
	}
}

func TestSubsets(t *testing.T) {
	records := sampleRecords()

	if diff := cmp.Diff([]string{"2"}, ids(Featured(records))); diff != "" {
		t.Errorf("Featured mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"3"}, ids(ByType(records, "rent"))); diff != "" {
		t.Errorf("ByType mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"3"}, ids(ByCity(records, "mérida"))); diff != "" {
		t.Errorf("ByCity mismatch (-want +got):\n%s", diff)
	}
}
