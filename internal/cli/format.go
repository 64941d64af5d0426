package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/HansLove/HouzeMaster-front/internal/client"
	"github.com/HansLove/HouzeMaster-front/internal/property"
)

// printJSON marshals v as indented JSON and writes it to w.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printListings writes a listing collection in the selected format.
func printListings(w io.Writer, resp *client.ListingsResponse) error {
	if isJSON() {
		return printJSON(w, resp)
	}
	if resp.Stale {
		msg := "Showing cached listings; they may be out of date."
		if resp.Warning != "" {
			msg = fmt.Sprintf("Showing cached listings; last fetch failed: %s", resp.Warning)
		}
		if _, err := fmt.Fprintln(w, msg); err != nil {
			return err
		}
	}
	return printListingTable(w, resp.Listings)
}

// printListingTable prints listings as a formatted table.
func printListingTable(w io.Writer, listings []property.DisplayRecord) error {
	if len(listings) == 0 {
		_, err := fmt.Fprintln(w, "No listings found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "SLUG\tTITLE\tOPERATION\tPRICE\tBEDS\tBATHS\tAREA\tLOCATION"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(tw, "----\t-----\t---------\t-----\t----\t-----\t----\t--------"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, l := range listings {
		title := truncate(l.Title, 40)
		if l.Featured {
			title = "★ " + title
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			l.Slug, title, l.OperationLabel, priceText(l), l.Beds, l.Baths, dash(l.Area), truncate(l.Location, 30)); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	_, err := fmt.Fprintf(w, "\nTotal: %d listings\n", len(listings))
	return err
}

// printListingDetail prints one listing in text format.
func printListingDetail(w io.Writer, l *property.DisplayRecord) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", l.Title)
	fmt.Fprintf(&b, "  Slug:      %s\n", l.Slug)
	fmt.Fprintf(&b, "  ID:        %s\n", l.ID)
	fmt.Fprintf(&b, "  Operation: %s\n", dash(l.OperationLabel))
	if l.PropertyType != "" {
		fmt.Fprintf(&b, "  Type:      %s\n", l.PropertyType)
	}
	fmt.Fprintf(&b, "  Price:     %s\n", priceText(*l))
	fmt.Fprintf(&b, "  Location:  %s\n", dash(l.Location))
	fmt.Fprintf(&b, "  Beds:      %d\n", l.Beds)
	fmt.Fprintf(&b, "  Baths:     %d\n", l.Baths)
	fmt.Fprintf(&b, "  Parking:   %d\n", l.Parking)
	fmt.Fprintf(&b, "  Area:      %s\n", dash(l.Area))
	if l.LotArea != "" {
		fmt.Fprintf(&b, "  Lot:       %s\n", l.LotArea)
	}
	if l.YearBuilt > 0 {
		fmt.Fprintf(&b, "  Built:     %d\n", l.YearBuilt)
	}
	if l.Featured {
		b.WriteString("  Featured:  yes\n")
	}
	if len(l.Amenities) > 0 {
		fmt.Fprintf(&b, "  Amenities: %s\n", strings.Join(l.Amenities, ", "))
	}
	if len(l.Tags) > 0 {
		fmt.Fprintf(&b, "  Tags:      %s\n", strings.Join(l.Tags, ", "))
	}
	fmt.Fprintf(&b, "  Image:     %s\n", l.Image)
	if l.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", l.Description)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// printCacheStatus prints the cache summary in text format.
func printCacheStatus(w io.Writer, st *client.CacheStatus, now time.Time) error {
	state := "empty"
	switch {
	case st.Loading:
		state = "loading"
	case st.Valid:
		state = "fresh"
	case st.LastFetch != nil:
		state = "expired"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Cache:       %s\n", state)
	fmt.Fprintf(&b, "Fast tier:   %d of %d\n", st.FastCount, st.Limit)
	fmt.Fprintf(&b, "Full tier:   %d\n", st.AllCount)
	fmt.Fprintf(&b, "TTL:         %s\n", st.TTL)
	if st.LastFetch != nil {
		age := now.Sub(*st.LastFetch).Truncate(time.Second)
		fmt.Fprintf(&b, "Last fetch:  %s (%s ago)\n", st.LastFetch.Local().Format("2006-01-02 15:04:05"), age)
	} else {
		b.WriteString("Last fetch:  never\n")
	}
	if st.Error != "" {
		fmt.Fprintf(&b, "Last error:  %s\n", st.Error)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// priceText joins the formatted price with its period label.
func priceText(l property.DisplayRecord) string {
	if l.PriceLabel == "" {
		return "-"
	}
	if l.Period == "" {
		return l.PriceLabel
	}
	return l.PriceLabel + " " + l.Period
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
