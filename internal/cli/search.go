package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HansLove/HouzeMaster-front/internal/property"
)

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Search listings by text",
		Long:  "Case-insensitive search over the title, description, location and tags of every published listing. An empty query lists them all.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))

			b, err := openBackend()
			if err != nil {
				return err
			}
			defer closeBackend(b)

			resp, err := b.Search(cmd.Context(), query)
			if err != nil {
				return err
			}
			return printListings(cmd.OutOrStdout(), resp)
		},
	}
}

func newFilterCmd() *cobra.Command {
	var (
		c                  property.Criteria
		minPrice, maxPrice float64
		minBeds, maxBeds   int
	)

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Filter listings by attributes",
		Long:  "Filter every published listing by type, operation, price range, bedrooms, city or featured flag. Unset flags do not filter.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("min-price") {
				if minPrice < 0 {
					return fmt.Errorf("--min-price must not be negative")
				}
				c.MinPrice = &minPrice
			}
			if flags.Changed("max-price") {
				if maxPrice < 0 {
					return fmt.Errorf("--max-price must not be negative")
				}
				c.MaxPrice = &maxPrice
			}
			if flags.Changed("min-beds") {
				if minBeds < 0 {
					return fmt.Errorf("--min-beds must not be negative")
				}
				c.MinBedrooms = &minBeds
			}
			if flags.Changed("max-beds") {
				if maxBeds < 0 {
					return fmt.Errorf("--max-beds must not be negative")
				}
				c.MaxBedrooms = &maxBeds
			}

			b, err := openBackend()
			if err != nil {
				return err
			}
			defer closeBackend(b)

			resp, err := b.Filter(cmd.Context(), c)
			if err != nil {
				return err
			}
			return printListings(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVar(&c.PropertyType, "type", "", "property type (e.g. casa, departamento)")
	cmd.Flags().StringVar(&c.OperationType, "operation", "", "operation type (sale|rent)")
	cmd.Flags().StringVar(&c.City, "city", "", "city")
	cmd.Flags().Float64Var(&minPrice, "min-price", 0, "minimum price")
	cmd.Flags().Float64Var(&maxPrice, "max-price", 0, "maximum price")
	cmd.Flags().IntVar(&minBeds, "min-beds", 0, "minimum bedrooms")
	cmd.Flags().IntVar(&maxBeds, "max-beds", 0, "maximum bedrooms")
	cmd.Flags().BoolVar(&c.FeaturedOnly, "featured", false, "featured listings only")

	return cmd
}
