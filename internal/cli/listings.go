package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/HansLove/HouzeMaster-front/internal/client"
)

func newListingsCmd() *cobra.Command {
	var all, featured bool

	cmd := &cobra.Command{
		Use:   "listings",
		Short: "List published listings",
		Long:  "List the most recent published listings, featured first. Use --all for every published listing.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend()
			if err != nil {
				return err
			}
			defer closeBackend(b)

			var query func(context.Context) (*client.ListingsResponse, error)
			switch {
			case featured:
				query = b.Featured
			case all:
				query = b.All
			default:
				query = b.Listings
			}

			resp, err := query(cmd.Context())
			if err != nil {
				return err
			}
			return printListings(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "list every published listing")
	cmd.Flags().BoolVar(&featured, "featured", false, "list featured listings only")
	cmd.MarkFlagsMutuallyExclusive("all", "featured")

	return cmd
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refetch the sheet now",
		Long:  "Discard the cached listings and fetch the sheet again, ignoring the cache TTL.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend()
			if err != nil {
				return err
			}
			defer closeBackend(b)

			resp, err := b.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			return printListings(cmd.OutOrStdout(), resp)
		},
	}
}
