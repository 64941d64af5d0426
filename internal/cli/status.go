package cli

import (
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show cache status",
		Long:  "Show how many listings are cached, when the sheet was last fetched and whether the cache is still fresh.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend()
			if err != nil {
				return err
			}
			defer closeBackend(b)

			st, err := b.CacheStatus(cmd.Context())
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), st)
			}
			return printCacheStatus(cmd.OutOrStdout(), st, time.Now())
		},
	}
}
