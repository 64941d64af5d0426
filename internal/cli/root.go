// Package cli defines the cobra command tree for hm.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	flagFormat  string
	flagDB      string
	flagConfig  string
	flagEnvFile string
	flagLocale  string
	flagServer  string
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hm",
		Short:         "Browse real estate listings published from a spreadsheet",
		Long:          "Fetch the listings sheet, cache it locally, and browse, search or filter it from the terminal or through the JSON API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite cache path (default: ~/.houzemaster/cache.db)")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ~/.config/houzemaster/config.yaml)")
	root.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "dotenv file to load (default: .env)")
	root.PersistentFlags().StringVar(&flagLocale, "locale", "", "display locale (es|en)")
	root.PersistentFlags().StringVar(&flagServer, "server", "", "hm server URL; when set, commands query it instead of the sheet")

	root.AddCommand(
		newListingsCmd(),
		newRefreshCmd(),
		newSearchCmd(),
		newFilterCmd(),
		newShowCmd(),
		newStatusCmd(),
		newServeCmd(),
		newVersionCmd(),
	)

	return root
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}
