package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}
	ctx := newCommandContext(opts)

	rootCmd := &cobra.Command{
		Use:           "exmatch",
		Short:         "Resolve free-text exercise names to catalog entries",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.catalog, "catalog", "", "Catalog JSON file, SQLite database or http(s) URL (default $CATALOG_SOURCE)")
	flags.StringVar(&opts.assetBaseURL, "asset-base-url", "", "Base URL joined with image filenames (default $ASSET_BASE_URL)")
	flags.DurationVar(&opts.fetchTimeout, "fetch-timeout", defaultFetchTimeout, "Timeout for remote catalog fetches")
	flags.BoolVar(&opts.json, "json", false, "Write JSON instead of tables")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log catalog loading and diagnostics")

	rootCmd.AddCommand(newResolveCommand(ctx))
	rootCmd.AddCommand(newBatchCommand(ctx))
	rootCmd.AddCommand(newCatalogCommand(ctx))

	return rootCmd
}
