package cmd

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "storegraph",
	Short: "GraphQL product-filter aggregation service",
	Long: `storegraph serves a GraphQL product-query API over a read-only
relational product catalog, computing server-side filter aggregations
(price ranges, attribute term counts, numeric attribute ranges, brand
counts) scoped to the active filters of each query.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
