package main

import (
	"github.com/spf13/cobra"
)

// rootOptions holds the flags every subcommand shares.
type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "snippetctl",
		Short: "Query the snippet store from the command line",
		Long: `snippetctl talks to the same database as the snippet-oracle server.

Configuration comes from --config (or CONFIG_FILE) and environment variables
such as DB_DRIVER, DB_PATH and DB_DSN, exactly as for the server.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"config file (yaml, toml or json); defaults to $CONFIG_FILE")

	cmd.AddCommand(newSearchCmd(opts))
	return cmd
}
