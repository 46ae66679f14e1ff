package main

import (
	"context"

	"github.com/spf13/cobra"

	mcpserver "rsoxsplan/internal/mcp"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		Long: `Starts an MCP server over stdin/stdout with the tools build_energies,
assign_exposures, nexafs_params, list_presets and dry_run.

The server exits when its parent process goes away.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			mcpserver.WatchParent(ctx, cancel)
			return mcpserver.NewServer(opts.catalog, version).Run(ctx)
		},
	}
}
