package commands

import (
	"github.com/spf13/cobra"

	"github.com/umbrella-scan/umbrella"
	"github.com/umbrella-scan/umbrella/internal/mcpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the check tools over MCP on stdio",
	Long: `Runs a Model Context Protocol server on stdin/stdout exposing
check_virus_from_file, check_virus_from_files, scan_files and
list_signatures. Logs go to stderr and the --log-file, never stdout.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	opts, err := baseOptions()
	if err != nil {
		return err
	}

	ctx, cancel := contextWithInterrupt()
	defer cancel()

	srv := mcpserver.NewServer(umbrella.New(opts...), Version, logger, opts...)
	logger.Info("serving MCP on stdio", "version", Version)
	return srv.Run(ctx)
}
