package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/contextlab/recall/internal/logging"
	"github.com/contextlab/recall/internal/mcp"
)

// serveOptions holds CLI flags for serve.
type serveOptions struct {
	transport string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long: `Start the MCP server exposing the personal_context, invalidate_memory,
and memory_status tools. The stdio transport speaks JSON-RPC on
stdin/stdout, so all diagnostics go to the log file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", "", "Server transport (default from config: stdio)")

	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	// stdout belongs to the JSON-RPC stream. Nothing below may print to it.
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	transport := cfg.Server.Transport
	if opts.transport != "" {
		transport = opts.transport
	}

	if !debugMode {
		if cleanup, err := logging.ForServer(cfg.Server.LogLevel); err == nil {
			defer cleanup()
		}
	}

	eng, store, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	defer eng.Close()

	srv, err := mcp.NewServer(eng, slog.Default())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("mcp_server_starting", slog.String("transport", transport))
	return srv.Serve(ctx, transport)
}
