package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cruciblelabs/crucible/internal/config"
	"github.com/cruciblelabs/crucible/internal/sandbox"
	"github.com/cruciblelabs/crucible/internal/server"
	"github.com/cruciblelabs/crucible/internal/storage"
	"github.com/cruciblelabs/crucible/internal/storage/sqlite"
)

var portFlag int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the execution sandbox server",
	Long: `Start the HTTP server exposing POST /execute and the streaming
WebSocket endpoint.

Examples:
  crucible serve
  crucible serve --port 9090`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

// newEngine assembles the sandbox engine from configuration. The policy
// and timeout are fixed here, once, and never touched by request data.
func newEngine(cfg *config.Config) (*sandbox.Runner, error) {
	policy := sandbox.DefaultPolicy()
	if cfg.Sandbox.PolicyFile != "" {
		var err error
		policy, err = sandbox.LoadPolicy(cfg.Sandbox.PolicyFile)
		if err != nil {
			return nil, err
		}
	}

	ws, err := sandbox.NewWorkspace(cfg.Sandbox.WorkspaceDir, cfg.Interpreter.SourceExt)
	if err != nil {
		return nil, err
	}

	return sandbox.NewRunner(cfg.Interpreter.Bin, policy, ws, cfg.Timeout(), cfg.Sandbox.MaxOutputBytes), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if portFlag > 0 {
		cfg.Server.Port = portFlag
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return fmt.Errorf("initializing sandbox: %w", err)
	}

	// Execution history is optional.
	var store storage.Store = storage.NopStore{}
	if cfg.Storage.DBPath != "" {
		store, err = sqlite.Open(cfg.Storage.DBPath)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
	}
	defer store.Close()

	srv := server.New(cfg, engine, store)

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		srv.Shutdown(context.Background())
	}()

	if err := srv.Start(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
