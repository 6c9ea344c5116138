package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cruciblelabs/crucible/internal/config"
)

var execCmd = &cobra.Command{
	Use:   "exec <file>",
	Short: "Run one source file through the local sandbox",
	Long: `Execute a source file with the same policy, timeout, and capture
behavior the server applies, without starting the server.

Examples:
  crucible exec program.qtm`,
	Args: cobra.ExactArgs(1),
	RunE: runExec,
}

func init() {
	rootCmd.AddCommand(execCmd)
}

func runExec(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return fmt.Errorf("initializing sandbox: %w", err)
	}

	src, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	res, err := engine.Run(context.Background(), string(src))
	if err != nil {
		return err
	}

	fmt.Fprint(os.Stdout, res.Stdout)
	fmt.Fprint(os.Stderr, res.Stderr)

	if res.Killed {
		fmt.Fprintf(os.Stderr, "killed: exceeded the %s time budget\n", cfg.Timeout())
		os.Exit(1)
	}
	if res.ExitCode != nil && *res.ExitCode != 0 {
		os.Exit(*res.ExitCode)
	}
	return nil
}
