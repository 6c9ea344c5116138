package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "crucible",
	Short: "Crucible - sandboxed code execution service",
	Long: `Crucible runs untrusted source text in an isolated interpreter process
under a hard time budget and a fixed capability restriction list.

It serves the playground's POST /execute endpoint, streams live output
over WebSocket, and keeps an optional execution history.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
