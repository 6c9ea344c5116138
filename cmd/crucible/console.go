package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

var urlFlag string

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive console against a running server",
	Long: `Type a snippet, finish it with a blank line, and it is sent to the
server's /execute endpoint. Output and exit status are printed back.

Examples:
  crucible console
  crucible console --url http://127.0.0.1:9090`,
	RunE: runConsole,
}

func init() {
	consoleCmd.Flags().StringVar(&urlFlag, "url", "http://127.0.0.1:8080", "Server base URL")
	rootCmd.AddCommand(consoleCmd)
}

type consoleResponse struct {
	ExitCode *int   `json:"exitCode"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

func runConsole(cmd *cobra.Command, args []string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[36m>\033[0m ",
		HistoryFile:     "/tmp/crucible_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	client := &http.Client{Timeout: 30 * time.Second}

	fmt.Println("Blank line submits. Ctrl+D exits.")

	var lines []string
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			lines = lines[:0]
			continue
		}
		if err == io.EOF {
			return nil
		}

		if line != "" {
			lines = append(lines, line)
			rl.SetPrompt("\033[36m…\033[0m ")
			continue
		}
		rl.SetPrompt("\033[36m>\033[0m ")

		if len(lines) == 0 {
			continue
		}
		code := strings.Join(lines, "\n")
		lines = lines[:0]

		res, err := submit(client, urlFlag, code)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}

		if res.Stdout != "" {
			fmt.Print(res.Stdout)
		}
		if res.Stderr != "" {
			fmt.Printf("\033[31m%s\033[0m", res.Stderr)
		}
		switch {
		case res.ExitCode == nil:
			fmt.Println("(killed: time budget exceeded)")
		case *res.ExitCode != 0:
			fmt.Printf("(exit %d)\n", *res.ExitCode)
		}
	}
}

func submit(client *http.Client, baseURL, code string) (*consoleResponse, error) {
	body, err := json.Marshal(map[string]string{"code": code})
	if err != nil {
		return nil, err
	}

	resp, err := client.Post(strings.TrimRight(baseURL, "/")+"/execute", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	var res consoleResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &res, nil
}
