package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/cruciblelabs/crucible/internal/config"
	"github.com/cruciblelabs/crucible/internal/sandbox"
)

// engine is initialized once at startup from the same configuration the
// HTTP server uses, so tool calls run under the identical policy and
// time budget.
var engine *sandbox.Runner

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("config error: %v\n", err)
		return
	}

	policy := sandbox.DefaultPolicy()
	if cfg.Sandbox.PolicyFile != "" {
		policy, err = sandbox.LoadPolicy(cfg.Sandbox.PolicyFile)
		if err != nil {
			fmt.Printf("policy error: %v\n", err)
			return
		}
	}

	ws, err := sandbox.NewWorkspace(cfg.Sandbox.WorkspaceDir, cfg.Interpreter.SourceExt)
	if err != nil {
		fmt.Printf("workspace error: %v\n", err)
		return
	}
	engine = sandbox.NewRunner(cfg.Interpreter.Bin, policy, ws, cfg.Timeout(), cfg.Sandbox.MaxOutputBytes)

	s := server.NewMCPServer("crucible-code-runner", "0.1.0")

	s.AddTool(mcp.Tool{
		Name:        "code_run",
		Description: "Execute a code snippet in the Crucible interpreter sandbox. Effectful built-ins are disabled and execution is time-limited.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "Source code to execute",
				},
			},
			Required: []string{"code"},
		},
	}, handleCodeRun)

	if err := server.ServeStdio(s); err != nil {
		fmt.Printf("server error: %v\n", err)
	}
}

func handleCodeRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]any)
	if args == nil {
		return errResult("error: invalid arguments"), nil
	}

	code, _ := args["code"].(string)
	if code == "" {
		return errResult("error: 'code' is required"), nil
	}

	result, err := engine.Run(ctx, code)
	if err != nil {
		return errResult(fmt.Sprintf("error: %v", err)), nil
	}

	var output strings.Builder
	if result.Stdout != "" {
		output.WriteString(result.Stdout)
	}
	if result.Stderr != "" {
		if output.Len() > 0 {
			output.WriteString("\n")
		}
		output.WriteString("STDERR:\n" + result.Stderr)
	}
	switch {
	case result.Killed:
		output.WriteString("\nkilled: time budget exceeded")
	case result.ExitCode != nil && *result.ExitCode != 0:
		output.WriteString(fmt.Sprintf("\nexit code: %d", *result.ExitCode))
	}

	text := output.String()
	if len(text) > 4000 {
		text = text[:4000] + "\n... (output truncated)"
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: result.Killed || (result.ExitCode != nil && *result.ExitCode != 0),
	}, nil
}

func errResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: true,
	}
}
