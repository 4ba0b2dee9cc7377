// mirror-runner is an MCP stdio tool server exposing mirrored execution
// to agents: submit code or a command plus a deployment name, get the
// captured stdout back.
package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/michaelbrown/podmirror/internal/config"
	"github.com/michaelbrown/podmirror/internal/orchestrator"
	"github.com/michaelbrown/podmirror/internal/runner"
)

var languageTools = map[string]struct {
	language    string
	description string
}{
	"run_rust": {
		language:    "rust",
		description: "Run Rust code against a Kubernetes service using mirrord to mirror traffic. Use only reqwest::blocking::get, serde::Deserialize, serde_json, and anyhow::Result; the compiled binary runs against the cluster.",
	},
	"run_node": {
		language:    "node",
		description: "Run a JavaScript script against a Kubernetes service using mirrord to mirror traffic. Use only axios for HTTP requests and JSON.parse for deserialization.",
	},
	"run_python": {
		language:    "python",
		description: "Run Python code against a Kubernetes service using mirrord to mirror traffic. Use only requests for HTTP and json for deserialization.",
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("config error: %v\n", err)
		return
	}
	orch := buildOrchestrator(cfg)

	s := server.NewMCPServer("podmirror-mirror-runner", "0.1.0")

	for name, tool := range languageTools {
		s.AddTool(mcp.Tool{
			Name:        name,
			Description: tool.description,
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"code": map[string]any{
						"type":        "string",
						"description": "Complete source code to run against the cluster",
					},
					"deployment": map[string]any{
						"type":        "string",
						"description": "Kubernetes deployment name",
					},
					"namespace": map[string]any{
						"type":        "string",
						"description": "Kubernetes namespace (optional)",
					},
					"mirrord_config": map[string]any{
						"type":        "string",
						"description": `Mirrord config in JSON format, e.g. '{"feature":{"network":{"incoming":{"mode":"mirror","ports":[8888]}}}}'`,
					},
				},
				Required: []string{"code", "deployment"},
			},
		}, runHandler(cfg, orch, tool.language, "code"))
	}

	s.AddTool(mcp.Tool{
		Name:        "run_command",
		Description: "Run an arbitrary command line against a Kubernetes service using mirrord to mirror traffic. Quoting is respected; no shell expansion.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"command": map[string]any{
					"type":        "string",
					"description": "The command line to execute",
				},
				"deployment": map[string]any{
					"type":        "string",
					"description": "Kubernetes deployment name",
				},
				"namespace": map[string]any{
					"type":        "string",
					"description": "Kubernetes namespace (optional)",
				},
				"mirrord_config": map[string]any{
					"type":        "string",
					"description": "Mirrord config in JSON format (optional)",
				},
			},
			Required: []string{"command", "deployment"},
		},
	}, runHandler(cfg, orch, "", "command"))

	if err := server.ServeStdio(s); err != nil {
		fmt.Printf("server error: %v\n", err)
	}
}

// runHandler builds the tool handler for one language (or the raw command
// tool when language is empty).
func runHandler(cfg *config.Config, orch *orchestrator.Orchestrator, language, sourceKey string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]any)
		if args == nil {
			return errorResult("invalid arguments"), nil
		}

		source, ok := args[sourceKey].(string)
		if !ok || source == "" {
			return errorResult(fmt.Sprintf("%q argument must be a non-empty string", sourceKey)), nil
		}
		deployment, ok := args["deployment"].(string)
		if !ok || deployment == "" {
			return errorResult(`"deployment" argument must be a non-empty string`), nil
		}
		namespace, _ := args["namespace"].(string)
		mirrordCfg, _ := args["mirrord_config"].(string)
		if mirrordCfg == "" {
			mirrordCfg = "{}"
		}

		var rn runner.Runnable
		if language == "" {
			rn = runner.NewCommand(source)
		} else {
			var err error
			rn, err = runner.New(language, source, cfg.RunnerToolchain())
			if err != nil {
				return errorResult(err.Error()), nil
			}
		}

		result, err := orch.Run(ctx, orchestrator.Request{
			Runnable:      rn,
			Deployment:    deployment,
			Namespace:     namespace,
			MirrordConfig: []byte(mirrordCfg),
		})
		if err != nil {
			return errorResult(err.Error()), nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.TextContent{Type: "text", Text: result.Stdout}},
		}, nil
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "error: " + msg}},
		IsError: true,
	}
}
