package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/asrtune/asrtune/internal/optimizer"
	"github.com/asrtune/asrtune/internal/storage"
)

// NewMCPServer creates an MCP server exposing the optimization operations as
// tools, so agent clients can trigger runs and poll results without going
// through the HTTP API.
func NewMCPServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"asrtune",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("asrtune: ASR endpointing parameter tuning from conversation transcripts."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("optimize_transcripts",
			mcp.WithDescription("Start an asynchronous timing-parameter optimization run for a user's recent transcripts."),
			mcp.WithString("projectID", mcp.Description("Transcript provider project ID"), mcp.Required()),
			mcp.WithString("userID", mcp.Description("External user identifier (phone number)"), mcp.Required()),
			mcp.WithString("apiKey", mcp.Description("Transcript provider API key, forwarded verbatim"), mcp.Required()),
			mcp.WithBoolean("splitByLaunch", mcp.Description("Treat launch events as conversation boundaries (default true)")),
		),
		mcpOptimize(deps),
	)

	s.AddTool(
		mcp.NewTool("get_results",
			mcp.WithDescription("Fetch the current optimization job record for a user."),
			mcp.WithString("userID", mcp.Description("External user identifier (phone number)"), mcp.Required()),
		),
		mcpGetResults(deps),
	)

	return s
}

func mcpOptimize(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projectID, err := req.RequireString("projectID")
		if err != nil {
			return mcpError("projectID is required"), nil
		}
		rawUserID, err := req.RequireString("userID")
		if err != nil {
			return mcpError("userID is required"), nil
		}
		apiKey, err := req.RequireString("apiKey")
		if err != nil {
			return mcpError("apiKey is required"), nil
		}
		if !deps.OpenAIKeySet {
			return mcpError("server is not configured with an OpenAI API key"), nil
		}

		splitByLaunch := req.GetBool("splitByLaunch", true)
		userID := NormalizeUserID(rawUserID)
		runID := uuid.New().String()

		if err := deps.Store.SeedJob(userID, projectID, runID); err != nil {
			return mcpError(fmt.Sprintf("failed to record job: %v", err)), nil
		}

		go deps.Pipeline.Run(context.Background(), optimizer.Params{
			ProjectID:     projectID,
			UserID:        userID,
			APIKey:        apiKey,
			RunID:         runID,
			SplitByLaunch: splitByLaunch,
		})

		return mcpText(fmt.Sprintf("Optimization started for %s; poll get_results", userID)), nil
	}
}

func mcpGetResults(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rawUserID, err := req.RequireString("userID")
		if err != nil {
			return mcpError("userID is required"), nil
		}

		job, err := deps.Store.GetLatestJob(NormalizeUserID(rawUserID))
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError("No results found"), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load results: %v", err)), nil
		}

		b, err := json.Marshal(JobResponse{
			UserID:    job.UserID,
			ProjectID: job.ProjectID,
			RunID:     job.RunID,
			Status:    job.Status,
			Result:    resultJSON(job.Result),
			CreatedAt: job.CreatedAt.UTC().Format(time.RFC3339),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
