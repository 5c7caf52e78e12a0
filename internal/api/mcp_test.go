package api

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/asrtune/asrtune/internal/optimizer"
	"github.com/asrtune/asrtune/internal/storage"
)

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func TestMCPTool_Optimize(t *testing.T) {
	store := &fakeJobStore{jobs: map[string]storage.Job{}}
	pipeline := &fakePipeline{started: make(chan optimizer.Params, 1)}
	handler := mcpOptimize(Deps{Store: store, Pipeline: pipeline, OpenAIKeySet: true})

	req := makeCallToolRequest("optimize_transcripts", map[string]interface{}{
		"projectID": "proj1",
		"userID":    "1234567890",
		"apiKey":    "VF.key",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	if len(store.seeded) != 1 || store.seeded[0].UserID != "+1234567890" {
		t.Fatalf("seeded = %+v, want one record for normalized user", store.seeded)
	}

	select {
	case params := <-pipeline.started:
		if !params.SplitByLaunch {
			t.Errorf("SplitByLaunch should default to true")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline was never started")
	}
}

func TestMCPTool_OptimizeMissingArgs(t *testing.T) {
	handler := mcpOptimize(Deps{OpenAIKeySet: true})

	req := makeCallToolRequest("optimize_transcripts", map[string]interface{}{
		"projectID": "proj1",
	})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("missing userID should produce a tool error")
	}
}

func TestMCPTool_GetResults(t *testing.T) {
	store := &fakeJobStore{jobs: map[string]storage.Job{
		"+123": {
			UserID: "+123", ProjectID: "p", RunID: "run-1",
			Status: storage.StatusCompleted,
			Result: `{"analysis":"ok","silence_wait":500,"utterance_end":1500,"punctuation_wait":1000,"no_punctuation_wait":5000}`,
			CreatedAt: time.Now().UTC(),
		},
	}}
	handler := mcpGetResults(Deps{Store: store})

	result, err := handler(context.Background(), makeCallToolRequest("get_results", map[string]interface{}{
		"userID": "123",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var resp JobResponse
	if err := json.Unmarshal([]byte(toolText(t, result)), &resp); err != nil {
		t.Fatalf("decoding tool output: %v", err)
	}
	if resp.Status != storage.StatusCompleted {
		t.Errorf("status = %q", resp.Status)
	}
}

func TestMCPTool_GetResultsNotFound(t *testing.T) {
	store := &fakeJobStore{jobs: map[string]storage.Job{}}
	handler := mcpGetResults(Deps{Store: store})

	result, err := handler(context.Background(), makeCallToolRequest("get_results", map[string]interface{}{
		"userID": "19998887777",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("unknown user should produce a tool error")
	}
	if toolText(t, result) != "No results found" {
		t.Errorf("text = %q", toolText(t, result))
	}
}
