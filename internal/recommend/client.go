package recommend

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/asrtune/asrtune/internal/transcript"
)

const (
	// Kept low so parameter numbers stay reproducible across runs.
	completionTemperature = 0.2
	completionMaxTokens   = 800
)

// Completer is the interface for a hosted text-completion model.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Client turns processed conversation data into a timing recommendation by
// prompting a hosted LLM and parsing the structured result out of its output.
type Client struct {
	completer Completer
}

// NewClient creates a Client on top of the given completer.
func NewClient(c Completer) *Client {
	return &Client{completer: c}
}

// Recommend submits the conversations for analysis and returns the parsed
// recommendation. Parse failures carry the raw model output for diagnosis.
func (c *Client) Recommend(ctx context.Context, data transcript.ProcessedData) (*Recommendation, error) {
	raw, err := c.completer.Complete(ctx, systemPrompt, BuildPrompt(data))
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}
	return ParseRecommendation(raw)
}

// OpenAICompleter satisfies Completer using the OpenAI chat completions API.
type OpenAICompleter struct {
	client openai.Client
	model  string
}

// NewOpenAICompleter creates a completer with the given server-held API key
// and model identifier.
func NewOpenAICompleter(apiKey, model string) *OpenAICompleter {
	return &OpenAICompleter{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// NewOpenAICompleterWithBaseURL points the completer at a custom endpoint (for testing).
func NewOpenAICompleterWithBaseURL(apiKey, model, baseURL string) *OpenAICompleter {
	return &OpenAICompleter{
		client: openai.NewClient(option.WithAPIKey(apiKey), option.WithBaseURL(baseURL)),
		model:  model,
	}
}

func (o *OpenAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(completionTemperature),
		MaxTokens:   openai.Int(completionMaxTokens),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty choices in completion response")
	}
	return resp.Choices[0].Message.Content, nil
}
