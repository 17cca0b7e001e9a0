package validator

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// ProbePrompt is the fixed message sent to every model
	ProbePrompt = "Say 'OK' if you can read this."
	// ProbeMaxTokens caps the reply length
	ProbeMaxTokens = 10
)

var errNoChoices = errors.New("model returned no choices")

// ChatProber probes models through the OpenAI-compatible chat completions endpoint
type ChatProber struct {
	client openai.Client
}

// NewChatProber creates a prober for baseURL. Retries are disabled so one failure is final.
func NewChatProber(baseURL, apiKey string, httpClient *http.Client) *ChatProber {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &ChatProber{client: openai.NewClient(opts...)}
}

// Probe sends the fixed probe prompt and returns the reply text, which may be empty
func (p *ChatProber) Probe(ctx context.Context, modelID string) (string, error) {
	response, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: modelID,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(ProbePrompt),
		},
		MaxTokens: openai.Int(ProbeMaxTokens),
	})
	if err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", errNoChoices
	}
	return response.Choices[0].Message.Content, nil
}
