// Package claude implements llm.Provider on the Anthropic SDK.
package claude

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/sift/internal/llm"
)

const defaultMaxTokens = 1024

// Client is an llm.Provider backed by the Claude messages API.
type Client struct {
	apiKey string
	model  string
	sdk    anthropic.Client
}

// New creates a new Claude client. An empty apiKey is permitted at
// construction; Complete reports llm.ErrNoCredential per call so the caller
// can surface a configuration error for the one operation that needed it.
func New(apiKey, model string) *Client {
	return &Client{
		apiKey: apiKey,
		model:  model,
		sdk:    anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Complete sends one completion request and returns the text plus token
// usage. Moderation refusals map to llm.ErrSafetyRejected; transport and
// API failures map to llm.ErrProvider.
func (c *Client) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if c.apiKey == "" {
		return nil, llm.ErrNoCredential
	}

	msg, err := c.sdk.Messages.New(ctx, toSDKParams(c.model, req))
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("claude api status %d: %w", apiErr.StatusCode, llm.ErrProvider)
		}
		return nil, fmt.Errorf("claude request failed: %w", llm.ErrProvider)
	}

	if msg.StopReason == anthropic.StopReasonRefusal {
		return nil, llm.ErrSafetyRejected
	}

	return fromSDKResponse(msg), nil
}

// toSDKParams converts a domain request into SDK message params.
func toSDKParams(model string, req *llm.Request) anthropic.MessageNewParams {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	return params
}

// fromSDKResponse flattens the SDK message into a domain response,
// concatenating text blocks.
func fromSDKResponse(msg *anthropic.Message) *llm.Response {
	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return &llm.Response{
		Text:             text,
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
	}
}
