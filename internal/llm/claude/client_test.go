package claude

import (
	"context"
	"errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/linnemanlabs/sift/internal/llm"
)

func TestComplete_NoCredential(t *testing.T) {
	t.Parallel()

	c := New("", "claude-sonnet-4-20250514")
	_, err := c.Complete(context.Background(), &llm.Request{Prompt: "hi"})
	if !errors.Is(err, llm.ErrNoCredential) {
		t.Fatalf("err = %v, want ErrNoCredential", err)
	}
}

func TestToSDKParams_Defaults(t *testing.T) {
	t.Parallel()

	params := toSDKParams("claude-sonnet-4-20250514", &llm.Request{Prompt: "hello"})

	if params.Model != "claude-sonnet-4-20250514" {
		t.Errorf("model = %q, want %q", params.Model, "claude-sonnet-4-20250514")
	}
	if params.MaxTokens != defaultMaxTokens {
		t.Errorf("max_tokens = %d, want %d", params.MaxTokens, defaultMaxTokens)
	}
	if len(params.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(params.Messages))
	}
	if params.Messages[0].Role != "user" {
		t.Errorf("role = %q, want user", params.Messages[0].Role)
	}
	if len(params.System) != 0 {
		t.Errorf("system = %v, want empty", params.System)
	}
}

func TestToSDKParams_SystemAndLimits(t *testing.T) {
	t.Parallel()

	params := toSDKParams("m", &llm.Request{
		System:      "be brief",
		Prompt:      "hello",
		MaxTokens:   2048,
		Temperature: 0.4,
	})

	if params.MaxTokens != 2048 {
		t.Errorf("max_tokens = %d, want 2048", params.MaxTokens)
	}
	if len(params.System) != 1 || params.System[0].Text != "be brief" {
		t.Errorf("system = %v, want one block %q", params.System, "be brief")
	}
	if !params.Temperature.Valid() || params.Temperature.Value != 0.4 {
		t.Errorf("temperature = %v, want 0.4", params.Temperature)
	}
}

func TestFromSDKResponse_ConcatenatesTextBlocks(t *testing.T) {
	t.Parallel()

	msg := &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "first "},
			{Type: "text", Text: "second"},
		},
		StopReason: anthropic.StopReasonEndTurn,
		Usage:      anthropic.Usage{InputTokens: 120, OutputTokens: 45},
	}

	resp := fromSDKResponse(msg)

	if resp.Text != "first second" {
		t.Errorf("text = %q, want %q", resp.Text, "first second")
	}
	if resp.PromptTokens != 120 {
		t.Errorf("prompt tokens = %d, want 120", resp.PromptTokens)
	}
	if resp.CompletionTokens != 45 {
		t.Errorf("completion tokens = %d, want 45", resp.CompletionTokens)
	}
}

func TestFromSDKResponse_IgnoresNonTextBlocks(t *testing.T) {
	t.Parallel()

	msg := &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "thinking"},
			{Type: "text", Text: "answer"},
		},
		StopReason: anthropic.StopReasonEndTurn,
	}

	resp := fromSDKResponse(msg)
	if resp.Text != "answer" {
		t.Errorf("text = %q, want %q", resp.Text, "answer")
	}
}
