// Package assist is the prompt-and-parse layer over the LLM provider: it
// summarizes threads, drafts replies, and extracts entities for the
// knowledge base. All responses feed the usage meter.
package assist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/sift/internal/kb"
	"github.com/linnemanlabs/sift/internal/llm"
	"github.com/linnemanlabs/sift/internal/usage"
)

// ErrParse means the model output was not the expected structured shape.
// The extraction is discarded wholesale; nothing is partially merged.
var ErrParse = errors.New("assist: model output is not the expected shape")

const (
	summaryMaxTokens = 1024
	replyMaxTokens   = 2048
	extractMaxTokens = 1024
)

// Summary is a condensed view of one email plus its action items.
type Summary struct {
	Summary string   `json:"summary"`
	Tasks   []string `json:"tasks"`
}

// Reply is a drafted response plus what it cost to produce.
type Reply struct {
	Text   string
	Tokens int
	Cost   float64
}

// Service orchestrates completions against the provider.
type Service struct {
	provider llm.Provider
	meter    *usage.Meter
	logger   log.Logger
}

// NewService creates an assist service.
func NewService(provider llm.Provider, meter *usage.Meter, logger log.Logger) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{provider: provider, meter: meter, logger: logger}
}

// Summarize condenses one email into a short summary and a task list.
// A moderation refusal yields the placeholder summary with no tasks,
// reported as success.
func (s *Service) Summarize(ctx context.Context, subject, body string) (*Summary, error) {
	resp, err := s.provider.Complete(ctx, &llm.Request{
		System:    summarizeSystemPrompt,
		Prompt:    buildSummarizePrompt(subject, body),
		MaxTokens: summaryMaxTokens,
	})
	if err != nil {
		if errors.Is(err, llm.ErrSafetyRejected) {
			s.logger.Warn(ctx, "summary flagged by moderation, substituting placeholder")
			return &Summary{Summary: llm.PlaceholderText}, nil
		}
		return nil, err
	}
	s.record(resp)

	var out Summary
	if err := json.Unmarshal(extractJSON(resp.Text), &out); err != nil {
		return nil, fmt.Errorf("parse summary: %w", ErrParse)
	}
	if out.Summary == "" {
		return nil, fmt.Errorf("summary missing from model output: %w", ErrParse)
	}
	return &out, nil
}

// DraftReply produces a reply draft for a thread from its subject,
// participants, and recent message bodies. A moderation refusal substitutes
// the placeholder text and is reported as success.
func (s *Service) DraftReply(ctx context.Context, threadSubject string, participants, messages []string) (*Reply, error) {
	resp, err := s.provider.Complete(ctx, &llm.Request{
		System:      replySystemPrompt,
		Prompt:      buildReplyPrompt(threadSubject, participants, messages),
		MaxTokens:   replyMaxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		if errors.Is(err, llm.ErrSafetyRejected) {
			s.logger.Warn(ctx, "reply flagged by moderation, substituting placeholder")
			return &Reply{Text: llm.PlaceholderText}, nil
		}
		return nil, err
	}
	cost := s.record(resp)

	return &Reply{
		Text:   strings.TrimSpace(resp.Text),
		Tokens: resp.PromptTokens + resp.CompletionTokens,
		Cost:   cost,
	}, nil
}

// RefineDraft rewrites an existing draft body following a free-text
// instruction, returning the complete improved text.
func (s *Service) RefineDraft(ctx context.Context, body, instruction string) (string, error) {
	resp, err := s.provider.Complete(ctx, &llm.Request{
		System:      refineSystemPrompt,
		Prompt:      buildRefinePrompt(body, instruction),
		MaxTokens:   replyMaxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		if errors.Is(err, llm.ErrSafetyRejected) {
			s.logger.Warn(ctx, "refinement flagged by moderation, substituting placeholder")
			return llm.PlaceholderText, nil
		}
		return "", err
	}
	s.record(resp)
	return strings.TrimSpace(resp.Text), nil
}

// ExtractEntities pulls people and projects out of one email. Output must
// be strict JSON; anything else is ErrParse and the whole extraction is
// discarded.
func (s *Service) ExtractEntities(ctx context.Context, subject, body string) (*kb.Batch, error) {
	resp, err := s.provider.Complete(ctx, &llm.Request{
		System:    extractSystemPrompt,
		Prompt:    buildExtractPrompt(subject, body),
		MaxTokens: extractMaxTokens,
	})
	if err != nil {
		return nil, err
	}
	s.record(resp)

	var batch kb.Batch
	if err := json.Unmarshal(extractJSON(resp.Text), &batch); err != nil {
		return nil, fmt.Errorf("parse extraction: %w", ErrParse)
	}
	return &batch, nil
}

func (s *Service) record(resp *llm.Response) float64 {
	if s.meter == nil {
		return 0
	}
	return s.meter.Record(s.provider.Model(), resp.PromptTokens, resp.CompletionTokens)
}

// extractJSON strips the markdown code fence models like to wrap JSON in.
func extractJSON(text string) []byte {
	text = strings.TrimSpace(text)
	if after, ok := strings.CutPrefix(text, "```json"); ok {
		text = after
	} else if after, ok := strings.CutPrefix(text, "```"); ok {
		text = after
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return []byte(strings.TrimSpace(text))
}
