// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultAnthropicModel = string(anthropic.ModelClaudeSonnet4_20250514)

	anthropicSystemPrompt = "You label paragraphs of policy and procedure manuals. Answer with the requested word or style name only."
)

// AnthropicMessager is the part of the anthropic client the backend uses
type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// newAnthropicClient is swapped in tests
var newAnthropicClient = func(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

// AnthropicBackend calls the Anthropic messages API
type AnthropicBackend struct {
	messages    AnthropicMessager
	model       string
	maxTokens   int64
	temperature float64
}

// NewAnthropicBackend wraps a messages client
func NewAnthropicBackend(messages AnthropicMessager, cfg Config) *AnthropicBackend {
	model := cfg.Model
	if model == "" {
		model = DefaultAnthropicModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 32
	}
	return &AnthropicBackend{
		messages:    messages,
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}
}

func (a *AnthropicBackend) Name() string { return "anthropic:" + a.model }

// Generate sends one user message and returns the concatenated text blocks
func (a *AnthropicBackend) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   a.maxTokens,
		System:      []anthropic.TextBlockParam{{Text: anthropicSystemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(a.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
