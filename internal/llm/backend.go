// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package llm holds the remote text-classification backends. A backend turns
// a prompt into a short answer; prompt construction and answer parsing are
// shared by all backends.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Backend generates a completion for a prompt. Implementations must honour
// ctx cancellation and deadlines.
type Backend interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Provider names
const (
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

// Config selects and configures a backend
type Config struct {
	Provider    string
	Host        string // ollama only
	Model       string
	APIKey      string // anthropic only; falls back to ANTHROPIC_API_KEY
	Temperature float64
	MaxTokens   int64
}

// New builds the backend named by cfg.Provider
func New(cfg Config) (Backend, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOllama, "":
		return NewOllamaBackend(cfg)
	case ProviderAnthropic:
		key := strings.TrimSpace(cfg.APIKey)
		if key == "" {
			key = strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
		}
		if key == "" {
			return nil, fmt.Errorf("anthropic backend: ANTHROPIC_API_KEY not configured")
		}
		return NewAnthropicBackend(newAnthropicClient(key), cfg), nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}
