// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// Ollama defaults
const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "gemma3:27b-it-qat"
)

// OllamaGenerator is the part of the ollama client the backend uses
type OllamaGenerator interface {
	Generate(ctx context.Context, req *api.GenerateRequest, fn api.GenerateResponseFunc) error
}

// OllamaBackend calls a local ollama server with low-temperature sampling
type OllamaBackend struct {
	client  OllamaGenerator
	model   string
	options map[string]any
}

// NewOllamaBackend connects to cfg.Host, or OLLAMA_HOST when Host is empty
func NewOllamaBackend(cfg Config) (*OllamaBackend, error) {
	var client *api.Client
	if cfg.Host == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama client: %w", err)
		}
		client = c
	} else {
		base, err := url.Parse(cfg.Host)
		if err != nil {
			return nil, fmt.Errorf("ollama host %q: %w", cfg.Host, err)
		}
		client = api.NewClient(base, http.DefaultClient)
	}
	return NewOllamaBackendWithClient(client, cfg), nil
}

// NewOllamaBackendWithClient wraps an existing generator
func NewOllamaBackendWithClient(client OllamaGenerator, cfg Config) *OllamaBackend {
	model := cfg.Model
	if model == "" {
		model = DefaultOllamaModel
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.1
	}
	return &OllamaBackend{
		client: client,
		model:  model,
		options: map[string]any{
			"temperature": temperature,
			"top_k":       10,
			"top_p":       0.3,
		},
	}
}

func (o *OllamaBackend) Name() string { return "ollama:" + o.model }

// Generate sends a single non-streaming generate request
func (o *OllamaBackend) Generate(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:   o.model,
		Prompt:  prompt,
		Stream:  &stream,
		Options: o.options,
	}

	var sb strings.Builder
	err := o.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		var status api.StatusError
		if errors.As(err, &status) {
			return "", fmt.Errorf("ollama generate: status %d: %w", status.StatusCode, err)
		}
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return strings.TrimSpace(sb.String()), nil
}
