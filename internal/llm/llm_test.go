// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsafe/internal/document"
	"docsafe/internal/resilience"
)

func TestParseLabel(t *testing.T) {
	cases := []struct {
		response string
		want     document.StyleLabel
	}{
		{"Heading 2", document.Heading2},
		{"  \"List Paragraph\".  ", document.ListParagraph},
		{"The best fit is Body Text, not Heading 3.", document.BodyText},
		{"HEADING 4", document.Heading4},
		{"Style: Normal", document.Normal},
	}
	for _, tc := range cases {
		t.Run(tc.response, func(t *testing.T) {
			got, err := ParseLabel(tc.response)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ParseLabel("I am not sure.")
	require.Error(t, err)
	assert.True(t, resilience.IsRetryable(err))
}

func TestParseDecision(t *testing.T) {
	d, err := ParseDecision("FILTER")
	require.NoError(t, err)
	assert.Equal(t, Exclude, d)

	d, err = ParseDecision("include")
	require.NoError(t, err)
	assert.Equal(t, Include, d)

	d, err = ParseDecision("maybe?")
	assert.Error(t, err)
	assert.Equal(t, Include, d, "unparseable answers default to include")
}

func TestPrompts_Truncate(t *testing.T) {
	long := strings.Repeat("x", 2000)

	p := ClassifyPrompt(long, long)
	assert.Contains(t, p, strings.Repeat("x", ClassifyTextLimit))
	assert.NotContains(t, p, strings.Repeat("x", ClassifyTextLimit+1))

	f := FilterPrompt(long)
	assert.Contains(t, f, strings.Repeat("x", FilterTextLimit))
	assert.NotContains(t, f, strings.Repeat("x", FilterTextLimit+1))

	assert.Equal(t, "héll", Truncate("héllo", 4))
}

type fakeGenerator struct {
	req      *api.GenerateRequest
	response string
	err      error
}

func (f *fakeGenerator) Generate(ctx context.Context, req *api.GenerateRequest, fn api.GenerateResponseFunc) error {
	f.req = req
	if f.err != nil {
		return f.err
	}
	return fn(api.GenerateResponse{Response: f.response, Done: true})
}

func TestOllamaBackend_Generate(t *testing.T) {
	gen := &fakeGenerator{response: "  Heading 1\n"}
	b := NewOllamaBackendWithClient(gen, Config{})

	out, err := b.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Heading 1", out)

	require.NotNil(t, gen.req.Stream)
	assert.False(t, *gen.req.Stream)
	assert.Equal(t, DefaultOllamaModel, gen.req.Model)
	assert.Equal(t, 0.1, gen.req.Options["temperature"])
	assert.Equal(t, "ollama:"+DefaultOllamaModel, b.Name())
}

func TestOllamaBackend_StatusError(t *testing.T) {
	gen := &fakeGenerator{err: api.StatusError{StatusCode: 503, ErrorMessage: "loading model"}}
	b := NewOllamaBackendWithClient(gen, Config{Model: "llama3"})

	_, err := b.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.True(t, resilience.IsRetryable(err))
}

type fakeMessager struct {
	params anthropic.MessageNewParams
	text   string
	err    error
}

func (f *fakeMessager) New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.Message{Content: []anthropic.ContentBlockUnion{{Type: "text", Text: f.text}}}, nil
}

func TestAnthropicBackend_Generate(t *testing.T) {
	m := &fakeMessager{text: "List Paragraph"}
	b := NewAnthropicBackend(m, Config{})

	out, err := b.Generate(context.Background(), "classify me")
	require.NoError(t, err)
	assert.Equal(t, "List Paragraph", out)
	assert.Equal(t, anthropic.Model(DefaultAnthropicModel), m.params.Model)
	assert.Equal(t, int64(32), m.params.MaxTokens)
	require.Len(t, m.params.Messages, 1)
}

func TestAnthropicBackend_Error(t *testing.T) {
	m := &fakeMessager{err: errors.New("429 Too Many Requests")}
	b := NewAnthropicBackend(m, Config{Model: "claude-test"})

	_, err := b.Generate(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, resilience.IsRetryable(err))
	assert.Equal(t, "anthropic:claude-test", b.Name())
}

func TestNew(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := New(Config{Provider: ProviderAnthropic})
	assert.Error(t, err)

	orig := newAnthropicClient
	defer func() { newAnthropicClient = orig }()
	newAnthropicClient = func(string) AnthropicMessager { return &fakeMessager{} }

	b, err := New(Config{Provider: ProviderAnthropic, APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &AnthropicBackend{}, b)

	b, err = New(Config{Provider: "ollama", Host: "http://127.0.0.1:11434"})
	require.NoError(t, err)
	assert.IsType(t, &OllamaBackend{}, b)

	_, err = New(Config{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}
