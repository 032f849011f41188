// Package llm wraps the hosted language model used for PII classification
// and comment summaries.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cvsubs74/dm-consent/pkg/logging"
	"google.golang.org/genai"
)

// ErrNotConfigured is returned when no API key was provided
var ErrNotConfigured = errors.New("language model not configured")

// DefaultModel is used when the config leaves llm.model empty
const DefaultModel = "gemini-2.0-flash"

// Completer turns a prompt into a single text reply
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Options configures the GenAI client
type Options struct {
	APIKey  string
	Model   string
	Timeout time.Duration // per call, 0 means no extra deadline
}

// GenAIClient sends prompts to Gemini through google.golang.org/genai
type GenAIClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// New creates a client. An empty API key yields ErrNotConfigured so callers
// can run without a model and degrade.
func New(ctx context.Context, opts Options) (*GenAIClient, error) {
	if opts.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	logging.Debug("language model client ready", "model", opts.Model)
	return &GenAIClient{client: client, model: opts.Model, timeout: opts.Timeout}, nil
}

// Model returns the model name requests are sent to
func (c *GenAIClient) Model() string {
	return c.model
}

// Complete sends prompt as a single user turn and returns the concatenated text parts
func (c *GenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := responseText(resp)
	logging.DebugContext(ctx, "completion received",
		"model", c.model,
		"chars", len(text),
		"durationMs", time.Since(start).Milliseconds())

	if text == "" {
		return "", fmt.Errorf("no text returned by %s", c.model)
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}

// Timed wraps c so every call reports its duration under purpose.
// A nil c stays nil so callers still see an unconfigured backend.
func Timed(c Completer, purpose string, observe func(purpose string, d time.Duration)) Completer {
	if c == nil || observe == nil {
		return c
	}
	return CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		start := time.Now()
		defer func() { observe(purpose, time.Since(start)) }()
		return c.Complete(ctx, prompt)
	})
}
