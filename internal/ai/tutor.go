package ai

import (
	"context"
	"fmt"
	"log/slog"
)

const defaultMaxTokens = 1024

// TutorGateway exposes the three calls the tutoring controller makes against
// the hosted model: generate (persona + history), evaluate (single composed
// prompt) and a credential health check.
type TutorGateway struct {
	provider Provider
	persona  string
	model    string
	usage    *UsageTracker
}

// TutorOption configures a TutorGateway.
type TutorOption func(*TutorGateway)

// WithPersona sets the opaque system instruction used for Generate calls.
func WithPersona(persona string) TutorOption {
	return func(g *TutorGateway) {
		g.persona = persona
	}
}

// WithModel overrides the provider's default model for every call.
func WithModel(model string) TutorOption {
	return func(g *TutorGateway) {
		g.model = model
	}
}

// WithUsageTracker records token usage of every call against the tracker.
func WithUsageTracker(u *UsageTracker) TutorOption {
	return func(g *TutorGateway) {
		g.usage = u
	}
}

// NewTutorGateway creates a gateway over the given provider.
func NewTutorGateway(provider Provider, opts ...TutorOption) *TutorGateway {
	g := &TutorGateway{provider: provider}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate sends the conversation history plus a new user message and returns
// the model's text. History roles must be "user" or "model".
func (g *TutorGateway) Generate(ctx context.Context, history []Message, userText string) (string, error) {
	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: userText})

	resp, err := g.provider.Complete(ctx, CompletionRequest{
		Messages:  messages,
		System:    g.persona,
		Model:     g.model,
		MaxTokens: defaultMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	g.record("generate", resp)
	return resp.Content, nil
}

// Evaluate sends a single composed prompt (no persona, no history) and
// returns the raw verdict text.
func (g *TutorGateway) Evaluate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.provider.Complete(ctx, CompletionRequest{
		Messages:  []Message{{Role: "user", Content: prompt}},
		Model:     g.model,
		MaxTokens: defaultMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("evaluate: %w", err)
	}
	g.record("evaluate", resp)
	return resp.Content, nil
}

// CheckHealth probes the credential with a minimal generation call and
// classifies the outcome.
func (g *TutorGateway) CheckHealth(ctx context.Context) KeyStatus {
	_, err := g.provider.Complete(ctx, CompletionRequest{
		Messages:  []Message{{Role: "user", Content: "hello"}},
		MaxTokens: 8,
	})
	status := ClassifyError(err)
	if err != nil {
		slog.Warn("gateway health check failed", "status", status.String(), "error", err)
	}
	return status
}

func (g *TutorGateway) record(call string, resp CompletionResponse) {
	slog.Debug("gateway call completed",
		"call", call,
		"model", resp.Model,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
	)
	if g.usage != nil {
		g.usage.Record(call, resp.TotalTokens())
	}
}
