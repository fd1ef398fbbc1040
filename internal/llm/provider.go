package llm

import "context"

// Provider defines the interface for LLM providers.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}

// Factory builds a Provider authenticated with the given API key. Agents
// carry their own keys, so providers are built per call.
type Factory func(apiKey string) Provider
