package bots

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ziadkadry99/agent-relay/internal/agents"
	"github.com/ziadkadry99/agent-relay/internal/llm"
)

// Generator produces the reply text an agent sends for a message.
type Generator interface {
	Generate(ctx context.Context, a agents.Agent, message string) (string, error)
}

// ResponderConfig holds the completion parameters shared by all agents.
type ResponderConfig struct {
	MaxTokens           int
	Temperature         float64
	DefaultSystemPrompt string
	FallbackResponse    string
}

// Responder generates replies through a chat-completion provider built with
// each agent's own API key.
type Responder struct {
	providers llm.Factory
	cfg       ResponderConfig
}

// NewResponder creates a Responder.
func NewResponder(providers llm.Factory, cfg ResponderConfig) *Responder {
	return &Responder{providers: providers, cfg: cfg}
}

// Generate asks the model for a reply to message and applies the agent's
// response template. An empty completion yields the fallback text.
func (r *Responder) Generate(ctx context.Context, a agents.Agent, message string) (string, error) {
	req := llm.CompletionRequest{
		Model: a.ModelID,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: ComposeSystemPrompt(a, r.cfg.DefaultSystemPrompt)},
			{Role: llm.RoleUser, Content: message},
		},
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	}

	resp, err := r.providers(a.ModelAPIKey).Complete(ctx, req)
	if err != nil {
		var mpe *llm.ModelProviderError
		if errors.As(err, &mpe) {
			return "", err
		}
		return "", &llm.ModelProviderError{Provider: "model", Err: err}
	}

	content := ""
	if resp != nil {
		content = resp.Content
	}
	if content == "" {
		content = r.cfg.FallbackResponse
	}
	return ApplyTemplate(a.ResponseTemplate, message, content), nil
}

// ComposeSystemPrompt returns the agent's system prompt, or def when unset,
// followed by the agent's context data when present.
func ComposeSystemPrompt(a agents.Agent, def string) string {
	prompt := a.SystemPrompt
	if prompt == "" {
		prompt = def
	}
	if strings.TrimSpace(a.ContextData) != "" {
		prompt = fmt.Sprintf("%s\n\nAdditional Context:\n%s", prompt, a.ContextData)
	}
	return prompt
}

// ApplyTemplate substitutes the first {message} and then the first
// {response} placeholder. An empty template returns response unchanged.
func ApplyTemplate(tpl, message, response string) string {
	if tpl == "" {
		return response
	}
	out := strings.Replace(tpl, "{message}", message, 1)
	return strings.Replace(out, "{response}", response, 1)
}
