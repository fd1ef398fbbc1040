package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeOpenAI serves /chat/completions with the given handler and records
// the last decoded request body.
type fakeOpenAI struct {
	server  *httptest.Server
	lastReq map[string]any
	auth    string
}

func newFakeOpenAI(t *testing.T, status int, body string) *fakeOpenAI {
	t.Helper()
	f := &fakeOpenAI{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		f.auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&f.lastReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(f.server.Close)
	return f
}

const completionOK = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"model": "gpt-4o-mini",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "hello there"}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
}`

func TestOpenAIProviderComplete(t *testing.T) {
	fake := newFakeOpenAI(t, http.StatusOK, completionOK)
	p := NewOpenAIProvider("sk-agent", fake.server.URL, nil)

	resp, err := p.Complete(context.Background(), CompletionRequest{
		Model: "gpt-4o-mini",
		Messages: []Message{
			{Role: RoleSystem, Content: "Be terse."},
			{Role: RoleUser, Content: "hi"},
		},
		MaxTokens:   500,
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if resp.Content != "hello there" {
		t.Errorf("Content = %q, want %q", resp.Content, "hello there")
	}
	if resp.InputTokens != 12 || resp.OutputTokens != 3 {
		t.Errorf("tokens = %d/%d, want 12/3", resp.InputTokens, resp.OutputTokens)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("FinishReason = %q", resp.FinishReason)
	}

	if fake.auth != "Bearer sk-agent" {
		t.Errorf("Authorization = %q, want bearer agent key", fake.auth)
	}
	if fake.lastReq["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v", fake.lastReq["model"])
	}
	if fake.lastReq["max_tokens"] != float64(500) {
		t.Errorf("max_tokens = %v, want 500", fake.lastReq["max_tokens"])
	}
	msgs, ok := fake.lastReq["messages"].([]any)
	if !ok || len(msgs) != 2 {
		t.Fatalf("messages = %v", fake.lastReq["messages"])
	}
	first := msgs[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "Be terse." {
		t.Errorf("first message = %v", first)
	}
}

func TestOpenAIProviderNoChoices(t *testing.T) {
	fake := newFakeOpenAI(t, http.StatusOK, `{"id":"x","object":"chat.completion","model":"m","choices":[]}`)
	p := NewOpenAIProvider("sk", fake.server.URL, nil)

	resp, err := p.Complete(context.Background(), CompletionRequest{Model: "m", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "" {
		t.Errorf("expected empty content, got %q", resp.Content)
	}
}

func TestOpenAIProviderAPIError(t *testing.T) {
	fake := newFakeOpenAI(t, http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	p := NewOpenAIProvider("sk-bad", fake.server.URL, nil)

	_, err := p.Complete(context.Background(), CompletionRequest{Model: "m", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err == nil {
		t.Fatal("expected error")
	}

	var mpe *ModelProviderError
	if !errors.As(err, &mpe) {
		t.Fatalf("expected *ModelProviderError, got %T: %v", err, err)
	}
	if mpe.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", mpe.Status)
	}
	if !strings.Contains(mpe.Body, "Incorrect API key") {
		t.Errorf("Body = %q", mpe.Body)
	}
}

func TestOpenAIFactory(t *testing.T) {
	fake := newFakeOpenAI(t, http.StatusOK, completionOK)
	factory := NewOpenAIFactory(fake.server.URL, fake.server.Client())

	p := factory("sk-factory")
	if p.Name() != "openai" {
		t.Errorf("Name() = %q", p.Name())
	}
	if _, err := p.Complete(context.Background(), CompletionRequest{Model: "m", Messages: []Message{{Role: RoleUser, Content: "hi"}}}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if fake.auth != "Bearer sk-factory" {
		t.Errorf("Authorization = %q", fake.auth)
	}
}

func TestModelProviderErrorMessage(t *testing.T) {
	err := &ModelProviderError{Provider: "openai", Status: 500, Body: "boom"}
	if got := err.Error(); got != "openai API error: status 500: boom" {
		t.Errorf("Error() = %q", got)
	}

	inner := errors.New("connection refused")
	err = &ModelProviderError{Provider: "openai", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("expected Unwrap to expose the transport error")
	}
}
