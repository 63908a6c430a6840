package providers

import "context"

// ChatMessage is one message in a chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest describes a single completion call.
type ChatRequest struct {
	Messages    []ChatMessage
	Temperature float64
	MaxTokens   int
	JSONMode    bool // ask for a JSON object response
}

// ChatCompleter is the LLM collaborator used by triage, re-ranking,
// type labelling and evaluation.
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}
