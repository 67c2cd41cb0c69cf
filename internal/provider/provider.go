// Package provider defines the generation backend contract and its Gemini implementation.
package provider

import "context"

// Roles understood by every provider. Providers map them to their own vocabulary.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged turn of chat history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationConfig is the fixed per-call sampling configuration.
type GenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"top_p"`
	TopK             int     `json:"top_k"`
	MaxTokens        int     `json:"max_tokens"`
	ResponseMIMEType string  `json:"response_mime_type"`
}

// ChatRequest starts a fresh chat seeded with System and History and sends Input as the next user turn.
type ChatRequest struct {
	Model   string
	System  string
	History []Message
	Input   string
	Config  GenerationConfig
}

// ChatResponse is the completion for one ChatRequest.
type ChatResponse struct {
	Content      string
	FinishReason string
	Usage        Usage
}

// Usage tracks token consumption as reported by the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// LLMProvider is a stateless-per-call generation backend.
type LLMProvider interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	Name() string
}
