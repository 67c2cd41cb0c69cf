package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/kamir/recepbot/internal/provider"
)

// requestMarkers are the affirmative answers the classification prompt produces.
var requestMarkers = []string{"sim", "pedido", "solicitação"}

// ClassifierOptions configures a Classifier.
type ClassifierOptions struct {
	Provider    provider.LLMProvider
	Model       string
	Instruction string
	// Primer is a single user turn placed before the message being classified.
	Primer string
	Config provider.GenerationConfig
}

// Classifier decides whether a message is an actionable request.
// The backend is probabilistic, so the result is a heuristic gate.
type Classifier struct {
	provider    provider.LLMProvider
	model       string
	instruction string
	primer      string
	config      provider.GenerationConfig
}

// NewClassifier creates a Classifier.
func NewClassifier(opts ClassifierOptions) *Classifier {
	return &Classifier{
		provider:    opts.Provider,
		model:       opts.Model,
		instruction: opts.Instruction,
		primer:      opts.Primer,
		config:      opts.Config,
	}
}

// IsRequest asks the backend once. Blank text is never a request and costs no call.
func (c *Classifier) IsRequest(ctx context.Context, text string) (bool, error) {
	if strings.TrimSpace(text) == "" {
		return false, nil
	}

	var history []provider.Message
	if c.primer != "" {
		history = []provider.Message{{Role: provider.RoleUser, Content: c.primer}}
	}

	resp, err := c.provider.Chat(ctx, &provider.ChatRequest{
		Model:   c.model,
		System:  c.instruction,
		History: history,
		Input:   text,
		Config:  c.config,
	})
	if err != nil {
		return false, fmt.Errorf("classify: %w", err)
	}
	return IsAffirmative(resp.Content), nil
}

// IsAffirmative reports whether a classification answer contains a request marker.
func IsAffirmative(answer string) bool {
	lower := strings.ToLower(answer)
	for _, marker := range requestMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
