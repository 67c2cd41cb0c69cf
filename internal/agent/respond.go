package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kamir/recepbot/internal/provider"
)

// ErrEmptyReply is returned when the backend answers with nothing to send.
var ErrEmptyReply = errors.New("generation returned an empty reply")

// ResponderOptions configures a Responder.
type ResponderOptions struct {
	Provider    provider.LLMProvider
	Model       string
	Instruction string
	// Examples are seeded before the reconstructed history on every call.
	Examples []ConversationTurn
	Config   provider.GenerationConfig
}

// Responder generates the conversational reply under the persona instruction.
// Each call opens a fresh backend chat; no state is kept between calls.
type Responder struct {
	provider    provider.LLMProvider
	model       string
	instruction string
	examples    []ConversationTurn
	config      provider.GenerationConfig
}

// NewResponder creates a Responder.
func NewResponder(opts ResponderOptions) *Responder {
	return &Responder{
		provider:    opts.Provider,
		model:       opts.Model,
		instruction: opts.Instruction,
		examples:    opts.Examples,
		config:      opts.Config,
	}
}

// Reply generates the answer to text from contact given the prior history.
func (r *Responder) Reply(ctx context.Context, contact, text string, history []ConversationTurn) (string, error) {
	seed := make([]provider.Message, 0, len(r.examples)+len(history))
	seed = appendTurns(seed, r.examples)
	seed = appendTurns(seed, history)

	resp, err := r.provider.Chat(ctx, &provider.ChatRequest{
		Model:   r.model,
		System:  r.instruction,
		History: seed,
		Input:   LiveTurn(contact, text),
		Config:  r.config,
	})
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", ErrEmptyReply
	}
	return resp.Content, nil
}

// LiveTurn annotates the live message with the contact's name.
func LiveTurn(contact, text string) string {
	return fmt.Sprintf("Mensagem de %s: %s", contact, text)
}

func appendTurns(dst []provider.Message, turns []ConversationTurn) []provider.Message {
	for _, t := range turns {
		role := provider.RoleUser
		if t.Role == RoleAssistant {
			role = provider.RoleAssistant
		}
		dst = append(dst, provider.Message{Role: role, Content: t.Text})
	}
	return dst
}
