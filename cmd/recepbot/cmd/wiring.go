package cmd

import (
	"context"
	"fmt"

	"github.com/kamir/recepbot/internal/agent"
	"github.com/kamir/recepbot/internal/bus"
	"github.com/kamir/recepbot/internal/config"
	"github.com/kamir/recepbot/internal/provider"
	"github.com/kamir/recepbot/internal/taskboard"
)

// buildLoop wires the dispatcher from cfg around transport.
func buildLoop(ctx context.Context, cfg *config.Config, msgBus *bus.MessageBus, transport agent.Transport, sinks []agent.OutcomeSink) (*agent.Loop, error) {
	prov, err := provider.NewGeminiProvider(ctx, cfg.Providers.Gemini.APIKey, cfg.Model.Name)
	if err != nil {
		return nil, fmt.Errorf("gemini provider: %w", err)
	}

	filer, err := newTaskFiler(cfg.TaskBoard)
	if err != nil {
		return nil, err
	}

	classifier := agent.NewClassifier(agent.ClassifierOptions{
		Provider:    prov,
		Model:       cfg.Model.Name,
		Instruction: cfg.Persona.ClassifierInstruction,
		Primer:      cfg.Persona.ClassifierPrimer,
		Config:      generationConfig(cfg.Model, cfg.Model.ClassifierMaxTokens),
	})
	responder := agent.NewResponder(agent.ResponderOptions{
		Provider:    prov,
		Model:       cfg.Model.Name,
		Instruction: cfg.Persona.Instruction,
		Examples:    personaTurns(cfg.Persona.Examples),
		Config:      generationConfig(cfg.Model, cfg.Model.MaxTokens),
	})

	return agent.NewLoop(agent.LoopOptions{
		Bus:         msgBus,
		Transport:   transport,
		Classifier:  classifier,
		Responder:   responder,
		Filer:       filer,
		Sinks:       sinks,
		SelfName:    cfg.Channels.WhatsApp.SelfName,
		PersonaName: cfg.Persona.Name,
		UseHistory:  cfg.Pipeline.UseHistory,
		ReplyPrefix: cfg.Persona.ReplyPrefix,
	}), nil
}

// newTaskFiler returns nil when the task board is disabled.
func newTaskFiler(cfg config.TaskBoardConfig) (agent.TaskFiler, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	board, err := taskboard.NewClient(taskboard.Config{
		APIBase:           cfg.APIBase,
		Key:               cfg.Key,
		Token:             cfg.Token,
		ListID:            cfg.ListID,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Timeout:           cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return agent.NewBoardFiler(board), nil
}

func generationConfig(m config.ModelConfig, maxTokens int) provider.GenerationConfig {
	return provider.GenerationConfig{
		Temperature:      m.Temperature,
		TopP:             m.TopP,
		TopK:             m.TopK,
		MaxTokens:        maxTokens,
		ResponseMIMEType: m.ResponseMIMEType,
	}
}

func personaTurns(examples []config.PersonaExample) []agent.ConversationTurn {
	turns := make([]agent.ConversationTurn, 0, 2*len(examples))
	for _, ex := range examples {
		turns = append(turns,
			agent.ConversationTurn{Role: agent.RoleUser, Text: ex.User},
			agent.ConversationTurn{Role: agent.RoleAssistant, Text: ex.Assistant},
		)
	}
	return turns
}
