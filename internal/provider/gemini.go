package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ErrNoAPIKey is returned by NewGeminiProvider when the key is empty.
var ErrNoAPIKey = errors.New("gemini: api key is required")

// GeminiProvider talks to the Gemini API. Every Chat call opens a new chat
// session from the request history; nothing is cached between calls.
type GeminiProvider struct {
	client       *genai.Client
	defaultModel string
}

// NewGeminiProvider creates a Gemini API client.
func NewGeminiProvider(ctx context.Context, apiKey, defaultModel string) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiProvider{client: client, defaultModel: defaultModel}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

// Chat implements LLMProvider.
func (p *GeminiProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	chat, err := p.client.Chats.Create(ctx, model, toGenerateConfig(req), toContents(req.History))
	if err != nil {
		return nil, fmt.Errorf("gemini start chat: %w", err)
	}

	res, err := chat.SendMessage(ctx, genai.Part{Text: req.Input})
	if err != nil {
		return nil, fmt.Errorf("gemini send message: %w", err)
	}

	out := &ChatResponse{Content: res.Text()}
	if len(res.Candidates) > 0 && res.Candidates[0] != nil {
		out.FinishReason = string(res.Candidates[0].FinishReason)
	}
	if u := res.UsageMetadata; u != nil {
		out.Usage = Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

func toGenerateConfig(req *ChatRequest) *genai.GenerateContentConfig {
	c := req.Config
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(c.Temperature)),
		TopP:             genai.Ptr(float32(c.TopP)),
		ResponseMIMEType: c.ResponseMIMEType,
	}
	if c.TopK > 0 {
		cfg.TopK = genai.Ptr(float32(c.TopK))
	}
	if c.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(c.MaxTokens)
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	return cfg
}

func toContents(history []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return contents
}
