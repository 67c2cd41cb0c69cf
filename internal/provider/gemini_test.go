package provider

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"
)

func TestNewGeminiProviderRequiresKey(t *testing.T) {
	if _, err := NewGeminiProvider(context.Background(), "  ", "gemini-1.5-flash"); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestToContentsMapsRoles(t *testing.T) {
	got := toContents([]Message{
		{Role: RoleUser, Content: "Oi"},
		{Role: RoleAssistant, Content: "Olá, em que posso ajudar?"},
		{Role: "system", Content: "stray"},
	})
	if len(got) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(got))
	}
	wantRoles := []string{string(genai.RoleUser), string(genai.RoleModel), string(genai.RoleUser)}
	for i, c := range got {
		if c.Role != wantRoles[i] {
			t.Errorf("content %d: role %q, want %q", i, c.Role, wantRoles[i])
		}
		if len(c.Parts) != 1 || c.Parts[0].Text == "" {
			t.Errorf("content %d: expected one text part", i)
		}
	}
}

func TestToGenerateConfig(t *testing.T) {
	cfg := toGenerateConfig(&ChatRequest{
		System: "Você é minha recepcionista pessoal",
		Config: GenerationConfig{
			Temperature:      1,
			TopP:             0.95,
			TopK:             64,
			MaxTokens:        8192,
			ResponseMIMEType: "text/plain",
		},
	})
	if cfg.MaxOutputTokens != 8192 {
		t.Fatalf("max tokens: %d", cfg.MaxOutputTokens)
	}
	if cfg.TopK == nil || *cfg.TopK != 64 {
		t.Fatalf("top-k not set: %v", cfg.TopK)
	}
	if cfg.Temperature == nil || *cfg.Temperature != 1 {
		t.Fatalf("temperature not set: %v", cfg.Temperature)
	}
	if cfg.ResponseMIMEType != "text/plain" {
		t.Fatalf("mime type: %q", cfg.ResponseMIMEType)
	}
	if cfg.SystemInstruction == nil || cfg.SystemInstruction.Parts[0].Text != "Você é minha recepcionista pessoal" {
		t.Fatalf("system instruction missing")
	}
}

func TestToGenerateConfigOmitsUnsetLimits(t *testing.T) {
	cfg := toGenerateConfig(&ChatRequest{})
	if cfg.TopK != nil || cfg.MaxOutputTokens != 0 || cfg.SystemInstruction != nil {
		t.Fatalf("expected unset limits to stay empty: %+v", cfg)
	}
}
