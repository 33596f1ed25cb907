package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/iamvkosarev/rag-chat-gateway/config"
	"github.com/iamvkosarev/rag-chat-gateway/internal/model"
)

// Provider is an opaque text-completion and embedding capability. Every call
// carries the credential to use, so one Provider serves a whole pool.
type Provider interface {
	Generate(ctx context.Context, cred model.Credential, prompt string) (model.Generation, error)
	Embed(ctx context.Context, cred model.Credential, text string) ([]float32, error)
}

// New builds the provider selected by cfg.Backend.
func New(cfg config.LLM, httpClient *http.Client) (Provider, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	switch cfg.Backend {
	case "gemini":
		return NewGeminiClient(cfg, httpClient), nil
	case "openai":
		return NewOpenAIClient(cfg, httpClient), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownLLMBackend, cfg.Backend)
	}
}

// clientKey identifies a cached SDK client. Names are chosen by the operator
// and may repeat across pools, so the key material is part of the identity.
func clientKey(cred model.Credential) string {
	return cred.Name + "\x00" + cred.APIKey
}
