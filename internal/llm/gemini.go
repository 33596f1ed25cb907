package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/iamvkosarev/rag-chat-gateway/config"
	"github.com/iamvkosarev/rag-chat-gateway/internal/failover"
	"github.com/iamvkosarev/rag-chat-gateway/internal/model"
	"google.golang.org/genai"
)

// GeminiClient talks to the Gemini API through the genai SDK.
type GeminiClient struct {
	cfg        config.LLM
	httpClient *http.Client

	mu      sync.Mutex
	clients map[string]*genai.Client
}

func NewGeminiClient(cfg config.LLM, httpClient *http.Client) *GeminiClient {
	return &GeminiClient{
		cfg:        cfg,
		httpClient: httpClient,
		clients:    make(map[string]*genai.Client),
	}
}

func (g *GeminiClient) Generate(ctx context.Context, cred model.Credential, prompt string) (model.Generation, error) {
	c, err := g.client(ctx, cred)
	if err != nil {
		return model.Generation{}, err
	}
	resp, err := c.Models.GenerateContent(
		ctx, g.cfg.GenerationModel, genai.Text(prompt), &genai.GenerateContentConfig{
			Temperature: genai.Ptr(g.cfg.Temperature),
		},
	)
	if err != nil {
		return model.Generation{}, convertGeminiError(err)
	}

	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return model.Generation{FinishReason: model.FinishReasonSafety}, nil
		}
		return model.Generation{}, nil
	}
	candidate := resp.Candidates[0]
	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text.WriteString(part.Text)
		}
	}
	return model.Generation{
		Text:         text.String(),
		FinishReason: geminiFinishReason(candidate.FinishReason),
	}, nil
}

func (g *GeminiClient) Embed(ctx context.Context, cred model.Credential, text string) ([]float32, error) {
	c, err := g.client(ctx, cred)
	if err != nil {
		return nil, err
	}
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}
	result, err := c.Models.EmbedContent(ctx, g.cfg.EmbeddingModel, contents, nil)
	if err != nil {
		return nil, convertGeminiError(err)
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("no embedding returned for model %s", g.cfg.EmbeddingModel)
	}
	return result.Embeddings[0].Values, nil
}

func (g *GeminiClient) client(ctx context.Context, cred model.Credential) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c, ok := g.clients[clientKey(cred)]; ok {
		return c, nil
	}
	clientConfig := &genai.ClientConfig{
		APIKey:     cred.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.httpClient,
	}
	if g.cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: g.cfg.BaseURL}
	}
	c, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client %s: %w", cred.Name, err)
	}
	g.clients[clientKey(cred)] = c
	return c, nil
}

func geminiFinishReason(reason genai.FinishReason) model.FinishReason {
	switch reason {
	case genai.FinishReasonStop:
		return model.FinishReasonStop
	case genai.FinishReasonMaxTokens:
		return model.FinishReasonMaxTokens
	case genai.FinishReasonSafety, genai.FinishReasonBlocklist, genai.FinishReasonProhibitedContent, genai.FinishReasonSPII:
		return model.FinishReasonSafety
	case genai.FinishReasonRecitation:
		return model.FinishReasonRecitation
	case "", genai.FinishReasonUnspecified:
		return ""
	default:
		return model.FinishReasonOther
	}
}

func convertGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return &failover.StatusError{StatusCode: apiErr.Code, Message: geminiErrorMessage(apiErr)}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr.Code != 0 {
		return &failover.StatusError{StatusCode: apiErrPtr.Code, Message: geminiErrorMessage(*apiErrPtr)}
	}
	return err
}

func geminiErrorMessage(apiErr genai.APIError) string {
	if apiErr.Status != "" && !strings.Contains(apiErr.Message, apiErr.Status) {
		return fmt.Sprintf("%s: %s", apiErr.Status, apiErr.Message)
	}
	return apiErr.Message
}
