package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/iamvkosarev/rag-chat-gateway/config"
	"github.com/iamvkosarev/rag-chat-gateway/internal/failover"
	"github.com/iamvkosarev/rag-chat-gateway/internal/model"
	"github.com/sashabaranov/go-openai"
)

// OpenAIClient talks to any OpenAI-compatible chat and embeddings endpoint.
type OpenAIClient struct {
	cfg        config.LLM
	httpClient *http.Client

	mu      sync.Mutex
	clients map[string]*openai.Client
}

func NewOpenAIClient(cfg config.LLM, httpClient *http.Client) *OpenAIClient {
	return &OpenAIClient{
		cfg:        cfg,
		httpClient: httpClient,
		clients:    make(map[string]*openai.Client),
	}
}

func (o *OpenAIClient) Generate(ctx context.Context, cred model.Credential, prompt string) (model.Generation, error) {
	req := openai.ChatCompletionRequest{
		Model:       o.cfg.GenerationModel,
		Temperature: o.cfg.Temperature,
		TopP:        1,
		N:           1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	resp, err := o.client(cred).CreateChatCompletion(ctx, req)
	if err != nil {
		return model.Generation{}, convertOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return model.Generation{}, nil
	}
	choice := resp.Choices[0]
	return model.Generation{
		Text:         choice.Message.Content,
		FinishReason: openAIFinishReason(choice.FinishReason),
	}, nil
}

func (o *OpenAIClient) Embed(ctx context.Context, cred model.Credential, text string) ([]float32, error) {
	resp, err := o.client(cred).CreateEmbeddings(
		ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(o.cfg.EmbeddingModel),
		},
	)
	if err != nil {
		return nil, convertOpenAIError(err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("no embedding returned for model %s", o.cfg.EmbeddingModel)
	}
	return resp.Data[0].Embedding, nil
}

func (o *OpenAIClient) client(cred model.Credential) *openai.Client {
	o.mu.Lock()
	defer o.mu.Unlock()

	if c, ok := o.clients[clientKey(cred)]; ok {
		return c
	}
	clientConfig := openai.DefaultConfig(cred.APIKey)
	if o.cfg.BaseURL != "" {
		clientConfig.BaseURL = o.cfg.BaseURL
	}
	clientConfig.HTTPClient = o.httpClient
	c := openai.NewClientWithConfig(clientConfig)
	o.clients[clientKey(cred)] = c
	return c
}

func openAIFinishReason(reason openai.FinishReason) model.FinishReason {
	switch reason {
	case openai.FinishReasonStop, openai.FinishReasonToolCalls, openai.FinishReasonFunctionCall:
		return model.FinishReasonStop
	case openai.FinishReasonLength:
		return model.FinishReasonMaxTokens
	case openai.FinishReasonContentFilter:
		return model.FinishReasonSafety
	case "":
		return ""
	default:
		return model.FinishReasonOther
	}
}

func convertOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &failover.StatusError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		msg := http.StatusText(reqErr.HTTPStatusCode)
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &failover.StatusError{StatusCode: reqErr.HTTPStatusCode, Message: msg}
	}
	return err
}
