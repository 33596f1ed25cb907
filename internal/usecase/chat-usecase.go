package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/iamvkosarev/rag-chat-gateway/internal/failover"
	"github.com/iamvkosarev/rag-chat-gateway/internal/model"
	"github.com/iamvkosarev/rag-chat-gateway/pkg/local"
	"go.uber.org/zap"
)

var (
	ErrEmptyText       = errors.New("text is empty")
	ErrHistoryNotFound = errors.New("chat history not found")
)

type Generator interface {
	Generate(ctx context.Context, cred model.Credential, prompt string) (model.Generation, error)
}

type ChatRequest struct {
	SessionID string
	Text      string
	UserInfo  *model.UserInfo
}

type ChatResponse struct {
	Response     string                 `json:"response"`
	AstraResults []model.VectorDocument `json:"astraResults"`
	SessionID    string                 `json:"sessionId"`
}

type HistoryResponse struct {
	History  []model.Message `json:"history"`
	UserInfo *model.UserInfo `json:"userInfo"`
}

type ChatUsecaseDeps struct {
	Session   *SessionUsecase
	Retrieval *RetrievalUsecase
	Prompt    *PromptAssembler
	Generator Generator
	Engine    *failover.Engine
	Logger    *zap.Logger
	Observer  Observer
}

type ChatUsecase struct {
	ChatUsecaseDeps
	generationPool model.CredentialPool
	historyLimit   int
	language       local.Language
}

func NewChatUsecase(
	deps ChatUsecaseDeps, generationPool model.CredentialPool, historyLimit int, language local.Language,
) *ChatUsecase {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	return &ChatUsecase{
		ChatUsecaseDeps: deps,
		generationPool:  generationPool,
		historyLimit:    historyLimit,
		language:        language,
	}
}

// Chat answers one visitor message. Only validation and generation failures
// are returned; storage and retrieval problems are absorbed along the way.
// The returned response always carries the session id in use.
func (c *ChatUsecase) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	sessionID, _ := c.Session.ResolveOrCreateSession(req.SessionID)
	resp := ChatResponse{SessionID: sessionID}

	query := strings.TrimSpace(req.Text)
	if query == "" {
		c.Observer.ObserveChat(http.StatusBadRequest)
		return resp, ErrEmptyText
	}
	logger := c.Logger.With(zap.String("session_id", sessionID))

	hint := req.UserInfo.Normalize()
	history := c.Session.RecentHistory(ctx, sessionID, c.historyLimit)
	stored, err := c.Session.LatestProfileHint(ctx, sessionID)
	if err != nil {
		logger.Warn("failed to read profile hint", zap.Error(err))
		c.Observer.ObserveStorageFailure("profile_hint")
		stored = nil
	}
	profile := stored
	if hint != nil {
		profile = hint
	}

	retrieval := c.Retrieval.Retrieve(ctx, query)
	prompt := c.Prompt.Assemble(
		PromptInput{
			Query:     req.Text,
			History:   history,
			Retrieval: retrieval,
			Profile:   profile,
		},
	)

	outcome := failover.Execute(
		ctx, c.Engine, c.generationPool, func(ctx context.Context, cred model.Credential) (model.Generation, error) {
			return c.Generator.Generate(ctx, cred, prompt)
		},
	)
	if !outcome.OK {
		logger.Error(
			"generation failed",
			zap.Stringer("kind", outcome.Failure.Kind),
			zap.Int("status", outcome.Failure.Status),
			zap.Int("attempts", outcome.Attempts),
			zap.String("message", outcome.Failure.Message),
		)
		c.Observer.ObserveChat(outcome.Failure.Status)
		return resp, outcome.Failure
	}
	logger.Info(
		"generation succeeded",
		zap.String("credential", outcome.Credential),
		zap.Int("attempts", outcome.Attempts),
		zap.Int("vector_results", len(retrieval.Vector)),
		zap.Stringer("vector_status", retrieval.VectorStatus),
	)

	response, fromModel := c.normalizeGeneration(outcome.Value)

	var newHint *model.UserInfo
	if hint != nil && !hint.Equal(stored) {
		newHint = hint
	}
	c.Session.AppendMessage(ctx, sessionID, model.MessageRoleUser, req.Text, newHint)
	if fromModel {
		c.Session.AppendMessage(ctx, sessionID, model.MessageRoleAssistant, response, nil)
	} else {
		logger.Warn(
			"assistant turn not persisted, model returned no text",
			zap.String("finish_reason", string(outcome.Value.FinishReason)),
			zap.String("placeholder", response),
		)
	}

	c.Observer.ObserveChat(http.StatusOK)
	resp.Response = response
	resp.AstraResults = retrieval.Vector
	if resp.AstraResults == nil {
		resp.AstraResults = []model.VectorDocument{}
	}
	return resp, nil
}

// VectorSearch is the knowledge-base-only search used by the widget's search tab.
func (c *ChatUsecase) VectorSearch(ctx context.Context, text string) ([]model.VectorDocument, error) {
	query := strings.TrimSpace(text)
	if query == "" {
		return nil, ErrEmptyText
	}
	return c.Retrieval.SearchVectors(ctx, query)
}

// History returns the whole conversation and the latest profile hint of a
// session, or ErrHistoryNotFound when the session has neither.
func (c *ChatUsecase) History(ctx context.Context, sessionID string) (HistoryResponse, error) {
	messages, err := c.Session.FullHistory(ctx, sessionID)
	if err != nil {
		return HistoryResponse{}, err
	}
	info, err := c.Session.LatestProfileHint(ctx, sessionID)
	if err != nil {
		return HistoryResponse{}, err
	}
	if len(messages) == 0 && info == nil {
		return HistoryResponse{}, ErrHistoryNotFound
	}
	return HistoryResponse{History: messages, UserInfo: info}, nil
}

// normalizeGeneration turns a generation into the text shown to the visitor.
// fromModel is false when the text is a local notice rather than model output.
func (c *ChatUsecase) normalizeGeneration(gen model.Generation) (text string, fromModel bool) {
	if strings.TrimSpace(gen.Text) != "" {
		if gen.FinishReason == model.FinishReasonMaxTokens {
			return gen.Text + "\n\n" + local.ResponseTruncatedMarker.Text(c.language), true
		}
		return gen.Text, true
	}
	switch gen.FinishReason {
	case model.FinishReasonSafety:
		return local.ResponseBlockedSafety.Text(c.language), false
	case model.FinishReasonRecitation:
		return local.ResponseBlockedRecitation.Text(c.language), false
	case model.FinishReasonMaxTokens:
		return local.ResponseIncomplete.Text(c.language) + "\n\n" + local.ResponseTruncatedMarker.Text(c.language), false
	default:
		return local.ResponseEmpty.Text(c.language), false
	}
}
