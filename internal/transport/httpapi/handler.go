package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/iamvkosarev/rag-chat-gateway/config"
	"github.com/iamvkosarev/rag-chat-gateway/internal/failover"
	"github.com/iamvkosarev/rag-chat-gateway/internal/model"
	"github.com/iamvkosarev/rag-chat-gateway/internal/usecase"
	"github.com/iamvkosarev/rag-chat-gateway/pkg/local"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ChatService interface {
	Chat(ctx context.Context, req usecase.ChatRequest) (usecase.ChatResponse, error)
	VectorSearch(ctx context.Context, text string) ([]model.VectorDocument, error)
	History(ctx context.Context, sessionID string) (usecase.HistoryResponse, error)
}

type HandlerDeps struct {
	Chat     ChatService
	Sessions SessionResolver
	Logger   *zap.Logger
}

type Handler struct {
	HandlerDeps
	cfg      config.Session
	language local.Language
}

func NewHandler(deps HandlerDeps, cfg config.Session, language local.Language) *Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Handler{
		HandlerDeps: deps,
		cfg:         cfg,
		language:    language,
	}
}

func (h *Handler) Register(g *echo.Group) {
	g.Use(sessionMiddleware(h.Sessions, h.cfg))
	g.POST("/webchat", h.webChat)
	g.POST("/widget-search", h.widgetSearch)
	g.GET("/get-history/:sessionId", h.getHistory)
}

type userInfoRequest struct {
	Name      string `json:"name"`
	Contact   string `json:"contact"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// toModel folds the widget's older firstName/lastName/phone fields into the
// name/contact pair.
func (u *userInfoRequest) toModel() *model.UserInfo {
	if u == nil {
		return nil
	}
	info := model.UserInfo{Name: u.Name, Contact: u.Contact}
	if strings.TrimSpace(info.Name) == "" {
		info.Name = strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	if strings.TrimSpace(info.Contact) == "" {
		info.Contact = u.Phone
	}
	return info.Normalize()
}

type webChatRequest struct {
	Text     string           `json:"text"`
	UserInfo *userInfoRequest `json:"userInfo"`
}

func (h *Handler) webChat(c echo.Context) error {
	var body webChatRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, local.ErrorInvalidRequest.Text(h.language)).SetInternal(err)
	}

	sessionID := sessionFromContext(c)
	resp, err := h.Chat.Chat(
		c.Request().Context(), usecase.ChatRequest{
			SessionID: sessionID,
			Text:      body.Text,
			UserInfo:  body.UserInfo.toModel(),
		},
	)
	if err != nil {
		var failure failover.Failure
		switch {
		case errors.Is(err, usecase.ErrEmptyText):
			return echo.NewHTTPError(http.StatusBadRequest, local.ErrorInvalidText.Text(h.language)).SetInternal(err)
		case errors.As(err, &failure):
			return echo.NewHTTPError(failure.Status, local.ErrorChat.Format(h.language, failure.Message)).SetInternal(err)
		default:
			return echo.NewHTTPError(
				http.StatusInternalServerError, local.ErrorChat.Format(h.language, err.Error()),
			).SetInternal(err)
		}
	}
	return c.JSON(http.StatusOK, resp)
}

type widgetSearchRequest struct {
	Text string `json:"text"`
}

func (h *Handler) widgetSearch(c echo.Context) error {
	var body widgetSearchRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, local.ErrorInvalidRequest.Text(h.language)).SetInternal(err)
	}

	docs, err := h.Chat.VectorSearch(c.Request().Context(), body.Text)
	if err != nil {
		var failure failover.Failure
		switch {
		case errors.Is(err, usecase.ErrEmptyText):
			return echo.NewHTTPError(http.StatusBadRequest, local.ErrorEmptySearch.Text(h.language))
		case errors.As(err, &failure):
			return echo.NewHTTPError(failure.Status, local.ErrorEmbedding.Format(h.language, failure.Message)).SetInternal(err)
		default:
			return echo.NewHTTPError(
				http.StatusInternalServerError, local.ErrorVectorSearch.Format(h.language, err.Error()),
			).SetInternal(err)
		}
	}
	if docs == nil {
		docs = []model.VectorDocument{}
	}
	return c.JSON(http.StatusOK, docs)
}

func (h *Handler) getHistory(c echo.Context) error {
	sessionID := strings.TrimSpace(c.Param("sessionId"))
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, local.ErrorSessionRequired.Text(h.language))
	}

	resp, err := h.Chat.History(c.Request().Context(), sessionID)
	switch {
	case errors.Is(err, usecase.ErrHistoryNotFound):
		return echo.NewHTTPError(http.StatusNotFound, local.ErrorHistoryNotFound.Text(h.language))
	case err != nil:
		h.Logger.Error("failed to fetch history", zap.String("session_id", sessionID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, local.ErrorHistory.Text(h.language)).SetInternal(err)
	}
	return c.JSON(http.StatusOK, resp)
}
