package usecase

import (
	"context"
	"regexp"

	"github.com/google/uuid"
	"github.com/iamvkosarev/rag-chat-gateway/config"
	"github.com/iamvkosarev/rag-chat-gateway/internal/model"
	"go.uber.org/zap"
)

// sessionTokenPattern accepts uuids and the shorter random ids older widget
// deployments stored in the cookie.
var sessionTokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

type ChatStorage interface {
	AddMessage(ctx context.Context, sessionID string, msg model.Message) error
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]model.Message, error)
	AllMessages(ctx context.Context, sessionID string) ([]model.Message, error)
	LatestUserInfo(ctx context.Context, sessionID string) (*model.UserInfo, error)
}

type SessionUsecaseDeps struct {
	ChatStorage ChatStorage
	Logger      *zap.Logger
	Observer    Observer
}

type SessionUsecase struct {
	SessionUsecaseDeps
	cfg   config.Session
	newID func() string
}

func NewSessionUsecase(deps SessionUsecaseDeps, cfg config.Session) *SessionUsecase {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	return &SessionUsecase{
		SessionUsecaseDeps: deps,
		cfg:                cfg,
		newID:              uuid.NewString,
	}
}

// ResolveOrCreateSession returns token when it is a well-formed session id and
// a fresh one otherwise. created tells the caller to persist the id.
func (s *SessionUsecase) ResolveOrCreateSession(token string) (sessionID string, created bool) {
	if sessionTokenPattern.MatchString(token) {
		return token, false
	}
	return s.newID(), true
}

// AppendMessage stores one turn. Unknown roles and storage errors are logged
// and reported as false.
func (s *SessionUsecase) AppendMessage(
	ctx context.Context, sessionID string, role model.MessageRole, content string, hint *model.UserInfo,
) bool {
	if !role.Valid() {
		s.Logger.Error("refusing to append message", zap.String("session_id", sessionID), zap.String("role", string(role)))
		return false
	}
	msg := model.Message{Role: role, Content: content}
	if role == model.MessageRoleUser {
		msg.UserInfo = hint.Normalize()
	}
	if err := s.ChatStorage.AddMessage(ctx, sessionID, msg); err != nil {
		s.Logger.Error(
			"failed to append message",
			zap.String("session_id", sessionID),
			zap.String("role", string(role)),
			zap.Error(err),
		)
		s.Observer.ObserveStorageFailure("append")
		return false
	}
	return true
}

// RecentHistory returns up to limit turns, oldest first. It never fails; a
// storage error reads as an empty history.
func (s *SessionUsecase) RecentHistory(ctx context.Context, sessionID string, limit int) []model.HistoryLine {
	if limit <= 0 {
		limit = s.cfg.HistoryLimit
	}
	messages, err := s.ChatStorage.RecentMessages(ctx, sessionID, limit)
	if err != nil {
		s.Logger.Error("failed to read recent history", zap.String("session_id", sessionID), zap.Error(err))
		s.Observer.ObserveStorageFailure("recent_history")
		return []model.HistoryLine{}
	}
	lines := make([]model.HistoryLine, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, msg.Line())
	}
	return lines
}

func (s *SessionUsecase) FullHistory(ctx context.Context, sessionID string) ([]model.Message, error) {
	return s.ChatStorage.AllMessages(ctx, sessionID)
}

func (s *SessionUsecase) LatestProfileHint(ctx context.Context, sessionID string) (*model.UserInfo, error) {
	return s.ChatStorage.LatestUserInfo(ctx, sessionID)
}
