package in_memory

import (
	"context"
	"sync"
	"time"

	"github.com/iamvkosarev/rag-chat-gateway/internal/model"
)

type ChatStorage struct {
	mu       sync.RWMutex
	sessions map[string][]model.Message
	now      func() time.Time
}

func NewChatStorage() *ChatStorage {
	return &ChatStorage{
		sessions: make(map[string][]model.Message),
		now:      time.Now,
	}
}

func (c *ChatStorage) AddMessage(_ context.Context, sessionID string, msg model.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	messages := c.sessions[sessionID]
	var last time.Time
	if len(messages) > 0 {
		last = messages[len(messages)-1].Timestamp
	}
	msg.Timestamp = model.NextTimestamp(last, c.now().UTC())
	if msg.UserInfo != nil {
		info := *msg.UserInfo
		msg.UserInfo = &info
	}
	c.sessions[sessionID] = append(messages, msg)
	return nil
}

func (c *ChatStorage) RecentMessages(_ context.Context, sessionID string, limit int) ([]model.Message, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	messages := c.sessions[sessionID]
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return copyMessages(messages), nil
}

func (c *ChatStorage) AllMessages(_ context.Context, sessionID string) ([]model.Message, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyMessages(c.sessions[sessionID]), nil
}

func (c *ChatStorage) LatestUserInfo(_ context.Context, sessionID string) (*model.UserInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	messages := c.sessions[sessionID]
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.MessageRoleUser && messages[i].UserInfo != nil {
			info := *messages[i].UserInfo
			return &info, nil
		}
	}
	return nil, nil
}

func copyMessages(messages []model.Message) []model.Message {
	out := make([]model.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.UserInfo != nil {
			info := *msg.UserInfo
			msg.UserInfo = &info
		}
		out = append(out, msg)
	}
	return out
}
