package key_value

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iamvkosarev/rag-chat-gateway/internal/model"
	"github.com/redis/go-redis/v9"
)

const maxAppendAttempts = 16

var ErrAppendContention = errors.New("too many concurrent appends")

type userInfoInternal struct {
	Name    string `json:"name,omitempty"`
	Contact string `json:"contact,omitempty"`
}

type messageInternal struct {
	Role      model.MessageRole `json:"role"`
	Content   string            `json:"content"`
	Timestamp int64             `json:"timestamp"`
	UserInfo  *userInfoInternal `json:"user_info,omitempty"`
}

// ChatStorage keeps each session's history as a redis list of JSON messages in
// insertion order. The list expires ttl after the last write.
type ChatStorage struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewChatStorage(rdb *redis.Client, ttl time.Duration) *ChatStorage {
	return &ChatStorage{
		rdb: rdb,
		ttl: ttl,
		now: time.Now,
	}
}

// AddMessage appends msg under WATCH so that concurrent appends to one session
// cannot interleave between reading the last timestamp and pushing.
func (c *ChatStorage) AddMessage(ctx context.Context, sessionID string, msg model.Message) error {
	key := getChatHistoryKey(sessionID)

	txf := func(tx *redis.Tx) error {
		var last time.Time
		lastRaw, err := tx.LIndex(ctx, key, -1).Result()
		switch {
		case err == nil:
			lastMsg, err := unmarshalMessage(lastRaw)
			if err != nil {
				return fmt.Errorf("failed to read last message of %s: %w", sessionID, err)
			}
			last = lastMsg.Timestamp
		case !errors.Is(err, redis.Nil):
			return fmt.Errorf("failed to get last message of %s: %w", sessionID, err)
		}

		msgJSON, err := marshalMessage(msg, model.NextTimestamp(last, c.now().UTC()))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, key, msgJSON)
			if c.ttl > 0 {
				pipe.Expire(ctx, key, c.ttl)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxAppendAttempts; i++ {
		err := c.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to save message %s: %w", key, err)
		}
		return nil
	}
	return fmt.Errorf("failed to save message %s: %w", key, ErrAppendContention)
}

func marshalMessage(msg model.Message, timestamp time.Time) ([]byte, error) {
	msgInt := messageInternal{
		Role:      msg.Role,
		Content:   msg.Content,
		Timestamp: timestamp.UnixMicro(),
	}
	if msg.UserInfo != nil {
		msgInt.UserInfo = &userInfoInternal{Name: msg.UserInfo.Name, Contact: msg.UserInfo.Contact}
	}
	msgJSON, err := json.Marshal(msgInt)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal internal message: %w", err)
	}
	return msgJSON, nil
}

func (c *ChatStorage) RecentMessages(ctx context.Context, sessionID string, limit int) ([]model.Message, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	return c.rangeMessages(ctx, sessionID, start)
}

func (c *ChatStorage) AllMessages(ctx context.Context, sessionID string) ([]model.Message, error) {
	return c.rangeMessages(ctx, sessionID, 0)
}

func (c *ChatStorage) LatestUserInfo(ctx context.Context, sessionID string) (*model.UserInfo, error) {
	messages, err := c.AllMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.MessageRoleUser && messages[i].UserInfo != nil {
			return messages[i].UserInfo, nil
		}
	}
	return nil, nil
}

func (c *ChatStorage) rangeMessages(ctx context.Context, sessionID string, start int64) ([]model.Message, error) {
	key := getChatHistoryKey(sessionID)
	raws, err := c.rdb.LRange(ctx, key, start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get chat history %s: %w", key, err)
	}
	messages := make([]model.Message, 0, len(raws))
	for _, raw := range raws {
		msg, err := unmarshalMessage(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to read chat history %s: %w", key, err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func unmarshalMessage(raw string) (model.Message, error) {
	var msgInt messageInternal
	if err := json.Unmarshal([]byte(raw), &msgInt); err != nil {
		return model.Message{}, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	msg := model.Message{
		Role:      msgInt.Role,
		Content:   msgInt.Content,
		Timestamp: time.UnixMicro(msgInt.Timestamp).UTC(),
	}
	if msgInt.UserInfo != nil {
		msg.UserInfo = &model.UserInfo{Name: msgInt.UserInfo.Name, Contact: msgInt.UserInfo.Contact}
	}
	return msg, nil
}

func getChatHistoryKey(sessionID string) string {
	return fmt.Sprintf("chat_history_%s", sessionID)
}
