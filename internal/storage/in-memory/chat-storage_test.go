package in_memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/iamvkosarev/rag-chat-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewChatStorage()

	require.NoError(t, s.AddMessage(ctx, "s1", model.Message{Role: model.MessageRoleUser, Content: "سوال"}))
	require.NoError(t, s.AddMessage(ctx, "s1", model.Message{Role: model.MessageRoleAssistant, Content: "پاسخ"}))
	require.NoError(t, s.AddMessage(ctx, "s2", model.Message{Role: model.MessageRoleUser, Content: "other"}))

	all, err := s.AllMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, model.MessageRoleUser, all[0].Role)
	assert.Equal(t, "سوال", all[0].Content)
	assert.Equal(t, "پاسخ", all[1].Content)
	assert.True(t, all[1].Timestamp.After(all[0].Timestamp))
}

func TestChatStorageRecentWindow(t *testing.T) {
	ctx := context.Background()
	s := NewChatStorage()
	for i := 0; i < 10; i++ {
		require.NoError(t, s.AddMessage(ctx, "s1", model.Message{Role: model.MessageRoleUser, Content: fmt.Sprint(i)}))
	}

	recent, err := s.RecentMessages(ctx, "s1", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"7", "8", "9"}, []string{recent[0].Content, recent[1].Content, recent[2].Content})

	empty, err := s.RecentMessages(ctx, "unknown", 3)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestChatStorageTimestampsSurviveFrozenClock(t *testing.T) {
	ctx := context.Background()
	s := NewChatStorage()
	frozen := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return frozen }

	for i := 0; i < 3; i++ {
		require.NoError(t, s.AddMessage(ctx, "s1", model.Message{Role: model.MessageRoleUser, Content: "x"}))
	}
	all, err := s.AllMessages(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, all[1].Timestamp.After(all[0].Timestamp))
	assert.True(t, all[2].Timestamp.After(all[1].Timestamp))
}

func TestChatStorageLatestUserInfo(t *testing.T) {
	ctx := context.Background()
	s := NewChatStorage()

	info, err := s.LatestUserInfo(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, info)

	require.NoError(t, s.AddMessage(ctx, "s1", model.Message{
		Role: model.MessageRoleUser, Content: "hi", UserInfo: &model.UserInfo{Name: "Sara"},
	}))
	require.NoError(t, s.AddMessage(ctx, "s1", model.Message{Role: model.MessageRoleAssistant, Content: "hello"}))
	require.NoError(t, s.AddMessage(ctx, "s1", model.Message{
		Role: model.MessageRoleUser, Content: "again", UserInfo: &model.UserInfo{Name: "Sara", Contact: "0912"},
	}))
	require.NoError(t, s.AddMessage(ctx, "s1", model.Message{Role: model.MessageRoleUser, Content: "no hint"}))

	info, err = s.LatestUserInfo(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, model.UserInfo{Name: "Sara", Contact: "0912"}, *info)
}
