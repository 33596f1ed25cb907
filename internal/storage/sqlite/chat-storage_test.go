package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/iamvkosarev/rag-chat-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *ChatStorage {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestChatStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	require.NoError(t, s.AddMessage(ctx, "s1", model.Message{
		Role: model.MessageRoleUser, Content: "سوال", UserInfo: &model.UserInfo{Name: "Sara", Contact: "0912"},
	}))
	require.NoError(t, s.AddMessage(ctx, "s1", model.Message{Role: model.MessageRoleAssistant, Content: "پاسخ"}))
	require.NoError(t, s.AddMessage(ctx, "s2", model.Message{Role: model.MessageRoleUser, Content: "other"}))

	all, err := s.AllMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "سوال", all[0].Content)
	assert.Equal(t, &model.UserInfo{Name: "Sara", Contact: "0912"}, all[0].UserInfo)
	assert.Equal(t, model.MessageRoleAssistant, all[1].Role)
	assert.Nil(t, all[1].UserInfo)
	assert.False(t, all[1].Timestamp.Before(all[0].Timestamp))
}

func TestChatStorageRecentWindow(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	for i := 0; i < 10; i++ {
		require.NoError(t, s.AddMessage(ctx, "s1", model.Message{Role: model.MessageRoleUser, Content: fmt.Sprint(i)}))
	}

	recent, err := s.RecentMessages(ctx, "s1", 8)
	require.NoError(t, err)
	require.Len(t, recent, 8)
	assert.Equal(t, "2", recent[0].Content)
	assert.Equal(t, "9", recent[7].Content)
}

func TestChatStorageClockGoingBackwards(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(-time.Hour), base.Add(-time.Hour)}
	s.now = func() time.Time {
		now := times[0]
		times = times[1:]
		return now
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, s.AddMessage(ctx, "s1", model.Message{Role: model.MessageRoleUser, Content: fmt.Sprint(i)}))
	}
	all, err := s.AllMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[1].Timestamp.After(all[0].Timestamp))
	assert.True(t, all[2].Timestamp.After(all[1].Timestamp))
}

func TestChatStorageLatestUserInfo(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	info, err := s.LatestUserInfo(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, info)

	require.NoError(t, s.AddMessage(ctx, "s1", model.Message{
		Role: model.MessageRoleUser, Content: "a", UserInfo: &model.UserInfo{Name: "Old"},
	}))
	require.NoError(t, s.AddMessage(ctx, "s1", model.Message{
		Role: model.MessageRoleUser, Content: "b", UserInfo: &model.UserInfo{Name: "New"},
	}))
	require.NoError(t, s.AddMessage(ctx, "s1", model.Message{Role: model.MessageRoleUser, Content: "c"}))

	info, err = s.LatestUserInfo(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "New", info.Name)
}

func TestChatStorageClosed(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	require.NoError(t, s.Close())

	assert.Error(t, s.AddMessage(ctx, "s1", model.Message{Role: model.MessageRoleUser, Content: "x"}))
	_, err := s.RecentMessages(ctx, "s1", 8)
	assert.Error(t, err)
}
