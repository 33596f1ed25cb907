package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/iamvkosarev/rag-chat-gateway/internal/failover"
	"github.com/iamvkosarev/rag-chat-gateway/internal/model"
	"github.com/iamvkosarev/rag-chat-gateway/pkg/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCreatesSessionAndPersistsTurns(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(nil, fakeProvider{name: "DuckDuckGo", results: []model.WebResult{{Title: "t", Link: "https://l"}}})

	first, err := f.chat.Chat(ctx, ChatRequest{Text: "سوال"})
	require.NoError(t, err)
	require.NotEmpty(t, first.SessionID)
	assert.Equal(t, "پاسخ آزمایشی", first.Response)

	history := f.session.RecentHistory(ctx, first.SessionID, 8)
	assert.Equal(
		t, []model.HistoryLine{
			{Role: model.MessageRoleUser, Content: "سوال"},
			{Role: model.MessageRoleAssistant, Content: "پاسخ آزمایشی"},
		}, history,
	)

	second, err := f.chat.Chat(ctx, ChatRequest{SessionID: first.SessionID, Text: "ادامه"})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
	require.Len(t, f.generator.prompts, 2)
	assert.Contains(t, f.generator.prompts[1], "user: سوال\nassistant: پاسخ آزمایشی")
	assert.Equal(t, 2, f.observer.chats[http.StatusOK])
}

func TestChatSurvivesEmbeddingFailure(t *testing.T) {
	f := newChatFixture(nil)
	f.embedder.err = errors.New("dial tcp: connection refused")
	f.store.docs = []model.VectorDocument{{Content: "unreachable"}}

	resp, err := f.chat.Chat(context.Background(), ChatRequest{Text: "سوال"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Response)
	assert.NotNil(t, resp.AstraResults)
	assert.Empty(t, resp.AstraResults)
	assert.Equal(t, 0, f.store.calls)
	assert.Contains(t, f.generator.prompts[0], local.VectorEmbeddingFailed.Default)
}

func TestChatRotatesGenerationCredentialOnQuota(t *testing.T) {
	f := newChatFixture(nil)
	f.generator.byCred["free"] = generationResult{
		err: &failover.StatusError{StatusCode: http.StatusTooManyRequests, Message: "quota exceeded"},
	}
	f.generator.byCred["paid"] = generationResult{gen: model.Generation{Text: "از کلید دوم", FinishReason: model.FinishReasonStop}}

	resp, err := f.chat.Chat(context.Background(), ChatRequest{Text: "سوال"})
	require.NoError(t, err)
	assert.Equal(t, "از کلید دوم", resp.Response)
	assert.Equal(t, []string{"free", "paid"}, f.generator.calls)
}

func TestChatReturnsGenerationFailureVerbatim(t *testing.T) {
	ctx := context.Background()
	quota := generationResult{err: &failover.StatusError{StatusCode: http.StatusTooManyRequests}}

	f := newChatFixture(nil)
	f.generator.byCred["free"] = quota
	f.generator.byCred["paid"] = quota
	resp, err := f.chat.Chat(ctx, ChatRequest{SessionID: "session-0001", Text: "سوال"})
	var failure failover.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, http.StatusTooManyRequests, failure.Status)
	assert.Equal(t, failover.MessageCredentialsExhausted, failure.Message)
	assert.Equal(t, "session-0001", resp.SessionID)
	assert.Empty(t, f.session.RecentHistory(ctx, "session-0001", 8))

	f = newChatFixture(nil)
	f.generator.byCred["free"] = generationResult{
		err: &failover.StatusError{StatusCode: http.StatusBadRequest, Message: "prompt too long"},
	}
	_, err = f.chat.Chat(ctx, ChatRequest{Text: "سوال"})
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, failover.KindClient, failure.Kind)
	assert.Equal(t, "prompt too long", failure.Message)
	assert.Equal(t, []string{"free"}, f.generator.calls)
}

func TestChatValidatesText(t *testing.T) {
	f := newChatFixture(nil)

	_, err := f.chat.Chat(context.Background(), ChatRequest{Text: "   \n"})
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.Empty(t, f.generator.calls)
	assert.Equal(t, 1, f.observer.chats[http.StatusBadRequest])
}

func TestChatDoesNotPersistBlockedAnswer(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(nil)
	f.generator.fallback = model.Generation{FinishReason: model.FinishReasonSafety}

	resp, err := f.chat.Chat(ctx, ChatRequest{SessionID: "session-0001", Text: "سوال"})
	require.NoError(t, err)
	assert.Equal(t, local.ResponseBlockedSafety.Default, resp.Response)

	history := f.session.RecentHistory(ctx, "session-0001", 8)
	require.Len(t, history, 1)
	assert.Equal(t, model.MessageRoleUser, history[0].Role)
}

func TestChatFinishReasons(t *testing.T) {
	f := newChatFixture(nil)
	marker := local.ResponseTruncatedMarker.Default

	tests := []struct {
		name      string
		gen       model.Generation
		want      string
		fromModel bool
	}{
		{name: "stop", gen: model.Generation{Text: "کامل", FinishReason: model.FinishReasonStop}, want: "کامل", fromModel: true},
		{name: "truncated", gen: model.Generation{Text: "نیمه", FinishReason: model.FinishReasonMaxTokens}, want: "نیمه\n\n" + marker, fromModel: true},
		{name: "truncated empty", gen: model.Generation{FinishReason: model.FinishReasonMaxTokens}, want: local.ResponseIncomplete.Default + "\n\n" + marker},
		{name: "recitation", gen: model.Generation{FinishReason: model.FinishReasonRecitation}, want: local.ResponseBlockedRecitation.Default},
		{name: "empty", gen: model.Generation{Text: "  "}, want: local.ResponseEmpty.Default},
	}
	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				got, fromModel := f.chat.normalizeGeneration(tt.gen)
				assert.Equal(t, tt.want, got)
				assert.Equal(t, tt.fromModel, fromModel)
			},
		)
	}
}

func TestChatProfileHintStoredOnlyWhenNew(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(nil)
	hint := &model.UserInfo{Name: "علی", Contact: "0912"}

	for i := 0; i < 2; i++ {
		_, err := f.chat.Chat(ctx, ChatRequest{SessionID: "session-0001", Text: "سوال", UserInfo: hint})
		require.NoError(t, err)
	}
	_, err := f.chat.Chat(ctx, ChatRequest{SessionID: "session-0001", Text: "بدون نام"})
	require.NoError(t, err)

	all, err := f.session.FullHistory(ctx, "session-0001")
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.Equal(t, hint, all[0].UserInfo)
	assert.Nil(t, all[2].UserInfo)
	assert.Nil(t, all[4].UserInfo)
	assert.Contains(t, f.generator.prompts[2], "**User Information:** علی")
}

func TestChatStorageOutageDoesNotFailRequest(t *testing.T) {
	f := newChatFixture(brokenStorage{})

	resp, err := f.chat.Chat(context.Background(), ChatRequest{Text: "سوال"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Response)
	assert.Equal(t, 2, f.observer.storage["append"])
	assert.Equal(t, 1, f.observer.storage["recent_history"])
}

func TestVectorSearch(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(nil)
	f.store.docs = []model.VectorDocument{{Content: "a", Similarity: 0.9}}

	_, err := f.chat.VectorSearch(ctx, " ")
	assert.ErrorIs(t, err, ErrEmptyText)

	docs, err := f.chat.VectorSearch(ctx, "  پنجره ")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, []string{"پنجره"}, f.embedder.texts)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(nil)

	_, err := f.chat.History(ctx, "session-unknown")
	assert.ErrorIs(t, err, ErrHistoryNotFound)

	_, err = f.chat.Chat(ctx, ChatRequest{SessionID: "session-0001", Text: "سوال", UserInfo: &model.UserInfo{Contact: "0935"}})
	require.NoError(t, err)

	got, err := f.chat.History(ctx, "session-0001")
	require.NoError(t, err)
	assert.Len(t, got.History, 2)
	assert.Equal(t, &model.UserInfo{Contact: "0935"}, got.UserInfo)

	_, err = newChatFixture(brokenStorage{}).chat.History(ctx, "session-0001")
	assert.ErrorIs(t, err, errStorageDown)
}
