package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/iamvkosarev/rag-chat-gateway/config"
	"github.com/iamvkosarev/rag-chat-gateway/internal/failover"
	"github.com/iamvkosarev/rag-chat-gateway/internal/model"
	in_memory "github.com/iamvkosarev/rag-chat-gateway/internal/storage/in-memory"
	"github.com/iamvkosarev/rag-chat-gateway/pkg/local"
	"github.com/iamvkosarev/rag-chat-gateway/pkg/tokens"
	"go.uber.org/zap"
)

var errStorageDown = errors.New("storage is down")

type brokenStorage struct{}

func (brokenStorage) AddMessage(context.Context, string, model.Message) error {
	return errStorageDown
}

func (brokenStorage) RecentMessages(context.Context, string, int) ([]model.Message, error) {
	return nil, errStorageDown
}

func (brokenStorage) AllMessages(context.Context, string) ([]model.Message, error) {
	return nil, errStorageDown
}

func (brokenStorage) LatestUserInfo(context.Context, string) (*model.UserInfo, error) {
	return nil, errStorageDown
}

type fakeProvider struct {
	name    string
	results []model.WebResult
	err     error
	delay   time.Duration
}

func (f fakeProvider) Name() string {
	return f.name
}

func (f fakeProvider) Search(ctx context.Context, _ string) ([]model.WebResult, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.results, f.err
}

type fakeVectorStore struct {
	mu    sync.Mutex
	docs  []model.VectorDocument
	err   error
	calls int
	limit int
}

func (f *fakeVectorStore) Search(_ context.Context, _ []float32, limit int) ([]model.VectorDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.limit = limit
	return f.docs, f.err
}

type fakeEmbedder struct {
	mu    sync.Mutex
	err   error
	calls int
	texts []string
}

func (f *fakeEmbedder) Embed(_ context.Context, _ model.Credential, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type generationResult struct {
	gen model.Generation
	err error
}

// fakeGenerator answers per credential name; unknown credentials succeed with
// a fixed answer.
type fakeGenerator struct {
	mu       sync.Mutex
	byCred   map[string]generationResult
	calls    []string
	prompts  []string
	fallback model.Generation
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		byCred:   make(map[string]generationResult),
		fallback: model.Generation{Text: "پاسخ آزمایشی", FinishReason: model.FinishReasonStop},
	}
}

func (f *fakeGenerator) Generate(_ context.Context, cred model.Credential, prompt string) (model.Generation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cred.Name)
	f.prompts = append(f.prompts, prompt)
	if r, ok := f.byCred[cred.Name]; ok {
		return r.gen, r.err
	}
	return f.fallback, nil
}

type countingObserver struct {
	mu           sync.Mutex
	degradations map[string]int
	chats        map[int]int
	storage      map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{
		degradations: make(map[string]int),
		chats:        make(map[int]int),
		storage:      make(map[string]int),
	}
}

func (o *countingObserver) ObserveDegradation(source, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.degradations[source+"/"+reason]++
}

func (o *countingObserver) ObserveChat(status int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.chats[status]++
}

func (o *countingObserver) ObserveStorageFailure(operation string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.storage[operation]++
}

func newTestEngine() *failover.Engine {
	return failover.NewEngine(
		failover.Options{
			Sleep: func(ctx context.Context, _ time.Duration) error { return ctx.Err() },
		},
	)
}

func testPool(name string, credNames ...string) model.CredentialPool {
	pool := model.CredentialPool{Name: name}
	for _, n := range credNames {
		pool.Credentials = append(pool.Credentials, model.Credential{Name: n, APIKey: "key-" + n})
	}
	return pool
}

type chatFixture struct {
	storage   ChatStorage
	embedder  *fakeEmbedder
	store     *fakeVectorStore
	generator *fakeGenerator
	observer  *countingObserver
	session   *SessionUsecase
	chat      *ChatUsecase
}

func newChatFixture(storage ChatStorage, providers ...SearchProvider) *chatFixture {
	if storage == nil {
		storage = in_memory.NewChatStorage()
	}
	f := &chatFixture{
		storage:   storage,
		embedder:  &fakeEmbedder{},
		store:     &fakeVectorStore{},
		generator: newFakeGenerator(),
		observer:  newCountingObserver(),
	}
	engine := newTestEngine()
	logger := zap.NewNop()

	f.session = NewSessionUsecase(
		SessionUsecaseDeps{ChatStorage: storage, Logger: logger, Observer: f.observer},
		config.Session{HistoryLimit: 8},
	)
	retrieval := NewRetrievalUsecase(
		RetrievalUsecaseDeps{
			Providers:   providers,
			VectorStore: f.store,
			Embedder:    f.embedder,
			Engine:      engine,
			Logger:      logger,
			Observer:    f.observer,
		}, testPool("embedding", "embedding"), 10,
	)
	prompt := NewPromptAssembler(
		config.Prompt{Locale: "fa", AssistantName: "AlumGlass", MaxTokens: 24000, SnippetRunes: 200},
		tokens.Estimator{},
	)
	f.chat = NewChatUsecase(
		ChatUsecaseDeps{
			Session:   f.session,
			Retrieval: retrieval,
			Prompt:    prompt,
			Generator: f.generator,
			Engine:    engine,
			Logger:    logger,
			Observer:  f.observer,
		}, testPool("generation", "free", "paid"), 8, local.Fas,
	)
	return f
}
