package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/iamvkosarev/rag-chat-gateway/config"
	"github.com/iamvkosarev/rag-chat-gateway/internal/failover"
	"github.com/iamvkosarev/rag-chat-gateway/internal/llm"
	"github.com/iamvkosarev/rag-chat-gateway/internal/metrics"
	"github.com/iamvkosarev/rag-chat-gateway/internal/search"
	in_memory "github.com/iamvkosarev/rag-chat-gateway/internal/storage/in-memory"
	key_value "github.com/iamvkosarev/rag-chat-gateway/internal/storage/key-value"
	"github.com/iamvkosarev/rag-chat-gateway/internal/storage/sqlite"
	"github.com/iamvkosarev/rag-chat-gateway/internal/transport/httpapi"
	"github.com/iamvkosarev/rag-chat-gateway/internal/usecase"
	"github.com/iamvkosarev/rag-chat-gateway/internal/vector"
	"github.com/iamvkosarev/rag-chat-gateway/pkg/local"
	"github.com/iamvkosarev/rag-chat-gateway/pkg/tokens"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App is the wired gateway. Close releases the storage and vector connections.
type App struct {
	Echo    *echo.Echo
	Metrics *metrics.Metrics

	cfg     *config.Config
	logger  *zap.Logger
	closers []io.Closer
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger, Metrics: metrics.New()}

	chatStorage, err := a.newChatStorage(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	provider, err := llm.New(cfg.LLM, nil)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create llm provider: %w", err)
	}

	searchProviders, err := search.New(cfg.Search, &http.Client{Timeout: cfg.Search.Timeout})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create search providers: %w", err)
	}
	providers := make([]usecase.SearchProvider, 0, len(searchProviders))
	for _, p := range searchProviders {
		providers = append(providers, p)
	}

	var vectorStore usecase.VectorStore
	store, err := vector.New(cfg.Vector, nil)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create vector store: %w", err)
	}
	if store != nil {
		vectorStore = store
		if closer, ok := store.(io.Closer); ok {
			a.closers = append(a.closers, closer)
		}
	} else {
		logger.Warn("vector store disabled")
	}

	engine := failover.NewEngine(
		failover.Options{
			MaxAttempts: cfg.LLM.MaxAttempts,
			Backoff:     cfg.LLM.RetryBackoff,
			Logger:      logger.Named("failover"),
			Observer:    a.Metrics,
		},
	)

	counter, err := tokens.NewCounter(cfg.Prompt.Encoding)
	if err != nil {
		logger.Warn("token encoding unavailable, estimating", zap.Error(err))
		counter = tokens.Estimator{}
	}

	language := local.ParseLanguage(cfg.Prompt.Locale)
	session := usecase.NewSessionUsecase(
		usecase.SessionUsecaseDeps{
			ChatStorage: chatStorage,
			Logger:      logger.Named("session"),
			Observer:    a.Metrics,
		}, cfg.Session,
	)
	retrieval := usecase.NewRetrievalUsecase(
		usecase.RetrievalUsecaseDeps{
			Providers:   providers,
			VectorStore: vectorStore,
			Embedder:    provider,
			Engine:      engine,
			Logger:      logger.Named("retrieval"),
			Observer:    a.Metrics,
		}, cfg.EmbeddingPool(), cfg.Vector.Limit,
	)
	chat := usecase.NewChatUsecase(
		usecase.ChatUsecaseDeps{
			Session:   session,
			Retrieval: retrieval,
			Prompt:    usecase.NewPromptAssembler(cfg.Prompt, counter),
			Generator: provider,
			Engine:    engine,
			Logger:    logger.Named("chat"),
			Observer:  a.Metrics,
		}, cfg.GenerationPool(), cfg.Session.HistoryLimit, language,
	)

	handler := httpapi.NewHandler(
		httpapi.HandlerDeps{
			Chat:     chat,
			Sessions: session,
			Logger:   logger.Named("http"),
		}, cfg.Session, language,
	)
	a.Echo = httpapi.NewServer(cfg.Server, handler, a.Metrics.Registry, logger.Named("http"))

	logger.Info(
		"gateway wired",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("vector", cfg.Vector.Driver),
		zap.String("llm", cfg.LLM.Backend),
		zap.Strings("search", cfg.Search.Providers),
		zap.Int("generation_credentials", cfg.GenerationPool().Len()),
	)
	return a, nil
}

func (a *App) newChatStorage(ctx context.Context) (usecase.ChatStorage, error) {
	switch a.cfg.Storage.Driver {
	case "memory":
		a.logger.Warn("using in-memory chat storage, history is lost on restart")
		return in_memory.NewChatStorage(), nil
	case "redis":
		rdb := redis.NewClient(
			&redis.Options{
				Addr:     a.cfg.Storage.Redis.Endpoint,
				Password: a.cfg.Storage.Redis.Password,
				DB:       a.cfg.Storage.Redis.DB,
			},
		)
		a.closers = append(a.closers, rdb)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis %s: %w", a.cfg.Storage.Redis.Endpoint, err)
		}
		return key_value.NewChatStorage(rdb, a.cfg.Storage.MessageTTL), nil
	case "sqlite":
		storage, err := sqlite.Open(ctx, a.cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, storage)
		return storage, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownStorageDriver, a.cfg.Storage.Driver)
	}
}

// Run serves until ctx is cancelled, then shuts the server down within the
// configured timeout.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", zap.String("address", a.cfg.Server.Address))
		errCh <- a.Echo.Start(a.cfg.Server.Address)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	a.logger.Info("shutting down")
	if err := a.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("failed to close resource", zap.Error(err))
		}
	}
	a.closers = nil
}

// Run wires the gateway from cfg and serves until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	a, err := New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Run(ctx)
}
