package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/iamvkosarev/rag-chat-gateway/internal/failover"
	"github.com/iamvkosarev/rag-chat-gateway/internal/model"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"
)

var (
	ErrVectorSearch         = errors.New("vector search failed")
	ErrVectorSearchDisabled = errors.New("vector search is not configured")
)

type SearchProvider interface {
	Name() string
	Search(ctx context.Context, query string) ([]model.WebResult, error)
}

type VectorStore interface {
	Search(ctx context.Context, vector []float32, limit int) ([]model.VectorDocument, error)
}

type Embedder interface {
	Embed(ctx context.Context, cred model.Credential, text string) ([]float32, error)
}

type RetrievalUsecaseDeps struct {
	Providers []SearchProvider
	// VectorStore may be nil, in which case the knowledge base is skipped.
	VectorStore VectorStore
	Embedder    Embedder
	Engine      *failover.Engine
	Logger      *zap.Logger
	Observer    Observer
}

type RetrievalUsecase struct {
	RetrievalUsecaseDeps
	embeddingPool model.CredentialPool
	vectorLimit   int
}

func NewRetrievalUsecase(deps RetrievalUsecaseDeps, embeddingPool model.CredentialPool, vectorLimit int) *RetrievalUsecase {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	if vectorLimit <= 0 {
		vectorLimit = 10
	}
	return &RetrievalUsecase{
		RetrievalUsecaseDeps: deps,
		embeddingPool:        embeddingPool,
		vectorLimit:          vectorLimit,
	}
}

// Retrieve runs the web providers and the embedding plus vector lookup
// concurrently and joins them. It never fails: every broken source degrades
// to an empty result and a status the prompt can describe.
func (r *RetrievalUsecase) Retrieve(ctx context.Context, query string) model.Retrieval {
	var retrieval model.Retrieval

	wg := conc.NewWaitGroup()
	wg.Go(
		func() {
			retrieval.Web = r.searchWeb(ctx, query)
		},
	)
	wg.Go(
		func() {
			retrieval.Vector, retrieval.VectorStatus = r.searchKnowledgeBase(ctx, query)
		},
	)
	wg.Wait()

	return retrieval
}

// SearchVectors is the knowledge-base-only lookup. Unlike Retrieve it reports
// embedding and store failures to the caller.
func (r *RetrievalUsecase) SearchVectors(ctx context.Context, query string) ([]model.VectorDocument, error) {
	if r.VectorStore == nil {
		return nil, ErrVectorSearchDisabled
	}
	vector, failure := r.embed(ctx, query)
	if failure != nil {
		return nil, *failure
	}
	docs, err := r.VectorStore.Search(ctx, vector, r.vectorLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVectorSearch, err)
	}
	return docs, nil
}

// searchWeb keeps the declared provider order whatever order they finish in.
func (r *RetrievalUsecase) searchWeb(ctx context.Context, query string) []model.ProviderResults {
	return iter.Map(
		r.Providers, func(p *SearchProvider) model.ProviderResults {
			provider := *p
			results, err := provider.Search(ctx, query)
			if err != nil {
				r.Logger.Warn("web search failed", zap.String("provider", provider.Name()), zap.Error(err))
				r.Observer.ObserveDegradation(provider.Name(), "error")
				results = nil
			}
			if len(results) == 0 {
				r.Observer.ObserveDegradation(provider.Name(), "empty")
				results = []model.WebResult{}
			}
			return model.ProviderResults{Provider: provider.Name(), Results: results}
		},
	)
}

func (r *RetrievalUsecase) searchKnowledgeBase(ctx context.Context, query string) ([]model.VectorDocument, model.VectorStatus) {
	empty := []model.VectorDocument{}
	if r.VectorStore == nil {
		return empty, model.VectorSkipped
	}

	vector, failure := r.embed(ctx, query)
	if failure != nil {
		r.Logger.Warn(
			"embedding failed, continuing without knowledge base",
			zap.Stringer("kind", failure.Kind),
			zap.Int("status", failure.Status),
			zap.String("message", failure.Message),
		)
		r.Observer.ObserveDegradation("vector", model.VectorEmbeddingFailed.String())
		return empty, model.VectorEmbeddingFailed
	}

	docs, err := r.VectorStore.Search(ctx, vector, r.vectorLimit)
	if err != nil {
		r.Logger.Warn("vector search failed", zap.Error(err))
		r.Observer.ObserveDegradation("vector", model.VectorSearchFailed.String())
		return empty, model.VectorSearchFailed
	}
	if len(docs) == 0 {
		r.Observer.ObserveDegradation("vector", model.VectorEmpty.String())
		return empty, model.VectorEmpty
	}
	return docs, model.VectorFound
}

func (r *RetrievalUsecase) embed(ctx context.Context, text string) ([]float32, *failover.Failure) {
	outcome := failover.Execute(
		ctx, r.Engine, r.embeddingPool, func(ctx context.Context, cred model.Credential) ([]float32, error) {
			return r.Embedder.Embed(ctx, cred, text)
		},
	)
	if !outcome.OK {
		return nil, &outcome.Failure
	}
	return outcome.Value, nil
}
