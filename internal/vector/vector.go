package vector

import (
	"context"
	"fmt"
	"net/http"

	"github.com/iamvkosarev/rag-chat-gateway/config"
	"github.com/iamvkosarev/rag-chat-gateway/internal/model"
)

// Store is a nearest-neighbour search over the knowledge base. Results come
// back in the store's own ranking, most similar first.
type Store interface {
	Search(ctx context.Context, vector []float32, limit int) ([]model.VectorDocument, error)
}

// New builds the configured store. The "none" driver yields a nil Store.
func New(cfg config.Vector, httpClient *http.Client) (Store, error) {
	switch cfg.Driver {
	case "astra":
		if httpClient == nil {
			httpClient = &http.Client{Timeout: cfg.Timeout}
		}
		return NewAstraStore(cfg.Astra, httpClient)
	case "pgvector":
		return OpenPGVectorStore(cfg.Postgres)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownVectorDriver, cfg.Driver)
	}
}
