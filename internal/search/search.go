package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/iamvkosarev/rag-chat-gateway/config"
	"github.com/iamvkosarev/rag-chat-gateway/internal/model"
)

var (
	ErrUnknownProvider = errors.New("unknown search provider")
	ErrMissingAPIKey   = errors.New("search provider api key is not set")
)

const (
	ProviderDuckDuckGo = "ddg"
	ProviderSEP        = "sep"
	ProviderSerper     = "serper"
	ProviderBrave      = "brave"
)

// Provider is a best-effort keyword search returning at most a handful of
// title/link/snippet triples.
type Provider interface {
	// Name is the display name used to group results in the prompt.
	Name() string
	Search(ctx context.Context, query string) ([]model.WebResult, error)
}

type statusError struct {
	provider string
	code     int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s search failed with status %d", e.provider, e.code)
}

// New builds the configured providers in declared order.
func New(cfg config.Search, httpClient *http.Client) ([]Provider, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	providers := make([]Provider, 0, len(cfg.Providers))
	for _, id := range cfg.Providers {
		switch strings.ToLower(strings.TrimSpace(id)) {
		case ProviderDuckDuckGo:
			providers = append(providers, NewDuckDuckGo(httpClient, cfg.MaxResults))
		case ProviderSEP:
			providers = append(
				providers, NewSiteSearch(httpClient, "Stanford Encyclopedia of Philosophy", cfg.SiteFilter, cfg.SiteResults),
			)
		case ProviderSerper:
			if cfg.SerperAPIKey == "" {
				return nil, fmt.Errorf("%w: %s", ErrMissingAPIKey, id)
			}
			providers = append(providers, NewSerper(httpClient, cfg.SerperAPIKey, cfg.MaxResults))
		case ProviderBrave:
			if cfg.BraveAPIKey == "" {
				return nil, fmt.Errorf("%w: %s", ErrMissingAPIKey, id)
			}
			providers = append(providers, NewBrave(httpClient, cfg.BraveAPIKey, cfg.MaxResults))
		case "":
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, id)
		}
	}
	return providers, nil
}
