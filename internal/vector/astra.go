package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/iamvkosarev/rag-chat-gateway/config"
	"github.com/iamvkosarev/rag-chat-gateway/internal/model"
)

var ErrAstraNotConfigured = errors.New("astra endpoint, keyspace, collection and token are required")

// AstraStore queries an Astra DB collection through the JSON Data API.
type AstraStore struct {
	httpClient *http.Client
	searchURL  string
	token      string
}

func NewAstraStore(cfg config.Astra, httpClient *http.Client) (*AstraStore, error) {
	if cfg.Endpoint == "" || cfg.Keyspace == "" || cfg.Collection == "" || cfg.Token == "" {
		return nil, ErrAstraNotConfigured
	}
	return &AstraStore{
		httpClient: httpClient,
		searchURL: fmt.Sprintf(
			"%s/api/json/v1/%s/%s", strings.TrimRight(cfg.Endpoint, "/"), cfg.Keyspace, cfg.Collection,
		),
		token: cfg.Token,
	}, nil
}

type astraFindRequest struct {
	Find astraFind `json:"find"`
}

type astraFind struct {
	Sort       map[string]any `json:"sort"`
	Options    astraOptions   `json:"options"`
	Projection map[string]int `json:"projection"`
}

type astraOptions struct {
	Limit             int  `json:"limit"`
	IncludeSimilarity bool `json:"includeSimilarity"`
}

type astraFindResponse struct {
	Data struct {
		Documents []model.VectorDocument `json:"documents"`
	} `json:"data"`
	Errors []struct {
		Message   string `json:"message"`
		ErrorCode string `json:"errorCode"`
	} `json:"errors"`
}

func (a *AstraStore) Search(ctx context.Context, vector []float32, limit int) ([]model.VectorDocument, error) {
	if len(vector) == 0 {
		return nil, errors.New("empty query vector")
	}
	body, err := json.Marshal(
		astraFindRequest{
			Find: astraFind{
				Sort:    map[string]any{"$vector": vector},
				Options: astraOptions{Limit: limit, IncludeSimilarity: true},
				Projection: map[string]int{
					"_id":                 0,
					"content":             1,
					"metadata.doc_name":   1,
					"metadata.references": 1,
				},
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal astra request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.searchURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build astra request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Cassandra-Token", a.token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query astra: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("astra search failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var found astraFindResponse
	if err = json.NewDecoder(resp.Body).Decode(&found); err != nil {
		return nil, fmt.Errorf("failed to decode astra response: %w", err)
	}
	if len(found.Errors) > 0 {
		return nil, fmt.Errorf("astra search failed: %s", found.Errors[0].Message)
	}
	if found.Data.Documents == nil {
		return []model.VectorDocument{}, nil
	}
	return found.Data.Documents, nil
}
