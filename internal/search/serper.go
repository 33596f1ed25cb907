package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/iamvkosarev/rag-chat-gateway/internal/model"
)

const serperURL = "https://google.serper.dev/search"

// Serper queries Google through the serper.dev JSON API.
type Serper struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	maxResults int
}

func NewSerper(httpClient *http.Client, apiKey string, maxResults int) *Serper {
	return &Serper{
		httpClient: httpClient,
		baseURL:    serperURL,
		apiKey:     apiKey,
		maxResults: maxResults,
	}
}

func (s *Serper) Name() string {
	return "Google"
}

func (s *Serper) Search(ctx context.Context, query string) ([]model.WebResult, error) {
	body, err := json.Marshal(map[string]any{"q": query, "num": s.maxResults})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal serper request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build serper request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query serper: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{provider: "serper", code: resp.StatusCode}
	}

	var raw struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode serper response: %w", err)
	}
	results := make([]model.WebResult, 0, s.maxResults)
	for _, r := range raw.Organic {
		if len(results) >= s.maxResults {
			break
		}
		results = append(results, model.WebResult{Title: r.Title, Link: r.Link, Description: r.Snippet})
	}
	return results, nil
}
