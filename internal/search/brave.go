package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/iamvkosarev/rag-chat-gateway/internal/model"
)

const braveURL = "https://api.search.brave.com/res/v1/web/search"

type Brave struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	maxResults int
}

func NewBrave(httpClient *http.Client, apiKey string, maxResults int) *Brave {
	return &Brave{
		httpClient: httpClient,
		baseURL:    braveURL,
		apiKey:     apiKey,
		maxResults: maxResults,
	}
}

func (b *Brave) Name() string {
	return "Brave"
}

func (b *Brave) Search(ctx context.Context, query string) ([]model.WebResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(b.maxResults))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build brave request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query brave: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{provider: "brave", code: resp.StatusCode}
	}

	var raw struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode brave response: %w", err)
	}
	results := make([]model.WebResult, 0, b.maxResults)
	for _, r := range raw.Web.Results {
		if len(results) >= b.maxResults {
			break
		}
		results = append(results, model.WebResult{Title: r.Title, Link: r.URL, Description: r.Description})
	}
	return results, nil
}
