package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/iamvkosarev/rag-chat-gateway/internal/model"
)

const (
	duckDuckGoURL = "https://html.duckduckgo.com/html/"
	userAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// DuckDuckGo scrapes the JavaScript-free DuckDuckGo result page. With a site
// set it becomes a site-restricted search that drops off-site links.
type DuckDuckGo struct {
	httpClient *http.Client
	baseURL    string
	name       string
	site       string
	maxResults int
}

func NewDuckDuckGo(httpClient *http.Client, maxResults int) *DuckDuckGo {
	return &DuckDuckGo{
		httpClient: httpClient,
		baseURL:    duckDuckGoURL,
		name:       "DuckDuckGo",
		maxResults: maxResults,
	}
}

func NewSiteSearch(httpClient *http.Client, name, site string, maxResults int) *DuckDuckGo {
	return &DuckDuckGo{
		httpClient: httpClient,
		baseURL:    duckDuckGoURL,
		name:       name,
		site:       site,
		maxResults: maxResults,
	}
}

func (d *DuckDuckGo) Name() string {
	return d.name
}

func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]model.WebResult, error) {
	q := query
	if d.site != "" {
		q = fmt.Sprintf("site:%s %s", d.site, query)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"?q="+url.QueryEscape(q), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", d.name, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,fa;q=0.8")
	req.Header.Set("Referer", "https://duckduckgo.com/")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", d.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{provider: d.name, code: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s page: %w", d.name, err)
	}

	results := make([]model.WebResult, 0, d.maxResults)
	doc.Find("a.result__a").EachWithBreak(
		func(_ int, a *goquery.Selection) bool {
			if len(results) >= d.maxResults {
				return false
			}
			href, _ := a.Attr("href")
			link := unwrapRedirect(href)
			title := strings.TrimSpace(a.Text())
			if link == "" || title == "" {
				return true
			}
			if d.site != "" && !strings.Contains(link, d.site) {
				return true
			}
			snippet := a.Closest(".result").Find("a.result__snippet, .result__snippet").First()
			results = append(
				results, model.WebResult{
					Title:       title,
					Link:        link,
					Description: strings.TrimSpace(snippet.Text()),
				},
			)
			return true
		},
	)
	return results, nil
}

// unwrapRedirect turns DuckDuckGo's /l/?uddg= click-tracking links into the
// target URL.
func unwrapRedirect(href string) string {
	href = strings.TrimSpace(href)
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if strings.HasPrefix(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}
