package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const naverNewsURL = "https://openapi.naver.com/v1/search/news.json"

// NaverSearcher consulta la API de noticias de Naver.
type NaverSearcher struct {
	endpoint     string
	clientID     string
	clientSecret string
	client       *http.Client
}

func NewNaverSearcher(clientID, clientSecret string, httpClient *http.Client) *NaverSearcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &NaverSearcher{
		endpoint:     naverNewsURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       httpClient,
	}
}

// WithEndpoint redirige las consultas (tests o proxies).
func (s *NaverSearcher) WithEndpoint(endpoint string) *NaverSearcher {
	s.endpoint = endpoint
	return s
}

type naverNewsResponse struct {
	LastBuildDate string   `json:"lastBuildDate"`
	Total         int      `json:"total"`
	Start         int      `json:"start"`
	Display       int      `json:"display"`
	Items         []Result `json:"items"`
}

func (s *NaverSearcher) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("naver search: empty query")
	}
	if limit <= 0 {
		limit = 3
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("display", strconv.Itoa(limit))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Naver-Client-Id", s.clientID)
	req.Header.Set("X-Naver-Client-Secret", s.clientSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("naver search http error: status=%d", resp.StatusCode)
	}

	var nr naverNewsResponse
	if err := json.Unmarshal(body, &nr); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	items := nr.Items
	if len(items) > limit {
		items = items[:limit]
	}
	for i := range items {
		items[i].Title = cleanMarkup(items[i].Title)
		items[i].Description = cleanMarkup(items[i].Description)
	}
	return items, nil
}

var markupReplacer = strings.NewReplacer("<b>", "", "</b>", "")

// cleanMarkup quita el resaltado <b> de Naver y decodifica entidades HTML.
func cleanMarkup(s string) string {
	return html.UnescapeString(markupReplacer.Replace(s))
}
