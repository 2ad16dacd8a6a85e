package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"llm-chat/internal/domain"
	"llm-chat/internal/llm"
	"llm-chat/internal/websearch"
)

func newWebSearchFixture(reply string, searcher *stubSearcher, pages map[string]string) (*WebSearchService, *llm.MockClient) {
	client := &llm.MockClient{Response: reply}
	seoul := time.FixedZone("KST", 9*60*60)
	svc := NewWebSearchService(zap.NewNop(), client, searcher, &stubFetcher{pages: pages}, passthroughExtractor{}, WebSearchConfig{
		Location:       seoul,
		MaxResults:     3,
		PageCharBudget: 20,
	})
	svc.now = func() time.Time { return time.Date(2024, 12, 31, 20, 0, 0, 0, time.UTC) }
	return svc, client
}

func TestParseDecision(t *testing.T) {
	cases := []struct {
		reply string
		query string
		ok    bool
	}{
		{"true,weather in Seoul today", "weather in Seoul today", true},
		{"TRUE, 서울 날씨", "서울 날씨", true},
		{"true,stocks, bonds and gold", "stocks, bonds and gold", true},
		{`true,"quoted query"`, "quoted query", true},
		{"false", "", false},
		{"true", "", true},
		{"true,", "", true},
		{"true,   ", "", true},
		{"maybe,query", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.reply, func(t *testing.T) {
			q, ok := parseDecision(tc.reply)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.query, q)
		})
	}
}

func TestDecisionPrompt(t *testing.T) {
	p := decisionPrompt("2025-01-01", nil)
	assert.Contains(t, p, "Today's date is 2025-01-01.")
	assert.Contains(t, p, "(No relevant documents found)")

	long := strings.Repeat("x", 600)
	p = decisionPrompt("2025-01-01", []domain.Document{{Content: long}, {Content: "short"}})
	assert.Contains(t, p, strings.Repeat("x", 500)+"...")
	assert.NotContains(t, p, strings.Repeat("x", 501))
	assert.Contains(t, p, "<Document start>\nshort...\n<Document end>")
}

func TestWebSearchDecideUsesLocalDate(t *testing.T) {
	svc, client := newWebSearchFixture("false", &stubSearcher{}, nil)

	_, ok := svc.Decide(context.Background(), "q", nil)
	require.False(t, ok)
	require.Len(t, client.CompleteCalls, 1)
	// 20:00 UTC del 31/12 ya es 1/1 en Seúl.
	assert.Contains(t, client.CompleteCalls[0][0].Content, "Today's date is 2025-01-01.")
	assert.Equal(t, llm.User("q"), client.CompleteCalls[0][1])
}

func TestWebSearchDecideFallsBackToQuestion(t *testing.T) {
	svc, _ := newWebSearchFixture("true,  ", &stubSearcher{}, nil)

	query, ok := svc.Decide(context.Background(), " ¿Qué pasó hoy en Seúl? ", nil)
	require.True(t, ok)
	assert.Equal(t, "¿Qué pasó hoy en Seúl?", query)
}

func TestWebSearchMaybeSearch(t *testing.T) {
	prompt := []llm.Message{llm.User("¿Qué pasó hoy?")}
	results := []websearch.Result{
		{Title: "A", Link: "https://news/a"},
		{Title: "B", Link: "https://news/b"},
		{Title: "C", OriginalLink: "https://origin/c"},
	}

	t.Run("decisión negativa", func(t *testing.T) {
		searcher := &stubSearcher{results: results}
		svc, _ := newWebSearchFixture("false", searcher, nil)
		got := svc.MaybeSearch(context.Background(), "q", nil, prompt)
		assert.Equal(t, prompt, got)
		assert.Empty(t, searcher.queries)
	})

	t.Run("fallo del modelo", func(t *testing.T) {
		searcher := &stubSearcher{results: results}
		svc, client := newWebSearchFixture("", searcher, nil)
		client.Err = errors.New("timeout")
		got := svc.MaybeSearch(context.Background(), "q", nil, prompt)
		assert.Equal(t, prompt, got)
	})

	t.Run("fallo del buscador", func(t *testing.T) {
		searcher := &stubSearcher{err: errors.New("503")}
		svc, _ := newWebSearchFixture("true,news", searcher, nil)
		got := svc.MaybeSearch(context.Background(), "q", nil, prompt)
		assert.Equal(t, prompt, got)
	})

	t.Run("consulta vacía usa la pregunta", func(t *testing.T) {
		searcher := &stubSearcher{}
		svc, _ := newWebSearchFixture("true,", searcher, nil)
		got := svc.MaybeSearch(context.Background(), "precio del dólar hoy", nil, prompt)
		assert.Equal(t, prompt, got)
		assert.Equal(t, []string{"precio del dólar hoy"}, searcher.queries)
	})

	t.Run("ninguna página legible", func(t *testing.T) {
		searcher := &stubSearcher{results: results}
		svc, _ := newWebSearchFixture("true,news", searcher, map[string]string{})
		got := svc.MaybeSearch(context.Background(), "q", nil, prompt)
		assert.Equal(t, prompt, got)
	})

	t.Run("artículos antepuestos en orden", func(t *testing.T) {
		searcher := &stubSearcher{results: results}
		pages := map[string]string{
			"https://news/a":   "contenido de A que es bastante largo",
			"https://origin/c": "contenido C",
		}
		svc, _ := newWebSearchFixture("true,today news", searcher, pages)
		got := svc.MaybeSearch(context.Background(), "q", nil, prompt)

		require.Len(t, got, 2)
		assert.Equal(t, []string{"today news"}, searcher.queries)
		assert.Equal(t, llm.RoleSystem, got[0].Role)
		assert.Equal(t, prompt[0], got[1])

		block := got[0].Content
		assert.True(t, strings.HasPrefix(block, "Here's the top news articles related to your question:\n"))
		assert.Contains(t, block, "Title: A\nContent: contenido de A que e\n\n")
		assert.Contains(t, block, "Title: C\nContent: contenido C\n\n")
		assert.NotContains(t, block, "Title: B")
		assert.Less(t, strings.Index(block, "Title: A"), strings.Index(block, "Title: C"))
	})

	t.Run("servicio nil", func(t *testing.T) {
		var svc *WebSearchService
		assert.Equal(t, prompt, svc.MaybeSearch(context.Background(), "q", nil, prompt))
	})
}
