package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"llm-chat/internal/domain"
	"llm-chat/internal/llm"
	"llm-chat/internal/metrics"
	"llm-chat/internal/reader"
	"llm-chat/internal/websearch"
)

const (
	docSummaryRunes     = 500
	newsCitationExample = "위 답변은 다음의 뉴스 기사를 참고했습니다:\n- \"참고한 문장 혹은 문단 1 (출처: 뉴스 제목 1).\"\n- \"참고한 문장 혹은 문단 2 (출처: 뉴스 제목 2).\""
)

// WebSearchConfig agrupa los límites de la búsqueda web.
type WebSearchConfig struct {
	Location        *time.Location
	MaxResults      int
	PageCharBudget  int
	DecisionTimeout time.Duration
	SearchTimeout   time.Duration
	FetchTimeout    time.Duration
}

// WebSearchService decide con el modelo si hace falta buscar noticias y, si es así,
// antepone al prompt el texto de los artículos encontrados.
type WebSearchService struct {
	logger    *zap.Logger
	llm       llm.Client
	searcher  websearch.Searcher
	fetcher   reader.Fetcher
	extractor reader.Extractor
	cfg       WebSearchConfig
	now       func() time.Time
}

func NewWebSearchService(
	logger *zap.Logger,
	client llm.Client,
	searcher websearch.Searcher,
	fetcher reader.Fetcher,
	extractor reader.Extractor,
	cfg WebSearchConfig,
) *WebSearchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 3
	}
	if cfg.PageCharBudget <= 0 {
		cfg.PageCharBudget = 10000
	}
	if cfg.DecisionTimeout <= 0 {
		cfg.DecisionTimeout = 15 * time.Second
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = 5 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 8 * time.Second
	}
	return &WebSearchService{
		logger:    logger,
		llm:       client,
		searcher:  searcher,
		fetcher:   fetcher,
		extractor: extractor,
		cfg:       cfg,
		now:       time.Now,
	}
}

// MaybeSearch devuelve messages sin cambios salvo que la decisión, la búsqueda y
// al menos una página tengan éxito.
func (s *WebSearchService) MaybeSearch(ctx context.Context, question string, docs []domain.Document, messages []llm.Message) []llm.Message {
	if s == nil || s.llm == nil || s.searcher == nil {
		return messages
	}
	ctx, span := tracer.Start(ctx, "websearch.maybe_search")
	defer span.End()

	query, ok := s.Decide(ctx, question, docs)
	span.SetAttributes(attribute.Bool("websearch.needed", ok))
	if !ok {
		return messages
	}

	block, ok := s.search(ctx, query)
	if !ok {
		return messages
	}

	out := make([]llm.Message, 0, len(messages)+1)
	out = append(out, llm.System(block))
	out = append(out, messages...)
	return out
}

// Decide pregunta al modelo si la pregunta necesita información actual.
func (s *WebSearchService) Decide(ctx context.Context, question string, docs []domain.Document) (string, bool) {
	start := time.Now()
	defer func() { metrics.StageDuration.WithLabelValues("decision").Observe(time.Since(start).Seconds()) }()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.DecisionTimeout)
	defer cancel()

	today := s.now().In(s.cfg.Location).Format("2006-01-02")
	reply, err := s.llm.Complete(ctx, []llm.Message{
		llm.System(decisionPrompt(today, docs)),
		llm.User(question),
	})
	if err != nil {
		s.logger.Warn("web search decision failed", zap.Error(err))
		metrics.StageResults.WithLabelValues("decision", metrics.ResultError).Inc()
		return "", false
	}
	query, ok := parseDecision(reply)
	if !ok {
		metrics.StageResults.WithLabelValues("decision", metrics.ResultSkipped).Inc()
		return "", false
	}
	if query == "" {
		query = strings.TrimSpace(question)
	}
	metrics.StageResults.WithLabelValues("decision", metrics.ResultOK).Inc()
	return query, true
}

func decisionPrompt(today string, docs []domain.Document) string {
	summary := "(No relevant documents found)"
	if len(docs) > 0 {
		parts := make([]string, 0, len(docs))
		for _, d := range docs {
			parts = append(parts, "<Document start>\n"+reader.Truncate(d.Content, docSummaryRunes)+"...\n<Document end>")
		}
		summary = strings.Join(parts, ",\n")
	}
	return fmt.Sprintf(`You are an AI assistant tasked with deciding if a web search is needed to answer the user's question.
Today's date is %s. Consider:
1. Your knowledge is up to date as of October 2023.
2. Does the question require up-to-date information?
3. Could general knowledge or facts online provide a sufficient answer?
4. Is the question specific enough to yield useful search results?
Relevant documents are:
%s

Respond with 'true,<web search query>' if a web search is needed, otherwise 'false'.`, today, summary)
}

// parseDecision acepta "true,<query>"; la consulta puede contener comas y puede
// venir vacía ("true" o "true,"), en cuyo caso Decide usa la pregunta.
func parseDecision(reply string) (string, bool) {
	head, query, _ := strings.Cut(strings.TrimSpace(reply), ",")
	if !strings.EqualFold(strings.TrimSpace(head), "true") {
		return "", false
	}
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(query), `"'`)), true
}

type article struct {
	title   string
	content string
}

func (s *WebSearchService) search(ctx context.Context, query string) (string, bool) {
	start := time.Now()
	defer func() { metrics.StageDuration.WithLabelValues("search").Observe(time.Since(start).Seconds()) }()

	sctx, cancel := context.WithTimeout(ctx, s.cfg.SearchTimeout)
	results, err := s.searcher.Search(sctx, query, s.cfg.MaxResults)
	cancel()
	if err != nil {
		s.logger.Warn("web search failed", zap.String("query", query), zap.Error(err))
		metrics.StageResults.WithLabelValues("search", metrics.ResultError).Inc()
		return "", false
	}
	if len(results) > s.cfg.MaxResults {
		results = results[:s.cfg.MaxResults]
	}
	if len(results) == 0 {
		metrics.StageResults.WithLabelValues("search", metrics.ResultEmpty).Inc()
		return "", false
	}

	// Las páginas se descargan en paralelo; el orden del buscador se conserva.
	articles := make([]*article, len(results))
	var g errgroup.Group
	for i, r := range results {
		g.Go(func() error {
			content, err := s.readPage(ctx, r)
			if err != nil {
				s.logger.Warn("failed to fetch news content", zap.String("link", r.Link), zap.Error(err))
				metrics.StageResults.WithLabelValues("fetch", metrics.ResultError).Inc()
				return nil
			}
			metrics.StageResults.WithLabelValues("fetch", metrics.ResultOK).Inc()
			articles[i] = &article{title: r.Title, content: content}
			return nil
		})
	}
	_ = g.Wait()

	var b strings.Builder
	b.WriteString("Here's the top news articles related to your question:\n")
	n := 0
	for _, a := range articles {
		if a == nil {
			continue
		}
		n++
		b.WriteString("Title: ")
		b.WriteString(a.title)
		b.WriteString("\nContent: ")
		b.WriteString(a.content)
		b.WriteString("\n\n")
	}
	if n == 0 {
		metrics.StageResults.WithLabelValues("search", metrics.ResultEmpty).Inc()
		return "", false
	}
	b.WriteString("Please refer to these articles to assist in answering the question. ")
	b.WriteString("If referenced, include the specific details at the end of your response. ")
	b.WriteString("For example:\n\n")
	b.WriteString(newsCitationExample)
	b.WriteString("\n")
	metrics.StageResults.WithLabelValues("search", metrics.ResultOK).Inc()
	return b.String(), true
}

func (s *WebSearchService) readPage(ctx context.Context, r websearch.Result) (string, error) {
	link := r.Link
	if link == "" {
		link = r.OriginalLink
	}
	if link == "" {
		return "", fmt.Errorf("result without link")
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	page, err := s.fetcher.Fetch(ctx, link)
	if err != nil {
		return "", err
	}
	text, err := s.extractor.Extract(page)
	if err != nil {
		return "", err
	}
	return reader.Truncate(text, s.cfg.PageCharBudget), nil
}
