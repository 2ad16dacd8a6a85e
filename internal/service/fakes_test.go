package service

import (
	"context"
	"errors"
	"sync"

	pgvector "github.com/pgvector/pgvector-go"

	"llm-chat/internal/domain"
	"llm-chat/internal/repository"
	"llm-chat/internal/websearch"
)

type memDocumentRepo struct {
	mu      sync.Mutex
	docs    []domain.Document
	results []domain.Document
	err     error
	levels  []domain.SecurityLevel
}

func (r *memDocumentRepo) Create(_ context.Context, d domain.Document) (domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return domain.Document{}, r.err
	}
	d.ID = int64(len(r.docs) + 1)
	r.docs = append(r.docs, d)
	return d, nil
}

func (r *memDocumentRepo) SearchSimilar(_ context.Context, _ pgvector.Vector, levels []domain.SecurityLevel, _ float64, topK int) ([]domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels = levels
	if r.err != nil {
		return nil, r.err
	}
	var out []domain.Document
	for _, d := range r.results {
		for _, l := range levels {
			if d.SecurityLevel == l {
				out = append(out, d)
				break
			}
		}
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

type stubKnowledgeBase struct {
	docs      []domain.Document
	err       error
	lastLevel domain.SecurityLevel
	calls     int
}

func (k *stubKnowledgeBase) Search(_ context.Context, _ string, _ int, _ float64, level domain.SecurityLevel) ([]domain.Document, error) {
	k.calls++
	k.lastLevel = level
	return k.docs, k.err
}

type stubSearcher struct {
	results []websearch.Result
	err     error
	queries []string
}

func (s *stubSearcher) Search(_ context.Context, query string, limit int) ([]websearch.Result, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.results) > limit {
		return s.results[:limit], nil
	}
	return s.results, nil
}

type stubFetcher struct {
	mu    sync.Mutex
	pages map[string]string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[url]
	if !ok {
		return "", errors.New("404")
	}
	return p, nil
}

// passthroughExtractor devuelve el HTML tal cual.
type passthroughExtractor struct{}

func (passthroughExtractor) Extract(page string) (string, error) {
	if page == "" {
		return "", errors.New("empty")
	}
	return page, nil
}

var _ repository.DocumentRepository = (*memDocumentRepo)(nil)
