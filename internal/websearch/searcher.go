package websearch

import (
	"context"
	"errors"
)

// Result es un artículo devuelto por el motor de búsqueda.
type Result struct {
	Title        string `json:"title"`
	Link         string `json:"link"`
	OriginalLink string `json:"originallink"`
	Description  string `json:"description"`
	PubDate      string `json:"pubDate"`
}

// Searcher busca artículos recientes para una consulta.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

var ErrSearchDisabled = errors.New("web search disabled")

type disabledSearcher struct {
	reason string
}

// NewDisabledSearcher devuelve un Searcher que siempre falla con ErrSearchDisabled.
func NewDisabledSearcher(reason string) Searcher {
	return disabledSearcher{reason: reason}
}

func (d disabledSearcher) Search(context.Context, string, int) ([]Result, error) {
	if d.reason == "" {
		return nil, ErrSearchDisabled
	}
	return nil, errors.Join(ErrSearchDisabled, errors.New(d.reason))
}
