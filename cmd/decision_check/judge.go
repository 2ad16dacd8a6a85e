package main

import (
	"context"
	"fmt"
	"strings"

	"llm-chat/internal/domain"
)

// Scenario describe una pregunta y la decisión de búsqueda esperada.
type Scenario struct {
	Name         string
	Question     string
	ShouldSearch bool
	// QueryHints son palabras de las que al menos una debe aparecer en la consulta generada.
	QueryHints []string
}

// decider abstrae WebSearchService.Decide para poder probar la evaluación sin modelo.
type decider interface {
	Decide(ctx context.Context, question string, docs []domain.Document) (string, bool)
}

type verdict struct {
	Searched bool
	Query    string
	Pass     bool
	Reason   string
}

func evaluate(ctx context.Context, d decider, sc Scenario) verdict {
	query, searched := d.Decide(ctx, sc.Question, nil)
	v := verdict{Searched: searched, Query: query}

	switch {
	case searched != sc.ShouldSearch:
		v.Reason = fmt.Sprintf("esperado buscar=%t, obtenido=%t", sc.ShouldSearch, searched)
	case searched && strings.TrimSpace(query) == "":
		v.Reason = "consulta vacía"
	case searched && len(sc.QueryHints) > 0 && !containsAny(query, sc.QueryHints):
		v.Reason = fmt.Sprintf("la consulta %q no contiene ninguna de %v", query, sc.QueryHints)
	default:
		v.Pass = true
	}
	return v
}

func containsAny(s string, hints []string) bool {
	lower := strings.ToLower(s)
	for _, h := range hints {
		if strings.Contains(lower, strings.ToLower(h)) {
			return true
		}
	}
	return false
}
