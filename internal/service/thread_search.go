package service

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"llm-chat/internal/domain"
)

const highlightRadius = 50

// Search busca query (sin distinguir mayúsculas) en los hilos activos del usuario.
// Primero en el nombre; si no aparece, en los mensajes del más nuevo al más antiguo.
func (s *ThreadService) Search(ctx context.Context, userID, query string) ([]domain.ThreadSearchResult, error) {
	if s == nil || s.threads == nil || s.messages == nil {
		return nil, ErrThreadServiceNotConfigured
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: search query required", ErrInvalidArgument)
	}

	threads, err := s.threads.ListAllActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}

	needle := foldRunes(query)
	results := make([]domain.ThreadSearchResult, 0)
	for _, t := range threads {
		res := domain.ThreadSearchResult{
			ID:        t.ID,
			ChatName:  t.ChatName,
			CreatedAt: t.CreatedAt,
			UpdatedAt: t.UpdatedAt,
		}

		if hl, ok := highlight(t.ChatName, needle); ok {
			res.MatchHighlight = hl
			results = append(results, res)
			continue
		}

		msgs, err := s.messages.ListByThread(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		for i := len(msgs) - 1; i >= 0; i-- {
			hl, ok := highlight(msgs[i].Content, needle)
			if !ok {
				continue
			}
			id := msgs[i].ID
			idx := len(msgs) - 1 - i
			res.MatchHighlight = hl
			res.MessageID = &id
			res.MessageIndex = &idx
			results = append(results, res)
			break
		}
	}
	return results, nil
}

// highlight devuelve la ventana de ±highlightRadius runas alrededor de la primera coincidencia.
func highlight(text string, needle []rune) (string, bool) {
	hay := []rune(text)
	idx := indexFold(hay, needle)
	if idx < 0 {
		return "", false
	}
	start := max(0, idx-highlightRadius)
	end := min(len(hay), idx+len(needle)+highlightRadius)
	return string(hay[start:end]), true
}

func indexFold(hay, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(hay) {
		return -1
	}
	for i := 0; i+len(needle) <= len(hay); i++ {
		match := true
		for j, r := range needle {
			if unicode.ToLower(hay[i+j]) != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func foldRunes(s string) []rune {
	r := []rune(s)
	for i := range r {
		r[i] = unicode.ToLower(r[i])
	}
	return r
}
