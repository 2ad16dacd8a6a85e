package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"llm-chat/internal/domain"
	"llm-chat/internal/llm"
	"llm-chat/internal/repository"
)

// ContextService arma el historial de un hilo como prompt para el modelo.
type ContextService struct {
	messages repository.MessageRepository
	prefs    repository.PreferenceRepository
}

func NewContextService(messages repository.MessageRepository, prefs repository.PreferenceRepository) *ContextService {
	return &ContextService{messages: messages, prefs: prefs}
}

// Preference devuelve las preferencias del usuario; sin fila, valores por defecto (nivel LOW).
func (s *ContextService) Preference(ctx context.Context, userID string) (domain.UserPreference, error) {
	def := domain.UserPreference{UserID: userID, SecurityLevel: domain.SecurityLow}
	if s.prefs == nil {
		return def, nil
	}
	pref, err := s.prefs.GetByUserID(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("get preference: %w", err)
	}
	if _, ok := domain.ParseSecurityLevel(string(pref.SecurityLevel)); !ok {
		pref.SecurityLevel = domain.SecurityLow
	}
	return pref, nil
}

// SystemMessage compone el mensaje de sistema personalizado; "" si no aplica.
func SystemMessage(pref domain.UserPreference) string {
	if !pref.AboutMessageEnabled {
		return ""
	}
	var b strings.Builder
	if strings.TrimSpace(pref.AboutUserMessage) != "" {
		b.WriteString("Message about user: ")
		b.WriteString(pref.AboutUserMessage)
		b.WriteString("\n\n")
	}
	if strings.TrimSpace(pref.AboutModelMessage) != "" {
		b.WriteString("Message to model: ")
		b.WriteString(pref.AboutModelMessage)
	}
	return b.String()
}

// Assemble carga todos los mensajes del hilo en orden y antepone systemMessage si no está vacío.
func (s *ContextService) Assemble(ctx context.Context, threadID int64, systemMessage string) ([]llm.Message, error) {
	msgs, err := s.messages.ListByThread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	out := make([]llm.Message, 0, len(msgs)+1)
	if strings.TrimSpace(systemMessage) != "" {
		out = append(out, llm.System(systemMessage))
	}
	for _, m := range msgs {
		if m.Role == domain.RoleUser {
			out = append(out, llm.User(m.Content))
		} else {
			out = append(out, llm.Assistant(m.Content))
		}
	}
	return out, nil
}
