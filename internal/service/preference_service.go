package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"llm-chat/internal/domain"
	"llm-chat/internal/repository"
)

const maxAboutMessageRunes = 1500

// PreferenceUpdate son los campos que el propio usuario puede cambiar.
// El nivel de seguridad lo asigna un administrador y no se toca aquí.
type PreferenceUpdate struct {
	AboutUserMessage    string
	AboutModelMessage   string
	AboutMessageEnabled bool
}

type PreferenceService struct {
	logger *zap.Logger
	prefs  repository.PreferenceRepository
}

func NewPreferenceService(logger *zap.Logger, prefs repository.PreferenceRepository) *PreferenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreferenceService{logger: logger, prefs: prefs}
}

// Get devuelve las preferencias guardadas o los valores por defecto.
func (s *PreferenceService) Get(ctx context.Context, userID string) (domain.UserPreference, error) {
	if s == nil || s.prefs == nil {
		return domain.UserPreference{}, ErrPreferenceServiceNotConfigured
	}
	pref, err := s.prefs.GetByUserID(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserPreference{UserID: userID, AboutMessageEnabled: true, SecurityLevel: domain.SecurityLow}, nil
	}
	if err != nil {
		return domain.UserPreference{}, fmt.Errorf("get preference: %w", err)
	}
	return pref, nil
}

func (s *PreferenceService) Update(ctx context.Context, userID string, upd PreferenceUpdate) (domain.UserPreference, error) {
	pref, err := s.Get(ctx, userID)
	if err != nil {
		return domain.UserPreference{}, err
	}
	if len([]rune(upd.AboutUserMessage)) > maxAboutMessageRunes || len([]rune(upd.AboutModelMessage)) > maxAboutMessageRunes {
		return domain.UserPreference{}, fmt.Errorf("%w: about message longer than %d characters", ErrInvalidArgument, maxAboutMessageRunes)
	}
	pref.AboutUserMessage = strings.TrimSpace(upd.AboutUserMessage)
	pref.AboutModelMessage = strings.TrimSpace(upd.AboutModelMessage)
	pref.AboutMessageEnabled = upd.AboutMessageEnabled
	if err := s.prefs.Upsert(ctx, pref); err != nil {
		return domain.UserPreference{}, fmt.Errorf("save preference: %w", err)
	}
	s.logger.Info("preference updated", zap.String("user_id", userID))
	return pref, nil
}
