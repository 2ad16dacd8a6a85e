package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"llm-chat/internal/domain"
)

// PreferenceRepository expone las preferencias de usuario (gestionadas fuera de este servicio).
type PreferenceRepository interface {
	GetByUserID(ctx context.Context, userID string) (domain.UserPreference, error)
	Upsert(ctx context.Context, pref domain.UserPreference) error
}

type PgPreferenceRepository struct {
	pool *pgxpool.Pool
}

func NewPgPreferenceRepository(pool *pgxpool.Pool) *PgPreferenceRepository {
	return &PgPreferenceRepository{pool: pool}
}

func (r *PgPreferenceRepository) GetByUserID(ctx context.Context, userID string) (domain.UserPreference, error) {
	const query = `
		SELECT user_id, about_user_message, about_model_message, about_message_enabled, security_level
		FROM user_preferences
		WHERE user_id = $1
	`
	var (
		p     domain.UserPreference
		level string
	)
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.AboutUserMessage,
		&p.AboutModelMessage,
		&p.AboutMessageEnabled,
		&level,
	)
	if err != nil {
		return domain.UserPreference{}, err
	}
	p.SecurityLevel = domain.SecurityLevel(level)
	return p, nil
}

func (r *PgPreferenceRepository) Upsert(ctx context.Context, pref domain.UserPreference) error {
	const query = `
		INSERT INTO user_preferences (user_id, about_user_message, about_model_message, about_message_enabled, security_level)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			about_user_message = EXCLUDED.about_user_message,
			about_model_message = EXCLUDED.about_model_message,
			about_message_enabled = EXCLUDED.about_message_enabled,
			security_level = EXCLUDED.security_level
	`
	level := pref.SecurityLevel
	if level == "" {
		level = domain.SecurityLow
	}
	_, err := r.pool.Exec(ctx, query,
		pref.UserID,
		pref.AboutUserMessage,
		pref.AboutModelMessage,
		pref.AboutMessageEnabled,
		string(level),
	)
	return err
}
