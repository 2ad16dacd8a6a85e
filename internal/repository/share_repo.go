package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"llm-chat/internal/domain"
)

// ShareRepository persiste enlaces públicos de hilos.
type ShareRepository interface {
	Create(ctx context.Context, share domain.SharedThread) (domain.SharedThread, error)
	GetByKey(ctx context.Context, key uuid.UUID) (domain.SharedThread, error)
	ListByUser(ctx context.Context, userID string) ([]domain.SharedThread, error)
	Delete(ctx context.Context, userID string, threadID, messageID int64) (int64, error)
}

type PgShareRepository struct {
	pool *pgxpool.Pool
}

func NewPgShareRepository(pool *pgxpool.Pool) *PgShareRepository {
	return &PgShareRepository{pool: pool}
}

const shareColumns = `id, user_id, thread_id, message_id, shared_key, shared_at`

func (r *PgShareRepository) Create(ctx context.Context, share domain.SharedThread) (domain.SharedThread, error) {
	const query = `
		INSERT INTO shared_threads (user_id, thread_id, message_id, shared_key, shared_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + shareColumns

	return scanShare(r.pool.QueryRow(ctx, query,
		share.UserID,
		share.ThreadID,
		share.MessageID,
		share.SharedKey,
		share.SharedAt,
	))
}

func (r *PgShareRepository) GetByKey(ctx context.Context, key uuid.UUID) (domain.SharedThread, error) {
	const query = `SELECT ` + shareColumns + ` FROM shared_threads WHERE shared_key = $1`
	return scanShare(r.pool.QueryRow(ctx, query, key))
}

func (r *PgShareRepository) ListByUser(ctx context.Context, userID string) ([]domain.SharedThread, error) {
	const query = `
		SELECT ` + shareColumns + `
		FROM shared_threads
		WHERE user_id = $1
		ORDER BY id DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shares []domain.SharedThread
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		shares = append(shares, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return shares, nil
}

// Delete quita los enlaces del usuario para ese hilo y mensaje.
func (r *PgShareRepository) Delete(ctx context.Context, userID string, threadID, messageID int64) (int64, error) {
	const query = `DELETE FROM shared_threads WHERE user_id = $1 AND thread_id = $2 AND message_id = $3`
	tag, err := r.pool.Exec(ctx, query, userID, threadID, messageID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanShare(row pgx.Row) (domain.SharedThread, error) {
	var s domain.SharedThread
	if err := row.Scan(&s.ID, &s.UserID, &s.ThreadID, &s.MessageID, &s.SharedKey, &s.SharedAt); err != nil {
		return domain.SharedThread{}, err
	}
	return s, nil
}
