package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"llm-chat/internal/domain"
)

// ThreadRepository define el contrato de persistencia para hilos de conversación.
type ThreadRepository interface {
	Create(ctx context.Context, thread domain.Thread) (domain.Thread, error)
	GetByID(ctx context.Context, id int64) (domain.Thread, error)
	ListByUser(ctx context.Context, userID string, deleted bool, nameQuery string, page domain.Page) ([]domain.Thread, error)
	ListAllActive(ctx context.Context, userID string) ([]domain.Thread, error)
	UpdateName(ctx context.Context, id int64, name string) error
	Touch(ctx context.Context, id int64, at time.Time) error
	SetDeletedAt(ctx context.Context, id int64, deletedAt *time.Time) error
	SoftDeleteAll(ctx context.Context, userID string, at time.Time) (int64, error)
	HardDelete(ctx context.Context, id int64) error
}

// PgThreadRepository implementa ThreadRepository usando pgxpool.
type PgThreadRepository struct {
	pool *pgxpool.Pool
}

func NewPgThreadRepository(pool *pgxpool.Pool) *PgThreadRepository {
	return &PgThreadRepository{pool: pool}
}

const threadColumns = `id, user_id, chat_name, created_at, updated_at, deleted_at`

func (r *PgThreadRepository) Create(ctx context.Context, thread domain.Thread) (domain.Thread, error) {
	const query = `
		INSERT INTO threads (user_id, chat_name, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		RETURNING ` + threadColumns

	row := r.pool.QueryRow(ctx, query, thread.UserID, thread.ChatName, thread.CreatedAt)
	return scanThread(row)
}

func (r *PgThreadRepository) GetByID(ctx context.Context, id int64) (domain.Thread, error) {
	const query = `SELECT ` + threadColumns + ` FROM threads WHERE id = $1`
	return scanThread(r.pool.QueryRow(ctx, query, id))
}

func (r *PgThreadRepository) ListByUser(ctx context.Context, userID string, deleted bool, nameQuery string, page domain.Page) ([]domain.Thread, error) {
	const query = `
		SELECT ` + threadColumns + `
		FROM threads
		WHERE user_id = $1
		  AND (deleted_at IS NOT NULL) = $2
		  AND ($3 = '' OR chat_name ILIKE '%' || $3 || '%')
		ORDER BY id DESC
		LIMIT $4 OFFSET $5
	`
	page = page.Normalize()
	rows, err := r.pool.Query(ctx, query, userID, deleted, nameQuery, page.Size, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanThreads(rows)
}

func (r *PgThreadRepository) ListAllActive(ctx context.Context, userID string) ([]domain.Thread, error) {
	const query = `
		SELECT ` + threadColumns + `
		FROM threads
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY id DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanThreads(rows)
}

func (r *PgThreadRepository) UpdateName(ctx context.Context, id int64, name string) error {
	const query = `UPDATE threads SET chat_name = $2, updated_at = now() WHERE id = $1`
	return execOne(ctx, r.pool, query, id, name)
}

func (r *PgThreadRepository) Touch(ctx context.Context, id int64, at time.Time) error {
	const query = `UPDATE threads SET updated_at = $2 WHERE id = $1`
	return execOne(ctx, r.pool, query, id, at)
}

func (r *PgThreadRepository) SetDeletedAt(ctx context.Context, id int64, deletedAt *time.Time) error {
	const query = `UPDATE threads SET deleted_at = $2 WHERE id = $1`
	return execOne(ctx, r.pool, query, id, deletedAt)
}

// SoftDeleteAll marca todos los hilos activos del usuario en una sola sentencia.
func (r *PgThreadRepository) SoftDeleteAll(ctx context.Context, userID string, at time.Time) (int64, error) {
	const query = `UPDATE threads SET deleted_at = $2 WHERE user_id = $1 AND deleted_at IS NULL`
	tag, err := r.pool.Exec(ctx, query, userID, at)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// HardDelete elimina enlaces compartidos, mensajes e hilo en una transacción.
func (r *PgThreadRepository) HardDelete(ctx context.Context, id int64) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM shared_threads WHERE thread_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE thread_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM threads WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
}

func scanThread(row pgx.Row) (domain.Thread, error) {
	var t domain.Thread
	if err := row.Scan(&t.ID, &t.UserID, &t.ChatName, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt); err != nil {
		return domain.Thread{}, err
	}
	return t, nil
}

func scanThreads(rows pgxRows) ([]domain.Thread, error) {
	var threads []domain.Thread
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return threads, nil
}
