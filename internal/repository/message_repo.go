package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"llm-chat/internal/domain"
)

type MessageRepository interface {
	Create(ctx context.Context, message domain.Message) (domain.Message, error)
	GetByID(ctx context.Context, id int64) (domain.Message, error)
	ListByThread(ctx context.Context, threadID int64) ([]domain.Message, error)
	ListByThreadPage(ctx context.Context, threadID int64, page domain.Page) ([]domain.Message, error)
	ListByThreadUpTo(ctx context.Context, threadID, lastMessageID int64, page domain.Page) ([]domain.Message, error)
	UpdateContent(ctx context.Context, id int64, content string) error
	UpdateRating(ctx context.Context, id int64, rating *domain.Rating) error
	DeleteAfter(ctx context.Context, threadID, messageID int64) (int64, error)
}

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

const messageColumns = `id, thread_id, role, content, rating, created_at, updated_at`

func (r *PgMessageRepository) Create(ctx context.Context, message domain.Message) (domain.Message, error) {
	const query = `
		INSERT INTO messages (thread_id, role, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING ` + messageColumns

	row := r.pool.QueryRow(ctx, query,
		message.ThreadID,
		string(message.Role),
		message.Content,
		message.CreatedAt,
	)
	return scanMessage(row)
}

func (r *PgMessageRepository) GetByID(ctx context.Context, id int64) (domain.Message, error) {
	const query = `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	return scanMessage(r.pool.QueryRow(ctx, query, id))
}

func (r *PgMessageRepository) ListByThread(ctx context.Context, threadID int64) ([]domain.Message, error) {
	const query = `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE thread_id = $1
		ORDER BY id ASC
	`
	rows, err := r.pool.Query(ctx, query, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *PgMessageRepository) ListByThreadPage(ctx context.Context, threadID int64, page domain.Page) ([]domain.Message, error) {
	const query = `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE thread_id = $1
		ORDER BY id ASC
		LIMIT $2 OFFSET $3
	`
	page = page.Normalize()
	rows, err := r.pool.Query(ctx, query, threadID, page.Size, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// ListByThreadUpTo devuelve los mensajes con id <= lastMessageID (vista compartida).
func (r *PgMessageRepository) ListByThreadUpTo(ctx context.Context, threadID, lastMessageID int64, page domain.Page) ([]domain.Message, error) {
	const query = `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE thread_id = $1 AND id <= $2
		ORDER BY id ASC
		LIMIT $3 OFFSET $4
	`
	page = page.Normalize()
	rows, err := r.pool.Query(ctx, query, threadID, lastMessageID, page.Size, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *PgMessageRepository) UpdateContent(ctx context.Context, id int64, content string) error {
	const query = `UPDATE messages SET content = $2, updated_at = now() WHERE id = $1`
	return execOne(ctx, r.pool, query, id, content)
}

func (r *PgMessageRepository) UpdateRating(ctx context.Context, id int64, rating *domain.Rating) error {
	const query = `UPDATE messages SET rating = $2, updated_at = now() WHERE id = $1`
	var value *string
	if rating != nil {
		s := string(*rating)
		value = &s
	}
	return execOne(ctx, r.pool, query, id, value)
}

// DeleteAfter borra los mensajes del hilo posteriores a messageID.
func (r *PgMessageRepository) DeleteAfter(ctx context.Context, threadID, messageID int64) (int64, error) {
	const query = `DELETE FROM messages WHERE thread_id = $1 AND id > $2`
	tag, err := r.pool.Exec(ctx, query, threadID, messageID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanMessage(row pgx.Row) (domain.Message, error) {
	var (
		m      domain.Message
		role   string
		rating *string
	)
	if err := row.Scan(&m.ID, &m.ThreadID, &role, &m.Content, &rating, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return domain.Message{}, err
	}
	m.Role = domain.Role(role)
	if rating != nil {
		rt := domain.Rating(*rating)
		m.Rating = &rt
	}
	return m, nil
}

func scanMessages(rows pgxRows) ([]domain.Message, error) {
	var messages []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}
