package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"llm-chat/internal/domain"
)

// DocumentRepository guarda fragmentos de la base de conocimiento y busca por similitud.
type DocumentRepository interface {
	Create(ctx context.Context, doc domain.Document) (domain.Document, error)
	SearchSimilar(ctx context.Context, embedding pgvector.Vector, levels []domain.SecurityLevel, minScore float64, topK int) ([]domain.Document, error)
}

type PgDocumentRepository struct {
	pool *pgxpool.Pool
}

func NewPgDocumentRepository(pool *pgxpool.Pool) *PgDocumentRepository {
	return &PgDocumentRepository{pool: pool}
}

func (r *PgDocumentRepository) Create(ctx context.Context, doc domain.Document) (domain.Document, error) {
	const query = `
		INSERT INTO documents (user_id, content, embedding, security_level, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.pool.QueryRow(ctx, query,
		doc.UserID,
		doc.Content,
		doc.Embedding,
		string(doc.SecurityLevel),
		doc.CreatedAt,
	).Scan(&doc.ID)
	return doc, err
}

// SearchSimilar ordena por similitud coseno (1 - distancia) restringida a los niveles dados.
func (r *PgDocumentRepository) SearchSimilar(ctx context.Context, embedding pgvector.Vector, levels []domain.SecurityLevel, minScore float64, topK int) ([]domain.Document, error) {
	if topK <= 0 {
		topK = 5
	}
	const query = `
		SELECT id, user_id, content, security_level, created_at, 1 - (embedding <=> $1) AS score
		FROM documents
		WHERE security_level = ANY($2)
		  AND 1 - (embedding <=> $1) >= $3
		ORDER BY embedding <=> $1
		LIMIT $4
	`
	rows, err := r.pool.Query(ctx, query, embedding, levelStrings(levels), minScore, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDocuments(rows)
}

func scanDocuments(rows pgxRows) ([]domain.Document, error) {
	var docs []domain.Document
	for rows.Next() {
		var (
			d     domain.Document
			level string
		)
		if err := rows.Scan(&d.ID, &d.UserID, &d.Content, &level, &d.CreatedAt, &d.Score); err != nil {
			return nil, err
		}
		d.SecurityLevel = domain.SecurityLevel(level)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func levelStrings(levels []domain.SecurityLevel) []string {
	out := make([]string, 0, len(levels))
	for _, l := range levels {
		out = append(out, string(l))
	}
	return out
}
