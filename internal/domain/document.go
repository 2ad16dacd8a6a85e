package domain

import (
	"time"

	pgvector "github.com/pgvector/pgvector-go"
)

// Document es un fragmento de la base de conocimiento con su embedding.
type Document struct {
	ID            int64           `json:"id"`
	UserID        string          `json:"user_id"`
	Content       string          `json:"content"`
	Embedding     pgvector.Vector `json:"-"`
	SecurityLevel SecurityLevel   `json:"security_level"`
	Score         float64         `json:"score,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
