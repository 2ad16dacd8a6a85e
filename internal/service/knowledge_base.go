package service

import (
	"context"
	"fmt"

	pgvector "github.com/pgvector/pgvector-go"

	"llm-chat/internal/domain"
	"llm-chat/internal/llm"
	"llm-chat/internal/repository"
)

// KnowledgeBase busca documentos similares visibles para un nivel de seguridad.
type KnowledgeBase interface {
	Search(ctx context.Context, query string, topK int, minScore float64, level domain.SecurityLevel) ([]domain.Document, error)
}

// VectorKnowledgeBase implementa KnowledgeBase con embeddings del modelo y pgvector.
type VectorKnowledgeBase struct {
	docs     repository.DocumentRepository
	embedder llm.Client
}

func NewVectorKnowledgeBase(docs repository.DocumentRepository, embedder llm.Client) *VectorKnowledgeBase {
	return &VectorKnowledgeBase{docs: docs, embedder: embedder}
}

func (kb *VectorKnowledgeBase) Search(ctx context.Context, query string, topK int, minScore float64, level domain.SecurityLevel) ([]domain.Document, error) {
	vecs, err := kb.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("embed query: empty vector")
	}
	docs, err := kb.docs.SearchSimilar(ctx, pgvector.NewVector(vecs[0]), level.Visible(), minScore, topK)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	return docs, nil
}
