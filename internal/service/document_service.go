package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	pgvector "github.com/pgvector/pgvector-go"
	"github.com/tmc/langchaingo/textsplitter"
	"go.uber.org/zap"

	"llm-chat/internal/domain"
	"llm-chat/internal/llm"
	"llm-chat/internal/repository"
)

const (
	chunkSize    = 1000
	chunkOverlap = chunkSize / 10
	embedBatch   = 64
)

// DocumentService ingiere texto en la base de conocimiento: fragmenta, vectoriza y guarda.
type DocumentService struct {
	logger   *zap.Logger
	docs     repository.DocumentRepository
	embedder llm.Client
	splitter textsplitter.TextSplitter
	now      func() time.Time
}

func NewDocumentService(logger *zap.Logger, docs repository.DocumentRepository, embedder llm.Client) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		logger:   logger,
		docs:     docs,
		embedder: embedder,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
		now: time.Now,
	}
}

// Create guarda content como uno o más fragmentos con el nivel de seguridad dado.
func (s *DocumentService) Create(ctx context.Context, userID, content string, level domain.SecurityLevel) ([]domain.Document, error) {
	if s == nil || s.docs == nil || s.embedder == nil {
		return nil, ErrDocumentServiceNotConfigured
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content required", ErrInvalidArgument)
	}
	if _, ok := domain.ParseSecurityLevel(string(level)); !ok {
		return nil, fmt.Errorf("%w: unknown security level %q", ErrInvalidArgument, level)
	}

	chunks, err := s.splitter.SplitText(content)
	if err != nil {
		return nil, fmt.Errorf("split document: %w", err)
	}
	chunks = nonBlank(chunks)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: content required", ErrInvalidArgument)
	}

	now := s.now().UTC()
	out := make([]domain.Document, 0, len(chunks))
	for start := 0; start < len(chunks); start += embedBatch {
		end := min(start+embedBatch, len(chunks))
		vecs, err := s.embedder.Embed(ctx, chunks[start:end])
		if err != nil {
			return out, fmt.Errorf("embed chunks: %w", err)
		}
		for i, vec := range vecs {
			doc, err := s.docs.Create(ctx, domain.Document{
				UserID:        userID,
				Content:       chunks[start+i],
				Embedding:     pgvector.NewVector(vec),
				SecurityLevel: level,
				CreatedAt:     now,
			})
			if err != nil {
				return out, fmt.Errorf("store chunk: %w", err)
			}
			out = append(out, doc)
		}
	}
	s.logger.Info("document ingested",
		zap.String("user_id", userID),
		zap.String("security_level", string(level)),
		zap.Int("chunks", len(out)),
	)
	return out, nil
}

func nonBlank(in []string) []string {
	out := in[:0]
	for _, c := range in {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}
