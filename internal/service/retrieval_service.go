package service

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"llm-chat/internal/domain"
	"llm-chat/internal/llm"
	"llm-chat/internal/metrics"
)

const knowledgeCitationExample = "위 답변은 다음의 내부 문서를 참고했습니다:\n- \"참고한 문장 1.\"\n- \"참고한 문장 2.\""

// RetrievalService añade al prompt los documentos relevantes de la base de conocimiento.
type RetrievalService struct {
	logger   *zap.Logger
	kb       KnowledgeBase
	topK     int
	minScore float64
	timeout  time.Duration
}

func NewRetrievalService(logger *zap.Logger, kb KnowledgeBase, topK int, minScore float64, timeout time.Duration) *RetrievalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topK <= 0 {
		topK = 5
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RetrievalService{
		logger:   logger,
		kb:       kb,
		topK:     topK,
		minScore: minScore,
		timeout:  timeout,
	}
}

// Augment agrega un bloque de sistema al final del prompt si hay documentos.
// Cualquier fallo de la base de conocimiento deja el prompt intacto.
func (s *RetrievalService) Augment(ctx context.Context, level domain.SecurityLevel, question string, messages []llm.Message) ([]domain.Document, []llm.Message) {
	if s == nil || s.kb == nil {
		return nil, messages
	}
	ctx, span := tracer.Start(ctx, "retrieval.augment")
	defer span.End()
	start := time.Now()
	defer func() { metrics.StageDuration.WithLabelValues("retrieval").Observe(time.Since(start).Seconds()) }()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	docs, err := s.kb.Search(ctx, question, s.topK, s.minScore, level)
	if err != nil {
		s.logger.Warn("knowledge base search failed", zap.Error(err))
		span.RecordError(err)
		metrics.StageResults.WithLabelValues("retrieval", metrics.ResultError).Inc()
		return nil, messages
	}
	span.SetAttributes(attribute.Int("retrieval.documents", len(docs)))
	if len(docs) == 0 {
		metrics.StageResults.WithLabelValues("retrieval", metrics.ResultEmpty).Inc()
		return nil, messages
	}
	metrics.StageResults.WithLabelValues("retrieval", metrics.ResultOK).Inc()

	out := make([]llm.Message, 0, len(messages)+1)
	out = append(out, messages...)
	out = append(out, llm.System(knowledgeBlock(docs)))
	return docs, out
}

func knowledgeBlock(docs []domain.Document) string {
	var b strings.Builder
	b.WriteString("Here's relevant information from our knowledge base:\n\n")
	for _, d := range docs {
		b.WriteString("<Document start>\n")
		b.WriteString(d.Content)
		b.WriteString("\n<Document end>\n\n")
	}
	b.WriteString("Please refer to this information to assist in answering the question, and if referenced, ")
	b.WriteString("include the specific details at the end of your response. For example:\n\n")
	b.WriteString(knowledgeCitationExample)
	b.WriteString("\n")
	return b.String()
}
