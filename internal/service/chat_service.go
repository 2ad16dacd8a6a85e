package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"llm-chat/internal/domain"
	"llm-chat/internal/llm"
	"llm-chat/internal/metrics"
	"llm-chat/internal/repository"
)

// RenamePrompt es la instrucción del renombrado automático.
const RenamePrompt = "다음의 대화를 10자 내외로 요약해."

// ChatDependencies agrupa los colaboradores del pipeline de envío y edición.
type ChatDependencies struct {
	Logger            *zap.Logger
	Threads           *ThreadService
	Messages          repository.MessageRepository
	Contexts          *ContextService
	Retrieval         *RetrievalService
	WebSearch         *WebSearchService
	Streamer          *Streamer
	Pool              *WorkerPool
	Locks             ThreadLock
	Limiter           SendLimiter
	GenerationTimeout time.Duration
}

// ChatService orquesta envío, edición y renombrado automático.
type ChatService struct {
	logger            *zap.Logger
	threads           *ThreadService
	messages          repository.MessageRepository
	contexts          *ContextService
	retrieval         *RetrievalService
	web               *WebSearchService
	streamer          *Streamer
	pool              *WorkerPool
	locks             ThreadLock
	limiter           SendLimiter
	generationTimeout time.Duration
	now               func() time.Time
}

func NewChatService(deps ChatDependencies) *ChatService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Pool == nil {
		deps.Pool = NewWorkerPool(16, 2*time.Second)
	}
	if deps.Locks == nil {
		deps.Locks = NewMemoryThreadLock()
	}
	if deps.GenerationTimeout <= 0 {
		deps.GenerationTimeout = 5 * time.Minute
	}
	return &ChatService{
		logger:            deps.Logger,
		threads:           deps.Threads,
		messages:          deps.Messages,
		contexts:          deps.Contexts,
		retrieval:         deps.Retrieval,
		web:               deps.WebSearch,
		streamer:          deps.Streamer,
		pool:              deps.Pool,
		locks:             deps.Locks,
		limiter:           deps.Limiter,
		generationTimeout: deps.GenerationTimeout,
		now:               time.Now,
	}
}

// generation es el trabajo preparado de forma síncrona que se ejecuta en el pool.
type generation struct {
	kind        string
	userID      string
	question    string
	userMessage domain.Message
	placeholder domain.Message
	level       domain.SecurityLevel
	prompt      []llm.Message
}

func (s *ChatService) configured() bool {
	return s != nil && s.threads != nil && s.messages != nil && s.contexts != nil && s.streamer != nil
}

// SendMessage valida y persiste la pregunta de forma síncrona y devuelve el flujo
// en el que se emitirá la respuesta. Los errores de validación se devuelven antes
// de cualquier llamada al modelo.
func (s *ChatService) SendMessage(ctx context.Context, threadID int64, userID, question string) (*Stream, error) {
	if !s.configured() {
		return nil, ErrChatServiceNotConfigured
	}
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question required", ErrInvalidArgument)
	}
	thread, err := s.threads.ValidateActive(ctx, threadID, userID)
	if err != nil {
		return nil, err
	}

	admit, err := s.admit(ctx, userID, threadID)
	if err != nil {
		return nil, err
	}

	userMsg, err := s.messages.Create(ctx, domain.Message{
		ThreadID:  thread.ID,
		Role:      domain.RoleUser,
		Content:   question,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		admit.abort()
		return nil, fmt.Errorf("create user message: %w", err)
	}

	job, err := s.prepare(ctx, "send", thread, userID, question, userMsg)
	if err != nil {
		admit.abort()
		return nil, err
	}
	return s.launch(ctx, admit, thread.ID, job), nil
}

// EditMessage reescribe un mensaje de usuario, descarta todo lo posterior y regenera.
func (s *ChatService) EditMessage(ctx context.Context, threadID, messageID int64, userID, question string) (*Stream, error) {
	if !s.configured() {
		return nil, ErrChatServiceNotConfigured
	}
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question required", ErrInvalidArgument)
	}
	thread, err := s.threads.ValidateActive(ctx, threadID, userID)
	if err != nil {
		return nil, err
	}
	msg, err := s.messages.GetByID(ctx, messageID)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && (msg.ThreadID != threadID || msg.Role != domain.RoleUser)) {
		return nil, fmt.Errorf("%w: message not found or not editable", ErrInvalidArgument)
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}

	admit, err := s.admit(ctx, userID, threadID)
	if err != nil {
		return nil, err
	}

	removed, err := s.messages.DeleteAfter(ctx, threadID, messageID)
	if err != nil {
		admit.abort()
		return nil, fmt.Errorf("truncate thread: %w", err)
	}
	if err := s.messages.UpdateContent(ctx, messageID, question); err != nil {
		admit.abort()
		return nil, fmt.Errorf("update message: %w", err)
	}
	msg.Content = question
	s.logger.Info("message edited", zap.Int64("thread_id", threadID), zap.Int64("message_id", messageID), zap.Int64("removed", removed))

	job, err := s.prepare(ctx, "edit", thread, userID, question, msg)
	if err != nil {
		admit.abort()
		return nil, err
	}
	return s.launch(ctx, admit, thread.ID, job), nil
}

// AutoRename genera un nombre corto a partir del historial; los fragmentos llevan
// message_id -1 y el resultado final se guarda como nombre del hilo.
func (s *ChatService) AutoRename(ctx context.Context, threadID int64, userID string) (*Stream, error) {
	if !s.configured() {
		return nil, ErrChatServiceNotConfigured
	}
	thread, err := s.threads.ValidateActive(ctx, threadID, userID)
	if err != nil {
		return nil, err
	}
	history, err := s.contexts.Assemble(ctx, thread.ID, "")
	if err != nil {
		return nil, err
	}
	ticket, err := s.pool.Acquire(ctx)
	if err != nil {
		metrics.Rejections.WithLabelValues("saturated").Inc()
		return nil, err
	}

	prompt := append([]llm.Message{llm.System(RenamePrompt)}, history...)
	stream := newStream()
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.generationTimeout)
	ticket.Go(func() {
		defer cancel()
		defer stream.finish()
		target := StreamTarget{MessageID: domain.AutoRenameMessageID, Role: domain.RoleAssistant}
		res := s.streamer.Run(runCtx, stream, prompt, target, func(ctx context.Context, content string) error {
			return s.threads.saveGeneratedName(ctx, thread.ID, content)
		})
		s.record("rename", res)
	})
	return stream, nil
}

// admission reúne lo reservado antes de escribir; abort lo devuelve todo.
type admission struct {
	ticket  *Ticket
	release func()
}

func (a admission) abort() {
	a.release()
	a.ticket.Release()
}

func (s *ChatService) admit(ctx context.Context, userID string, threadID int64) (admission, error) {
	if s.limiter != nil && !s.limiter.Allow(ctx, userID) {
		metrics.Rejections.WithLabelValues("rate_limited").Inc()
		return admission{}, fmt.Errorf("%w: too many messages", ErrRateLimited)
	}
	ticket, err := s.pool.Acquire(ctx)
	if err != nil {
		metrics.Rejections.WithLabelValues("saturated").Inc()
		return admission{}, err
	}
	release, err := s.locks.Acquire(ctx, threadID)
	if err != nil {
		ticket.Release()
		metrics.Rejections.WithLabelValues("busy").Inc()
		return admission{}, err
	}
	return admission{ticket: ticket, release: release}, nil
}

// prepare resuelve preferencias, arma el prompt y crea el placeholder del asistente.
func (s *ChatService) prepare(ctx context.Context, kind string, thread domain.Thread, userID, question string, userMsg domain.Message) (generation, error) {
	pref, err := s.contexts.Preference(ctx, userID)
	if err != nil {
		s.logger.Warn("preference lookup failed, using defaults", zap.String("user_id", userID), zap.Error(err))
	}
	prompt, err := s.contexts.Assemble(ctx, thread.ID, SystemMessage(pref))
	if err != nil {
		return generation{}, err
	}
	placeholder, err := s.messages.Create(ctx, domain.Message{
		ThreadID:  thread.ID,
		Role:      domain.RoleAssistant,
		Content:   "",
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return generation{}, fmt.Errorf("create assistant message: %w", err)
	}
	return generation{
		kind:        kind,
		userID:      userID,
		question:    question,
		userMessage: userMsg,
		placeholder: placeholder,
		level:       pref.SecurityLevel,
		prompt:      prompt,
	}, nil
}

// launch pasa el trabajo al pool. El contexto del pipeline se separa de la
// petición: la desconexión del cliente no cancela la generación.
func (s *ChatService) launch(ctx context.Context, admit admission, threadID int64, job generation) *Stream {
	stream := newStream()
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.generationTimeout)
	admit.ticket.Go(func() {
		defer cancel()
		defer stream.finish()
		defer admit.release()
		s.run(runCtx, stream, threadID, job)
	})
	return stream
}

func (s *ChatService) run(ctx context.Context, stream *Stream, threadID int64, job generation) {
	ctx, span := tracer.Start(ctx, "chat."+job.kind)
	defer span.End()
	span.SetAttributes(
		attribute.Int64("thread.id", threadID),
		attribute.Int64("message.id", job.placeholder.ID),
	)

	stream.send(domain.StreamEvent{
		Type:      domain.EventFragment,
		MessageID: job.userMessage.ID,
		Role:      domain.RoleUser,
		Content:   job.question,
	})

	docs, prompt := s.retrieval.Augment(ctx, job.level, job.question, job.prompt)
	prompt = s.web.MaybeSearch(ctx, job.question, docs, prompt)

	target := StreamTarget{MessageID: job.placeholder.ID, Role: domain.RoleAssistant}
	res := s.streamer.Run(ctx, stream, prompt, target, func(ctx context.Context, content string) error {
		if err := s.messages.UpdateContent(ctx, job.placeholder.ID, content); err != nil {
			return fmt.Errorf("finalize assistant message: %w", err)
		}
		s.threads.touch(ctx, threadID)
		return nil
	})
	if res.Err != nil {
		span.SetStatus(codes.Error, res.Err.Error())
	}
	s.record(job.kind, res)
}

func (s *ChatService) record(kind string, res StreamResult) {
	switch {
	case res.Err != nil:
		metrics.PipelineRuns.WithLabelValues(kind, metrics.ResultError).Inc()
	case res.ConsumerGone:
		metrics.PipelineRuns.WithLabelValues(kind, metrics.ResultCanceled).Inc()
	default:
		metrics.PipelineRuns.WithLabelValues(kind, metrics.ResultOK).Inc()
	}
}
