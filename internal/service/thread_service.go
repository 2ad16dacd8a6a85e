package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"llm-chat/internal/domain"
	"llm-chat/internal/repository"
)

const maxThreadNameRunes = 200

// ThreadService aplica las reglas de ciclo de vida de los hilos:
// propiedad, papelera (soft-delete), restauración y borrado definitivo.
type ThreadService struct {
	logger   *zap.Logger
	threads  repository.ThreadRepository
	messages repository.MessageRepository
	now      func() time.Time
}

func NewThreadService(logger *zap.Logger, threads repository.ThreadRepository, messages repository.MessageRepository) *ThreadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ThreadService{
		logger:   logger,
		threads:  threads,
		messages: messages,
		now:      time.Now,
	}
}

// owned carga el hilo y comprueba que pertenece al usuario. Un hilo ajeno
// se reporta igual que uno inexistente.
func (s *ThreadService) owned(ctx context.Context, threadID int64, userID string) (domain.Thread, error) {
	if s == nil || s.threads == nil {
		return domain.Thread{}, ErrThreadServiceNotConfigured
	}
	t, err := s.threads.GetByID(ctx, threadID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Thread{}, fmt.Errorf("%w: thread not found", ErrNotFound)
	}
	if err != nil {
		return domain.Thread{}, fmt.Errorf("get thread: %w", err)
	}
	if t.UserID != userID {
		return domain.Thread{}, fmt.Errorf("%w: thread not found", ErrNotFound)
	}
	return t, nil
}

// ValidateActive exige que el hilo exista, sea del usuario y no esté en la papelera.
func (s *ThreadService) ValidateActive(ctx context.Context, threadID int64, userID string) (domain.Thread, error) {
	t, err := s.owned(ctx, threadID, userID)
	if err != nil {
		return domain.Thread{}, err
	}
	if t.IsDeleted() {
		return domain.Thread{}, fmt.Errorf("%w: thread is deleted", ErrInvalidState)
	}
	return t, nil
}

func (s *ThreadService) Create(ctx context.Context, userID string) (domain.Thread, error) {
	if s == nil || s.threads == nil {
		return domain.Thread{}, ErrThreadServiceNotConfigured
	}
	if strings.TrimSpace(userID) == "" {
		return domain.Thread{}, fmt.Errorf("%w: user id required", ErrInvalidArgument)
	}
	t, err := s.threads.Create(ctx, domain.Thread{
		UserID:    userID,
		ChatName:  domain.DefaultThreadName,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return domain.Thread{}, fmt.Errorf("create thread: %w", err)
	}
	return t, nil
}

// List devuelve los hilos activos, más recientes primero, filtrando por nombre si query no está vacío.
func (s *ThreadService) List(ctx context.Context, userID, query string, page domain.Page) ([]domain.Thread, error) {
	return s.list(ctx, userID, false, query, page)
}

// ListDeleted devuelve los hilos en la papelera.
func (s *ThreadService) ListDeleted(ctx context.Context, userID, query string, page domain.Page) ([]domain.Thread, error) {
	return s.list(ctx, userID, true, query, page)
}

func (s *ThreadService) list(ctx context.Context, userID string, deleted bool, query string, page domain.Page) ([]domain.Thread, error) {
	if s == nil || s.threads == nil {
		return nil, ErrThreadServiceNotConfigured
	}
	threads, err := s.threads.ListByUser(ctx, userID, deleted, strings.TrimSpace(query), page.Normalize())
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	return threads, nil
}

// Rename cambia el nombre de un hilo activo.
func (s *ThreadService) Rename(ctx context.Context, threadID int64, userID, name string) (domain.Thread, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Thread{}, fmt.Errorf("%w: chat name required", ErrInvalidArgument)
	}
	t, err := s.ValidateActive(ctx, threadID, userID)
	if err != nil {
		return domain.Thread{}, err
	}
	name = truncateRunes(name, maxThreadNameRunes)
	if err := s.threads.UpdateName(ctx, threadID, name); err != nil {
		return domain.Thread{}, fmt.Errorf("rename thread: %w", err)
	}
	t.ChatName = name
	return t, nil
}

// saveGeneratedName persiste el nombre producido por el renombrado automático.
func (s *ThreadService) saveGeneratedName(ctx context.Context, threadID int64, name string) error {
	name = strings.Trim(strings.TrimSpace(name), `"'`)
	if name == "" {
		return nil
	}
	if err := s.threads.UpdateName(ctx, threadID, truncateRunes(name, maxThreadNameRunes)); err != nil {
		return fmt.Errorf("save generated name: %w", err)
	}
	return nil
}

func (s *ThreadService) touch(ctx context.Context, threadID int64) {
	if err := s.threads.Touch(ctx, threadID, s.now().UTC()); err != nil {
		s.logger.Warn("touch thread failed", zap.Int64("thread_id", threadID), zap.Error(err))
	}
}

func (s *ThreadService) SoftDelete(ctx context.Context, threadID int64, userID string) error {
	t, err := s.owned(ctx, threadID, userID)
	if err != nil {
		return err
	}
	if t.IsDeleted() {
		return fmt.Errorf("%w: thread is already deleted", ErrInvalidState)
	}
	now := s.now().UTC()
	if err := s.threads.SetDeletedAt(ctx, threadID, &now); err != nil {
		return fmt.Errorf("soft delete thread: %w", err)
	}
	return nil
}

// SoftDeleteAll mueve a la papelera todos los hilos activos del usuario de forma atómica.
func (s *ThreadService) SoftDeleteAll(ctx context.Context, userID string) (int64, error) {
	if s == nil || s.threads == nil {
		return 0, ErrThreadServiceNotConfigured
	}
	n, err := s.threads.SoftDeleteAll(ctx, userID, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("soft delete all threads: %w", err)
	}
	s.logger.Info("threads soft-deleted", zap.String("user_id", userID), zap.Int64("count", n))
	return n, nil
}

func (s *ThreadService) Restore(ctx context.Context, threadID int64, userID string) error {
	t, err := s.owned(ctx, threadID, userID)
	if err != nil {
		return err
	}
	if !t.IsDeleted() {
		return fmt.Errorf("%w: thread is not deleted yet", ErrInvalidState)
	}
	if err := s.threads.SetDeletedAt(ctx, threadID, nil); err != nil {
		return fmt.Errorf("restore thread: %w", err)
	}
	return nil
}

// HardDelete solo procede sobre hilos ya enviados a la papelera.
func (s *ThreadService) HardDelete(ctx context.Context, threadID int64, userID string) error {
	t, err := s.owned(ctx, threadID, userID)
	if err != nil {
		return err
	}
	if !t.IsDeleted() {
		return fmt.Errorf("%w: thread is not soft-deleted yet, soft-delete first", ErrInvalidState)
	}
	if err := s.threads.HardDelete(ctx, threadID); err != nil {
		return fmt.Errorf("hard delete thread: %w", err)
	}
	s.logger.Info("thread hard-deleted", zap.Int64("thread_id", threadID), zap.String("user_id", userID))
	return nil
}

// Messages lista los mensajes de un hilo propio; también es legible desde la papelera.
func (s *ThreadService) Messages(ctx context.Context, threadID int64, userID string, page domain.Page) ([]domain.Message, error) {
	if _, err := s.owned(ctx, threadID, userID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByThreadPage(ctx, threadID, page.Normalize())
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// RateMessage califica (o limpia, con rating nil) una respuesta del asistente.
func (s *ThreadService) RateMessage(ctx context.Context, threadID, messageID int64, userID string, rating *domain.Rating) (domain.Message, error) {
	if _, err := s.ValidateActive(ctx, threadID, userID); err != nil {
		return domain.Message{}, err
	}
	msg, err := s.messageInThread(ctx, threadID, messageID)
	if err != nil {
		return domain.Message{}, err
	}
	if msg.Role != domain.RoleAssistant {
		return domain.Message{}, fmt.Errorf("%w: only assistant messages can be rated", ErrInvalidArgument)
	}
	if err := s.messages.UpdateRating(ctx, messageID, rating); err != nil {
		return domain.Message{}, fmt.Errorf("rate message: %w", err)
	}
	msg.Rating = rating
	return msg, nil
}

func (s *ThreadService) messageInThread(ctx context.Context, threadID, messageID int64) (domain.Message, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && msg.ThreadID != threadID) {
		return domain.Message{}, fmt.Errorf("%w: message not found in thread", ErrNotFound)
	}
	if err != nil {
		return domain.Message{}, fmt.Errorf("get message: %w", err)
	}
	return msg, nil
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
