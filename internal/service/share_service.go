package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"llm-chat/internal/domain"
	"llm-chat/internal/repository"
)

// ShareService publica hilos en modo lectura bajo una clave aleatoria.
type ShareService struct {
	logger   *zap.Logger
	shares   repository.ShareRepository
	threads  *ThreadService
	messages repository.MessageRepository
	now      func() time.Time
}

func NewShareService(logger *zap.Logger, shares repository.ShareRepository, threads *ThreadService, messages repository.MessageRepository) *ShareService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShareService{
		logger:   logger,
		shares:   shares,
		threads:  threads,
		messages: messages,
		now:      time.Now,
	}
}

// Share crea un enlace hasta messageID; el mensaje debe pertenecer al hilo del usuario.
func (s *ShareService) Share(ctx context.Context, threadID, messageID int64, userID string) (domain.SharedThread, error) {
	if s == nil || s.shares == nil || s.threads == nil {
		return domain.SharedThread{}, ErrShareServiceNotConfigured
	}
	if _, err := s.threads.owned(ctx, threadID, userID); err != nil {
		return domain.SharedThread{}, err
	}
	if _, err := s.threads.messageInThread(ctx, threadID, messageID); err != nil {
		return domain.SharedThread{}, err
	}
	share, err := s.shares.Create(ctx, domain.SharedThread{
		UserID:    userID,
		ThreadID:  threadID,
		MessageID: messageID,
		SharedKey: uuid.New(),
		SharedAt:  s.now().UTC(),
	})
	if err != nil {
		return domain.SharedThread{}, fmt.Errorf("create share: %w", err)
	}
	s.logger.Info("thread shared", zap.Int64("thread_id", threadID), zap.String("shared_key", share.SharedKey.String()))
	return share, nil
}

func (s *ShareService) Unshare(ctx context.Context, threadID, messageID int64, userID string) error {
	if s == nil || s.shares == nil || s.threads == nil {
		return ErrShareServiceNotConfigured
	}
	if _, err := s.threads.owned(ctx, threadID, userID); err != nil {
		return err
	}
	if _, err := s.threads.messageInThread(ctx, threadID, messageID); err != nil {
		return err
	}
	n, err := s.shares.Delete(ctx, userID, threadID, messageID)
	if err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: shared thread not found", ErrNotFound)
	}
	return nil
}

func (s *ShareService) ListShared(ctx context.Context, userID string) ([]domain.SharedThread, error) {
	if s == nil || s.shares == nil {
		return nil, ErrShareServiceNotConfigured
	}
	shares, err := s.shares.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	return shares, nil
}

// GetShared es público: no requiere usuario.
func (s *ShareService) GetShared(ctx context.Context, key uuid.UUID) (domain.SharedThread, error) {
	if s == nil || s.shares == nil {
		return domain.SharedThread{}, ErrShareServiceNotConfigured
	}
	share, err := s.shares.GetByKey(ctx, key)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SharedThread{}, fmt.Errorf("%w: shared thread not found", ErrNotFound)
	}
	if err != nil {
		return domain.SharedThread{}, fmt.Errorf("get share: %w", err)
	}
	return share, nil
}

// SharedMessages devuelve los mensajes del hilo compartido hasta el mensaje fijado.
func (s *ShareService) SharedMessages(ctx context.Context, key uuid.UUID, page domain.Page) ([]domain.Message, error) {
	share, err := s.GetShared(ctx, key)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByThreadUpTo(ctx, share.ThreadID, share.MessageID, page.Normalize())
	if err != nil {
		return nil, fmt.Errorf("list shared messages: %w", err)
	}
	return msgs, nil
}
