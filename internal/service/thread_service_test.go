package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"llm-chat/internal/domain"
	"llm-chat/internal/repository/repotest"
)

func newThreadFixture(t *testing.T) (*ThreadService, *repotest.Store) {
	t.Helper()
	st := repotest.NewStore()
	svc := NewThreadService(zap.NewNop(), st.Threads(), st.Messages())
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc, st
}

func createThread(t *testing.T, svc *ThreadService, userID string) domain.Thread {
	t.Helper()
	th, err := svc.Create(context.Background(), userID)
	if err != nil {
		t.Fatalf("create thread: %v", err)
	}
	return th
}

func addMessage(t *testing.T, st *repotest.Store, threadID int64, role domain.Role, content string) domain.Message {
	t.Helper()
	m, err := st.Messages().Create(context.Background(), domain.Message{ThreadID: threadID, Role: role, Content: content})
	if err != nil {
		t.Fatalf("seed message: %v", err)
	}
	return m
}

func TestThreadServiceCreateUsesDefaultName(t *testing.T) {
	svc, _ := newThreadFixture(t)

	th, err := svc.Create(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if th.ChatName != domain.DefaultThreadName {
		t.Fatalf("expected default name, got %q", th.ChatName)
	}
	if th.UserID != "u1" || th.ID == 0 || th.IsDeleted() {
		t.Fatalf("unexpected thread: %+v", th)
	}
}

func TestThreadServiceOwnership(t *testing.T) {
	svc, _ := newThreadFixture(t)
	ctx := context.Background()
	th := createThread(t, svc, "owner")

	t.Run("hilo ajeno se reporta como inexistente", func(t *testing.T) {
		if _, err := svc.Rename(ctx, th.ID, "intruder", "x"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := svc.SoftDelete(ctx, th.ID, "intruder"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, err := svc.Messages(ctx, th.ID, "intruder", domain.Page{}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("hilo inexistente", func(t *testing.T) {
		if _, err := svc.ValidateActive(ctx, 999, "owner"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestThreadServiceLifecycle(t *testing.T) {
	svc, _ := newThreadFixture(t)
	ctx := context.Background()
	th := createThread(t, svc, "u1")

	if err := svc.HardDelete(ctx, th.ID, "u1"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("hard delete of active thread: expected ErrInvalidState, got %v", err)
	}
	if err := svc.Restore(ctx, th.ID, "u1"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("restore of active thread: expected ErrInvalidState, got %v", err)
	}

	if err := svc.SoftDelete(ctx, th.ID, "u1"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if err := svc.SoftDelete(ctx, th.ID, "u1"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second soft delete: expected ErrInvalidState, got %v", err)
	}
	if _, err := svc.Rename(ctx, th.ID, "u1", "nuevo"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("rename deleted: expected ErrInvalidState, got %v", err)
	}

	active, _ := svc.List(ctx, "u1", "", domain.Page{})
	deleted, _ := svc.ListDeleted(ctx, "u1", "", domain.Page{})
	if len(active) != 0 || len(deleted) != 1 {
		t.Fatalf("expected 0 active and 1 deleted, got %d and %d", len(active), len(deleted))
	}

	if err := svc.Restore(ctx, th.ID, "u1"); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, err := svc.ValidateActive(ctx, th.ID, "u1"); err != nil {
		t.Fatalf("restored thread should be active: %v", err)
	}

	if err := svc.SoftDelete(ctx, th.ID, "u1"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if err := svc.HardDelete(ctx, th.ID, "u1"); err != nil {
		t.Fatalf("hard delete: %v", err)
	}
	if _, err := svc.ValidateActive(ctx, th.ID, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after hard delete, got %v", err)
	}
}

func TestThreadServiceHardDeleteRemovesMessagesAndShares(t *testing.T) {
	svc, st := newThreadFixture(t)
	ctx := context.Background()
	th := createThread(t, svc, "u1")
	msg := addMessage(t, st, th.ID, domain.RoleUser, "hola")
	if _, err := st.Shares().Create(ctx, domain.SharedThread{UserID: "u1", ThreadID: th.ID, MessageID: msg.ID}); err != nil {
		t.Fatalf("seed share: %v", err)
	}

	if err := svc.SoftDelete(ctx, th.ID, "u1"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if err := svc.HardDelete(ctx, th.ID, "u1"); err != nil {
		t.Fatalf("hard delete: %v", err)
	}
	if st.MessageCount() != 0 || st.ShareCount() != 0 {
		t.Fatalf("expected cascade, got %d messages and %d shares", st.MessageCount(), st.ShareCount())
	}
}

func TestThreadServiceSoftDeleteAll(t *testing.T) {
	svc, _ := newThreadFixture(t)
	ctx := context.Background()
	a := createThread(t, svc, "u1")
	if _, err := svc.Create(ctx, "u1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	other := createThread(t, svc, "u2")
	if err := svc.SoftDelete(ctx, a.ID, "u1"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	n, err := svc.SoftDeleteAll(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 thread moved, got %d", n)
	}
	active, _ := svc.List(ctx, "u1", "", domain.Page{})
	if len(active) != 0 {
		t.Fatalf("expected no active threads, got %d", len(active))
	}
	if _, err := svc.ValidateActive(ctx, other.ID, "u2"); err != nil {
		t.Fatalf("other user's thread must stay active: %v", err)
	}
}

func TestThreadServiceRename(t *testing.T) {
	svc, _ := newThreadFixture(t)
	ctx := context.Background()
	th := createThread(t, svc, "u1")

	if _, err := svc.Rename(ctx, th.ID, "u1", "   "); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	got, err := svc.Rename(ctx, th.ID, "u1", "  Viaje a Seúl  ")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if got.ChatName != "Viaje a Seúl" {
		t.Fatalf("unexpected name %q", got.ChatName)
	}
	list, _ := svc.List(ctx, "u1", "seúl", domain.Page{})
	if len(list) != 1 {
		t.Fatalf("expected name filter to match, got %d", len(list))
	}
}

func TestThreadServiceListNewestFirst(t *testing.T) {
	svc, _ := newThreadFixture(t)
	ctx := context.Background()
	first := createThread(t, svc, "u1")
	second := createThread(t, svc, "u1")

	list, err := svc.List(ctx, "u1", "", domain.Page{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("unexpected order: %+v", list)
	}
}

func TestThreadServiceRateMessage(t *testing.T) {
	svc, st := newThreadFixture(t)
	ctx := context.Background()
	th := createThread(t, svc, "u1")
	q := addMessage(t, st, th.ID, domain.RoleUser, "pregunta")
	a := addMessage(t, st, th.ID, domain.RoleAssistant, "respuesta")
	up := domain.RatingUp

	t.Run("respuesta del asistente", func(t *testing.T) {
		got, err := svc.RateMessage(ctx, th.ID, a.ID, "u1", &up)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Rating == nil || *got.Rating != domain.RatingUp {
			t.Fatalf("expected UP rating, got %+v", got.Rating)
		}
	})

	t.Run("limpiar calificación", func(t *testing.T) {
		if _, err := svc.RateMessage(ctx, th.ID, a.ID, "u1", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if saved, _ := st.Message(a.ID); saved.Rating != nil {
			t.Fatalf("expected rating cleared")
		}
	})

	t.Run("mensaje de usuario", func(t *testing.T) {
		if _, err := svc.RateMessage(ctx, th.ID, q.ID, "u1", &up); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("mensaje de otro hilo", func(t *testing.T) {
		other := createThread(t, svc, "u1")
		if _, err := svc.RateMessage(ctx, other.ID, a.ID, "u1", &up); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("hilo en la papelera", func(t *testing.T) {
		if err := svc.SoftDelete(ctx, th.ID, "u1"); err != nil {
			t.Fatalf("soft delete: %v", err)
		}
		defer func() {
			if err := svc.Restore(ctx, th.ID, "u1"); err != nil {
				t.Errorf("restore: %v", err)
			}
		}()
		if _, err := svc.RateMessage(ctx, th.ID, a.ID, "u1", &up); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
	})
}

func TestThreadServiceMessagesReadableFromTrash(t *testing.T) {
	svc, st := newThreadFixture(t)
	ctx := context.Background()
	th := createThread(t, svc, "u1")
	addMessage(t, st, th.ID, domain.RoleUser, "hola")
	if err := svc.SoftDelete(ctx, th.ID, "u1"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	msgs, err := svc.Messages(ctx, th.ID, "u1", domain.Page{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
}

func TestThreadServiceNotConfigured(t *testing.T) {
	var svc *ThreadService
	if _, err := svc.Create(context.Background(), "u1"); !errors.Is(err, ErrThreadServiceNotConfigured) {
		t.Fatalf("expected ErrThreadServiceNotConfigured, got %v", err)
	}
}
