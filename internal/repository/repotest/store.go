package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"llm-chat/internal/domain"
	"llm-chat/internal/repository"
)

// Store guarda hilos, mensajes, enlaces y preferencias en memoria con la
// semántica de los repositorios Postgres (ids crecientes, orden por id).
type Store struct {
	mu        sync.Mutex
	nextID    int64
	threads   map[int64]domain.Thread
	messages  map[int64]domain.Message
	shares    []domain.SharedThread
	prefs     map[string]domain.UserPreference
	failWrite error
}

func NewStore() *Store {
	return &Store{
		threads:  make(map[int64]domain.Thread),
		messages: make(map[int64]domain.Message),
		prefs:    make(map[string]domain.UserPreference),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

type threadRepo struct{ *Store }

func (r threadRepo) Create(_ context.Context, t domain.Thread) (domain.Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = r.id()
	t.UpdatedAt = t.CreatedAt
	r.threads[t.ID] = t
	return t, nil
}

func (r threadRepo) GetByID(_ context.Context, id int64) (domain.Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threads[id]
	if !ok {
		return domain.Thread{}, pgx.ErrNoRows
	}
	return t, nil
}

func (r threadRepo) ListByUser(_ context.Context, userID string, deleted bool, nameQuery string, page domain.Page) ([]domain.Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Thread
	for _, t := range r.threads {
		if t.UserID != userID || t.IsDeleted() != deleted {
			continue
		}
		if nameQuery != "" && !strings.Contains(strings.ToLower(t.ChatName), strings.ToLower(nameQuery)) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	off := page.Offset()
	if off >= len(out) {
		return nil, nil
	}
	return out[off:min(len(out), off+page.Normalize().Size)], nil
}

func (r threadRepo) ListAllActive(ctx context.Context, userID string) ([]domain.Thread, error) {
	return r.ListByUser(ctx, userID, false, "", domain.Page{Size: domain.MaxPageSize})
}

func (r threadRepo) UpdateName(_ context.Context, id int64, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threads[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.ChatName = name
	r.threads[id] = t
	return nil
}

func (r threadRepo) Touch(ctx context.Context, id int64, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threads[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.UpdatedAt = at
	r.threads[id] = t
	return nil
}

func (r threadRepo) SetDeletedAt(_ context.Context, id int64, at *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threads[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.DeletedAt = at
	r.threads[id] = t
	return nil
}

func (r threadRepo) SoftDeleteAll(_ context.Context, userID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, t := range r.threads {
		if t.UserID == userID && !t.IsDeleted() {
			ts := at
			t.DeletedAt = &ts
			r.threads[id] = t
			n++
		}
	}
	return n, nil
}

func (r threadRepo) HardDelete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.threads[id]; !ok {
		return pgx.ErrNoRows
	}
	kept := r.shares[:0]
	for _, sh := range r.shares {
		if sh.ThreadID != id {
			kept = append(kept, sh)
		}
	}
	r.shares = kept
	for mid, m := range r.messages {
		if m.ThreadID == id {
			delete(r.messages, mid)
		}
	}
	delete(r.threads, id)
	return nil
}

type messageRepo struct{ *Store }

func (r messageRepo) Create(_ context.Context, m domain.Message) (domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrite != nil {
		return domain.Message{}, r.failWrite
	}
	m.ID = r.id()
	m.UpdatedAt = m.CreatedAt
	r.messages[m.ID] = m
	return m, nil
}

func (r messageRepo) GetByID(_ context.Context, id int64) (domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return domain.Message{}, pgx.ErrNoRows
	}
	return m, nil
}

func (r messageRepo) ListByThread(_ context.Context, threadID int64) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byThread(threadID, 0), nil
}

func (r messageRepo) byThread(threadID, upTo int64) []domain.Message {
	var out []domain.Message
	for _, m := range r.messages {
		if m.ThreadID == threadID && (upTo == 0 || m.ID <= upTo) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r messageRepo) ListByThreadPage(_ context.Context, threadID int64, page domain.Page) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return paginate(r.byThread(threadID, 0), page), nil
}

func (r messageRepo) ListByThreadUpTo(_ context.Context, threadID, last int64, page domain.Page) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return paginate(r.byThread(threadID, last), page), nil
}

func paginate(in []domain.Message, page domain.Page) []domain.Message {
	off := page.Offset()
	if off >= len(in) {
		return nil
	}
	return in[off:min(len(in), off+page.Normalize().Size)]
}

// UpdateContent falla con un contexto cancelado, como la escritura en Postgres.
func (r messageRepo) UpdateContent(ctx context.Context, id int64, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrite != nil {
		return r.failWrite
	}
	m, ok := r.messages[id]
	if !ok {
		return pgx.ErrNoRows
	}
	m.Content = content
	r.messages[id] = m
	return nil
}

func (r messageRepo) UpdateRating(_ context.Context, id int64, rating *domain.Rating) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return pgx.ErrNoRows
	}
	m.Rating = rating
	r.messages[id] = m
	return nil
}

func (r messageRepo) DeleteAfter(_ context.Context, threadID, messageID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, m := range r.messages {
		if m.ThreadID == threadID && id > messageID {
			delete(r.messages, id)
			n++
		}
	}
	return n, nil
}

type preferenceRepo struct{ *Store }

func (r preferenceRepo) GetByUserID(_ context.Context, userID string) (domain.UserPreference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prefs[userID]
	if !ok {
		return domain.UserPreference{}, pgx.ErrNoRows
	}
	return p, nil
}

func (r preferenceRepo) Upsert(_ context.Context, p domain.UserPreference) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs[p.UserID] = p
	return nil
}

type shareRepo struct{ *Store }

func (r shareRepo) Create(_ context.Context, sh domain.SharedThread) (domain.SharedThread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sh.ID = r.id()
	r.shares = append(r.shares, sh)
	return sh, nil
}

func (r shareRepo) GetByKey(_ context.Context, key uuid.UUID) (domain.SharedThread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sh := range r.shares {
		if sh.SharedKey == key {
			return sh, nil
		}
	}
	return domain.SharedThread{}, pgx.ErrNoRows
}

func (r shareRepo) ListByUser(_ context.Context, userID string) ([]domain.SharedThread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SharedThread
	for _, sh := range r.shares {
		if sh.UserID == userID {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (r shareRepo) Delete(_ context.Context, userID string, threadID, messageID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	kept := r.shares[:0]
	for _, sh := range r.shares {
		if sh.UserID == userID && sh.ThreadID == threadID && sh.MessageID == messageID {
			n++
			continue
		}
		kept = append(kept, sh)
	}
	r.shares = kept
	return n, nil
}

func (s *Store) Threads() repository.ThreadRepository         { return threadRepo{s} }
func (s *Store) Messages() repository.MessageRepository       { return messageRepo{s} }
func (s *Store) Shares() repository.ShareRepository           { return shareRepo{s} }
func (s *Store) Preferences() repository.PreferenceRepository { return preferenceRepo{s} }

// FailWrites hace fallar las escrituras de mensajes con err (nil las restablece).
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrite = err
}

func (s *Store) Message(id int64) (domain.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	return m, ok
}

func (s *Store) Thread(id int64) (domain.Thread, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[id]
	return t, ok
}

func (s *Store) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *Store) ShareCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.shares)
}

func (s *Store) SetPreference(p domain.UserPreference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[p.UserID] = p
}

func (s *Store) Preference(userID string) (domain.UserPreference, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prefs[userID]
	return p, ok
}
