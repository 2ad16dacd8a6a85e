package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"llm-chat/internal/domain"
	"llm-chat/internal/llm"
	"llm-chat/internal/repository/repotest"
	"llm-chat/internal/service"
)

type testEnv struct {
	router *gin.Engine
	store  *repotest.Store
	client *llm.MockClient
	jwt    *service.JWTService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := repotest.NewStore()
	logger := zap.NewNop()
	client := &llm.MockClient{StreamChunks: []string{"Hi", " there"}}

	threads := service.NewThreadService(logger, st.Threads(), st.Messages())
	chat := service.NewChatService(service.ChatDependencies{
		Logger:   logger,
		Threads:  threads,
		Messages: st.Messages(),
		Contexts: service.NewContextService(st.Messages(), st.Preferences()),
		Streamer: service.NewStreamer(logger, client),
		Pool:     service.NewWorkerPool(4, 50*time.Millisecond),
	})
	shares := service.NewShareService(logger, st.Shares(), threads, st.Messages())
	prefs := service.NewPreferenceService(logger, st.Preferences())
	jwtSvc := service.NewJWTService("secret", time.Hour)

	router := NewRouter(logger, "llm-chat-test", jwtSvc, Handlers{
		Chat:       NewChatHandler(logger, threads, chat),
		Share:      NewShareHandler(logger, shares),
		Preference: NewPreferenceHandler(logger, prefs),
	})
	return &testEnv{router: router, store: st, client: client, jwt: jwtSvc}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := e.jwt.IssueAccessToken(userID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func performRequest(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// streamRecorder implementa CloseNotify, que c.Stream necesita.
type streamRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *streamRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func performStream(r http.Handler, method, path, token string, body any) *streamRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := &streamRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
	r.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createThread(t *testing.T, token string) domain.Thread {
	t.Helper()
	rec := performRequest(e.router, http.MethodPost, "/api/v1/chat/thread", token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create thread: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		Thread domain.Thread `json:"thread"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode thread: %v", err)
	}
	return resp.Thread
}

type sseEvent struct {
	name string
	data domain.StreamEvent
}

func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var out []sseEvent
	for _, block := range strings.Split(strings.TrimSpace(body), "\n\n") {
		var ev sseEvent
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event:"):
				ev.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &ev.data); err != nil {
					t.Fatalf("decode sse data %q: %v", line, err)
				}
			}
		}
		out = append(out, ev)
	}
	return out
}

func TestChatHandlerRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	rec := performRequest(env.router, http.MethodGet, "/api/v1/chat/thread", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestChatHandlerThreadLifecycle(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "u1")
	th := env.createThread(t, tok)
	if th.ChatName != domain.DefaultThreadName {
		t.Fatalf("unexpected name %q", th.ChatName)
	}
	base := fmt.Sprintf("/api/v1/chat/thread/%d", th.ID)

	t.Run("otro usuario recibe 404", func(t *testing.T) {
		rec := performRequest(env.router, http.MethodGet, base+"/message", env.token(t, "u2"), nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("renombrar", func(t *testing.T) {
		rec := performRequest(env.router, http.MethodPut, base+"/manual-rename", tok, map[string]string{"chat_name": "Viaje"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
		}
	})

	t.Run("borrado definitivo exige papelera", func(t *testing.T) {
		rec := performRequest(env.router, http.MethodDelete, base+"/hard-delete", tok, nil)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("papelera y restauración", func(t *testing.T) {
		if rec := performRequest(env.router, http.MethodDelete, base+"/soft-delete", tok, nil); rec.Code != http.StatusNoContent {
			t.Fatalf("soft delete: expected 204, got %d", rec.Code)
		}
		rec := performRequest(env.router, http.MethodGet, "/api/v1/chat/thread/deleted", tok, nil)
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"chat_name":"Viaje"`) {
			t.Fatalf("expected thread in trash, got %d %s", rec.Code, rec.Body.String())
		}
		if rec := performRequest(env.router, http.MethodPost, base+"/restore", tok, nil); rec.Code != http.StatusNoContent {
			t.Fatalf("restore: expected 204, got %d", rec.Code)
		}
	})

	t.Run("mover todo a la papelera", func(t *testing.T) {
		rec := performRequest(env.router, http.MethodDelete, "/api/v1/chat/thread/soft-delete-all", tok, nil)
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"deleted":1`) {
			t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("id inválido", func(t *testing.T) {
		rec := performRequest(env.router, http.MethodGet, "/api/v1/chat/thread/abc/message", tok, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestChatHandlerSendMessageStreamsSSE(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "u1")
	th := env.createThread(t, tok)

	rec := performStream(env.router, http.MethodPost, fmt.Sprintf("/api/v1/chat/thread/%d/send-message", th.ID), tok, map[string]string{"content": "Hello"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("expected event-stream content type, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), `"message_id":`) {
		t.Fatalf("expected snake_case message_id in payload: %s", rec.Body.String())
	}

	events := parseSSE(t, rec.Body.String())
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %+v", events)
	}
	if events[0].name != "message" || events[0].data.Role != domain.RoleUser || events[0].data.Content != "Hello" {
		t.Fatalf("unexpected first event %+v", events[0])
	}
	if events[1].data.Content != "Hi" || events[2].data.Content != " there" {
		t.Fatalf("unexpected fragments %+v", events[1:3])
	}
	if events[3].name != "done" || events[3].data.Content != "Hi there" {
		t.Fatalf("unexpected final event %+v", events[3])
	}
	if env.store.MessageCount() != 2 {
		t.Fatalf("expected 2 stored messages, got %d", env.store.MessageCount())
	}
}

func TestChatHandlerSendMessageValidation(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "u1")
	th := env.createThread(t, tok)
	path := fmt.Sprintf("/api/v1/chat/thread/%d/send-message", th.ID)

	rec := performRequest(env.router, http.MethodPost, path, tok, map[string]string{"content": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	performRequest(env.router, http.MethodDelete, fmt.Sprintf("/api/v1/chat/thread/%d/soft-delete", th.ID), tok, nil)
	rec = performRequest(env.router, http.MethodPost, path, tok, map[string]string{"content": "hola"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for deleted thread, got %d", rec.Code)
	}
	if env.client.StreamCallCount() != 0 {
		t.Fatalf("model must not be called on validation errors")
	}
}

func TestChatHandlerVoteMessage(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "u1")
	th := env.createThread(t, tok)
	answer, _ := env.store.Messages().Create(context.Background(), domain.Message{ThreadID: th.ID, Role: domain.RoleAssistant, Content: "r"})
	path := fmt.Sprintf("/api/v1/chat/thread/%d/message/%d/vote", th.ID, answer.ID)

	rec := performRequest(env.router, http.MethodPut, path, tok, map[string]string{"rating": "up"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	saved, _ := env.store.Message(answer.ID)
	if saved.Rating == nil || *saved.Rating != domain.RatingUp {
		t.Fatalf("expected UP rating, got %+v", saved.Rating)
	}

	rec = performRequest(env.router, http.MethodPut, path, tok, map[string]string{"rating": "meh"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestShareHandlerPublicRead(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "u1")
	th := env.createThread(t, tok)
	msg, _ := env.store.Messages().Create(context.Background(), domain.Message{ThreadID: th.ID, Role: domain.RoleUser, Content: "hola"})

	rec := performRequest(env.router, http.MethodPost, "/api/v1/share", tok, map[string]int64{"thread_id": th.ID, "message_id": msg.ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		Shared domain.SharedThread `json:"shared_thread"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)

	rec = performRequest(env.router, http.MethodGet, "/api/v1/share/"+resp.Shared.SharedKey.String()+"/messages", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"content":"hola"`) {
		t.Fatalf("unexpected public read %d %s", rec.Code, rec.Body.String())
	}

	rec = performRequest(env.router, http.MethodGet, "/api/v1/share/not-a-key", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestPreferenceHandler(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "u1")

	rec := performRequest(env.router, http.MethodPost, "/api/v1/preference", tok, map[string]any{
		"about_user_message":    "I am a nurse",
		"about_message_enabled": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = performRequest(env.router, http.MethodGet, "/api/v1/preference", tok, nil)
	if !strings.Contains(rec.Body.String(), `"about_user_message":"I am a nurse"`) {
		t.Fatalf("unexpected preference %s", rec.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		service.ErrNotFound:        http.StatusNotFound,
		service.ErrInvalidArgument: http.StatusBadRequest,
		service.ErrInvalidState:    http.StatusConflict,
		service.ErrThreadBusy:      http.StatusConflict,
		service.ErrRateLimited:     http.StatusTooManyRequests,
		service.ErrPoolSaturated:   http.StatusServiceUnavailable,
		errors.New("boom"):         http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := statusFor(fmt.Errorf("wrapped: %w", err)); got != want {
			t.Fatalf("%v: expected %d, got %d", err, want, got)
		}
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := performRequest(env.router, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
