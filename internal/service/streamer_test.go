package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"llm-chat/internal/domain"
	"llm-chat/internal/llm"
)

// collect lee el flujo hasta que se cierra.
func collect(t *testing.T, s *Stream) []domain.StreamEvent {
	t.Helper()
	var out []domain.StreamEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("stream did not finish, got %d events", len(out))
			return out
		}
	}
}

type sinkRecorder struct {
	mu    sync.Mutex
	saved []string
	err   error
}

func (r *sinkRecorder) sink(_ context.Context, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, content)
	return r.err
}

func (r *sinkRecorder) values() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.saved...)
}

func runStreamer(client llm.Client, rec *sinkRecorder) (*Stream, <-chan StreamResult) {
	st := NewStreamer(zap.NewNop(), client)
	out := newStream()
	done := make(chan StreamResult, 1)
	go func() {
		res := st.Run(context.Background(), out, nil, StreamTarget{MessageID: 7, Role: domain.RoleAssistant}, rec.sink)
		out.finish()
		done <- res
	}()
	return out, done
}

func TestStreamerForwardsFragmentsInOrder(t *testing.T) {
	client := &llm.MockClient{StreamChunks: []string{"Hel", "", "lo", "!"}}
	rec := &sinkRecorder{}
	out, done := runStreamer(client, rec)

	events := collect(t, out)
	res := <-done

	if len(events) != 4 {
		t.Fatalf("expected 3 fragments and done, got %+v", events)
	}
	want := []string{"Hel", "lo", "!"}
	for i, w := range want {
		ev := events[i]
		if ev.Type != domain.EventFragment || ev.Content != w || ev.MessageID != 7 || ev.Role != domain.RoleAssistant {
			t.Fatalf("event %d: unexpected %+v", i, ev)
		}
	}
	if events[3].Type != domain.EventDone || events[3].Content != "Hello!" {
		t.Fatalf("unexpected final event %+v", events[3])
	}
	if res.Err != nil || res.Content != "Hello!" || res.ConsumerGone {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := rec.values(); len(got) != 1 || got[0] != "Hello!" {
		t.Fatalf("expected full content persisted once, got %v", got)
	}
}

func TestStreamerFailurePersistsPartialAndApologizes(t *testing.T) {
	client := &llm.MockClient{StreamChunks: []string{"Hola, ", "el clima"}, StreamErr: errors.New("connection reset")}
	rec := &sinkRecorder{}
	out, done := runStreamer(client, rec)

	events := collect(t, out)
	res := <-done

	if len(events) != 3 {
		t.Fatalf("expected 2 fragments and an error, got %+v", events)
	}
	last := events[2]
	if last.Type != domain.EventError || last.Content != ApologyMessage {
		t.Fatalf("expected apology error event, got %+v", last)
	}
	if res.Err == nil || res.Content != "Hola, el clima" {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := rec.values(); len(got) != 1 || got[0] != "Hola, el clima" {
		t.Fatalf("expected partial persisted, got %v", got)
	}
}

func TestStreamerOpenFailureSkipsPersist(t *testing.T) {
	client := &llm.MockClient{StreamOpenErr: errors.New("401")}
	rec := &sinkRecorder{}
	out, done := runStreamer(client, rec)

	events := collect(t, out)
	res := <-done

	if len(events) != 1 || events[0].Type != domain.EventError {
		t.Fatalf("expected single error event, got %+v", events)
	}
	if res.Err == nil {
		t.Fatalf("expected error result")
	}
	if got := rec.values(); len(got) != 0 {
		t.Fatalf("empty output must not be persisted, got %v", got)
	}
}

func TestStreamerSinkFailure(t *testing.T) {
	client := &llm.MockClient{StreamChunks: []string{"ok"}}
	rec := &sinkRecorder{err: errors.New("db down")}
	out, done := runStreamer(client, rec)

	events := collect(t, out)
	res := <-done

	if len(events) != 2 || events[1].Type != domain.EventError || events[1].Content != ApologyMessage {
		t.Fatalf("expected fragment then apology, got %+v", events)
	}
	if res.Err == nil {
		t.Fatalf("expected persistence error in result")
	}
}

func TestStreamerKeepsGeneratingWhenConsumerLeaves(t *testing.T) {
	gate := make(chan struct{})
	client := &llm.MockClient{StreamChunks: []string{"uno ", "dos ", "tres"}, StreamGate: gate}
	rec := &sinkRecorder{}
	out, done := runStreamer(client, rec)

	gate <- struct{}{}
	ev := <-out.Events()
	if ev.Content != "uno " {
		t.Fatalf("unexpected first fragment %+v", ev)
	}
	out.Close()
	for i := 0; i < 3; i++ {
		gate <- struct{}{}
	}

	select {
	case res := <-done:
		if !res.ConsumerGone || res.Err != nil {
			t.Fatalf("unexpected result %+v", res)
		}
		if res.Content != "uno dos tres" {
			t.Fatalf("expected full content, got %q", res.Content)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("generation did not finish after consumer left")
	}
	if got := rec.values(); len(got) != 1 || got[0] != "uno dos tres" {
		t.Fatalf("expected full content persisted, got %v", got)
	}
	select {
	case <-out.Done():
	default:
		t.Fatalf("stream should be finished")
	}
}

func TestStreamerPersistsPartialAfterGenerationTimeout(t *testing.T) {
	client := &llm.MockClient{StreamChunks: []string{"respuesta ", "parcial"}, StreamBlockUntilDone: true}

	var (
		saved  string
		ctxErr error
		calls  int
	)
	sink := func(ctx context.Context, content string) error {
		calls++
		saved = content
		ctxErr = ctx.Err()
		return ctxErr
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	out := newStream()
	out.Close()
	res := NewStreamer(zap.NewNop(), client).Run(ctx, out, nil, StreamTarget{MessageID: 9, Role: domain.RoleAssistant}, sink)

	if !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", res.Err)
	}
	if calls != 1 || saved != "respuesta parcial" {
		t.Fatalf("expected partial persisted once, got %d calls with %q", calls, saved)
	}
	if ctxErr != nil {
		t.Fatalf("sink must receive a live context, got %v", ctxErr)
	}
}
