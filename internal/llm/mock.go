package llm

import (
	"context"
	"io"
	"sync"
)

// MockClient permite tests sin llamar a un LLM real.
type MockClient struct {
	Response     string
	Err          error
	CompleteFunc func(ctx context.Context, messages []Message) (string, error)

	// StreamChunks se emiten en orden; StreamErr (si existe) se devuelve tras el último.
	StreamChunks  []string
	StreamErr     error
	StreamOpenErr error
	// StreamGate, si no es nil, bloquea cada Recv hasta recibir un valor.
	StreamGate chan struct{}
	// StreamBlockUntilDone hace que, agotados los fragmentos, Recv espere al
	// contexto y devuelva ctx.Err() (generación cortada por timeout).
	StreamBlockUntilDone bool

	Embedding []float32
	EmbedErr  error

	mu            sync.Mutex
	CompleteCalls [][]Message
	StreamCalls   [][]Message
	EmbedCalls    [][]string
}

func (m *MockClient) Complete(ctx context.Context, messages []Message) (string, error) {
	m.mu.Lock()
	m.CompleteCalls = append(m.CompleteCalls, cloneMessages(messages))
	m.mu.Unlock()
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, messages)
	}
	return m.Response, m.Err
}

func (m *MockClient) Stream(ctx context.Context, messages []Message) (ChatStream, error) {
	m.mu.Lock()
	m.StreamCalls = append(m.StreamCalls, cloneMessages(messages))
	m.mu.Unlock()
	if m.StreamOpenErr != nil {
		return nil, m.StreamOpenErr
	}
	return &mockStream{ctx: ctx, chunks: m.StreamChunks, err: m.StreamErr, gate: m.StreamGate, blockUntilDone: m.StreamBlockUntilDone}, nil
}

func (m *MockClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.EmbedCalls = append(m.EmbedCalls, append([]string(nil), texts...))
	m.mu.Unlock()
	if m.EmbedErr != nil {
		return nil, m.EmbedErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = m.Embedding
	}
	return out, nil
}

// StreamCallCount devuelve cuántas generaciones en streaming se abrieron.
func (m *MockClient) StreamCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.StreamCalls)
}

// LastStreamMessages devuelve el prompt de la última generación en streaming.
func (m *MockClient) LastStreamMessages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.StreamCalls) == 0 {
		return nil
	}
	return m.StreamCalls[len(m.StreamCalls)-1]
}

type mockStream struct {
	ctx            context.Context
	chunks         []string
	idx            int
	err            error
	gate           chan struct{}
	blockUntilDone bool
}

func (s *mockStream) Recv() (string, error) {
	if s.gate != nil {
		<-s.gate
	}
	if s.idx < len(s.chunks) {
		c := s.chunks[s.idx]
		s.idx++
		return c, nil
	}
	if s.blockUntilDone {
		<-s.ctx.Done()
		return "", s.ctx.Err()
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *mockStream) Close() error { return nil }

func cloneMessages(in []Message) []Message {
	return append([]Message(nil), in...)
}
