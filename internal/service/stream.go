package service

import (
	"sync"

	"llm-chat/internal/domain"
)

// Stream es el flujo de eventos de un pipeline. Un único productor escribe;
// el consumidor lee Events hasta que se cierra o llama a Close para abandonar.
type Stream struct {
	events   chan domain.StreamEvent
	gone     chan struct{}
	finished chan struct{}
	once     sync.Once
}

func newStream() *Stream {
	return &Stream{
		events:   make(chan domain.StreamEvent),
		gone:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Events se cierra cuando el pipeline termina.
func (s *Stream) Events() <-chan domain.StreamEvent {
	return s.events
}

// Close indica que el consumidor ya no leerá. La generación sigue y se persiste.
func (s *Stream) Close() {
	s.once.Do(func() { close(s.gone) })
}

// Done se cierra cuando el pipeline terminó de persistir.
func (s *Stream) Done() <-chan struct{} {
	return s.finished
}

// send entrega ev o devuelve false si el consumidor se fue.
func (s *Stream) send(ev domain.StreamEvent) bool {
	select {
	case <-s.gone:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	case <-s.gone:
		return false
	}
}

func (s *Stream) finish() {
	close(s.events)
	close(s.finished)
}
