package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"llm-chat/internal/domain"
	"llm-chat/internal/llm"
	"llm-chat/internal/metrics"
)

// ApologyMessage se envía al consumidor cuando falla la generación.
const ApologyMessage = "죄송합니다. 응답을 생성하는 중에 오류가 발생했습니다."

// Sink persiste el contenido acumulado al terminar el flujo.
type Sink func(ctx context.Context, content string) error

// persistTimeout acota la escritura final, que no hereda la cancelación de la generación.
const persistTimeout = 5 * time.Second

// persist llama a sink con un contexto vivo aunque ctx haya expirado
// (timeout de generación); conserva sus valores y la traza.
func persist(ctx context.Context, sink Sink, content string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	return sink(ctx, content)
}

// StreamTarget etiqueta los fragmentos emitidos.
type StreamTarget struct {
	MessageID int64
	Role      domain.Role
}

// StreamResult resume una generación.
type StreamResult struct {
	Content string
	// Err es el fallo de generación o de persistencia, si lo hubo.
	Err error
	// ConsumerGone indica que el consumidor se desconectó antes del final.
	ConsumerGone bool
}

// Streamer ejecuta una generación en streaming y reenvía cada fragmento al consumidor.
type Streamer struct {
	logger *zap.Logger
	llm    llm.Client
}

func NewStreamer(logger *zap.Logger, client llm.Client) *Streamer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Streamer{logger: logger, llm: client}
}

// Run bloquea hasta que el modelo termina. El buffer es propiedad exclusiva de
// esta llamada; si el consumidor se va, se sigue leyendo para persistir el resultado.
func (s *Streamer) Run(ctx context.Context, out *Stream, messages []llm.Message, target StreamTarget, sink Sink) StreamResult {
	ctx, span := tracer.Start(ctx, "streamer.run")
	defer span.End()
	start := time.Now()
	defer func() { metrics.StageDuration.WithLabelValues("generation").Observe(time.Since(start).Seconds()) }()

	var (
		buf        strings.Builder
		forwarding = true
	)

	st, err := s.llm.Stream(ctx, messages)
	if err != nil {
		span.RecordError(err)
		return s.fail(ctx, out, target, sink, "", err, forwarding)
	}
	defer st.Close()

	for {
		chunk, err := st.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			span.RecordError(err)
			return s.fail(ctx, out, target, sink, buf.String(), err, forwarding)
		}
		if chunk == "" {
			continue
		}
		buf.WriteString(chunk)
		if forwarding {
			if out.send(domain.StreamEvent{Type: domain.EventFragment, MessageID: target.MessageID, Role: target.Role, Content: chunk}) {
				metrics.StreamFragments.Inc()
			} else {
				forwarding = false
				s.logger.Info("stream consumer gone, continuing generation", zap.Int64("message_id", target.MessageID))
			}
		}
	}

	content := buf.String()
	if err := persist(ctx, sink, content); err != nil {
		s.logger.Error("persist generated content failed", zap.Int64("message_id", target.MessageID), zap.Error(err))
		span.RecordError(err)
		if forwarding {
			out.send(domain.StreamEvent{Type: domain.EventError, MessageID: target.MessageID, Role: target.Role, Content: ApologyMessage})
		}
		return StreamResult{Content: content, Err: err, ConsumerGone: !forwarding}
	}
	if forwarding {
		forwarding = out.send(domain.StreamEvent{Type: domain.EventDone, MessageID: target.MessageID, Role: target.Role, Content: content})
	}
	return StreamResult{Content: content, ConsumerGone: !forwarding}
}

// fail guarda el texto parcial (si existe) y avisa al consumidor con la disculpa.
func (s *Streamer) fail(ctx context.Context, out *Stream, target StreamTarget, sink Sink, partial string, cause error, forwarding bool) StreamResult {
	s.logger.Warn("generation failed", zap.Int64("message_id", target.MessageID), zap.Int("partial_len", len(partial)), zap.Error(cause))
	if partial != "" {
		if err := persist(ctx, sink, partial); err != nil {
			s.logger.Error("persist partial content failed", zap.Int64("message_id", target.MessageID), zap.Error(err))
		}
	}
	if forwarding {
		forwarding = out.send(domain.StreamEvent{Type: domain.EventError, MessageID: target.MessageID, Role: target.Role, Content: ApologyMessage})
	}
	return StreamResult{Content: partial, Err: cause, ConsumerGone: !forwarding}
}
