package domain

type StreamEventType string

const (
	EventFragment StreamEventType = "message"
	EventError    StreamEventType = "error"
	EventDone     StreamEventType = "done"
)

// AutoRenameMessageID etiqueta los eventos del flujo de renombrado automático.
const AutoRenameMessageID int64 = -1

// StreamEvent es un elemento del flujo de salida hacia el cliente.
type StreamEvent struct {
	Type      StreamEventType `json:"-"`
	MessageID int64           `json:"message_id"`
	Role      Role            `json:"role"`
	Content   string          `json:"content"`
}
