package domain

import (
	"time"

	"github.com/google/uuid"
)

// SharedThread publica un hilo hasta un mensaje concreto bajo una clave pública.
type SharedThread struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	ThreadID  int64     `json:"thread_id"`
	MessageID int64     `json:"message_id"`
	SharedKey uuid.UUID `json:"shared_key"`
	SharedAt  time.Time `json:"shared_at"`
}
