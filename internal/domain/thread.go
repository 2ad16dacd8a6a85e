package domain

import "time"

// DefaultThreadName es el nombre inicial de todo hilo nuevo.
const DefaultThreadName = "New chat"

type Thread struct {
	ID        int64      `json:"id"`
	UserID    string     `json:"user_id"`
	ChatName  string     `json:"chat_name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// IsDeleted indica si el hilo está en la papelera (soft-delete).
func (t Thread) IsDeleted() bool {
	return t.DeletedAt != nil
}

// ThreadSearchResult describe una coincidencia de búsqueda sobre un hilo.
// MessageID y MessageIndex son nil cuando la coincidencia fue en el nombre.
type ThreadSearchResult struct {
	ID             int64     `json:"id"`
	ChatName       string    `json:"chat_name"`
	MatchHighlight string    `json:"match_highlight"`
	MessageID      *int64    `json:"message_id"`
	MessageIndex   *int      `json:"message_index"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
