package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "USER"
	RoleAssistant Role = "ASSISTANT"
)

type Rating string

const (
	RatingUp   Rating = "UP"
	RatingDown Rating = "DOWN"
)

// ParseRating normaliza una calificación; "" o "NONE" la eliminan.
func ParseRating(raw string) (*Rating, bool) {
	switch Rating(strings.ToUpper(strings.TrimSpace(raw))) {
	case RatingUp:
		r := RatingUp
		return &r, true
	case RatingDown:
		r := RatingDown
		return &r, true
	case "", "NONE":
		return nil, true
	default:
		return nil, false
	}
}

type Message struct {
	ID        int64     `json:"id"`
	ThreadID  int64     `json:"thread_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Rating    *Rating   `json:"rating,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
