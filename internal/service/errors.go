package service

import (
	"errors"

	"go.opentelemetry.io/otel"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("invalid state")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrThreadBusy      = errors.New("thread busy")
	ErrRateLimited     = errors.New("rate limited")
	ErrPoolSaturated   = errors.New("worker pool saturated")

	ErrThreadServiceNotConfigured     = errors.New("thread service not configured")
	ErrChatServiceNotConfigured       = errors.New("chat service not configured")
	ErrShareServiceNotConfigured      = errors.New("share service not configured")
	ErrDocumentServiceNotConfigured   = errors.New("document service not configured")
	ErrPreferenceServiceNotConfigured = errors.New("preference service not configured")
)

var tracer = otel.Tracer("llm-chat/service")
