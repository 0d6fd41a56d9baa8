// Package core provides fundamental utilities for the Lifeline gateway.
// This file contains the context keys and helpers shared between the
// transport and the caching handlers.
package core

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	// RequestIDKey is the context key for the request ID (uuid.UUID). The same
	// ID is shared between the request and its resolved response
	RequestIDKey contextKey = "RequestID"
	// GenerationKey is the context key for the cache generation name (string)
	// the resolving handler is addressing
	GenerationKey contextKey = "Generation"
)

// ContextWithRequestID returns a new request with a request ID in the context
func ContextWithRequestID(req *http.Request, requestId uuid.UUID) *http.Request {
	ctx := context.WithValue(req.Context(), RequestIDKey, requestId)
	return req.WithContext(ctx)
}

// RequestIDFromContext returns the request ID from the context if it exists
func RequestIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(RequestIDKey).(uuid.UUID)
	return id, ok
}

// ContextWithGeneration returns a new request with the generation name in the context
func ContextWithGeneration(req *http.Request, generation string) *http.Request {
	ctx := context.WithValue(req.Context(), GenerationKey, generation)
	return req.WithContext(ctx)
}

// GenerationFromContext returns the generation name from the context if it exists
func GenerationFromContext(ctx context.Context) (string, bool) {
	generation, ok := ctx.Value(GenerationKey).(string)
	return generation, ok
}
