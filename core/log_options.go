// Package core provides fundamental utilities for the Lifeline gateway.
// This file contains option functions for customizing log entries.
package core

import (
	"github.com/google/uuid"

	"github.com/bloodbridge/lifeline/domain"
)

// LogWithContext is an option to add a context map to a log entry.
func LogWithContext(context map[string]any) func(log *domain.Log) error {
	return func(log *domain.Log) error {
		log.Context = context
		return nil
	}
}

// LogWithRecordID is an option to associate a log entry with a mutation record ID.
func LogWithRecordID(id uuid.UUID) func(log *domain.Log) error {
	return func(log *domain.Log) error {
		log.RequestID = &id
		return nil
	}
}

// LogWithRequestID is an option to associate a log entry with the ID of the
// request being resolved.
func LogWithRequestID(id uuid.UUID) func(log *domain.Log) error {
	return func(log *domain.Log) error {
		log.RequestID = &id
		return nil
	}
}
