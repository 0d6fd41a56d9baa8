package domain

import (
	"time"

	"github.com/google/uuid"
)

// Log represents a log entry in the system, capturing gateway events such as
// installs, activations, generation deletions, and replay failures.
type Log struct {
	ID        uuid.UUID      // Unique identifier for the log entry
	Timestamp time.Time      // When the log entry was created
	Level     string         // Log level (DEBUG, INFO, WARN, ERROR, FATAL)
	Message   string         // Log message content
	Context   map[string]any // Additional context data
	RequestID *uuid.UUID     // Associated request or mutation record ID if applicable
}

// LogRepository defines the interface for persisting and retrieving log entries.
type LogRepository interface {
	// InsertLog stores a log entry.
	InsertLog(log *Log) error

	// GetLogs returns all log entries ordered oldest first.
	GetLogs() ([]*Log, error)
}
