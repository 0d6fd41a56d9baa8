package domain

import (
	"time"

	"github.com/google/uuid"
)

// MutationRecord represents one attempted network mutation (e.g., a
// registration submission) that failed due to unavailability. Records are
// consumed only after a successful replay and are never mutated in place.
type MutationRecord struct {
	ID          uuid.UUID // Unique identifier for the record
	Tag         string    // Opaque tag identifying the mutation class
	Method      string    // HTTP method of the original request
	URL         string    // Normalized absolute URL of the original request
	ContentType string    // Content type of the payload, if any
	Payload     RawField  // Serialized request body
	EnqueuedAt  time.Time // When the record was queued
}

// MutationRepository is the interface that holds the persistence methods for
// the deferred mutation queue. The repository provides durability only; all
// replay semantics live in the queue.
type MutationRepository interface {
	// EnqueueMutation appends the record durably. Records survive process
	// restarts.
	EnqueueMutation(rec *MutationRecord) error

	// ListMutations returns all queued records for the tag in FIFO order.
	ListMutations(tag string) ([]*MutationRecord, error)

	// DeleteMutation removes a record, typically after a confirmed replay.
	DeleteMutation(id uuid.UUID) error

	// ListMutationTags returns the distinct tags that currently have queued
	// records.
	ListMutationTags() ([]string, error)

	// CountMutations returns the number of queued records across all tags.
	CountMutations() (int32, error)
}
