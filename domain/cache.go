package domain

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// ErrCacheMiss is returned by Match when no entry exists for the requested
// URL and method in the named generation. A miss is a normal signal, not a
// failure; callers fall through to the network.
var ErrCacheMiss = errors.New("no cache entry for request")

// RawField type is used for stored response and mutation payload bodies.
//
// By default []byte MarshalJSON will encode the []byte value to base64.
// MarshalJSON is implemented for RawField to directly marshal the "string" bytes.
type RawField []byte

// MarshalJSON implements the json.Marshaler interface. It marshals the raw bytes
// as a JSON string, bypassing the default base64 encoding for []byte.
func (r RawField) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}

	return json.Marshal(string(r))
}

// Generation is a named, versioned partition of the cache store. At most one
// static generation is current at any time; prior generations exist only
// transiently during a version transition and are deleted at activation.
type Generation struct {
	Name      string    // Generation name, including the version tag
	CreatedAt time.Time // When the generation was first opened
}

// CacheEntry maps a request descriptor (normalized absolute URL + method) to
// a stored response snapshot. Entries are immutable once written except by
// explicit replacement under the same key, and are never shared across
// generations.
type CacheEntry struct {
	Generation string      // Name of the generation the entry belongs to
	URL        string      // Normalized absolute request URL
	Method     string      // HTTP method (read operations only)
	Status     string      // HTTP status text (e.g., "200 OK")
	StatusCode int         // HTTP status code
	Headers    http.Header // Response headers at storage time
	Body       RawField    // Response body bytes
	StoredAt   time.Time   // When the snapshot was written
}

// CacheRepository is the interface that holds all the cache persistence
// methods consumed by the gateway's store. The repository asserts no
// semantics over entry bodies; callers are responsible for only storing
// responses they consider successful.
type CacheRepository interface {
	// OpenGeneration creates the named generation if it does not exist and
	// returns it. Opening an existing generation is a no-op.
	OpenGeneration(name string) (*Generation, error)

	// Match performs an exact-match lookup by normalized URL and method in
	// the named generation. It returns ErrCacheMiss when no entry exists;
	// never a partial or fuzzy match.
	Match(generation, url, method string) (*CacheEntry, error)

	// Put stores or replaces the entry under its (generation, URL, method)
	// key. The generation must have been opened first.
	Put(entry *CacheEntry) error

	// PutBatch stores all entries into the named generation within a single
	// transaction. Either every entry is written or none are.
	PutBatch(generation string, entries []*CacheEntry) error

	// ListGenerationNames returns the names of all generations present in
	// the store.
	ListGenerationNames() ([]string, error)

	// DeleteGeneration removes a generation and all its entries irreversibly.
	DeleteGeneration(name string) error

	// CountEntries returns the number of entries stored in the named generation.
	CountEntries(generation string) (int32, error)
}
