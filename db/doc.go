// Package db provides the database layer for the Lifeline gateway.
// It encapsulates all interactions with the underlying SQL database, managing
// data persistence for the cache generations and their entries, the deferred
// mutation queue, lifecycle state, and gateway logs.
//
// This package is responsible for:
// - Establishing and managing database connections (`db.go`).
// - Defining database-specific data structures that map to SQL table schemas.
// - Implementing repository interfaces (e.g., `CacheRepository`, `MutationRepository`)
//   to perform CRUD operations.
// - Handling data conversion between domain-specific structs (from the `domain` package)
//   and database-friendly structs, including the use of `sql.Null*` types for nullable fields.
// - Managing database migrations (`migrations/`).
// - Providing common database utility types (`types.go`).
package db
