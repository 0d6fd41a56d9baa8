// Package domain defines the core data structures of the Lifeline gateway.
// It contains the primary domain models, such as CacheEntry, Generation,
// MutationRecord, and Notification, as well as the repository interfaces that
// define the contracts for data persistence.
//
// This package serves as the central point for application-wide types,
// ensuring a clean separation between the gateway's caching logic and its
// implementation details, such as the database or the hosting application.
// By defining interfaces for repositories, the domain package remains
// independent of the data storage technology.
package domain
