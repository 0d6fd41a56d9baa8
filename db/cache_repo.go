package db

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bloodbridge/lifeline/domain"
)

var _ domain.CacheRepository = (*Repository)(nil)

// dbGeneration represents a cache generation row as stored in the database.
type dbGeneration struct {
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// dbEntry represents a stored response snapshot as stored in the database.
// It differs from domain.CacheEntry by using the Headers column type to map
// response headers to JSON.
type dbEntry struct {
	Generation string    `db:"generation"`
	URL        string    `db:"url"`
	Method     string    `db:"method"`
	Status     string    `db:"status"`
	StatusCode int       `db:"status_code"`
	Headers    Headers   `db:"headers"`
	Body       []byte    `db:"body"`
	StoredAt   time.Time `db:"stored_at"`
}

// fromDomainCacheEntry converts a domain.CacheEntry into a dbEntry for database insertion.
func fromDomainCacheEntry(entry *domain.CacheEntry) *dbEntry {
	return &dbEntry{
		Generation: entry.Generation,
		URL:        entry.URL,
		Method:     entry.Method,
		Status:     entry.Status,
		StatusCode: entry.StatusCode,
		Headers:    Headers(entry.Headers),
		Body:       entry.Body,
		StoredAt:   entry.StoredAt,
	}
}

// toDomainCacheEntry converts a dbEntry into a domain.CacheEntry.
func toDomainCacheEntry(dbEnt *dbEntry) *domain.CacheEntry {
	return &domain.CacheEntry{
		Generation: dbEnt.Generation,
		URL:        dbEnt.URL,
		Method:     dbEnt.Method,
		Status:     dbEnt.Status,
		StatusCode: dbEnt.StatusCode,
		Headers:    http.Header(dbEnt.Headers),
		Body:       dbEnt.Body,
		StoredAt:   dbEnt.StoredAt,
	}
}

// OpenGeneration implements the domain.CacheRepository interface.
// Opening is idempotent; an existing generation is returned unchanged.
func (repo *Repository) OpenGeneration(name string) (*domain.Generation, error) {
	insert := `INSERT INTO generation (name) VALUES (?) ON CONFLICT(name) DO NOTHING`
	_, err := repo.dbConn.Exec(insert, name)
	if err != nil {
		return nil, fmt.Errorf("opening generation %s : %w", name, err)
	}

	var dbGen dbGeneration
	query := `SELECT name, created_at FROM generation WHERE name = ?`
	err = repo.dbConn.Get(&dbGen, query, name)
	if err != nil {
		return nil, fmt.Errorf("getting generation %s : %w", name, err)
	}

	return &domain.Generation{Name: dbGen.Name, CreatedAt: dbGen.CreatedAt}, nil
}

// Match implements the domain.CacheRepository interface.
// It performs an exact lookup and maps an absent row to domain.ErrCacheMiss.
func (repo *Repository) Match(generation, url, method string) (*domain.CacheEntry, error) {
	var dbEnt dbEntry
	query := `SELECT generation, url, method, status, status_code, headers, body, stored_at
			  FROM entry
			  WHERE generation = ? AND url = ? AND method = ?`

	err := repo.dbConn.Get(&dbEnt, query, generation, url, method)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("matching %s %s in generation %s : %w", method, url, generation, err)
	}

	return toDomainCacheEntry(&dbEnt), nil
}

// Put implements the domain.CacheRepository interface.
// An existing entry under the same key is replaced whole; there are no
// partial updates.
func (repo *Repository) Put(entry *domain.CacheEntry) error {
	dbEnt := fromDomainCacheEntry(entry)
	query := `INSERT INTO entry (generation, url, method, status, status_code, headers, body, stored_at)
			  VALUES (:generation, :url, :method, :status, :status_code, :headers, :body, :stored_at)
			  ON CONFLICT(generation, url, method) DO UPDATE SET
				status = excluded.status,
				status_code = excluded.status_code,
				headers = excluded.headers,
				body = excluded.body,
				stored_at = excluded.stored_at`
	_, err := repo.dbConn.NamedExec(query, dbEnt)
	if err != nil {
		return fmt.Errorf("putting entry %s %s : %w", entry.Method, entry.URL, err)
	}
	return nil
}

// PutBatch implements the domain.CacheRepository interface.
// All entries are written in one transaction so a partially warmed
// generation is never committed.
func (repo *Repository) PutBatch(generation string, entries []*domain.CacheEntry) error {
	tx, err := repo.dbConn.Beginx()
	if err != nil {
		return fmt.Errorf("beginning batch put for generation %s : %w", generation, err)
	}
	defer tx.Rollback()

	query := `INSERT INTO entry (generation, url, method, status, status_code, headers, body, stored_at)
			  VALUES (:generation, :url, :method, :status, :status_code, :headers, :body, :stored_at)
			  ON CONFLICT(generation, url, method) DO UPDATE SET
				status = excluded.status,
				status_code = excluded.status_code,
				headers = excluded.headers,
				body = excluded.body,
				stored_at = excluded.stored_at`

	for _, entry := range entries {
		dbEnt := fromDomainCacheEntry(entry)
		dbEnt.Generation = generation
		if _, err := tx.NamedExec(query, dbEnt); err != nil {
			return fmt.Errorf("putting entry %s %s in batch : %w", entry.Method, entry.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch put for generation %s : %w", generation, err)
	}
	return nil
}

// ListGenerationNames implements the domain.CacheRepository interface.
func (repo *Repository) ListGenerationNames() ([]string, error) {
	var names []string
	query := `SELECT name FROM generation ORDER BY created_at ASC, name ASC`

	err := repo.dbConn.Select(&names, query)
	if err != nil {
		return nil, fmt.Errorf("listing generation names : %w", err)
	}
	return names, nil
}

// DeleteGeneration implements the domain.CacheRepository interface.
// Entries are removed through the ON DELETE CASCADE on the entry table.
func (repo *Repository) DeleteGeneration(name string) error {
	query := `DELETE FROM generation WHERE name = ?`
	_, err := repo.dbConn.Exec(query, name)
	if err != nil {
		return fmt.Errorf("deleting generation %s : %w", name, err)
	}
	return nil
}

// CountEntries implements the domain.CacheRepository interface.
func (repo *Repository) CountEntries(generation string) (int32, error) {
	var count int32
	query := `SELECT COUNT(*) FROM entry WHERE generation = ?`

	err := repo.dbConn.Get(&count, query, generation)
	if err != nil {
		return 0, fmt.Errorf("counting entries for generation %s : %w", generation, err)
	}
	return count, nil
}
