package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bloodbridge/lifeline/domain"
)

var _ domain.MutationRepository = (*Repository)(nil)

// dbMutation represents a deferred mutation record as stored in the database.
// ContentType uses sql.NullString since payloads without a declared content
// type are legal.
type dbMutation struct {
	ID          uuid.UUID      `db:"id"`
	Tag         string         `db:"tag"`
	Method      string         `db:"method"`
	URL         string         `db:"url"`
	ContentType sql.NullString `db:"content_type"`
	Payload     []byte         `db:"payload"`
	EnqueuedAt  time.Time      `db:"enqueued_at"`
}

// fromDomainMutationRecord converts a domain.MutationRecord into a dbMutation for database insertion.
func fromDomainMutationRecord(rec *domain.MutationRecord) *dbMutation {
	return &dbMutation{
		ID:     rec.ID,
		Tag:    rec.Tag,
		Method: rec.Method,
		URL:    rec.URL,
		ContentType: sql.NullString{
			String: rec.ContentType,
			Valid:  rec.ContentType != "",
		},
		Payload:    rec.Payload,
		EnqueuedAt: rec.EnqueuedAt,
	}
}

// toDomainMutationRecord converts a dbMutation into a domain.MutationRecord.
func toDomainMutationRecord(dbMut *dbMutation) *domain.MutationRecord {
	rec := &domain.MutationRecord{
		ID:         dbMut.ID,
		Tag:        dbMut.Tag,
		Method:     dbMut.Method,
		URL:        dbMut.URL,
		Payload:    dbMut.Payload,
		EnqueuedAt: dbMut.EnqueuedAt,
	}

	if dbMut.ContentType.Valid {
		rec.ContentType = dbMut.ContentType.String
	}
	return rec
}

// EnqueueMutation implements the domain.MutationRepository interface.
func (repo *Repository) EnqueueMutation(rec *domain.MutationRecord) error {
	dbMut := fromDomainMutationRecord(rec)
	query := `INSERT INTO mutation (id, tag, method, url, content_type, payload, enqueued_at)
			  VALUES (:id, :tag, :method, :url, :content_type, :payload, :enqueued_at)`
	_, err := repo.dbConn.NamedExec(query, dbMut)
	if err != nil {
		return fmt.Errorf("enqueueing mutation %s : %w", rec.ID, err)
	}
	return nil
}

// ListMutations implements the domain.MutationRepository interface.
// The secondary ordering on id keeps replay deterministic when two records
// share an enqueue timestamp; V7 UUIDs sort by creation time.
func (repo *Repository) ListMutations(tag string) ([]*domain.MutationRecord, error) {
	var dbMuts []*dbMutation
	query := `SELECT id, tag, method, url, content_type, payload, enqueued_at
			  FROM mutation
			  WHERE tag = ?
			  ORDER BY enqueued_at ASC, id ASC`

	err := repo.dbConn.Select(&dbMuts, query, tag)
	if err != nil {
		return nil, fmt.Errorf("listing mutations for tag %s : %w", tag, err)
	}

	recs := make([]*domain.MutationRecord, len(dbMuts))
	for i, dbMut := range dbMuts {
		recs[i] = toDomainMutationRecord(dbMut)
	}
	return recs, nil
}

// DeleteMutation implements the domain.MutationRepository interface.
func (repo *Repository) DeleteMutation(id uuid.UUID) error {
	query := `DELETE FROM mutation WHERE id = ?`
	_, err := repo.dbConn.Exec(query, id)
	if err != nil {
		return fmt.Errorf("deleting mutation %s : %w", id, err)
	}
	return nil
}

// ListMutationTags implements the domain.MutationRepository interface.
func (repo *Repository) ListMutationTags() ([]string, error) {
	var tags []string
	query := `SELECT DISTINCT tag FROM mutation ORDER BY tag ASC`

	err := repo.dbConn.Select(&tags, query)
	if err != nil {
		return nil, fmt.Errorf("listing mutation tags : %w", err)
	}
	return tags, nil
}

// CountMutations implements the domain.MutationRepository interface.
func (repo *Repository) CountMutations() (int32, error) {
	var count int32
	query := `SELECT COUNT(*) FROM mutation`

	err := repo.dbConn.Get(&count, query)
	if err != nil {
		return 0, fmt.Errorf("counting mutations : %w", err)
	}
	return count, nil
}
