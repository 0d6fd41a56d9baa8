package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bloodbridge/lifeline/domain"
)

var _ domain.LogRepository = (*Repository)(nil)

// dbLog represents a log entry as stored in the database.
// RecordID uses sql.NullString since most gateway logs are not tied to a
// mutation record.
type dbLog struct {
	ID        uuid.UUID      `db:"id"`
	Timestamp time.Time      `db:"timestamp"`
	Level     string         `db:"level"`
	Message   string         `db:"message"`
	Context   Metadata       `db:"context"`
	RecordID  sql.NullString `db:"record_id"`
}

// fromDomainLog converts a domain.Log into a dbLog for database insertion.
func fromDomainLog(log *domain.Log) *dbLog {
	dbEntry := &dbLog{
		ID:        log.ID,
		Timestamp: log.Timestamp,
		Level:     log.Level,
		Message:   log.Message,
		Context:   Metadata(log.Context),
	}

	if log.RequestID != nil {
		dbEntry.RecordID = sql.NullString{String: log.RequestID.String(), Valid: true}
	}
	return dbEntry
}

// toDomainLog converts a dbLog into a domain.Log.
func toDomainLog(dbEntry *dbLog) (*domain.Log, error) {
	log := &domain.Log{
		ID:        dbEntry.ID,
		Timestamp: dbEntry.Timestamp,
		Level:     dbEntry.Level,
		Message:   dbEntry.Message,
		Context:   map[string]any(dbEntry.Context),
	}

	if dbEntry.RecordID.Valid {
		id, err := uuid.Parse(dbEntry.RecordID.String)
		if err != nil {
			return nil, fmt.Errorf("parsing record id %s : %w", dbEntry.RecordID.String, err)
		}
		log.RequestID = &id
	}
	return log, nil
}

// InsertLog implements the domain.LogRepository interface.
func (repo *Repository) InsertLog(log *domain.Log) error {
	dbEntry := fromDomainLog(log)
	query := `INSERT INTO log (id, timestamp, level, message, context, record_id)
			  VALUES (:id, :timestamp, :level, :message, :context, :record_id)`
	_, err := repo.dbConn.NamedExec(query, dbEntry)
	if err != nil {
		return fmt.Errorf("inserting log %s : %w", log.ID, err)
	}
	return nil
}

// GetLogs implements the domain.LogRepository interface.
func (repo *Repository) GetLogs() ([]*domain.Log, error) {
	var dbLogs []*dbLog
	query := `SELECT id, timestamp, level, message, context, record_id
			  FROM log
			  ORDER BY timestamp ASC, id ASC`

	err := repo.dbConn.Select(&dbLogs, query)
	if err != nil {
		return nil, fmt.Errorf("getting logs : %w", err)
	}

	logs := make([]*domain.Log, len(dbLogs))
	for i, dbEntry := range dbLogs {
		log, err := toDomainLog(dbEntry)
		if err != nil {
			return nil, err
		}
		logs[i] = log
	}
	return logs, nil
}
