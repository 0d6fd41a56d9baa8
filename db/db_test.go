package db

import (
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bloodbridge/lifeline/domain"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tempFile, err := os.CreateTemp(t.TempDir(), "test_*.db")
	if err != nil {
		t.Fatalf("os.CreateTemp() failed: %v", err)
	}
	tempFile.Close()

	dbConn, err := New(tempFile.Name())
	if err != nil {
		t.Fatalf("db.New() failed: %v", err)
	}

	repo := NewGatewayRepo(dbConn)

	teardown := func() {
		repo.Close()
		os.Remove(tempFile.Name())
	}

	return repo, teardown
}

func testEntry(t *testing.T, repo *Repository, generation, url string) *domain.CacheEntry {
	t.Helper()

	if _, err := repo.OpenGeneration(generation); err != nil {
		t.Fatalf("opening generation: %v", err)
	}

	entry := &domain.CacheEntry{
		Generation: generation,
		URL:        url,
		Method:     http.MethodGet,
		Status:     "200 OK",
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": []string{"text/plain"}},
		Body:       []byte("hello lifeline"),
		StoredAt:   time.Now().UTC().Truncate(time.Millisecond),
	}

	if err := repo.Put(entry); err != nil {
		t.Fatalf("putting entry: %v", err)
	}
	return entry
}

func testMutation(t *testing.T, repo *Repository, tag string, enqueuedAt time.Time) *domain.MutationRecord {
	t.Helper()

	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("creating uuid: %v", err)
	}

	rec := &domain.MutationRecord{
		ID:          id,
		Tag:         tag,
		Method:      http.MethodPost,
		URL:         "https://bloodbridge.app/api/donations",
		ContentType: "application/json",
		Payload:     []byte(`{"donor":"o-negative"}`),
		EnqueuedAt:  enqueuedAt,
	}

	if err := repo.EnqueueMutation(rec); err != nil {
		t.Fatalf("enqueueing mutation: %v", err)
	}
	return rec
}
