package db

import (
	"errors"
	"net/http"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/bloodbridge/lifeline/domain"
)

func TestCacheRepo_OpenGeneration(t *testing.T) {
	t.Run("should create a new generation", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		gen, err := repo.OpenGeneration("static-v1.0.0")
		if err != nil {
			t.Fatalf("wanted: nil\ngot: %v", err)
		}

		if gen.Name != "static-v1.0.0" {
			t.Fatalf("wanted: %q\ngot: %q", "static-v1.0.0", gen.Name)
		}

		if gen.CreatedAt.IsZero() {
			t.Fatalf("wanted a creation time\ngot: zero time")
		}
	})

	t.Run("should be idempotent", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		first, err := repo.OpenGeneration("static-v1.0.0")
		if err != nil {
			t.Fatalf("wanted: nil\ngot: %v", err)
		}

		second, err := repo.OpenGeneration("static-v1.0.0")
		if err != nil {
			t.Fatalf("wanted: nil\ngot: %v", err)
		}

		if !first.CreatedAt.Equal(second.CreatedAt) {
			t.Fatalf("wanted same creation time\ngot: %v and %v", first.CreatedAt, second.CreatedAt)
		}

		names, err := repo.ListGenerationNames()
		if err != nil {
			t.Fatalf("listing generation names: %v", err)
		}

		if len(names) != 1 {
			t.Fatalf("wanted: 1 generation\ngot: %d", len(names))
		}
	})
}

func TestCacheRepo_Match(t *testing.T) {
	t.Run("should return the stored entry", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		want := testEntry(t, repo, "static-v1.0.0", "https://bloodbridge.app/app.js")

		got, err := repo.Match("static-v1.0.0", "https://bloodbridge.app/app.js", http.MethodGet)
		if err != nil {
			t.Fatalf("wanted: nil\ngot: %v", err)
		}

		if string(got.Body) != string(want.Body) {
			t.Fatalf("wanted body: %q\ngot: %q", want.Body, got.Body)
		}

		if got.StatusCode != want.StatusCode {
			t.Fatalf("wanted status code: %d\ngot: %d", want.StatusCode, got.StatusCode)
		}

		if !reflect.DeepEqual(got.Headers, want.Headers) {
			t.Fatalf("\nwanted headers:\n%v\ngot:\n%v", want.Headers, got.Headers)
		}
	})

	t.Run("should return ErrCacheMiss for an absent key", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		testEntry(t, repo, "static-v1.0.0", "https://bloodbridge.app/app.js")

		_, err := repo.Match("static-v1.0.0", "https://bloodbridge.app/missing.js", http.MethodGet)
		if !errors.Is(err, domain.ErrCacheMiss) {
			t.Fatalf("wanted: ErrCacheMiss\ngot: %v", err)
		}
	})

	t.Run("should not match across generations", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		testEntry(t, repo, "static-v1.0.0", "https://bloodbridge.app/app.js")

		if _, err := repo.OpenGeneration("static-v2.0.0"); err != nil {
			t.Fatalf("opening generation: %v", err)
		}

		_, err := repo.Match("static-v2.0.0", "https://bloodbridge.app/app.js", http.MethodGet)
		if !errors.Is(err, domain.ErrCacheMiss) {
			t.Fatalf("wanted: ErrCacheMiss\ngot: %v", err)
		}
	})
}

func TestCacheRepo_Put(t *testing.T) {
	t.Run("should replace an entry under the same key", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		entry := testEntry(t, repo, "static-v1.0.0", "https://bloodbridge.app/app.js")

		entry.Body = []byte("updated body")
		entry.StoredAt = entry.StoredAt.Add(time.Minute)
		if err := repo.Put(entry); err != nil {
			t.Fatalf("wanted: nil\ngot: %v", err)
		}

		got, err := repo.Match(entry.Generation, entry.URL, entry.Method)
		if err != nil {
			t.Fatalf("matching replaced entry: %v", err)
		}

		if string(got.Body) != "updated body" {
			t.Fatalf("wanted: %q\ngot: %q", "updated body", got.Body)
		}

		count, err := repo.CountEntries(entry.Generation)
		if err != nil {
			t.Fatalf("counting entries: %v", err)
		}

		if count != 1 {
			t.Fatalf("wanted: 1 entry\ngot: %d", count)
		}
	})
}

func TestCacheRepo_PutBatch(t *testing.T) {
	t.Run("should store all entries at once", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		if _, err := repo.OpenGeneration("static-v1.0.0"); err != nil {
			t.Fatalf("opening generation: %v", err)
		}

		entries := []*domain.CacheEntry{
			{
				URL:        "https://bloodbridge.app/app.js",
				Method:     http.MethodGet,
				Status:     "200 OK",
				StatusCode: http.StatusOK,
				Headers:    http.Header{},
				Body:       []byte("js"),
				StoredAt:   time.Now(),
			},
			{
				URL:        "https://bloodbridge.app/app.css",
				Method:     http.MethodGet,
				Status:     "200 OK",
				StatusCode: http.StatusOK,
				Headers:    http.Header{},
				Body:       []byte("css"),
				StoredAt:   time.Now(),
			},
		}

		if err := repo.PutBatch("static-v1.0.0", entries); err != nil {
			t.Fatalf("wanted: nil\ngot: %v", err)
		}

		count, err := repo.CountEntries("static-v1.0.0")
		if err != nil {
			t.Fatalf("counting entries: %v", err)
		}

		if count != 2 {
			t.Fatalf("wanted: 2 entries\ngot: %d", count)
		}
	})

	t.Run("should fail as a unit when the generation is missing", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		entries := []*domain.CacheEntry{
			{
				URL:        "https://bloodbridge.app/app.js",
				Method:     http.MethodGet,
				Status:     "200 OK",
				StatusCode: http.StatusOK,
				Headers:    http.Header{},
				Body:       []byte("js"),
				StoredAt:   time.Now(),
			},
		}

		err := repo.PutBatch("static-missing", entries)
		if err == nil {
			t.Fatalf("wanted an error for a missing generation\ngot: nil")
		}
	})
}

func TestCacheRepo_DeleteGeneration(t *testing.T) {
	t.Run("should remove the generation and its entries", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		entry := testEntry(t, repo, "static-v1.0.0", "https://bloodbridge.app/app.js")
		testEntry(t, repo, "static-v2.0.0", "https://bloodbridge.app/app.js")

		if err := repo.DeleteGeneration("static-v1.0.0"); err != nil {
			t.Fatalf("wanted: nil\ngot: %v", err)
		}

		names, err := repo.ListGenerationNames()
		if err != nil {
			t.Fatalf("listing generation names: %v", err)
		}

		if slices.Contains(names, "static-v1.0.0") {
			t.Fatalf("wanted static-v1.0.0 to be deleted\ngot: %v", names)
		}

		_, err = repo.Match(entry.Generation, entry.URL, entry.Method)
		if !errors.Is(err, domain.ErrCacheMiss) {
			t.Fatalf("wanted: ErrCacheMiss after deletion\ngot: %v", err)
		}

		// The other generation is unaffected.
		if _, err := repo.Match("static-v2.0.0", entry.URL, entry.Method); err != nil {
			t.Fatalf("wanted surviving generation to still match\ngot: %v", err)
		}
	})
}
