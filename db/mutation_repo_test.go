package db

import (
	"reflect"
	"testing"
	"time"
)

func TestMutationRepo_Enqueue(t *testing.T) {
	t.Run("should persist a record", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		want := testMutation(t, repo, "sync-donations", time.Now().UTC().Truncate(time.Millisecond))

		recs, err := repo.ListMutations("sync-donations")
		if err != nil {
			t.Fatalf("wanted: nil\ngot: %v", err)
		}

		if len(recs) != 1 {
			t.Fatalf("wanted: 1 record\ngot: %d", len(recs))
		}

		got := recs[0]
		if got.ID != want.ID {
			t.Fatalf("wanted id: %s\ngot: %s", want.ID, got.ID)
		}

		if got.ContentType != want.ContentType {
			t.Fatalf("wanted content type: %q\ngot: %q", want.ContentType, got.ContentType)
		}

		if string(got.Payload) != string(want.Payload) {
			t.Fatalf("wanted payload: %q\ngot: %q", want.Payload, got.Payload)
		}
	})
}

func TestMutationRepo_List(t *testing.T) {
	t.Run("should list records in FIFO order per tag", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		base := time.Now().UTC().Truncate(time.Millisecond)
		first := testMutation(t, repo, "sync-donations", base)
		second := testMutation(t, repo, "sync-donations", base.Add(time.Second))
		testMutation(t, repo, "sync-requests", base.Add(2*time.Second))

		recs, err := repo.ListMutations("sync-donations")
		if err != nil {
			t.Fatalf("wanted: nil\ngot: %v", err)
		}

		if len(recs) != 2 {
			t.Fatalf("wanted: 2 records\ngot: %d", len(recs))
		}

		if recs[0].ID != first.ID || recs[1].ID != second.ID {
			t.Fatalf("wanted FIFO order %s, %s\ngot: %s, %s", first.ID, second.ID, recs[0].ID, recs[1].ID)
		}
	})

	t.Run("should return no records for an unknown tag", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		recs, err := repo.ListMutations("sync-unknown")
		if err != nil {
			t.Fatalf("wanted: nil\ngot: %v", err)
		}

		if len(recs) != 0 {
			t.Fatalf("wanted: 0 records\ngot: %d", len(recs))
		}
	})
}

func TestMutationRepo_Delete(t *testing.T) {
	t.Run("should remove only the consumed record", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		base := time.Now().UTC().Truncate(time.Millisecond)
		first := testMutation(t, repo, "sync-donations", base)
		second := testMutation(t, repo, "sync-donations", base.Add(time.Second))

		if err := repo.DeleteMutation(first.ID); err != nil {
			t.Fatalf("wanted: nil\ngot: %v", err)
		}

		recs, err := repo.ListMutations("sync-donations")
		if err != nil {
			t.Fatalf("listing mutations: %v", err)
		}

		if len(recs) != 1 {
			t.Fatalf("wanted: 1 record\ngot: %d", len(recs))
		}

		if recs[0].ID != second.ID {
			t.Fatalf("wanted: %s\ngot: %s", second.ID, recs[0].ID)
		}
	})
}

func TestMutationRepo_Tags(t *testing.T) {
	t.Run("should list distinct tags with queued records", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		base := time.Now().UTC().Truncate(time.Millisecond)
		testMutation(t, repo, "sync-donations", base)
		testMutation(t, repo, "sync-donations", base.Add(time.Second))
		testMutation(t, repo, "sync-requests", base.Add(2*time.Second))

		got, err := repo.ListMutationTags()
		if err != nil {
			t.Fatalf("wanted: nil\ngot: %v", err)
		}

		want := []string{"sync-donations", "sync-requests"}
		if !reflect.DeepEqual(want, got) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, got)
		}

		count, err := repo.CountMutations()
		if err != nil {
			t.Fatalf("counting mutations: %v", err)
		}

		if count != 3 {
			t.Fatalf("wanted: 3\ngot: %d", count)
		}
	})
}
