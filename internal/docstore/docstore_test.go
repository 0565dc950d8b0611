package docstore

import (
	"testing"

	"github.com/seedpm/seed/internal/models"
)

// stores returns one instance of every backend for shared behavior tests.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFileStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return map[string]Store{
		"mem":  NewMemStore(),
		"file": fs,
	}
}

func TestDatabaseRoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			db := store.Database("users")

			id, rev, err := db.Insert("bob", Document{"id": "bob", "name": "Bob"})
			if err != nil {
				t.Fatalf("Insert failed: %v", err)
			}
			if id != "bob" {
				t.Errorf("Expected id bob, got %s", id)
			}
			if rev == "" {
				t.Error("Expected a non-empty revision")
			}

			doc, gotRev, err := db.Get("bob")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if gotRev != rev {
				t.Errorf("Expected revision %q, got %q", rev, gotRev)
			}
			if doc["name"] != "Bob" {
				t.Errorf("Expected name Bob, got %v", doc["name"])
			}

			doc["name"] = "Robert"
			rev2, err := db.Save("bob", rev, doc)
			if err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			if rev2 == rev {
				t.Error("Expected revision to advance on save")
			}

			if err := db.Remove("bob", rev2); err != nil {
				t.Fatalf("Remove failed: %v", err)
			}
			if _, _, err := db.Get("bob"); !models.HasCode(err, models.CodeNotFound) {
				t.Errorf("Expected NOT_FOUND after remove, got %v", err)
			}
		})
	}
}

func TestDatabaseConflicts(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			db := store.Database("users")

			_, rev, err := db.Insert("bob", Document{"id": "bob"})
			if err != nil {
				t.Fatal(err)
			}

			// Duplicate insert conflicts.
			if _, _, err := db.Insert("bob", Document{"id": "bob"}); !models.HasCode(err, models.CodeConflict) {
				t.Errorf("Expected CONFLICT on duplicate insert, got %v", err)
			}

			// First writer from rev wins, second loses.
			rev2, err := db.Save("bob", rev, Document{"id": "bob", "n": 1})
			if err != nil {
				t.Fatalf("First save failed: %v", err)
			}
			if _, err := db.Save("bob", rev, Document{"id": "bob", "n": 2}); !models.HasCode(err, models.CodeConflict) {
				t.Errorf("Expected CONFLICT on stale save, got %v", err)
			}

			// Stale remove conflicts, current remove succeeds.
			if err := db.Remove("bob", rev); !models.HasCode(err, models.CodeConflict) {
				t.Errorf("Expected CONFLICT on stale remove, got %v", err)
			}
			if err := db.Remove("bob", rev2); err != nil {
				t.Fatalf("Remove failed: %v", err)
			}

			// Missing documents report NOT_FOUND.
			if _, err := db.Save("ghost", rev, Document{}); !models.HasCode(err, models.CodeNotFound) {
				t.Errorf("Expected NOT_FOUND saving missing doc, got %v", err)
			}
			if err := db.Remove("ghost", rev); !models.HasCode(err, models.CodeNotFound) {
				t.Errorf("Expected NOT_FOUND removing missing doc, got %v", err)
			}
		})
	}
}

func TestDatabaseAssignsIDs(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			db := store.Database("tokens")
			id, _, err := db.Insert("", Document{"username": "bob"})
			if err != nil {
				t.Fatal(err)
			}
			if id == "" {
				t.Fatal("Expected an assigned id")
			}
			if _, _, err := db.Get(id); err != nil {
				t.Errorf("Assigned id not retrievable: %v", err)
			}
		})
	}
}

func TestDatabaseAll(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			db := store.Database("users")
			for _, id := range []string{"carol", "alice", "bob"} {
				if _, _, err := db.Insert(id, Document{"id": id}); err != nil {
					t.Fatal(err)
				}
			}
			entries, err := db.All()
			if err != nil {
				t.Fatal(err)
			}
			want := []string{"alice", "bob", "carol"}
			if len(entries) != len(want) {
				t.Fatalf("Expected %d entries, got %d", len(want), len(entries))
			}
			for i, w := range want {
				if entries[i].ID != w {
					t.Errorf("Entry %d: expected id %s, got %s", i, w, entries[i].ID)
				}
				if entries[i].Rev == "" {
					t.Errorf("Entry %d: missing revision", i)
				}
			}
		})
	}
}

func TestDatabasesAreIsolated(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			users := store.Database("users")
			tokens := store.Database("tokens")
			if _, _, err := users.Insert("bob", Document{"id": "bob"}); err != nil {
				t.Fatal(err)
			}
			if _, _, err := tokens.Get("bob"); !models.HasCode(err, models.CodeNotFound) {
				t.Errorf("Expected NOT_FOUND across databases, got %v", err)
			}
		})
	}
}

func TestStoredDocumentsDoNotAlias(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			db := store.Database("users")
			doc := Document{"id": "bob", "groups": []any{"admin"}}
			if _, _, err := db.Insert("bob", doc); err != nil {
				t.Fatal(err)
			}
			doc["id"] = "mallory"
			doc["groups"].([]any)[0] = "guest"

			got, _, err := db.Get("bob")
			if err != nil {
				t.Fatal(err)
			}
			if got["id"] != "bob" {
				t.Errorf("Stored doc mutated through caller map: id=%v", got["id"])
			}
			if groups, ok := got["groups"].([]any); ok && groups[0] != "admin" {
				t.Errorf("Stored doc mutated through caller slice: groups=%v", groups)
			}
		})
	}
}
