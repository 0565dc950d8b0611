// Package docstore provides key-addressed JSON document storage with
// optimistic-concurrency revision tokens.
//
// A Store is a set of named databases, one per record kind. Every mutation
// carries the caller's last-seen revision; the store is the sole arbiter of
// conflicts and reports a mismatch as a CONFLICT error. Revisions are opaque
// strings: callers may compare them for equality only, never for ordering.
package docstore

import "time"

// Document is a persisted JSON document body.
type Document = map[string]any

// Revision identifies one version of a persisted document.
type Revision string

// Entry is one document as enumerated by All.
type Entry struct {
	ID  string
	Doc Document
	Rev Revision
}

// Database is one kind-scoped namespace of documents.
type Database interface {
	// Get returns the document at id. Missing id yields a NOT_FOUND error.
	Get(id string) (Document, Revision, error)
	// Insert stores a new document. An empty id asks the store to assign one.
	// An existing id yields a CONFLICT error.
	Insert(id string, doc Document) (string, Revision, error)
	// Save overwrites the document at id. A stale rev yields a CONFLICT
	// error; a missing id yields NOT_FOUND.
	Save(id string, rev Revision, doc Document) (Revision, error)
	// Remove deletes the document at id, subject to the same revision check
	// as Save.
	Remove(id string, rev Revision) error
	// All returns every document in the database, ordered by id.
	All() ([]Entry, error)
}

// Store groups databases by name.
type Store interface {
	Database(name string) Database
}

// cloneDoc deep-copies a document so stored state never aliases caller maps.
func cloneDoc(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		return cloneDoc(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case time.Time:
		return t
	default:
		return v
	}
}
