package docstore

import (
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/seedpm/seed/internal/models"
)

// MemStore is an in-memory Store. It stands in for a document database with
// opaque revisions: each database keeps a monotonically increasing sequence
// and stamps every write with the next value.
type MemStore struct {
	mu  sync.Mutex
	dbs map[string]*memDB
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{dbs: make(map[string]*memDB)}
}

// Database returns the named database, creating it on first use.
func (s *MemStore) Database(name string) Database {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, ok := s.dbs[name]
	if !ok {
		db = &memDB{name: name, docs: make(map[string]memEntry)}
		s.dbs[name] = db
	}
	return db
}

type memEntry struct {
	doc Document
	rev Revision
}

type memDB struct {
	name string
	mu   sync.RWMutex
	docs map[string]memEntry
	seq  uint64
}

func (db *memDB) nextRev() Revision {
	db.seq++
	return Revision(strconv.FormatUint(db.seq, 10))
}

func (db *memDB) Get(id string) (Document, Revision, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	e, ok := db.docs[id]
	if !ok {
		return nil, "", models.NotFound("document " + db.name + "/" + id)
	}
	return cloneDoc(e.doc), e.rev, nil
}

func (db *memDB) Insert(id string, doc Document) (string, Revision, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if id == "" {
		id = uuid.NewString()
	}
	if _, ok := db.docs[id]; ok {
		return "", "", models.Conflict("document " + db.name + "/" + id + " already exists")
	}
	rev := db.nextRev()
	db.docs[id] = memEntry{doc: cloneDoc(doc), rev: rev}
	return id, rev, nil
}

func (db *memDB) Save(id string, rev Revision, doc Document) (Revision, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	e, ok := db.docs[id]
	if !ok {
		return "", models.NotFound("document " + db.name + "/" + id)
	}
	if e.rev != rev {
		return "", models.Conflict("revision mismatch for " + db.name + "/" + id)
	}
	next := db.nextRev()
	db.docs[id] = memEntry{doc: cloneDoc(doc), rev: next}
	return next, nil
}

func (db *memDB) Remove(id string, rev Revision) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	e, ok := db.docs[id]
	if !ok {
		return models.NotFound("document " + db.name + "/" + id)
	}
	if e.rev != rev {
		return models.Conflict("revision mismatch for " + db.name + "/" + id)
	}
	delete(db.docs, id)
	return nil
}

func (db *memDB) All() ([]Entry, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	ids := make([]string, 0, len(db.docs))
	for id := range db.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		e := db.docs[id]
		entries = append(entries, Entry{ID: id, Doc: cloneDoc(e.doc), Rev: e.rev})
	}
	return entries, nil
}
