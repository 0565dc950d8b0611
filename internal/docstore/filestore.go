package docstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seedpm/seed/internal/models"
)

// FileStore is a Store backed by one JSON file per document, laid out as
// <root>/<database>/<id>.json. The revision of a document is derived from the
// file's modification time; callers treat it as an opaque token.
//
// When a History is attached, every mutation is also committed to the git
// repository rooted at the store directory.
type FileStore struct {
	root string
	hist *History

	mu  sync.Mutex
	dbs map[string]*fileDB
}

// NewFileStore creates a file store rooted at root. hist may be nil to
// disable git history.
func NewFileStore(root string, hist *History) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store root %s: %w", root, err)
	}
	return &FileStore{root: root, hist: hist, dbs: make(map[string]*fileDB)}, nil
}

// RootDir returns the store's root directory.
func (s *FileStore) RootDir() string {
	return s.root
}

// Database returns the named database, creating its directory on first use.
func (s *FileStore) Database(name string) Database {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, ok := s.dbs[name]
	if !ok {
		db = &fileDB{store: s, name: name, dir: filepath.Join(s.root, name)}
		s.dbs[name] = db
	}
	return db
}

type fileDB struct {
	store *FileStore
	name  string
	dir   string

	// Serializes the check-then-write sequences so the revision check is
	// authoritative within this process.
	mu sync.Mutex
}

func (db *fileDB) pathFor(id string) string {
	return filepath.Join(db.dir, id+".json")
}

func (db *fileDB) relPathFor(id string) string {
	return db.name + "/" + id + ".json"
}

// mtimeRev encodes a file's modification time as an opaque revision token.
func mtimeRev(fi os.FileInfo) Revision {
	return Revision(strconv.FormatInt(fi.ModTime().UnixNano(), 10))
}

func (db *fileDB) currentRev(id string) (Revision, error) {
	fi, err := os.Stat(db.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return "", models.NotFound("document " + db.name + "/" + id)
		}
		return "", models.Storage("failed to stat document", err)
	}
	return mtimeRev(fi), nil
}

func (db *fileDB) readDoc(id string) (Document, error) {
	data, err := os.ReadFile(db.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, models.NotFound("document " + db.name + "/" + id)
		}
		return nil, models.Storage("failed to read document", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, models.Storage("failed to decode document "+db.name+"/"+id, err)
	}
	return doc, nil
}

// writeDoc writes atomically via a temp file and rename.
func (db *fileDB) writeDoc(id string, doc Document) (Revision, error) {
	if err := os.MkdirAll(db.dir, 0o755); err != nil {
		return "", models.Storage("failed to create database directory", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", models.Storage("failed to encode document", err)
	}
	tmp, err := os.CreateTemp(db.dir, "."+id+".*.tmp")
	if err != nil {
		return "", models.Storage("failed to create temp file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", models.Storage("failed to write document", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", models.Storage("failed to close temp file", err)
	}
	path := db.pathFor(id)
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return "", models.Storage("failed to replace document", err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return "", models.Storage("failed to stat document", err)
	}
	return mtimeRev(fi), nil
}

func (db *fileDB) commitHistory(msg string, paths ...string) error {
	if db.store.hist == nil {
		return nil
	}
	return db.store.hist.Commit(msg, paths...)
}

func (db *fileDB) Get(id string) (Document, Revision, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	doc, err := db.readDoc(id)
	if err != nil {
		return nil, "", err
	}
	rev, err := db.currentRev(id)
	if err != nil {
		return nil, "", err
	}
	return doc, rev, nil
}

func (db *fileDB) Insert(id string, doc Document) (string, Revision, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if id == "" {
		id = uuid.NewString()
	}
	if _, err := os.Stat(db.pathFor(id)); err == nil {
		return "", "", models.Conflict("document " + db.name + "/" + id + " already exists")
	} else if !os.IsNotExist(err) {
		return "", "", models.Storage("failed to stat document", err)
	}
	rev, err := db.writeDoc(id, doc)
	if err != nil {
		return "", "", err
	}
	if err := db.commitHistory("create "+db.name+"/"+id, db.relPathFor(id)); err != nil {
		return "", "", err
	}
	return id, rev, nil
}

func (db *fileDB) Save(id string, rev Revision, doc Document) (Revision, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	cur, err := db.currentRev(id)
	if err != nil {
		return "", err
	}
	if cur != rev {
		return "", models.Conflict("revision mismatch for " + db.name + "/" + id)
	}
	next, err := db.writeDoc(id, doc)
	if err != nil {
		return "", err
	}
	if next == rev {
		// mtime granularity collision; nudge the clock forward so the new
		// revision is distinguishable.
		t := time.Now().Add(time.Millisecond)
		path := db.pathFor(id)
		if err := os.Chtimes(path, t, t); err != nil {
			return "", models.Storage("failed to restamp document", err)
		}
		fi, err := os.Stat(path)
		if err != nil {
			return "", models.Storage("failed to stat document", err)
		}
		next = mtimeRev(fi)
	}
	if err := db.commitHistory("update "+db.name+"/"+id, db.relPathFor(id)); err != nil {
		return "", err
	}
	return next, nil
}

func (db *fileDB) Remove(id string, rev Revision) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	cur, err := db.currentRev(id)
	if err != nil {
		return err
	}
	if cur != rev {
		return models.Conflict("revision mismatch for " + db.name + "/" + id)
	}
	if err := os.Remove(db.pathFor(id)); err != nil {
		return models.Storage("failed to remove document", err)
	}
	return db.commitHistory("remove "+db.name+"/"+id, db.relPathFor(id))
}

func (db *fileDB) All() ([]Entry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	dirents, err := os.ReadDir(db.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, models.Storage("failed to list database directory", err)
	}
	var entries []Entry
	// os.ReadDir returns entries sorted by name, so output is ordered by id.
	for _, de := range dirents {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		doc, err := db.readDoc(id)
		if err != nil {
			// Removed between listing and read.
			if models.HasCode(err, models.CodeNotFound) {
				continue
			}
			return nil, err
		}
		fi, err := de.Info()
		if err != nil {
			return nil, models.Storage("failed to stat document", err)
		}
		entries = append(entries, Entry{ID: id, Doc: doc, Rev: mtimeRev(fi)})
	}
	return entries, nil
}
