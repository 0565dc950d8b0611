package record

import (
	"github.com/seedpm/seed/internal/docstore"
	"github.com/seedpm/seed/internal/models"
)

// Collection is the finder and factory for one record kind.
type Collection struct {
	kind  Kind
	db    docstore.Database
	hooks Hooks
}

// NewCollection creates a collection for kind backed by db.
func NewCollection(kind Kind, db docstore.Database) *Collection {
	return &Collection{kind: kind, db: db, hooks: NopHooks{}}
}

// SetHooks installs commit extension points on every record the collection
// creates or hydrates.
func (c *Collection) SetHooks(h Hooks) {
	if h == nil {
		h = NopHooks{}
	}
	c.hooks = h
}

// Kind returns the collection's kind.
func (c *Collection) Kind() Kind {
	return c.kind
}

// Database returns the backing database.
func (c *Collection) Database() docstore.Database {
	return c.db
}

// Find hydrates the record stored at id, or reports NOT_FOUND.
func (c *Collection) Find(id string) (*Record, error) {
	doc, rev, err := c.db.Get(id)
	if err != nil {
		return nil, err
	}
	r := Hydrate(c.kind, c.db, id, doc, rev)
	r.SetHooks(c.hooks)
	return r, nil
}

// FindAll hydrates every record of the kind.
func (c *Collection) FindAll() ([]*Record, error) {
	entries, err := c.db.All()
	if err != nil {
		return nil, err
	}
	records := make([]*Record, 0, len(entries))
	for _, e := range entries {
		r := Hydrate(c.kind, c.db, e.ID, e.Doc, e.Rev)
		r.SetHooks(c.hooks)
		records = append(records, r)
	}
	return records, nil
}

// New creates a fresh record in StateNew, populated from attrs via Setup. The
// record has no stored counterpart until Commit.
func (c *Collection) New(id string, attrs docstore.Document) (*Record, error) {
	r := New(c.kind, c.db, id)
	r.SetHooks(c.hooks)
	if err := r.Setup(attrs); err != nil {
		return nil, err
	}
	return r, nil
}

// Create is New followed by Commit: the record is persisted before it is
// returned. An existing id yields the store's CONFLICT error.
func (c *Collection) Create(id string, attrs docstore.Document) (*Record, error) {
	r, err := c.New(id, attrs)
	if err != nil {
		return nil, err
	}
	if err := r.Commit(); err != nil {
		return nil, err
	}
	return r, nil
}

// Exists reports whether a document is stored at id.
func (c *Collection) Exists(id string) (bool, error) {
	_, _, err := c.db.Get(id)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
