package record

import (
	"fmt"

	"github.com/seedpm/seed/internal/docstore"
	"github.com/seedpm/seed/internal/models"
)

// State is a record's lifecycle state.
type State string

const (
	// StateNew is a freshly constructed record with no stored counterpart.
	StateNew State = "new"
	// StateReady is a record hydrated from or committed to storage.
	StateReady State = "ready"
	// StateCommitting is reserved for an in-flight commit guard; no
	// transition enters it today.
	StateCommitting State = "committing"
	// StateDestroyed is terminal; no transition leaves it.
	StateDestroyed State = "destroyed"
)

// Record is a single persisted JSON entity. A Record instance is owned by one
// logical request at a time and is not safe for concurrent use; conflicting
// commits across instances are arbitrated by the store's revision check.
type Record struct {
	kind  Kind
	db    docstore.Database
	hooks Hooks

	id    string
	rev   docstore.Revision
	attrs docstore.Document
	norm  map[string]any
	state State
	dirty bool
}

// New creates a record in StateNew, to be populated via Setup and persisted
// with Commit.
func New(kind Kind, db docstore.Database, id string) *Record {
	return &Record{
		kind:  kind,
		db:    db,
		hooks: NopHooks{},
		id:    id,
		attrs: docstore.Document{},
		norm:  make(map[string]any),
		state: StateNew,
	}
}

// Hydrate creates a record in StateReady from a stored document.
func Hydrate(kind Kind, db docstore.Database, id string, doc docstore.Document, rev docstore.Revision) *Record {
	if doc == nil {
		doc = docstore.Document{}
	}
	doc["id"] = id
	return &Record{
		kind:  kind,
		db:    db,
		hooks: NopHooks{},
		id:    id,
		rev:   rev,
		attrs: doc,
		norm:  make(map[string]any),
		state: StateReady,
	}
}

// SetHooks replaces the commit extension points.
func (r *Record) SetHooks(h Hooks) {
	if h == nil {
		h = NopHooks{}
	}
	r.hooks = h
}

// ID returns the record's identifier.
func (r *Record) ID() string {
	return r.id
}

// Revision returns the last revision issued by the store, opaque to callers.
func (r *Record) Revision() docstore.Revision {
	return r.rev
}

// State returns the current lifecycle state.
func (r *Record) State() State {
	return r.state
}

// Dirty reports whether an attribute was set since the last successful commit
// or refresh.
func (r *Record) Dirty() bool {
	return r.dirty
}

// Kind returns the record's kind.
func (r *Record) Kind() Kind {
	return r.kind
}

// URL returns the record's canonical path.
func (r *Record) URL() string {
	return "/seed/" + r.kind.DatabaseName() + "/" + r.id
}

// Get returns the normalized value for key. The id is special-cased and
// returned directly; all other keys are normalized lazily, and the normalized
// value is cached until the key is written or the record is refreshed.
func (r *Record) Get(key string) (any, error) {
	if key == "id" {
		return r.id, nil
	}
	if v, ok := r.norm[key]; ok {
		return v, nil
	}
	v, err := r.kind.Normalize(key, r.attrs[key], nil, false)
	if err != nil {
		return nil, err
	}
	if r.state != StateDestroyed {
		r.norm[key] = v
	}
	return v, nil
}

// Set normalizes value and stores it in both the raw attribute map and the
// normalized cache, marking the record dirty. Setting "id" only updates the
// in-memory identifier. Destroyed records reject every Set.
func (r *Record) Set(key string, value any) error {
	if r.state == StateDestroyed {
		return models.InvalidState("set", string(r.state))
	}
	v, err := r.kind.Normalize(key, value, nil, true)
	if err != nil {
		return err
	}
	if key == "id" {
		r.id = fmt.Sprint(v)
		return nil
	}
	r.attrs[key] = v
	r.norm[key] = v
	r.dirty = true
	return nil
}

// Setup seeds a new record's attributes with the supplied values plus any
// required keys missing from the input, so every record of a kind carries its
// required keys. Only valid in StateNew.
func (r *Record) Setup(attrs docstore.Document) error {
	if r.state != StateNew {
		return models.InvalidState("setup", string(r.state))
	}
	for key, value := range attrs {
		if key == "id" {
			continue
		}
		if err := r.Set(key, value); err != nil {
			return err
		}
	}
	for _, key := range r.kind.RequiredKeys() {
		if _, ok := r.attrs[key]; ok {
			continue
		}
		if err := r.Set(key, nil); err != nil {
			return err
		}
	}
	r.attrs["id"] = r.id
	return nil
}

// Modify sets every supplied attribute.
func (r *Record) Modify(attrs docstore.Document) error {
	for key, value := range attrs {
		if err := r.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

// Commit persists the record: create when new, update when ready.
func (r *Record) Commit() error {
	switch r.state {
	case StateNew:
		return r.create()
	case StateReady:
		return r.update()
	default:
		return models.InvalidState("commit", string(r.state))
	}
}

func (r *Record) create() error {
	if err := r.hooks.WillCreate(r); err != nil {
		return err
	}
	r.attrs["id"] = r.id
	id, rev, err := r.db.Insert(r.id, r.attrs)
	if err != nil {
		return err
	}
	r.id = id
	r.attrs["id"] = id
	r.rev = rev
	r.state = StateReady
	r.dirty = false
	return r.hooks.DidCreate(r)
}

func (r *Record) update() error {
	if err := r.hooks.WillUpdate(r); err != nil {
		return err
	}
	rev, err := r.db.Save(r.id, r.rev, r.attrs)
	if err != nil {
		// Leave the record untouched: still ready, still dirty, so the
		// caller may Refresh and retry.
		return err
	}
	r.rev = rev
	r.dirty = false
	return r.hooks.DidUpdate(r)
}

// Destroy removes the record from storage and transitions it to the terminal
// destroyed state. It is idempotent: destroying a record that is already
// destroyed, or discarding one never persisted, reports no effect. The
// returned bool is true when a stored document was actually removed.
func (r *Record) Destroy() (bool, error) {
	switch r.state {
	case StateDestroyed:
		return false, nil
	case StateNew:
		r.clear()
		return false, nil
	default:
		if err := r.db.Remove(r.id, r.rev); err != nil {
			return false, err
		}
		r.clear()
		return true, nil
	}
}

func (r *Record) clear() {
	r.attrs = docstore.Document{}
	r.norm = make(map[string]any)
	r.state = StateDestroyed
	r.dirty = false
}

// Refresh re-hydrates the record from storage, replacing attributes, adopting
// the stored revision, resetting the normalized cache and clearing the dirty
// flag.
func (r *Record) Refresh() error {
	doc, rev, err := r.db.Get(r.id)
	if err != nil {
		return err
	}
	doc["id"] = r.id
	r.attrs = doc
	r.norm = make(map[string]any)
	r.rev = rev
	r.dirty = false
	r.state = StateReady
	return nil
}

// Attributes returns a copy of the raw attribute map.
func (r *Record) Attributes() docstore.Document {
	out := make(docstore.Document, len(r.attrs))
	for k, v := range r.attrs {
		out[k] = v
	}
	return out
}

// IndexJSON projects the record for a list response: every attribute
// normalized, plus the record's canonical URL under "link-self".
func (r *Record) IndexJSON(acting Actor) (map[string]any, error) {
	out := make(map[string]any, len(r.attrs)+2)
	for key := range r.attrs {
		v, err := r.Get(key)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	out["id"] = r.id
	out["link-self"] = r.URL()
	return out, nil
}

// ShowJSON projects the record for a detail response.
func (r *Record) ShowJSON(acting Actor) (map[string]any, error) {
	return r.IndexJSON(acting)
}
