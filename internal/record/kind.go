// Package record implements the document-record core: entities with a
// lifecycle state machine, lazy attribute normalization, dirty tracking and
// optimistic-concurrency commits against a docstore database.
package record

// Actor identifies the user on whose behalf an operation runs. Kinds may
// consult it during normalization or when projecting a record to JSON.
type Actor interface {
	ActorID() string
	ActorGroups() []string
}

// Kind describes one record kind: its database, its required attribute keys
// and its normalization rules. There is one concrete Kind per record kind;
// specializations are expressed as distinct types, not runtime extension.
type Kind interface {
	// DatabaseName is the kind-scoped namespace in the store.
	DatabaseName() string
	// RequiredKeys lists attribute keys every record of this kind carries.
	RequiredKeys() []string
	// Normalize transforms a raw attribute value on read or write: default
	// substitution, type coercion, validation. It must be deterministic and
	// side-effect free; invalid values are rejected by returning an error.
	Normalize(key string, value any, acting Actor, writing bool) (any, error)
}

// BasicKind is a generic record kind with no normalization rules. It backs
// arbitrary record kinds that need no specialization.
type BasicKind struct {
	name     string
	required []string
}

// NewKind creates a generic kind stored in the named database.
func NewKind(name string, requiredKeys ...string) *BasicKind {
	return &BasicKind{name: name, required: requiredKeys}
}

// DatabaseName implements Kind.
func (k *BasicKind) DatabaseName() string {
	return k.name
}

// RequiredKeys implements Kind.
func (k *BasicKind) RequiredKeys() []string {
	return k.required
}

// Normalize implements Kind; values pass through unchanged.
func (k *BasicKind) Normalize(key string, value any, acting Actor, writing bool) (any, error) {
	return value, nil
}
