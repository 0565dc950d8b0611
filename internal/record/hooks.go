package record

// Hooks are the extension points around a commit's storage call. The pre-hook
// runs before the insert/save, the post-hook after it succeeded; the first
// error encountered aborts the commit and propagates.
type Hooks interface {
	WillCreate(r *Record) error
	DidCreate(r *Record) error
	WillUpdate(r *Record) error
	DidUpdate(r *Record) error
}

// NopHooks is the default pass-through Hooks implementation. Embed it to
// override a subset of the hook points.
type NopHooks struct{}

// WillCreate implements Hooks.
func (NopHooks) WillCreate(*Record) error { return nil }

// DidCreate implements Hooks.
func (NopHooks) DidCreate(*Record) error { return nil }

// WillUpdate implements Hooks.
func (NopHooks) WillUpdate(*Record) error { return nil }

// DidUpdate implements Hooks.
func (NopHooks) DidUpdate(*Record) error { return nil }
