// Package identity provides the user and token record kinds, credential
// resolution, and the permission predicates evaluated by the HTTP layer.
//
// This package layers on internal/record for:
//   - User accounts (password digests, group membership)
//   - Auth tokens (bearer identifiers referencing a username)
//   - The read-only anonymous identity
//   - ACL evaluation for package-level permissions
package identity

import (
	"fmt"

	"github.com/seedpm/seed/internal/docstore"
	"github.com/seedpm/seed/internal/models"
	"github.com/seedpm/seed/internal/record"
)

// GroupGuest is assigned to users without explicit groups and to the
// anonymous identity. GroupAdmin unlocks every permission predicate.
const (
	GroupGuest = "guest"
	GroupAdmin = "admin"
)

// AnonymousID is the id of the well-known unauthenticated user.
const AnonymousID = "anonymous"

type userKind struct{}

func (userKind) DatabaseName() string {
	return "users"
}

func (userKind) RequiredKeys() []string {
	return []string{"name", "email", "password", "groups"}
}

func (userKind) Normalize(key string, value any, acting record.Actor, writing bool) (any, error) {
	switch key {
	case "groups":
		switch v := value.(type) {
		case nil:
			return []string{GroupGuest}, nil
		case string:
			if v == "" {
				return []string{GroupGuest}, nil
			}
			return []string{v}, nil
		case bool:
			if !v {
				return []string{GroupGuest}, nil
			}
			return []string{}, nil
		case int:
			if v == 0 {
				return []string{GroupGuest}, nil
			}
			return []string{}, nil
		case float64:
			if v == 0 {
				return []string{GroupGuest}, nil
			}
			return []string{}, nil
		case []string:
			return v, nil
		case []any:
			out := make([]string, 0, len(v))
			for _, e := range v {
				out = append(out, fmt.Sprint(e))
			}
			return out, nil
		default:
			return []string{}, nil
		}
	}
	return value, nil
}

// User wraps a stored user record with permission predicates and filtered
// JSON projections. The zero value is not usable; obtain instances from a
// Users service or Anonymous.
type User struct {
	*record.Record

	// tokens resolves the user's owned tokens. Nil for the anonymous
	// singleton.
	tokens *Tokens

	// frozen marks the anonymous identity: reads come from a fixed
	// in-memory document and every mutation fails.
	frozen bool
}

// Get returns the normalized value for key. The anonymous identity reads
// from its fixed document without touching the shared record's cache.
func (u *User) Get(key string) (any, error) {
	if u.frozen {
		if key == "id" {
			return u.ID(), nil
		}
		return userKind{}.Normalize(key, anonymousDoc[key], nil, false)
	}
	return u.Record.Get(key)
}

// Set fails with READ_ONLY for the anonymous identity.
func (u *User) Set(key string, value any) error {
	if u.frozen {
		return models.ReadOnly("the anonymous user cannot be modified")
	}
	return u.Record.Set(key, value)
}

// Modify fails with READ_ONLY for the anonymous identity.
func (u *User) Modify(attrs docstore.Document) error {
	if u.frozen {
		return models.ReadOnly("the anonymous user cannot be modified")
	}
	return u.Record.Modify(attrs)
}

// Commit fails with READ_ONLY for the anonymous identity.
func (u *User) Commit() error {
	if u.frozen {
		return models.ReadOnly("the anonymous user cannot be modified")
	}
	return u.Record.Commit()
}

// Destroy fails with READ_ONLY for the anonymous identity.
func (u *User) Destroy() (bool, error) {
	if u.frozen {
		return false, models.ReadOnly("the anonymous user cannot be destroyed")
	}
	return u.Record.Destroy()
}

// Refresh fails with READ_ONLY for the anonymous identity, which has no
// backing document.
func (u *User) Refresh() error {
	if u.frozen {
		return models.ReadOnly("the anonymous user has no stored document")
	}
	return u.Record.Refresh()
}

// Groups returns the user's normalized group set.
func (u *User) Groups() []string {
	v, err := u.Get("groups")
	if err != nil {
		return nil
	}
	groups, _ := v.([]string)
	return groups
}

// ActorID implements record.Actor.
func (u *User) ActorID() string {
	return u.ID()
}

// ActorGroups implements record.Actor.
func (u *User) ActorGroups() []string {
	return u.Groups()
}

// Tokens returns the tokens owned by this user.
func (u *User) Tokens() ([]*Token, error) {
	if u.tokens == nil {
		return nil, nil
	}
	return u.tokens.ForUser(u.ID())
}

// TokenIDs returns the ids of the tokens owned by this user.
func (u *User) TokenIDs() ([]string, error) {
	tokens, err := u.Tokens()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(tokens))
	for i, t := range tokens {
		ids[i] = t.ID()
	}
	return ids, nil
}

// Permission predicates. All are pure functions over the user's id and
// groups plus the target; the HTTP layer evaluates them before calling into
// any mutating record operation.

// InGroup reports whether name is one of the user's groups.
func (u *User) InGroup(name string) bool {
	for _, g := range u.Groups() {
		if g == name {
			return true
		}
	}
	return false
}

// HasUsername reports whether the user's id equals id.
func (u *User) HasUsername(id string) bool {
	return u.ID() == id
}

// IsEqual reports whether both users share an id.
func (u *User) IsEqual(other *User) bool {
	return other != nil && u.HasUsername(other.ID())
}

// IsAnonymous reports whether this is the unauthenticated identity.
func (u *User) IsAnonymous() bool {
	return u.HasUsername(AnonymousID)
}

func (u *User) CanSeeAllTokens() bool {
	return u.InGroup(GroupAdmin)
}

func (u *User) CanSeeTokensForUser(target *User) bool {
	return !u.HasUsername(AnonymousID) &&
		(u.IsEqual(target) || u.InGroup(GroupAdmin))
}

func (u *User) CanCreateTokenForUser(target *User) bool {
	return u.IsEqual(target) || u.InGroup(GroupAdmin)
}

func (u *User) CanGetUserIndex() bool {
	return !u.HasUsername(AnonymousID) && !u.InGroup(GroupGuest)
}

// CanShowUser preserves the misspelled "anonyomous" literal from the legacy
// permission table. It never matches the real anonymous id, so in practice
// this check hinges on the guest group alone.
// TODO(identity): decide whether anonymous callers should be able to show
// users, then either fix the literal or drop the first clause.
func (u *User) CanShowUser(target *User) bool {
	return !u.HasUsername("anonyomous") && !u.InGroup(GroupGuest)
}

func (u *User) CanEditUser(target *User) bool {
	return u.InGroup(GroupAdmin) || u.IsEqual(target)
}

// CanCreateUser is always true. Self-registration is how you sign up.
func (u *User) CanCreateUser(target *User) bool {
	return true
}

func (u *User) CanDestroyUser(target *User) bool {
	return u.InGroup(GroupAdmin) || u.IsEqual(target)
}

func (u *User) CanSeeAcls() bool {
	return u.InGroup(GroupAdmin)
}

func (u *User) CanShowAcl(acl ACL) bool {
	if u.InGroup(GroupAdmin) {
		return true
	}
	return len(acl.OperationsForUser(u.ID(), u.Groups())) > 0
}

func (u *User) CanEditAcl(acl ACL) bool {
	if u.InGroup(GroupAdmin) {
		return true
	}
	return acl.Grants(u.ID(), u.Groups(), OpOwners)
}

func (u *User) CanShowPackageInfo(acl ACL) bool {
	if u.InGroup(GroupAdmin) {
		return true
	}
	return acl.Grants(u.ID(), u.Groups(), OpOwners, OpReaders)
}

func (u *User) CanEditPackageInfo(acl ACL) bool {
	if u.InGroup(GroupAdmin) {
		return true
	}
	return acl.Grants(u.ID(), u.Groups(), OpOwners, OpWriters)
}

// CanUploadPackage permits any authenticated user when the package has no
// ACL yet.
func (u *User) CanUploadPackage(acl ACL) bool {
	if acl == nil {
		return !u.HasUsername(AnonymousID)
	}
	if u.InGroup(GroupAdmin) {
		return true
	}
	return acl.Grants(u.ID(), u.Groups(), OpWriters, OpOwners)
}

// IndexJSON returns the filtered listing projection: id, name, email and
// groups plus a link-self URL. Token ids are included only when acting may
// see them.
func (u *User) IndexJSON(acting *User) (map[string]any, error) {
	ret := map[string]any{}
	for _, k := range []string{"id", "name", "email", "groups"} {
		v, err := u.Get(k)
		if err != nil {
			return nil, err
		}
		ret[k] = v
	}
	ret["link-self"] = u.URL()

	if acting != nil && acting.CanSeeTokensForUser(u) {
		ids, err := u.TokenIDs()
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			ret["tokens"] = ids
		}
	}
	return ret, nil
}

// ShowJSON is identical to IndexJSON for users.
func (u *User) ShowJSON(acting *User) (map[string]any, error) {
	return u.IndexJSON(acting)
}

// Users finds and creates user records.
type Users struct {
	col    *record.Collection
	tokens *Tokens
	digest Digest
}

// userHooks mints a companion token while a user is being created, so every
// account has a bearer credential from its first commit.
type userHooks struct {
	record.NopHooks
	tokens *Tokens
}

func (h userHooks) WillCreate(r *record.Record) error {
	token, err := h.tokens.Create("", docstore.Document{
		"username":   r.ID(),
		"expiration": 0,
	})
	if err != nil {
		return err
	}
	return r.Set("tokens", []string{token.ID()})
}

// Find returns the user stored at id. The anonymous id resolves to the
// process-wide singleton without a storage round trip.
func (s *Users) Find(id string) (*User, error) {
	if id == AnonymousID {
		return Anonymous(), nil
	}
	r, err := s.col.Find(id)
	if err != nil {
		return nil, err
	}
	return s.wrap(r), nil
}

// FindAll returns every stored user.
func (s *Users) FindAll() ([]*User, error) {
	records, err := s.col.FindAll()
	if err != nil {
		return nil, err
	}
	users := make([]*User, len(records))
	for i, r := range records {
		users[i] = s.wrap(r)
	}
	return users, nil
}

// Exists reports whether a user document is stored at id.
func (s *Users) Exists(id string) (bool, error) {
	if id == AnonymousID {
		return true, nil
	}
	return s.col.Exists(id)
}

// Create stores a new user. A plaintext "password" attribute is digested
// before it reaches storage; callers may instead supply a precomputed
// "digest" attribute, which is stored as the password hash verbatim.
func (s *Users) Create(id string, attrs docstore.Document) (*User, error) {
	if id == AnonymousID {
		return nil, models.ReadOnly("the anonymous user cannot be created")
	}
	// The pre-create hook persists a companion token, so the duplicate id
	// check has to run before any hook fires.
	if taken, err := s.col.Exists(id); err != nil {
		return nil, err
	} else if taken {
		return nil, models.Conflict(fmt.Sprintf("user %s already exists", id))
	}
	r, err := s.col.Create(id, s.prepareSecrets(attrs))
	if err != nil {
		return nil, err
	}
	return s.wrap(r), nil
}

// Update applies attrs to the stored user and commits. Password material in
// attrs is digested the same way as at creation.
func (s *Users) Update(id string, attrs docstore.Document) (*User, error) {
	u, err := s.Find(id)
	if err != nil {
		return nil, err
	}
	if err := u.Modify(s.prepareSecrets(attrs)); err != nil {
		return nil, err
	}
	if err := u.Commit(); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Users) prepareSecrets(attrs docstore.Document) docstore.Document {
	prepared := docstore.Document{}
	for k, v := range attrs {
		prepared[k] = v
	}
	if d, ok := prepared["digest"]; ok {
		delete(prepared, "digest")
		if d != nil {
			prepared["password"] = fmt.Sprint(d)
		}
	} else if p, ok := prepared["password"].(string); ok && p != "" {
		prepared["password"] = s.digest(p)
	}
	return prepared
}

func (s *Users) wrap(r *record.Record) *User {
	return &User{Record: r, tokens: s.tokens}
}
