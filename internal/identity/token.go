package identity

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/seedpm/seed/internal/docstore"
	"github.com/seedpm/seed/internal/record"
)

type tokenKind struct{}

func (tokenKind) DatabaseName() string {
	return "tokens"
}

func (tokenKind) RequiredKeys() []string {
	return []string{"username", "expiration"}
}

func (tokenKind) Normalize(key string, value any, acting record.Actor, writing bool) (any, error) {
	switch key {
	case "expiration":
		// Numeric epoch, 0 means never expires. Anything that does not
		// parse coerces to 0.
		switch v := value.(type) {
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		case float64:
			return int64(v), nil
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return int64(0), nil
			}
			return int64(f), nil
		default:
			return int64(0), nil
		}
	case "username":
		if value == nil || value == "" || value == false {
			return AnonymousID, nil
		}
		return fmt.Sprint(value), nil
	}
	return value, nil
}

// Token wraps a stored auth token record. A token references its owner by
// username; holding a token id is itself the credential.
type Token struct {
	*record.Record

	users *Users
}

// Username returns the normalized owner username.
func (t *Token) Username() string {
	v, err := t.Get("username")
	if err != nil {
		return AnonymousID
	}
	name, _ := v.(string)
	return name
}

// Expiration returns the normalized expiration epoch. 0 means the token
// never expires.
func (t *Token) Expiration() int64 {
	v, err := t.Get("expiration")
	if err != nil {
		return 0
	}
	epoch, _ := v.(int64)
	return epoch
}

// User resolves the owning user record.
func (t *Token) User() (*User, error) {
	return t.users.Find(t.Username())
}

// IndexJSON returns the listing projection: id, username, expiration and a
// link-self URL.
func (t *Token) IndexJSON(acting *User) (map[string]any, error) {
	ret := map[string]any{}
	for _, k := range []string{"id", "username", "expiration"} {
		v, err := t.Get(k)
		if err != nil {
			return nil, err
		}
		ret[k] = v
	}
	ret["link-self"] = t.URL()
	return ret, nil
}

// ShowJSON is identical to IndexJSON for tokens.
func (t *Token) ShowJSON(acting *User) (map[string]any, error) {
	return t.IndexJSON(acting)
}

// Tokens finds and creates token records.
type Tokens struct {
	col   *record.Collection
	users *Users
}

// Find returns the token stored at id.
func (s *Tokens) Find(id string) (*Token, error) {
	r, err := s.col.Find(id)
	if err != nil {
		return nil, err
	}
	return s.wrap(r), nil
}

// FindAll returns every stored token.
func (s *Tokens) FindAll() ([]*Token, error) {
	records, err := s.col.FindAll()
	if err != nil {
		return nil, err
	}
	tokens := make([]*Token, len(records))
	for i, r := range records {
		tokens[i] = s.wrap(r)
	}
	return tokens, nil
}

// ForUser returns the tokens whose normalized username matches username.
func (s *Tokens) ForUser(username string) ([]*Token, error) {
	all, err := s.FindAll()
	if err != nil {
		return nil, err
	}
	var owned []*Token
	for _, t := range all {
		if t.Username() == username {
			owned = append(owned, t)
		}
	}
	return owned, nil
}

// Create stores a new token. An empty id gets a fresh UUID.
func (s *Tokens) Create(id string, attrs docstore.Document) (*Token, error) {
	if id == "" {
		id = uuid.NewString()
	}
	r, err := s.col.Create(id, attrs)
	if err != nil {
		return nil, err
	}
	return s.wrap(r), nil
}

func (s *Tokens) wrap(r *record.Record) *Token {
	return &Token{Record: r, users: s.users}
}

// Services bundles the user and token services, which reference each other
// through token ownership.
type Services struct {
	Users  *Users
	Tokens *Tokens
}

// NewServices wires both services against the given store. New users are
// digested with digest and receive a companion token on creation.
func NewServices(store docstore.Store, digest Digest) *Services {
	users := &Users{
		col:    record.NewCollection(userKind{}, store.Database("users")),
		digest: digest,
	}
	tokens := &Tokens{
		col:   record.NewCollection(tokenKind{}, store.Database("tokens")),
		users: users,
	}
	users.tokens = tokens
	users.col.SetHooks(userHooks{tokens: tokens})
	return &Services{Users: users, Tokens: tokens}
}
