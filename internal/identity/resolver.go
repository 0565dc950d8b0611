package identity

import (
	"net/url"
	"strings"
)

// Resolver maps inbound request credentials to an acting user. It never
// fails: lookup errors and bad credentials both degrade to the anonymous
// identity.
type Resolver struct {
	users  *Users
	tokens *Tokens
	digest Digest
}

// NewResolver returns a resolver over the given services. digest is applied
// to plaintext passwords before comparison against stored hashes.
func NewResolver(svc *Services, digest Digest) *Resolver {
	return &Resolver{users: svc.Users, tokens: svc.Tokens, digest: digest}
}

// Resolve produces exactly one acting user from the request query
// parameters, in order of precedence:
//
//  1. username with a password or precomputed digest, checked against the
//     stored hash
//  2. a token id, case-folded to lowercase
//  3. the anonymous identity
//
// A present but failing credential falls through to anonymous rather than
// erroring.
func (r *Resolver) Resolve(query url.Values) *User {
	username := query.Get("username")
	tokenID := query.Get("token")

	var digest string
	if password := query.Get("password"); password != "" {
		digest = r.digest(password)
	} else {
		digest = query.Get("digest")
	}

	if username != "" {
		if user := r.byPassword(username, digest); user != nil {
			return user
		}
		return Anonymous()
	}
	if tokenID != "" {
		if user := r.byToken(strings.ToLower(tokenID)); user != nil {
			return user
		}
		return Anonymous()
	}
	return Anonymous()
}

func (r *Resolver) byPassword(username, digest string) *User {
	user, err := r.users.Find(username)
	if err != nil || user == nil {
		return nil
	}
	stored, err := user.Get("password")
	if err != nil {
		return nil
	}
	if digest == "" || stored != digest {
		return nil
	}
	return user
}

func (r *Resolver) byToken(tokenID string) *User {
	token, err := r.tokens.Find(tokenID)
	if err != nil || token == nil {
		return nil
	}
	user, err := token.User()
	if err != nil || user == nil {
		return nil
	}
	return user
}
