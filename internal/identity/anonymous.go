package identity

import (
	"github.com/seedpm/seed/internal/docstore"
	"github.com/seedpm/seed/internal/record"
)

// anonymousDoc is the fixed document backing the anonymous identity. It is
// never written to storage and never mutated; User.Get normalizes straight
// out of it without a cache.
var anonymousDoc = docstore.Document{
	"id":     AnonymousID,
	"name":   AnonymousID,
	"groups": []string{GroupGuest},
}

var anonymous = &User{
	Record: record.Hydrate(userKind{}, nil, AnonymousID, anonymousDoc, ""),
	frozen: true,
}

// Anonymous returns the process-wide read-only user representing an
// unauthenticated caller. Every mutation on it fails with READ_ONLY.
func Anonymous() *User {
	return anonymous
}
