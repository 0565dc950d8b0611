package identity

import (
	"testing"

	"github.com/seedpm/seed/internal/docstore"
	"github.com/seedpm/seed/internal/models"
)

func newServices(t *testing.T) *Services {
	t.Helper()
	return NewServices(docstore.NewMemStore(), MD5Digest)
}

func mustCreateUser(t *testing.T, svc *Services, id string, attrs docstore.Document) *User {
	t.Helper()
	u, err := svc.Users.Create(id, attrs)
	if err != nil {
		t.Fatalf("Creating user %s failed: %v", id, err)
	}
	return u
}

func TestGroupsNormalization(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{"absent", nil, []string{"guest"}},
		{"scalar string", "admin", []string{"admin"}},
		{"empty string", "", []string{"guest"}},
		{"string list", []string{"admin", "staff"}, []string{"admin", "staff"}},
		{"json list", []any{"admin", "staff"}, []string{"admin", "staff"}},
		{"empty list stays empty", []any{}, []string{}},
		{"false", false, []string{"guest"}},
		{"zero", 0, []string{"guest"}},
		{"truthy non-list", 42, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := userKind{}.Normalize("groups", tt.in, nil, false)
			if err != nil {
				t.Fatal(err)
			}
			groups, ok := got.([]string)
			if !ok {
				t.Fatalf("Expected []string, got %T", got)
			}
			if len(groups) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, groups)
			}
			for i := range tt.want {
				if groups[i] != tt.want[i] {
					t.Fatalf("Expected %v, got %v", tt.want, groups)
				}
			}
		})
	}
}

func TestCreateUserDigestsPassword(t *testing.T) {
	svc := newServices(t)
	u := mustCreateUser(t, svc, "bob", docstore.Document{
		"name":     "Bob",
		"email":    "bob@example.com",
		"password": "secret",
	})
	stored, err := u.Get("password")
	if err != nil {
		t.Fatal(err)
	}
	if stored == "secret" {
		t.Fatal("Expected stored password to be digested")
	}
	if stored != MD5Digest("secret") {
		t.Fatalf("Expected MD5 digest, got %v", stored)
	}
}

func TestCreateUserAcceptsPrecomputedDigest(t *testing.T) {
	svc := newServices(t)
	u := mustCreateUser(t, svc, "bob", docstore.Document{
		"email":  "bob@example.com",
		"digest": "precomputed",
	})
	if stored, _ := u.Get("password"); stored != "precomputed" {
		t.Fatalf("Expected digest stored verbatim, got %v", stored)
	}
	if _, err := u.Get("digest"); err != nil {
		t.Fatal(err)
	}
	if _, ok := u.Attributes()["digest"]; ok {
		t.Error("Expected digest attribute to be dropped")
	}
}

func TestCreateUserMintsCompanionToken(t *testing.T) {
	svc := newServices(t)
	u := mustCreateUser(t, svc, "bob", docstore.Document{"email": "bob@example.com"})

	ids, err := u.TokenIDs()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 {
		t.Fatalf("Expected exactly one companion token, got %v", ids)
	}
	token, err := svc.Tokens.Find(ids[0])
	if err != nil {
		t.Fatal(err)
	}
	if token.Username() != "bob" {
		t.Errorf("Expected token owned by bob, got %s", token.Username())
	}
	if token.Expiration() != 0 {
		t.Errorf("Expected non-expiring token, got %d", token.Expiration())
	}

	// The token ids recorded on the user document match the minted token.
	recorded, err := u.Get("tokens")
	if err != nil {
		t.Fatal(err)
	}
	if list, ok := recorded.([]string); !ok || len(list) != 1 || list[0] != token.ID() {
		t.Errorf("Expected recorded token ids [%s], got %v", token.ID(), recorded)
	}
}

func TestCreateUserDuplicateLeavesNoOrphanToken(t *testing.T) {
	svc := newServices(t)
	mustCreateUser(t, svc, "bob", docstore.Document{"email": "bob@example.com"})

	if _, err := svc.Users.Create("bob", docstore.Document{"email": "other@example.com"}); !models.HasCode(err, models.CodeConflict) {
		t.Fatalf("Expected CONFLICT for duplicate signup, got %v", err)
	}

	tokens, err := svc.Tokens.ForUser("bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(tokens) != 1 {
		t.Errorf("Expected 1 token for bob after failed duplicate signup, got %d", len(tokens))
	}
}

func TestPermissionPredicates(t *testing.T) {
	svc := newServices(t)
	admin := mustCreateUser(t, svc, "root", docstore.Document{"groups": "admin"})
	u1 := mustCreateUser(t, svc, "u1", docstore.Document{"groups": []string{"member"}})
	u2 := mustCreateUser(t, svc, "u2", docstore.Document{"groups": []string{"member"}})
	guest := mustCreateUser(t, svc, "g1", nil)

	if !admin.CanSeeAllTokens() {
		t.Error("Expected admin to see all tokens")
	}
	if u1.CanSeeAllTokens() {
		t.Error("Expected non-admin not to see all tokens")
	}

	if !u1.CanSeeTokensForUser(u1) {
		t.Error("Expected u1 to see its own tokens")
	}
	if u1.CanSeeTokensForUser(u2) {
		t.Error("Expected u1 not to see u2's tokens")
	}
	if !admin.CanSeeTokensForUser(u2) {
		t.Error("Expected admin to see u2's tokens")
	}
	if Anonymous().CanSeeTokensForUser(Anonymous()) {
		t.Error("Expected anonymous to see no tokens")
	}

	if !u1.CanCreateTokenForUser(u1) || u1.CanCreateTokenForUser(u2) {
		t.Error("Expected token creation for self only")
	}
	if !admin.CanCreateTokenForUser(u2) {
		t.Error("Expected admin to create tokens for anyone")
	}

	if !u1.CanGetUserIndex() {
		t.Error("Expected member to get the user index")
	}
	if guest.CanGetUserIndex() {
		t.Error("Expected guest not to get the user index")
	}
	if Anonymous().CanGetUserIndex() {
		t.Error("Expected anonymous not to get the user index")
	}

	if !u1.CanShowUser(u2) {
		t.Error("Expected member to show users")
	}
	if guest.CanShowUser(u1) {
		t.Error("Expected guest not to show users")
	}

	if !u1.CanEditUser(u1) || u1.CanEditUser(u2) {
		t.Error("Expected edit for self only")
	}
	if !admin.CanEditUser(u2) {
		t.Error("Expected admin to edit anyone")
	}
	if !u1.CanDestroyUser(u1) || u1.CanDestroyUser(u2) {
		t.Error("Expected destroy for self only")
	}
	if !guest.CanCreateUser(u2) || !Anonymous().CanCreateUser(u2) {
		t.Error("Expected anyone to create users")
	}
}

func TestAclPredicates(t *testing.T) {
	svc := newServices(t)
	admin := mustCreateUser(t, svc, "root", docstore.Document{"groups": "admin"})
	owner := mustCreateUser(t, svc, "owner", docstore.Document{"groups": []string{"member"}})
	writer := mustCreateUser(t, svc, "writer", docstore.Document{"groups": []string{"devs"}})
	reader := mustCreateUser(t, svc, "reader", docstore.Document{"groups": []string{"member"}})
	outsider := mustCreateUser(t, svc, "outsider", docstore.Document{"groups": []string{"member"}})

	acl := ACL{
		OpOwners:  {"owner"},
		OpWriters: {"devs"},
		OpReaders: {"reader"},
	}

	if !admin.CanSeeAcls() || owner.CanSeeAcls() {
		t.Error("Expected only admin to see all ACLs")
	}

	for _, u := range []*User{admin, owner, writer, reader} {
		if !u.CanShowAcl(acl) {
			t.Errorf("Expected %s to show the ACL", u.ID())
		}
	}
	if outsider.CanShowAcl(acl) {
		t.Error("Expected outsider not to show the ACL")
	}

	if !admin.CanEditAcl(acl) || !owner.CanEditAcl(acl) {
		t.Error("Expected admin and owner to edit the ACL")
	}
	if writer.CanEditAcl(acl) || reader.CanEditAcl(acl) {
		t.Error("Expected writer and reader not to edit the ACL")
	}

	if !reader.CanShowPackageInfo(acl) || !owner.CanShowPackageInfo(acl) {
		t.Error("Expected reader and owner to show package info")
	}
	if writer.CanShowPackageInfo(acl) {
		t.Error("Expected writer not to show package info")
	}

	if !writer.CanEditPackageInfo(acl) || !owner.CanEditPackageInfo(acl) {
		t.Error("Expected writer and owner to edit package info")
	}
	if reader.CanEditPackageInfo(acl) {
		t.Error("Expected reader not to edit package info")
	}

	if !writer.CanUploadPackage(acl) || !owner.CanUploadPackage(acl) {
		t.Error("Expected writer and owner to upload")
	}
	if reader.CanUploadPackage(acl) {
		t.Error("Expected reader not to upload")
	}
	if !outsider.CanUploadPackage(nil) {
		t.Error("Expected any authenticated user to upload without an ACL")
	}
	if Anonymous().CanUploadPackage(nil) {
		t.Error("Expected anonymous not to upload without an ACL")
	}
}

func TestAnonymousIsReadOnly(t *testing.T) {
	anon := Anonymous()
	if anon != Anonymous() {
		t.Fatal("Expected a process-wide singleton")
	}
	if anon.ID() != "anonymous" {
		t.Errorf("Expected id anonymous, got %s", anon.ID())
	}
	groups := anon.Groups()
	if len(groups) != 1 || groups[0] != "guest" {
		t.Errorf("Expected groups [guest], got %v", groups)
	}
	if !anon.IsAnonymous() {
		t.Error("Expected IsAnonymous")
	}

	if err := anon.Set("name", "x"); !models.HasCode(err, models.CodeReadOnly) {
		t.Errorf("Expected READ_ONLY from set, got %v", err)
	}
	if err := anon.Modify(docstore.Document{"name": "x"}); !models.HasCode(err, models.CodeReadOnly) {
		t.Errorf("Expected READ_ONLY from modify, got %v", err)
	}
	if err := anon.Commit(); !models.HasCode(err, models.CodeReadOnly) {
		t.Errorf("Expected READ_ONLY from commit, got %v", err)
	}
	if _, err := anon.Destroy(); !models.HasCode(err, models.CodeReadOnly) {
		t.Errorf("Expected READ_ONLY from destroy, got %v", err)
	}
	if err := anon.Refresh(); !models.HasCode(err, models.CodeReadOnly) {
		t.Errorf("Expected READ_ONLY from refresh, got %v", err)
	}

	// The fixed document is still intact after all the rejected writes.
	if name, _ := anon.Get("name"); name != "anonymous" {
		t.Errorf("Expected name anonymous, got %v", name)
	}
}

func TestUsersFindAnonymous(t *testing.T) {
	svc := newServices(t)
	u, err := svc.Users.Find("anonymous")
	if err != nil {
		t.Fatal(err)
	}
	if u != Anonymous() {
		t.Error("Expected the anonymous singleton")
	}
	exists, err := svc.Users.Exists("anonymous")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("Expected anonymous to exist")
	}
	if _, err := svc.Users.Create("anonymous", nil); !models.HasCode(err, models.CodeReadOnly) {
		t.Errorf("Expected READ_ONLY creating anonymous, got %v", err)
	}
}

func TestUserIndexJSON(t *testing.T) {
	svc := newServices(t)
	bob := mustCreateUser(t, svc, "bob", docstore.Document{
		"name":   "Bob",
		"email":  "bob@example.com",
		"groups": []string{"member"},
	})
	alice := mustCreateUser(t, svc, "alice", docstore.Document{"groups": []string{"member"}})

	// Bob sees his own tokens in the projection.
	json, err := bob.IndexJSON(bob)
	if err != nil {
		t.Fatal(err)
	}
	if json["id"] != "bob" || json["name"] != "Bob" || json["email"] != "bob@example.com" {
		t.Errorf("Unexpected projection %v", json)
	}
	if json["link-self"] != "/seed/users/bob" {
		t.Errorf("Expected link-self /seed/users/bob, got %v", json["link-self"])
	}
	if _, ok := json["password"]; ok {
		t.Error("Expected password to be filtered out")
	}
	tokens, ok := json["tokens"].([]string)
	if !ok || len(tokens) != 1 {
		t.Errorf("Expected bob's own tokens in projection, got %v", json["tokens"])
	}

	// Alice does not see bob's tokens.
	json, err = bob.IndexJSON(alice)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := json["tokens"]; ok {
		t.Error("Expected no tokens in projection for another member")
	}
}
