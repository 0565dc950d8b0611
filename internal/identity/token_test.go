package identity

import (
	"testing"

	"github.com/seedpm/seed/internal/docstore"
)

func TestTokenNormalization(t *testing.T) {
	expirations := []struct {
		name string
		in   any
		want int64
	}{
		{"absent", nil, 0},
		{"numeric", 1900000000, 1900000000},
		{"json number", float64(1900000000), 1900000000},
		{"numeric string", "1900000000", 1900000000},
		{"non-numeric string", "abc", 0},
		{"bool", true, 0},
	}
	for _, tt := range expirations {
		t.Run("expiration "+tt.name, func(t *testing.T) {
			got, err := tokenKind{}.Normalize("expiration", tt.in, nil, false)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("Expected %d, got %v", tt.want, got)
			}
		})
	}

	usernames := []struct {
		name string
		in   any
		want string
	}{
		{"absent", nil, "anonymous"},
		{"empty", "", "anonymous"},
		{"set", "alice", "alice"},
	}
	for _, tt := range usernames {
		t.Run("username "+tt.name, func(t *testing.T) {
			got, err := tokenKind{}.Normalize("username", tt.in, nil, false)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("Expected %q, got %v", tt.want, got)
			}
		})
	}
}

func TestTokenUser(t *testing.T) {
	svc := newServices(t)
	mustCreateUser(t, svc, "alice", docstore.Document{"email": "alice@example.com"})

	token, err := svc.Tokens.Create("tok1", docstore.Document{"username": "alice"})
	if err != nil {
		t.Fatal(err)
	}
	owner, err := token.User()
	if err != nil {
		t.Fatal(err)
	}
	if owner.ID() != "alice" {
		t.Errorf("Expected owner alice, got %s", owner.ID())
	}

	// A token without a username belongs to anonymous.
	orphan, err := svc.Tokens.Create("tok2", nil)
	if err != nil {
		t.Fatal(err)
	}
	owner, err = orphan.User()
	if err != nil {
		t.Fatal(err)
	}
	if owner != Anonymous() {
		t.Error("Expected the anonymous owner")
	}
}

func TestTokensCreateAssignsID(t *testing.T) {
	svc := newServices(t)
	token, err := svc.Tokens.Create("", docstore.Document{"username": "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if token.ID() == "" {
		t.Fatal("Expected a generated token id")
	}
}

func TestTokensForUser(t *testing.T) {
	svc := newServices(t)
	// Creating the user already mints one companion token.
	alice := mustCreateUser(t, svc, "alice", nil)
	if _, err := svc.Tokens.Create("extra", docstore.Document{"username": "alice"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Tokens.Create("other", docstore.Document{"username": "bob"}); err != nil {
		t.Fatal(err)
	}

	tokens, err := svc.Tokens.ForUser("alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(tokens) != 2 {
		t.Fatalf("Expected 2 tokens for alice, got %d", len(tokens))
	}
	owned, err := alice.Tokens()
	if err != nil {
		t.Fatal(err)
	}
	if len(owned) != len(tokens) {
		t.Errorf("Expected user token lookup to match service lookup")
	}
}

func TestTokenIndexJSON(t *testing.T) {
	svc := newServices(t)
	token, err := svc.Tokens.Create("tok1", docstore.Document{
		"username":   "alice",
		"expiration": "abc",
	})
	if err != nil {
		t.Fatal(err)
	}
	json, err := token.IndexJSON(Anonymous())
	if err != nil {
		t.Fatal(err)
	}
	if json["id"] != "tok1" || json["username"] != "alice" {
		t.Errorf("Unexpected projection %v", json)
	}
	if json["expiration"] != int64(0) {
		t.Errorf("Expected coerced expiration 0, got %v", json["expiration"])
	}
	if json["link-self"] != "/seed/tokens/tok1" {
		t.Errorf("Expected link-self /seed/tokens/tok1, got %v", json["link-self"])
	}
}
