package server

import (
	"net/http"

	"github.com/seedpm/seed/internal/identity"
	"github.com/seedpm/seed/internal/models"
)

// tokensIndex lists every token for admins, or the caller's own tokens for
// authenticated users.
func (s *Server) tokensIndex(w http.ResponseWriter, r *http.Request) {
	acting := s.acting(r)
	var tokens []*identity.Token
	var err error
	switch {
	case acting.CanSeeAllTokens():
		tokens, err = s.svc.Tokens.FindAll()
	case acting.CanSeeTokensForUser(acting):
		tokens, err = acting.Tokens()
	default:
		writeForbidden(w)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	records := make([]map[string]any, 0, len(tokens))
	for _, t := range tokens {
		json, err := t.IndexJSON(acting)
		if err != nil {
			writeError(w, err)
			return
		}
		records = append(records, json)
	}
	writeJSON(w, http.StatusOK, models.RecordList{Count: len(records), Records: records})
}

// tokensShow requires no permission check: knowing a token id implicitly
// grants visibility of it.
func (s *Server) tokensShow(w http.ResponseWriter, r *http.Request) {
	acting := s.acting(r)
	token, err := s.svc.Tokens.Find(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	json, err := token.ShowJSON(acting)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, json)
}

// tokensCreate issues a token for the named user. Admins may mint tokens for
// anyone, everyone else only for themselves.
func (s *Server) tokensCreate(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	username, _ := body["username"].(string)
	if username == "" {
		writeError(w, models.Validation("username is required"))
		return
	}
	acting := s.acting(r)
	owner, err := s.svc.Users.Find(username)
	if err != nil {
		writeError(w, err)
		return
	}
	if !acting.CanCreateTokenForUser(owner) {
		writeForbidden(w)
		return
	}
	token, err := s.svc.Tokens.Create("", body)
	if err != nil {
		writeError(w, err)
		return
	}
	json, err := token.ShowJSON(acting)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", token.URL())
	writeJSON(w, http.StatusCreated, json)
}

// tokensDestroy removes a token, idempotently: knowing the id grants the
// power to delete it, and deleting an absent token still succeeds.
func (s *Server) tokensDestroy(w http.ResponseWriter, r *http.Request) {
	token, err := s.svc.Tokens.Find(r.PathValue("id"))
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			writeOK(w)
			return
		}
		writeError(w, err)
		return
	}
	if _, err := token.Destroy(); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}
