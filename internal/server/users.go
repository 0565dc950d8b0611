package server

import (
	"fmt"
	"net/http"

	"github.com/seedpm/seed/internal/models"
)

// usersIndex lists every user. Guests and anonymous callers are refused.
func (s *Server) usersIndex(w http.ResponseWriter, r *http.Request) {
	acting := s.acting(r)
	if !acting.CanGetUserIndex() {
		writeForbidden(w)
		return
	}
	users, err := s.svc.Users.FindAll()
	if err != nil {
		writeError(w, err)
		return
	}
	records := make([]map[string]any, 0, len(users))
	for _, u := range users {
		json, err := u.IndexJSON(acting)
		if err != nil {
			writeError(w, err)
			return
		}
		records = append(records, json)
	}
	writeJSON(w, http.StatusOK, models.RecordList{Count: len(records), Records: records})
}

func (s *Server) usersShow(w http.ResponseWriter, r *http.Request) {
	acting := s.acting(r)
	user, err := s.svc.Users.Find(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !acting.CanShowUser(user) {
		writeForbidden(w)
		return
	}
	json, err := user.ShowJSON(acting)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, json)
}

// usersCreate is open to everyone; this is how you sign up. The companion
// token minted during the commit is surfaced in the X-Seed-Token header so
// the new account can authenticate immediately.
func (s *Server) usersCreate(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	id, _ := body["id"].(string)
	if id == "" {
		writeError(w, models.Validation("user id is required"))
		return
	}
	delete(body, "id")

	acting := s.acting(r)
	if !acting.CanCreateUser(nil) {
		writeForbidden(w)
		return
	}
	user, err := s.svc.Users.Create(id, body)
	if err != nil {
		writeError(w, err)
		return
	}
	// The new user sees its own record, tokens included.
	json, err := user.ShowJSON(user)
	if err != nil {
		writeError(w, err)
		return
	}
	if ids, err := user.TokenIDs(); err == nil && len(ids) > 0 {
		w.Header().Set("X-Seed-Token", ids[0])
	}
	w.Header().Set("Location", user.URL())
	writeJSON(w, http.StatusCreated, json)
}

func (s *Server) usersUpdate(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	// The id comes from the URL; a body id would relabel the record.
	delete(body, "id")
	if len(body) == 0 {
		writeError(w, models.Validation("request body is required"))
		return
	}
	acting := s.acting(r)
	user, err := s.svc.Users.Find(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !acting.CanEditUser(user) {
		writeForbidden(w)
		return
	}
	if _, err := s.svc.Users.Update(user.ID(), body); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

// usersDestroy removes a user. Destroying an absent user succeeds, matching
// the idempotent destroy semantics of the record core.
func (s *Server) usersDestroy(w http.ResponseWriter, r *http.Request) {
	acting := s.acting(r)
	user, err := s.svc.Users.Find(r.PathValue("id"))
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			writeOK(w)
			return
		}
		writeError(w, err)
		return
	}
	if !acting.CanDestroyUser(user) {
		writeForbidden(w)
		return
	}
	// Owned tokens go first so no orphaned credentials survive the user.
	tokens, err := user.Tokens()
	if err != nil {
		writeError(w, err)
		return
	}
	for _, t := range tokens {
		if _, err := t.Destroy(); err != nil {
			writeError(w, models.Storage(fmt.Sprintf("failed to remove token %s", t.ID()), err))
			return
		}
	}
	if _, err := user.Destroy(); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}
