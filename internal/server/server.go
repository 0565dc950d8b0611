// Package server exposes the record services over HTTP. Handlers are thin:
// they resolve credentials, evaluate a permission predicate and call into the
// identity services, mapping the error taxonomy onto status codes.
package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/seedpm/seed/internal/docstore"
	"github.com/seedpm/seed/internal/identity"
	"github.com/seedpm/seed/internal/models"
)

const maxBodyBytes = 1 << 20

// Server routes seed API requests to the identity services.
type Server struct {
	svc       *identity.Services
	resolver  *identity.Resolver
	log       *slog.Logger
	limiter   *RateLimiter
	jwtSecret []byte
}

// New creates a server. limiter may be nil to disable rate limiting.
func New(svc *identity.Services, resolver *identity.Resolver, log *slog.Logger, limiter *RateLimiter, jwtSecret []byte) *Server {
	return &Server{
		svc:       svc,
		resolver:  resolver,
		log:       log,
		limiter:   limiter,
		jwtSecret: jwtSecret,
	}
}

// Handler returns the full middleware-wrapped route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /seed/users", s.usersIndex)
	mux.HandleFunc("POST /seed/users", s.usersCreate)
	mux.HandleFunc("GET /seed/users/{id}", s.usersShow)
	mux.HandleFunc("PUT /seed/users/{id}", s.usersUpdate)
	mux.HandleFunc("DELETE /seed/users/{id}", s.usersDestroy)
	mux.HandleFunc("GET /seed/tokens", s.tokensIndex)
	mux.HandleFunc("POST /seed/tokens", s.tokensCreate)
	mux.HandleFunc("GET /seed/tokens/{id}", s.tokensShow)
	mux.HandleFunc("DELETE /seed/tokens/{id}", s.tokensDestroy)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return logRequests(s.log, s.rateLimit(mux))
}

// acting resolves the request's credentials to the acting user.
func (s *Server) acting(r *http.Request) *identity.User {
	return s.resolver.Resolve(s.credentials(r))
}

// decodeBody reads a JSON document body. A false return means an error
// response was already written.
func decodeBody(w http.ResponseWriter, r *http.Request) (docstore.Document, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, models.Validation("failed to read request body"))
		return nil, false
	}
	body := docstore.Document{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			writeError(w, models.Validation("invalid request body"))
			return nil, false
		}
	}
	return body, true
}
