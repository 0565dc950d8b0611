package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SignBearer wraps a stored token id in a signed JWT suitable for an
// Authorization header, so the raw token id never travels as a bearer value.
// A ttl of 0 produces a token without an expiry claim.
func SignBearer(secret []byte, tokenID string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"tid": tokenID,
		"iat": time.Now().Unix(),
	}
	if ttl > 0 {
		claims["exp"] = time.Now().Add(ttl).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// bearerTokenID extracts and verifies the token id carried by an
// Authorization: Bearer header. Returns "" for absent or invalid headers;
// resolution then degrades to anonymous like any other bad credential.
func bearerTokenID(r *http.Request, secret []byte) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return ""
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	tid, _ := claims["tid"].(string)
	return tid
}

// credentials assembles the resolver input from the query string plus the
// X-Seed-Token and bearer transports. Explicit query credentials win.
func (s *Server) credentials(r *http.Request) url.Values {
	query := r.URL.Query()
	if query.Get("token") == "" {
		if tid := r.Header.Get("X-Seed-Token"); tid != "" {
			query.Set("token", tid)
		} else if tid := bearerTokenID(r, s.jwtSecret); tid != "" {
			query.Set("token", tid)
		}
	}
	return query
}
