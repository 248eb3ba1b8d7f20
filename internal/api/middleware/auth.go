package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/cloo-solutions/nl2sparql/internal/api"
	"github.com/cloo-solutions/nl2sparql/internal/domain"
)

type contextKey string

const ClientIDKey contextKey = "client_id"

// clientIDHeader carries the resolved client outward to middlewares that
// wrap TokenAuth and so never see its context.
const clientIDHeader = "X-Client-ID"

// TokenValidator resolves a bearer token to a client identifier.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (string, error)
}

// StaticToken accepts exactly one shared token.
type StaticToken struct {
	Token    string
	ClientID string
}

// ValidateToken compares in constant time.
func (s StaticToken) ValidateToken(_ context.Context, token string) (string, error) {
	if s.Token == "" || subtle.ConstantTimeCompare([]byte(s.Token), []byte(token)) != 1 {
		return "", domain.ErrInvalidAPIToken
	}
	clientID := s.ClientID
	if clientID == "" {
		clientID = "default"
	}
	return clientID, nil
}

// TokenAuth requires "Authorization: Bearer <token>" on every request.
func TokenAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			clientID, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid api token")
				return
			}

			r.Header.Set(clientIDHeader, clientID)
			ctx := context.WithValue(r.Context(), ClientIDKey, clientID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetClientID(ctx context.Context) string {
	clientID, _ := ctx.Value(ClientIDKey).(string)
	return clientID
}

// requestClientID reads the client from the request context, then from the
// header TokenAuth stamps on the shared request.
func requestClientID(r *http.Request) string {
	if clientID := GetClientID(r.Context()); clientID != "" {
		return clientID
	}
	return r.Header.Get(clientIDHeader)
}
