package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"salonq/internal/models"
	"salonq/internal/store"
)

type authContextKey struct{}

// AuthMiddleware resolves the Bearer session token to a user and stores it
// on the request context. Public endpoints pass through untouched.
func AuthMiddleware(st store.Store, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicEndpoint(r) {
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
			return
		}

		_, user, err := st.GetSession(r.Context(), token)
		if err != nil {
			if errors.Is(err, store.ErrSessionNotFound) {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid session")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}

		ctx := context.WithValue(r.Context(), authContextKey{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) (models.User, bool) {
	value := ctx.Value(authContextKey{})
	if value == nil {
		return models.User{}, false
	}
	user, ok := value.(models.User)
	return user, ok
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

func isPublicEndpoint(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/metrics", "/api/auth/login", "/api/auth/register":
		return true
	}
	if r.Method == http.MethodOptions {
		return true
	}
	// Browsing salons, services, queues, and queue status needs no account;
	// /api/salons/me is the one authenticated read under this prefix.
	if r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/salons/") && r.URL.Path != "/api/salons/me" {
		return true
	}
	return false
}
