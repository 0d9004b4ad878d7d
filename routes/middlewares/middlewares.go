package middlewares

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/oauth"
	"github.com/mbolis/quick-forms/httpx"
)

const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

// Identity is the caller resolved from a bearer token.
type Identity struct {
	UserID int64
	Roles  []string
}

func (id Identity) HasRole(roles ...string) bool {
	for _, have := range id.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

type identityKey struct{}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// Authorize rejects requests without a valid bearer token and puts the
// caller's Identity in the request context.
func Authorize(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(oauth.Authorize(secret, nil), identity).Handler(next)
	}
}

// OptionalAuthorize lets anonymous requests through; a request carrying a
// token must carry a valid one.
func OptionalAuthorize(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		authorized := Authorize(secret)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			authorized.ServeHTTP(w, r)
		})
	}
}

func identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := r.Context().Value(oauth.ClaimsContext).(map[string]string)

		id := Identity{}
		id.UserID, _ = strconv.ParseInt(claims[httpx.ClaimUserID], 10, 64)
		if roles := claims[httpx.ClaimRoles]; roles != "" {
			id.Roles = strings.Split(roles, ",")
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, id)))
	})
}

// Editor middleware to check for the 'editor' or 'admin' role. It must run
// after Authorize.
func Editor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := IdentityFrom(r.Context())
		if !id.HasRole(RoleEditor, RoleAdmin) {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
