package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/edgegate/edgegate/internal/api/models"
	"github.com/edgegate/edgegate/internal/auth"
)

// identityKey is the context key for the authenticated caller.
type identityKey struct{}

// Authenticator verifies bearer tokens and, optionally, the session behind them.
type Authenticator interface {
	Authenticate(header string) (*auth.Identity, error)
	AuthenticateSession(ctx context.Context, header string) (*auth.Identity, error)
}

// Auth rejects requests without a valid access token. The session behind the
// token is not consulted.
func Auth(gate Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := gate.Authenticate(r.Header.Get("Authorization"))
			if err != nil {
				writeAuthError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// SessionAuth rejects requests unless the access token is valid and its
// session is still the current one for the subject.
func SessionAuth(gate Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := gate.AuthenticateSession(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				writeAuthError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// OptionalAuth attaches the caller identity when a valid access token is
// presented and passes the request through anonymously otherwise. Whether an
// anonymous caller may proceed is decided further down the chain.
func OptionalAuth(gate Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			identity, err := gate.Authenticate(header)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// writeAuthError maps gate failures onto problem responses. Token failures
// collapse to a single detail so callers cannot tell which check failed.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	traceID := GetRequestID(r.Context())

	var problem *models.Problem
	switch {
	case errors.Is(err, auth.ErrSessionBackend):
		problem = models.NewServiceUnavailable(traceID, "session store unavailable")
	case errors.Is(err, auth.ErrInvalidSession):
		problem = models.NewUnauthorized(traceID, "session is no longer valid")
	default:
		problem = models.NewUnauthorized(traceID, "invalid or missing access token")
	}
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// WithIdentity stores the caller identity in ctx.
func WithIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// GetIdentity retrieves the authenticated caller from the context.
// Returns nil if the request is anonymous.
func GetIdentity(ctx context.Context) *auth.Identity {
	if identity, ok := ctx.Value(identityKey{}).(*auth.Identity); ok {
		return identity
	}
	return nil
}

// GetUserID retrieves the authenticated subject id from the context as a
// decimal string. Returns an empty string if not authenticated.
func GetUserID(ctx context.Context) string {
	if identity := GetIdentity(ctx); identity != nil {
		return strconv.FormatInt(identity.SubjectID, 10)
	}
	return ""
}
