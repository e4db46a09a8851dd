package middleware

import (
	"net/http"

	"github.com/edgegate/edgegate/internal/api/models"
)

// securityHeaders are set on every response before the handler runs.
// Proxied responses may override them with the upstream's own values.
var securityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Permissions-Policy", "geolocation=(), camera=(), microphone=()"},
}

// SecurityHeaders adds standard security headers to all HTTP responses.
// Strict-Transport-Security is only sent on HTTPS requests (RFC 6797 section 7.2).
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, kv := range securityHeaders {
			h.Set(kv[0], kv[1])
		}
		if scheme(r) == "https" {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

// RequireTLS rejects requests that a load balancer reports as plain HTTP via
// X-Forwarded-Proto. Requests without the header are direct connections and
// are let through.
func RequireTLS(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.TLS == nil {
				if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" && proto != "https" {
					problem := models.NewProblem(
						models.ProblemTypeTLSRequired,
						"TLS required",
						http.StatusForbidden,
						GetRequestID(r.Context()),
					)
					problem.Detail = "This endpoint requires HTTPS"
					problem.Instance = r.URL.Path
					problem.Write(w)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
