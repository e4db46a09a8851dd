package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/edgegate/edgegate/internal/api/models"
)

// Recovery returns a middleware that turns panics into a 500 problem response.
// http.ErrAbortHandler is passed through so net/http can drop the connection.
// When the response has already started, as with a streamed upstream body, the
// connection is aborted instead since the status can no longer change.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newStatusRecorder(w)

			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}

				requestID := GetRequestID(r.Context())
				log.Error().
					Str("request_id", requestID).
					Str("path", r.URL.Path).
					Interface("error", v).
					Str("stack", string(debug.Stack())).
					Msg("panic recovered")

				if rec.wroteHeader {
					panic(http.ErrAbortHandler)
				}

				problem := models.NewInternalError(requestID, "an unexpected error occurred")
				problem.Instance = r.URL.Path
				problem.Write(rec)
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
