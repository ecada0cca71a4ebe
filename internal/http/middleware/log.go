package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"
)

// AccessLog logs one line per request through the logger hlog.NewHandler
// put in the request context.
func AccessLog(next http.Handler) http.Handler {
	return hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	})(next)
}
