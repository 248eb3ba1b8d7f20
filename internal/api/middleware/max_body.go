package middleware

import (
	"mime"
	"net/http"

	"github.com/cloo-solutions/nl2sparql/internal/api"
	"github.com/cloo-solutions/nl2sparql/internal/domain"
)

// MaxBodyBytes caps request bodies at limit. A declared Content-Length over
// the cap is refused before the handler runs; otherwise reads past it fail
// and api.DecodeJSON reports the overflow.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				api.HandleError(w, domain.ErrRequestTooLarge)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

// RequireJSON refuses bodies declared as anything but application/json.
// Requests without a Content-Type pass through.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "" {
			mediaType, _, err := mime.ParseMediaType(ct)
			if err != nil || mediaType != "application/json" {
				api.HandleError(w, domain.ErrUnsupportedMediaType)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
