package middleware

import (
	"mime"
	"net/http"
)

// CSRF rejects state-changing requests that a cross-site HTML form could
// forge. Browsers only send form-encoded, multipart or text/plain bodies
// cross-origin without a preflight, so unsafe methods must either carry a
// JSON body or no body at all. Session cookies are SameSite=Lax on top of
// this.
func CSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		ct := r.Header.Get("Content-Type")
		if ct == "" {
			if r.ContentLength > 0 {
				writeError(w, http.StatusUnsupportedMediaType, "request body must be JSON")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			writeError(w, http.StatusUnsupportedMediaType, "request body must be JSON")
			return
		}

		next.ServeHTTP(w, r)
	})
}
