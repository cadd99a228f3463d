// Package api implements the archive HTTP API using chi.
package api

import (
	"net/http"
)

// LimitBody caps request bodies at maxBytes. Requests that announce a
// larger Content-Length are refused with 413 before the body is read.
func LimitBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeJSON(w, http.StatusRequestEntityTooLarge, failure("file too large"))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
