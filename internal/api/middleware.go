// Package api implements the notedrop HTTP interface using chi.
package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// LimitBody caps request bodies at n bytes. Reads past the limit fail with
// *http.MaxBytesError, reported as 413.
func LimitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if n > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// pathID parses the {id} URL parameter. Ids that are not positive integers
// cannot name a resource.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
