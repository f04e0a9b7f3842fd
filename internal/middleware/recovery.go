package middleware

import (
	"fmt"
	"net/http"
)

// Recovery converts an unhandled panic into a 500 response instead of
// crashing the server.
func Recovery() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = fmt.Fprintf(w, "%v", v)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
