package middleware

import (
	"net/http"

	gmw "github.com/gorilla/handlers"
)

// CORSOptions adjusts the behavior of the CORS middleware.
type CORSOptions struct {
	AllowedOrigins []string
	AllowedHeaders []string
	AllowedMethods []string
}

// CORS provides a "Cross Origin Resource Sharing" middleware.
func CORS(opts CORSOptions) func(http.Handler) http.Handler {
	settings := []gmw.CORSOption{}
	if len(opts.AllowedOrigins) > 0 {
		settings = append(settings, gmw.AllowedOrigins(opts.AllowedOrigins))
	}
	if len(opts.AllowedHeaders) > 0 {
		settings = append(settings, gmw.AllowedHeaders(opts.AllowedHeaders))
	}
	if len(opts.AllowedMethods) > 0 {
		settings = append(settings, gmw.AllowedMethods(opts.AllowedMethods))
	}
	return gmw.CORS(settings...)
}
