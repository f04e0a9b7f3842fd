// Package middleware is a trimmed, adapted copy of
// go.bryk.io/pkg/net/middleware: request logging, panic recovery, and
// CORS, composed into the HTTP facade's handler chain.
package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.bryk.io/mediator/internal/xlog"
)

// Logging produces structured output for every processed HTTP request.
func Logging(ll xlog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingRW{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(lrw, r)
			elapsed := time.Since(start)

			fields := requestFields(r)
			fields["duration_ms"] = fmt.Sprintf("%.3f", elapsed.Seconds()*1000)
			fields["http.response.status_code"] = lrw.code
			fields["http.response.body.bytes"] = lrw.size
			ll.WithFields(fields).Print(levelFor(lrw.code), r.URL.String())
		})
	}
}

type loggingRW struct {
	http.ResponseWriter
	size int
	code int
}

func (lrw *loggingRW) WriteHeader(code int) {
	lrw.code = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingRW) Write(content []byte) (int, error) {
	n, err := lrw.ResponseWriter.Write(content)
	if err == nil {
		lrw.size += n
	}
	return n, err
}

func levelFor(status int) xlog.Level {
	switch {
	case status >= 500:
		return xlog.Error
	case status >= 400:
		return xlog.Warning
	case status >= 300:
		return xlog.Debug
	case status >= 200:
		return xlog.Info
	default:
		return xlog.Debug
	}
}

func requestFields(r *http.Request) xlog.Fields {
	fields := xlog.Fields{
		"user_agent.original":     r.UserAgent(),
		"client.ip":               clientIP(r),
		"http.request.method":     strings.ToLower(r.Method),
		"http.request.body.bytes": r.ContentLength,
	}
	if ref := r.Header.Get("Referer"); ref != "" {
		fields["http.request.referrer"] = ref
	}
	return fields
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
