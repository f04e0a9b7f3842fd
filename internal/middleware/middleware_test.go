package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	tdd "github.com/stretchr/testify/assert"

	"go.bryk.io/mediator/internal/xlog"
)

func TestRecoveryHandlesPanic(t *testing.T) {
	assert := tdd.New(t)
	h := Recovery()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(rec, req)

	assert.Equal(http.StatusInternalServerError, rec.Code)
	assert.Contains(rec.Body.String(), "boom")
}

func TestLoggingPassesThrough(t *testing.T) {
	assert := tdd.New(t)
	called := false
	h := Logging(xlog.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(rec, req)

	assert.True(called)
	assert.Equal(http.StatusAccepted, rec.Code)
}
