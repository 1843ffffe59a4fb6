package httpd

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	e.Use(requestIDMiddleware())
	e.GET("/echo", func(c *gin.Context) {
		c.String(http.StatusOK, requestID(c))
	})
	return e
}

func TestRequestIDGeneratedWhenAbsent(t *testing.T) {
	e := newTestEngine()
	req := httptest.NewRequest(http.MethodGet, "/echo", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got == "" {
		t.Fatal("expected a generated X-Request-ID header")
	}
	if rec.Body.String() == "" {
		t.Fatal("expected requestID(c) to resolve to a non-empty id inside the handler")
	}
}

func TestRequestIDPreservesUpstreamValue(t *testing.T) {
	e := newTestEngine()
	req := httptest.NewRequest(http.MethodGet, "/echo", nil)
	req.Header.Set(RequestIDHeader, "upstream-id-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "upstream-id-123" {
		t.Errorf("expected upstream request id to be preserved, got %q", got)
	}
	if rec.Body.String() != "upstream-id-123" {
		t.Errorf("expected handler to see upstream request id, got %q", rec.Body.String())
	}
}
