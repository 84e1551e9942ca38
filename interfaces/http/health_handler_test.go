package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHealthHandler_Healthz(t *testing.T) {
	healthy := NewHealthHandler(map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
	})
	r := gin.New()
	r.GET("/healthz", healthy.Healthz)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHealthHandler_Healthz_Degraded(t *testing.T) {
	h := NewHealthHandler(map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})
	r := gin.New()
	r.GET("/healthz", h.Healthz)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"degraded","failing":["redis"]}`, w.Body.String())
}
