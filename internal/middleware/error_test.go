package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"waste_ops_backend/internal/common"
	"waste_ops_backend/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestErrorHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(ZapLogger(logger, &config.Config{GinMode: gin.ReleaseMode}), ErrorHandler(logger))
	r.GET("/conflict", func(c *gin.Context) { _ = c.Error(common.ErrConflict) })
	r.GET("/boom", func(c *gin.Context) { _ = c.Error(errors.New("db password wrong")) })
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	serve := func(method, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(method, path, nil)
		r.ServeHTTP(w, req)
		return w
	}

	w := serve(http.MethodGet, "/conflict")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "CONFLICT")

	w = serve(http.MethodGet, "/boom")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db password wrong")
	assert.Equal(t, 1, logs.FilterMessage("Unhandled application error").Len())

	w = serve(http.MethodGet, "/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")

	w = serve(http.MethodPost, "/ok")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), "METHOD_NOT_ALLOWED")

	w = serve(http.MethodGet, "/ok")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.GreaterOrEqual(t, logs.FilterMessage("Request handled").Len(), 1)
	assert.Equal(t, 1, logs.FilterMessage("Server error").Len())
}
