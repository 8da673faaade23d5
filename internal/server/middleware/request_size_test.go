// file: internal/server/middleware/request_size_test.go
// version: 1.1.0
// guid: 8f5ed221-2f04-49aa-86f7-f63fa1732b2d

package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMethodHasBody(t *testing.T) {
	t.Parallel()

	assert.True(t, methodHasBody(http.MethodPost))
	assert.True(t, methodHasBody(http.MethodPut))
	assert.True(t, methodHasBody(http.MethodPatch))
	assert.False(t, methodHasBody(http.MethodGet))
	assert.False(t, methodHasBody(http.MethodDelete))
}

func TestMaxRequestBodySize_Middleware(t *testing.T) {
	t.Parallel()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(MaxRequestBodySize(8))
	router.POST("/api/admin/journal/prune", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/memory", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Body over limit should be rejected.
	overPayload := bytes.Repeat([]byte("a"), 9)
	overReq := httptest.NewRequest(http.MethodPost, "/api/admin/journal/prune", bytes.NewReader(overPayload))
	overResp := httptest.NewRecorder()
	router.ServeHTTP(overResp, overReq)
	assert.Equal(t, http.StatusRequestEntityTooLarge, overResp.Code)

	// Body within limit passes.
	okPayload := bytes.Repeat([]byte("b"), 6)
	okReq := httptest.NewRequest(http.MethodPost, "/api/admin/journal/prune", bytes.NewReader(okPayload))
	okResp := httptest.NewRecorder()
	router.ServeHTTP(okResp, okReq)
	assert.Equal(t, http.StatusOK, okResp.Code)

	// Methods without request bodies should pass untouched.
	getReq := httptest.NewRequest(http.MethodGet, "/api/memory", nil)
	getResp := httptest.NewRecorder()
	router.ServeHTTP(getResp, getReq)
	assert.Equal(t, http.StatusOK, getResp.Code)
}
