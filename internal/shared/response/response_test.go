package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codedError struct{}

func (codedError) Error() string             { return "promotion not found" }
func (codedError) StatusCode() int           { return http.StatusNotFound }
func (codedError) ErrorCode() string         { return "PROMO_NOT_FOUND" }
func (codedError) ErrorDetails() interface{} { return map[string]string{"id": "42"} }

func serve(t *testing.T, h gin.HandlerFunc) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestHandleError_DomainError(t *testing.T) {
	w, body := serve(t, func(c *gin.Context) {
		HandleError(c, fmt.Errorf("get promotion: %w", codedError{}))
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "PROMO_NOT_FOUND", body.Error.Code)
	assert.Equal(t, map[string]interface{}{"id": "42"}, body.Error.Details)
}

func TestHandleError_Unknown(t *testing.T) {
	w, body := serve(t, func(c *gin.Context) {
		HandleError(c, errors.New("connection refused"))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", body.Error.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.NoRoute(func(c *gin.Context) { NotFound(c, "route not found") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"success":false,"error":{"code":"NOT_FOUND","message":"route not found"}}`, w.Body.String())
}

func TestNewMeta(t *testing.T) {
	m := NewMeta(2, 20, 41)
	assert.Equal(t, 3, m.TotalPages)
	assert.Equal(t, 0, NewMeta(1, 0, 5).TotalPages)
}
