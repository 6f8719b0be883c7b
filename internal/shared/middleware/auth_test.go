package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-backoffice/internal/shared/auth"
	"restaurant-backoffice/pkg/jwt"
)

func newAuthRouter(tokens *jwt.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Recovery())

	protected := r.Group("/", AuthMiddleware(tokens))
	protected.PUT("/order/:id",
		RequirePermission(auth.ModuleOrder, auth.ActionEdit),
		func(c *gin.Context) {
			p := auth.FromContext(c.Request.Context())
			c.JSON(http.StatusOK, gin.H{"user_id": p.UserID})
		},
	)
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func TestAuthMiddleware(t *testing.T) {
	tokens := jwt.NewManager("secret", time.Hour)
	r := newAuthRouter(tokens)

	admin, err := tokens.GenerateAccessToken(uuid.NewString(), "ADMIN", nil)
	require.NoError(t, err)
	viewer, err := tokens.GenerateAccessToken(uuid.NewString(), "staff",
		map[string]map[string]bool{auth.ModuleOrder: {auth.ActionView: true}})
	require.NoError(t, err)
	editor, err := tokens.GenerateAccessToken(uuid.NewString(), "staff",
		map[string]map[string]bool{auth.ModuleOrder: {auth.ActionEdit: true}})
	require.NoError(t, err)
	badSubject, err := tokens.GenerateAccessToken("not-a-uuid", "admin", nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer abc", http.StatusUnauthorized},
		{"bad subject", "Bearer " + badSubject, http.StatusUnauthorized},
		{"admin", "Bearer " + admin, http.StatusOK},
		{"missing permission", "Bearer " + viewer, http.StatusForbidden},
		{"granted permission", "Bearer " + editor, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/order/1", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.NotEmpty(t, w.Header().Get(requestIDHeader))
		})
	}
}

func TestRecovery(t *testing.T) {
	r := newAuthRouter(jwt.NewManager("secret", time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(requestIDHeader, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "req-1", w.Header().Get(requestIDHeader))
	assert.Contains(t, w.Body.String(), "INTERNAL_SERVER_ERROR")
}
