package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(secret string, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	handlers := []gin.HandlerFunc{AuthMiddleware(secret)}
	handlers = append(handlers, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		actor, _ := GetActor(c)
		c.JSON(http.StatusOK, gin.H{"actor_id": actor.ID, "kind": actor.Kind})
	})

	router.GET("/protected", handlers...)
	return router
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	router := setupRouter(testSecret)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_BadFormat(t *testing.T) {
	router := setupRouter(testSecret)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	token, err := GenerateAccessToken(StaffActor(5, "manager"), "m@gym.local", testSecret)
	require.NoError(t, err)

	router := setupRouter(testSecret)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"actor_id":5`)
}

func TestAuthMiddleware_RefreshTokenRejected(t *testing.T) {
	token, err := GenerateRefreshToken(StaffActor(5, "manager"), "m@gym.local", testSecret)
	require.NoError(t, err)

	router := setupRouter(testSecret)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireStaff_CustomerForbidden(t *testing.T) {
	token, err := GenerateAccessToken(CustomerActor(3), "c@gym.local", testSecret)
	require.NoError(t, err)

	router := setupRouter(testSecret, RequireStaff())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireStaff_RoleCheck(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		allowed  []string
		expected int
	}{
		{"owner passes owner gate", "owner", []string{"owner"}, http.StatusOK},
		{"receptionist fails owner gate", "receptionist", []string{"owner"}, http.StatusForbidden},
		{"accountant passes accountant-or-owner gate", "accountant", []string{"accountant", "owner"}, http.StatusOK},
		{"any staff passes open gate", "receptionist", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateAccessToken(StaffActor(1, tt.role), "s@gym.local", testSecret)
			require.NoError(t, err)

			router := setupRouter(testSecret, RequireStaff(tt.allowed...))

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expected, w.Code)
		})
	}
}
