package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"outreach-server/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.TokenExpiry = time.Hour
	return cfg
}

func setupTestRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AuthMiddleware(cfg))
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userID": c.GetString("userID")})
	})
	return router
}

func TestGenerateToken(t *testing.T) {
	cfg := testConfig()

	token, err := GenerateToken("user-1", "user@example.com", cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestGenerateTokenValidation(t *testing.T) {
	cfg := testConfig()

	_, err := GenerateToken("", "user@example.com", cfg)
	assert.Error(t, err)

	_, err = GenerateToken("user-1", "", nil)
	assert.Error(t, err)

	cfg.JWT.Secret = ""
	_, err = GenerateToken("user-1", "", cfg)
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	cfg := testConfig()
	router := setupTestRouter(cfg)

	validToken, err := GenerateToken("user-1", "user@example.com", cfg)
	require.NoError(t, err)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"malformed header", "NotBearer abc", http.StatusUnauthorized},
		{"invalid token", "Bearer not.a.token", http.StatusUnauthorized},
		{"valid token", "Bearer " + validToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestAuthMiddlewareExpiredToken(t *testing.T) {
	cfg := testConfig()
	router := setupTestRouter(cfg)

	claims := &Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JWT.Secret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "expired")
}

func TestAuthMiddlewareMissingExpiry(t *testing.T) {
	cfg := testConfig()
	router := setupTestRouter(cfg)

	claims := &Claims{UserID: "user-1"}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JWT.Secret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
