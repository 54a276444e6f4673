package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// staticVerifier accepts exactly one token.
type staticVerifier struct {
	token string
}

func (v staticVerifier) Verify(token string) bool {
	return token == v.token
}

func authTestRouter(m *AuthMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", m.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func doAuthRequest(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAuthValidToken(t *testing.T) {
	router := authTestRouter(NewAuthMiddleware(nil, staticVerifier{token: "secret"}))

	w := doAuthRequest(router, "Bearer secret")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuthMissingHeader(t *testing.T) {
	router := authTestRouter(NewAuthMiddleware(nil, staticVerifier{token: "secret"}))

	w := doAuthRequest(router, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthWrongScheme(t *testing.T) {
	router := authTestRouter(NewAuthMiddleware(nil, staticVerifier{token: "secret"}))

	w := doAuthRequest(router, "Basic secret")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthWrongToken(t *testing.T) {
	router := authTestRouter(NewAuthMiddleware(nil, staticVerifier{token: "secret"}))

	w := doAuthRequest(router, "Bearer guessed")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthNilVerifierIsOpen(t *testing.T) {
	router := authTestRouter(NewAuthMiddleware(nil, nil))

	w := doAuthRequest(router, "")

	assert.Equal(t, http.StatusOK, w.Code)
}
