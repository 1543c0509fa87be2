package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func runJWT(t *testing.T, authHeader string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := JWTAuth(testSecret)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec, c
}

func TestJWTAuthValidToken(t *testing.T) {
	raw := signToken(t, testSecret, jwt.MapClaims{
		"sub": "16",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	rec, c := runJWT(t, "Bearer "+raw)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(16), c.Get("user_id"))
}

func TestJWTAuthNumericSubject(t *testing.T) {
	raw := signToken(t, testSecret, jwt.MapClaims{
		"sub": 42,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	rec, c := runJWT(t, "Bearer "+raw)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(42), c.Get("user_id"))
}

func TestJWTAuthMissingHeader(t *testing.T) {
	rec, _ := runJWT(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthWrongSecret(t *testing.T) {
	raw := signToken(t, "other-secret", jwt.MapClaims{"sub": "16"})
	rec, _ := runJWT(t, "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthExpiredToken(t *testing.T) {
	raw := signToken(t, testSecret, jwt.MapClaims{
		"sub": "16",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	rec, _ := runJWT(t, "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthBadSubject(t *testing.T) {
	raw := signToken(t, testSecret, jwt.MapClaims{
		"sub": "not-a-number",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	rec, _ := runJWT(t, "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
