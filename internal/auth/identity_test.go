package auth

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

func signToken(t *testing.T, secret string, userNo int64, expiry time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserNo: userNo,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func resolveIdentity(t *testing.T, secret, authHeader string) *int64 {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var got *int64
	handler := OptionalIdentity(secret)(func(c echo.Context) error {
		got = UserID(c)
		return nil
	})
	require.NoError(t, handler(c))
	return got
}

func TestOptionalIdentity_ValidToken(t *testing.T) {
	token := signToken(t, testSecret, 42, time.Hour)

	got := resolveIdentity(t, testSecret, "Bearer "+token)

	require.NotNil(t, got)
	assert.Equal(t, int64(42), *got)
}

func TestOptionalIdentity_AnonymousRequests(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		header string
	}{
		{name: "no header", secret: testSecret},
		{name: "not a bearer scheme", secret: testSecret, header: "Basic dXNlcjpwYXNz"},
		{name: "garbage token", secret: testSecret, header: "Bearer not.a.jwt"},
		{name: "wrong secret", secret: testSecret, header: "Bearer " + signToken(t, "other-secret", 42, time.Hour)},
		{name: "expired token", secret: testSecret, header: "Bearer " + signToken(t, testSecret, 42, -time.Hour)},
		{name: "auth disabled", secret: "", header: "Bearer " + signToken(t, testSecret, 42, time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, resolveIdentity(t, tt.secret, tt.header), "request must stay anonymous")
		})
	}
}
