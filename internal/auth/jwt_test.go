// AngelaMos | 2026
// jwt_test.go

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/directory-api/internal/config"
	"github.com/carterperez-dev/templates/directory-api/internal/core"
)

func newTestJWTManager(t *testing.T, audience string) *JWTManager {
	t.Helper()

	dir := t.TempDir()
	priv := filepath.Join(dir, "private.pem")
	pub := filepath.Join(dir, "public.pem")
	require.NoError(t, GenerateKeyPair(priv, pub))

	m, err := NewJWTManager(config.JWTConfig{
		PrivateKeyPath:    priv,
		AccessTokenExpire: time.Hour,
		Issuer:            "directory-api",
		Audience:          audience,
	})
	require.NoError(t, err)
	return m
}

func TestIssueAndVerify(t *testing.T) {
	m := newTestJWTManager(t, "clients")

	issued, err := m.Issue("user-1", "alice")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), issued.ExpiresAt, 5*time.Second)

	claims, err := m.VerifyAccessToken(context.Background(), issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m := newTestJWTManager(t, "clients")

	issued, err := m.Issue("user-1", "alice")
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = m.VerifyAccessToken(context.Background(), issued.Token)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	m := newTestJWTManager(t, "clients")

	issued, err := m.Issue("user-1", "alice")
	require.NoError(t, err)

	parts := strings.Split(issued.Token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = m.VerifyAccessToken(context.Background(), tampered)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)

	_, err = m.VerifyAccessToken(context.Background(), "not.a.token")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	m := newTestJWTManager(t, "clients")
	other := newTestJWTManager(t, "clients")

	issued, err := other.Issue("user-1", "alice")
	require.NoError(t, err)

	_, err = m.VerifyAccessToken(context.Background(), issued.Token)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestVerifyRejectsWrongAudience(t *testing.T) {
	m := newTestJWTManager(t, "clients")

	issued, err := m.Issue("user-1", "alice")
	require.NoError(t, err)

	m.config.Audience = "someone-else"

	_, err = m.VerifyAccessToken(context.Background(), issued.Token)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestJWKSHandler(t *testing.T) {
	m := newTestJWTManager(t, "clients")

	rec := httptest.NewRecorder()
	m.GetJWKSHandler().ServeHTTP(
		rec,
		httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil),
	)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), m.GetKeyID())
	assert.NotContains(t, rec.Body.String(), `"d":`)
}

func TestKeyIDIsStableForSameKey(t *testing.T) {
	dir := t.TempDir()
	priv := filepath.Join(dir, "private.pem")
	require.NoError(t, GenerateKeyPair(priv, filepath.Join(dir, "public.pem")))

	cfg := config.JWTConfig{
		PrivateKeyPath:    priv,
		AccessTokenExpire: time.Hour,
		Issuer:            "directory-api",
		Audience:          "clients",
	}
	a, err := NewJWTManager(cfg)
	require.NoError(t, err)
	b, err := NewJWTManager(cfg)
	require.NoError(t, err)

	assert.NotEmpty(t, a.GetKeyID())
	assert.Equal(t, a.GetKeyID(), b.GetKeyID())

	issued, err := a.Issue("user-1", "alice")
	require.NoError(t, err)
	_, err = b.VerifyAccessToken(context.Background(), issued.Token)
	assert.NoError(t, err)
}
