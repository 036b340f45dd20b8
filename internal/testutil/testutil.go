// Package testutil holds helpers shared by the persona-go test suites.
//
// Helpers take [testing.TB] and call t.Helper so failures point at the
// caller. Helpers that stop the test use testify's require; the Assert*
// variants record the failure and carry on.
package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pserr "github.com/techfromsage/persona-go/pkg/errors"
)

// RequireErrorCode stops the test unless err is a *pserr.Error with
// code.
func RequireErrorCode(t testing.TB, err error, code pserr.Code, msgAndArgs ...any) {
	t.Helper()
	require.Error(t, err, msgAndArgs...)
	pe, ok := pserr.AsError(err)
	require.True(t, ok, "expected *pserr.Error, got %T: %v", err, err)
	require.Equal(t, code, pe.Code,
		"error code mismatch: got %q, want %q (message: %s)", pe.Code, code, pe.Message)
}

// AssertErrorCode is the non-fatal form of [RequireErrorCode].
func AssertErrorCode(t testing.TB, err error, code pserr.Code, msgAndArgs ...any) bool {
	t.Helper()
	if !assert.Error(t, err, msgAndArgs...) {
		return false
	}
	pe, ok := pserr.AsError(err)
	if !assert.True(t, ok, "expected *pserr.Error, got %T: %v", err, err) {
		return false
	}
	return assert.Equal(t, code, pe.Code,
		"error code mismatch: got %q, want %q (message: %s)", pe.Code, code, pe.Message)
}

// TempFile writes content to name inside t.TempDir and returns the path.
func TempFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600), "failed to write temp file %s", path)
	return path
}

// ===========================================================================
// Signing keys and tokens
// ===========================================================================

// GenerateRSAKey returns a fresh 2048-bit key.
func GenerateRSAKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err, "failed to generate RSA key")
	return key
}

// PublicKeyPEM encodes the public half of key as a PKIX "PUBLIC KEY"
// block, the format the authority serves from its key endpoint.
func PublicKeyPEM(t testing.TB, key *rsa.PrivateKey) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err, "failed to marshal public key")
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

// SignToken signs claims with key using RS256.
func SignToken(t testing.TB, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err, "failed to sign token")
	return signed
}

// Claims returns a claim set valid for an hour around now carrying the
// given scopes.
func Claims(now time.Time, scopes ...string) jwt.MapClaims {
	return jwt.MapClaims{
		"jti":    "test-jti",
		"sub":    "test-client",
		"iat":    now.Unix(),
		"nbf":    now.Add(-time.Minute).Unix(),
		"exp":    now.Add(time.Hour).Unix(),
		"scopes": scopes,
	}
}
