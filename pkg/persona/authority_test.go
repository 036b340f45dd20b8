package persona

import (
	"context"
	"crypto/rsa"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/techfromsage/persona-go/internal/testutil"
	"github.com/techfromsage/persona-go/internal/testutil/fixtures"
	"github.com/techfromsage/persona-go/pkg/cache"
)

// testNow is the fixed instant test clients run at.
var testNow = time.Unix(1700000000, 0)

func fixedClock() time.Time { return testNow }

// fakeAuthority is an httptest Persona serving the certificate, token and
// validation endpoints, counting calls to each.
type fakeAuthority struct {
	server *httptest.Server
	key    *rsa.PrivateKey

	mu           sync.Mutex
	certBody     string
	certStatus   int
	tokenStatus  int
	tokenBody    string
	verifyStatus int
	lastForm     url.Values
	lastBasic    [2]string
	lastVerify   *http.Request
	lastHeaders  http.Header

	certCalls   atomic.Int32
	tokenCalls  atomic.Int32
	verifyCalls atomic.Int32
}

func newFakeAuthority(t *testing.T) *fakeAuthority {
	t.Helper()
	key := testutil.GenerateRSAKey(t)
	fa := &fakeAuthority{
		key:          key,
		certBody:     testutil.PublicKeyPEM(t, key),
		certStatus:   http.StatusOK,
		tokenStatus:  http.StatusOK,
		tokenBody:    `{"access_token":"issued-token","expires_in":3600,"token_type":"bearer","scope":"standard_user"}`,
		verifyStatus: http.StatusNoContent,
	}
	fa.server = httptest.NewServer(http.HandlerFunc(fa.serve))
	t.Cleanup(fa.server.Close)
	return fa
}

func (fa *fakeAuthority) serve(w http.ResponseWriter, r *http.Request) {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	fa.lastHeaders = r.Header.Clone()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == fixtures.CertificateRoute:
		fa.certCalls.Add(1)
		w.WriteHeader(fa.certStatus)
		_, _ = io.WriteString(w, fa.certBody)

	case r.Method == http.MethodPost && r.URL.Path == fixtures.TokenRoute:
		fa.tokenCalls.Add(1)
		_ = r.ParseForm()
		fa.lastForm = r.PostForm
		id, secret, _ := r.BasicAuth()
		fa.lastBasic = [2]string{id, secret}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(fa.tokenStatus)
		_, _ = io.WriteString(w, fa.tokenBody)

	case r.Method == http.MethodHead && strings.HasPrefix(r.URL.Path, fixtures.TokenRoute+"/"):
		fa.verifyCalls.Add(1)
		fa.lastVerify = r.Clone(context.Background())
		w.WriteHeader(fa.verifyStatus)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (fa *fakeAuthority) set(fn func(fa *fakeAuthority)) {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	fn(fa)
}

func (fa *fakeAuthority) config() Config {
	return Config{
		Host:             fa.server.URL,
		TokenRoute:       fixtures.TokenRoute,
		CertificateRoute: fixtures.CertificateRoute,
		Timeout:          5 * time.Second,
	}
}

// token signs a token with the authority's key, valid at testNow.
func (fa *fakeAuthority) token(t *testing.T, scopes ...string) string {
	t.Helper()
	return testutil.SignToken(t, fa.key, testutil.Claims(testNow, scopes...))
}

// countedToken signs a token carrying scopeCount instead of scopes.
func (fa *fakeAuthority) countedToken(t *testing.T, count int) string {
	t.Helper()
	claims := testutil.Claims(testNow)
	delete(claims, "scopes")
	claims["scopeCount"] = count
	return testutil.SignToken(t, fa.key, claims)
}

// newTestClient returns a client for fa with a memory cache and the
// fixed clock; opts are applied after those.
func newTestClient(t *testing.T, fa *fakeAuthority, opts ...Option) (*Client, *cache.Memory) {
	t.Helper()
	mem := cache.NewMemory(0)
	base := []Option{
		WithHTTPClient(fa.server.Client()),
		WithCache(mem),
		WithClock(fixedClock),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	c, err := New(fa.config(), append(base, opts...)...)
	require.NoError(t, err)
	return c, mem
}

// httpClientFunc adapts a function to HTTPClient.
type httpClientFunc func(*http.Request) (*http.Response, error)

func (f httpClientFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

// failingCache errors on every call.
type failingCache struct {
	gets atomic.Int32
	sets atomic.Int32
}

var errCacheDown = errors.New("cache backend unreachable")

func (f *failingCache) Get(context.Context, string) (string, error) {
	f.gets.Add(1)
	return "", errCacheDown
}

func (f *failingCache) Set(context.Context, string, string, time.Duration) error {
	f.sets.Add(1)
	return errCacheDown
}

// recordingCache is a memory cache remembering the ttl of every Set.
type recordingCache struct {
	*cache.Memory
	mu   sync.Mutex
	ttls map[string]time.Duration
}

func newRecordingCache() *recordingCache {
	return &recordingCache{Memory: cache.NewMemory(0), ttls: map[string]time.Duration{}}
}

func (r *recordingCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	r.mu.Lock()
	r.ttls[key] = ttl
	r.mu.Unlock()
	return r.Memory.Set(ctx, key, value, ttl)
}

func (r *recordingCache) ttl(key string) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ttl, ok := r.ttls[key]
	return ttl, ok
}
