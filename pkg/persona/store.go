package persona

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	pserr "github.com/techfromsage/persona-go/pkg/errors"
)

// ErrNoStoredToken is returned by [TokenStore.Read] when the store holds
// no token.
var ErrNoStoredToken = errors.New("persona: no stored token")

// TokenStore is a caller-owned slot holding the last acquired token,
// typically scoped to one user session. Stores do not check expiry on
// behalf of [Client.ObtainNewToken]; a stored token is returned as is.
type TokenStore interface {
	Read(ctx context.Context) (*TokenResponse, error)
	Write(ctx context.Context, tok *TokenResponse, ttl time.Duration) error
}

// TokenCookieName is the cookie [CookieStore] keeps the token in.
const TokenCookieName = "access_token"

// CookieStore keeps the token in a cookie on the current request and
// response. It is request scoped and not safe for concurrent use.
type CookieStore struct {
	w http.ResponseWriter
	r *http.Request

	// Secure marks the cookie for HTTPS only.
	Secure bool
	// Path is the cookie path. Defaults to "/".
	Path string

	written *TokenResponse
}

var _ TokenStore = (*CookieStore)(nil)

// NewCookieStore returns a store reading cookies from r and setting them
// on w.
func NewCookieStore(w http.ResponseWriter, r *http.Request) *CookieStore {
	return &CookieStore{w: w, r: r, Secure: true, Path: "/"}
}

// Read returns the token written earlier through this store, else the
// one in the request cookie.
func (s *CookieStore) Read(_ context.Context) (*TokenResponse, error) {
	if s.written != nil {
		tok := *s.written
		return &tok, nil
	}

	cookie, err := s.r.Cookie(TokenCookieName)
	if errors.Is(err, http.ErrNoCookie) || (err == nil && cookie.Value == "") {
		return nil, ErrNoStoredToken
	}
	if err != nil {
		return nil, pserr.Wrap(err, pserr.CodeValidationFormat, "persona: unreadable token cookie")
	}

	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil, pserr.Wrap(err, pserr.CodeValidationFormat, "persona: token cookie is not base64url")
	}
	var tok TokenResponse
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, pserr.Wrap(err, pserr.CodeValidationFormat, "persona: token cookie is not a token response")
	}
	return &tok, nil
}

// Write sets the cookie to expire after ttl.
func (s *CookieStore) Write(_ context.Context, tok *TokenResponse, ttl time.Duration) error {
	raw, err := json.Marshal(tok)
	if err != nil {
		return pserr.Wrap(err, pserr.CodeInternal, "persona: failed to encode token cookie")
	}

	path := s.Path
	if path == "" {
		path = "/"
	}
	http.SetCookie(s.w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     path,
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	saved := *tok
	s.written = &saved
	return nil
}

// MemoryStore is a process-local [TokenStore] that forgets its token
// once the ttl given to Write has passed. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	tok     *TokenResponse
	expires time.Time
	now     func() time.Time
}

var _ TokenStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store. A nil now defaults to
// [time.Now].
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{now: now}
}

// Read returns a copy of the stored token.
func (s *MemoryStore) Read(_ context.Context) (*TokenResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tok == nil {
		return nil, ErrNoStoredToken
	}
	if !s.expires.IsZero() && !s.now().Before(s.expires) {
		s.tok = nil
		return nil, ErrNoStoredToken
	}
	tok := *s.tok
	return &tok, nil
}

// Write replaces the stored token. A ttl of zero or less never expires.
func (s *MemoryStore) Write(_ context.Context, tok *TokenResponse, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := *tok
	s.tok = &saved
	s.expires = time.Time{}
	if ttl > 0 {
		s.expires = s.now().Add(ttl)
	}
	return nil
}
