package persona

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	pserr "github.com/techfromsage/persona-go/pkg/errors"
)

const obtainTokenKeyPrefix = "obtain_token:"

// TokenResponse is the authority's answer to a client-credentials grant.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"` // seconds
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope,omitempty"`
}

// ObtainOption configures [Client.ObtainNewToken].
type ObtainOption func(*obtainOptions)

type obtainOptions struct {
	scope   string
	store   TokenStore
	noCache bool
}

// WithScope requests a token for scope instead of the client's default.
// Scoped tokens are cached separately, under the key suffix "@"+scope.
func WithScope(scope string) ObtainOption {
	return func(o *obtainOptions) { o.scope = scope }
}

// WithTokenStore makes store the persistence slot: a token it holds is
// returned as is, and newly obtained tokens are written to it.
func WithTokenStore(store TokenStore) ObtainOption {
	return func(o *obtainOptions) { o.store = store }
}

// WithoutCache bypasses the cache for both reading and writing.
func WithoutCache() ObtainOption {
	return func(o *obtainOptions) { o.noCache = true }
}

// ObtainNewToken acquires a token for clientID with the client-credentials
// grant. In order it tries the token store, the cache, then the
// authority. Tokens are cached until 60 seconds before they expire.
//
// Error codes returned:
//   - [pserr.CodeMissingCredentials]: clientID or clientSecret is empty
//   - [pserr.CodeTokenAcquisitionFailed]: transport failure, non-200
//     status (detail "status") or an unusable body (detail "reason")
func (c *Client) ObtainNewToken(ctx context.Context, clientID, clientSecret string, opts ...ObtainOption) (*TokenResponse, error) {
	var o obtainOptions
	for _, opt := range opts {
		opt(&o)
	}

	ctx, span := startSpan(ctx, c.tracer, "persona.ObtainNewToken",
		attribute.String("persona.client_id", clientID),
		attribute.String("persona.scope", o.scope),
		attribute.Bool("persona.use_cache", !o.noCache),
		attribute.Bool("persona.use_store", o.store != nil))
	defer span.End()

	if o.store != nil {
		if tok := c.readStore(ctx, o.store); tok != nil {
			span.SetAttributes(attribute.String("persona.source", "store"))
			return tok, nil
		}
	}

	if clientID == "" || clientSecret == "" {
		err := pserr.New(pserr.CodeMissingCredentials,
			"persona: client id and client secret are required to obtain a token")
		finishSpan(span, err)
		return nil, err
	}

	key := c.obtainTokenKey(clientID, clientSecret, o.scope)
	if !o.noCache {
		if tok := c.cachedToken(ctx, key); tok != nil {
			span.SetAttributes(attribute.String("persona.source", "cache"))
			c.writeStore(ctx, o.store, tok)
			return tok, nil
		}
	}

	tok, raw, err := c.requestToken(ctx, clientID, clientSecret, o.scope)
	if err != nil {
		finishSpan(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("persona.source", "authority"))

	if !o.noCache {
		if ttl := time.Duration(tok.ExpiresIn)*time.Second - tokenExpiryMargin; ttl > 0 {
			c.cacheSet(ctx, key, string(raw), ttl)
		}
	}
	c.writeStore(ctx, o.store, tok)
	return tok, nil
}

// obtainTokenKey keys an acquired token by the HMAC of the client id
// under the client secret, so knowing a client id alone does not locate
// its cached token.
func (c *Client) obtainTokenKey(clientID, clientSecret, scope string) string {
	mac := hmac.New(sha256.New, []byte(clientSecret))
	mac.Write([]byte(clientID))
	key := obtainTokenKeyPrefix + hex.EncodeToString(mac.Sum(nil))
	if scope != "" {
		key += "@" + scope
	}
	return c.cacheKey(key)
}

func (c *Client) cachedToken(ctx context.Context, key string) *TokenResponse {
	raw, ok := c.cacheGet(ctx, key)
	if !ok {
		return nil
	}
	var tok TokenResponse
	if err := json.Unmarshal([]byte(raw), &tok); err != nil || tok.AccessToken == "" {
		c.logger.WarnContext(ctx, "persona: discarding unreadable cached token", "key", key, "error", err)
		return nil
	}
	return &tok
}

// requestToken performs the client-credentials exchange and returns the
// decoded response along with its raw JSON.
func (c *Client) requestToken(ctx context.Context, clientID, clientSecret, scope string) (*TokenResponse, []byte, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	if scope != "" {
		form.Set("scope", scope)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.cfg.Host+c.cfg.TokenRoute, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(clientID, clientSecret)

	status, body, err := c.send(req)
	if err != nil {
		return nil, nil, pserr.Wrap(err, pserr.CodeTokenAcquisitionFailed,
			"persona: token request failed")
	}
	if status != http.StatusOK {
		return nil, nil, pserr.Newf(pserr.CodeTokenAcquisitionFailed,
			"persona: token request returned status %d", status).
			WithDetail("status", status)
	}
	if len(body) == 0 {
		return nil, nil, pserr.New(pserr.CodeTokenAcquisitionFailed,
			"persona: token response was empty").
			WithDetail("reason", "empty body")
	}

	var tok TokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, nil, pserr.Wrap(err, pserr.CodeTokenAcquisitionFailed,
			"persona: token response could not be decoded").
			WithDetail("reason", "undecodable body")
	}
	if tok.AccessToken == "" {
		return nil, nil, pserr.New(pserr.CodeTokenAcquisitionFailed,
			"persona: token response carried no access_token").
			WithDetail("reason", "missing access_token")
	}
	return &tok, body, nil
}

// readStore returns the stored token, or nil when there is none or the
// store failed.
func (c *Client) readStore(ctx context.Context, store TokenStore) *TokenResponse {
	tok, err := store.Read(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoStoredToken) {
			c.logger.WarnContext(ctx, "persona: token store read failed", "error", err)
		}
		return nil
	}
	return tok
}

func (c *Client) writeStore(ctx context.Context, store TokenStore, tok *TokenResponse) {
	if store == nil {
		return
	}
	if err := store.Write(ctx, tok, time.Duration(tok.ExpiresIn)*time.Second); err != nil {
		c.logger.WarnContext(ctx, "persona: token store write failed", "error", err)
	}
}
