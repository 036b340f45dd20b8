// Package persona is a client for the Persona identity service.
//
// A [Client] validates bearer tokens, preferring local RS256 verification
// against the authority's signing certificate and falling back to the
// authority only when a token's scopes were elided. It also acquires
// tokens with the OAuth client-credentials grant, presigns URLs and
// exposes the signing certificate.
//
// Results are cached through an optional [cache.Cache]. Cache failures
// are logged and treated as misses: the cache can make a call cheaper but
// never changes its outcome.
//
// HTTP servers use [Middleware]; gRPC servers use
// [UnaryServerInterceptor] and [StreamServerInterceptor].
package persona

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/techfromsage/persona-go/pkg/cache"
	pserr "github.com/techfromsage/persona-go/pkg/errors"
)

const tracerName = "github.com/techfromsage/persona-go/pkg/persona"

// Cache lifetimes.
const (
	// ValidatedTokenTTL bounds how long a remotely validated token is
	// trusted without asking the authority again, and so how long a
	// revoked token can still pass.
	ValidatedTokenTTL = 60 * time.Second

	// CertificateTTL is how long the signing certificate is cached.
	CertificateTTL = 600 * time.Second

	// tokenExpiryMargin is subtracted from expires_in when caching an
	// acquired token so the cached copy lapses before the token does.
	tokenExpiryMargin = 60 * time.Second
)

// SuperUserScope grants every scope.
const SuperUserScope = "su"

// HeaderRequestID carries a per-call identifier on outbound requests.
const HeaderRequestID = "X-Request-Id"

// maxResponseSize caps how much of an authority response body is read.
const maxResponseSize = 1 << 20

// HTTPClient sends requests to the authority. [*http.Client] satisfies
// it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a [Client].
type Option func(*Client)

// WithCache sets the cache backend. Without one every lookup misses.
func WithCache(c cache.Cache) Option {
	return func(cl *Client) { cl.cache = c }
}

// WithHTTPClient replaces the default [*http.Client].
func WithHTTPClient(h HTTPClient) Option {
	return func(cl *Client) { cl.http = h }
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// WithClock sets the time source used for token and URL expiry checks.
func WithClock(now func() time.Time) Option {
	return func(cl *Client) { cl.now = now }
}

// WithTracerProvider sets the provider spans are created from. Defaults
// to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cl *Client) { cl.tracer = tp.Tracer(tracerName) }
}

// Client talks to one Persona authority. It is immutable after [New] and
// safe for concurrent use.
type Client struct {
	cfg      Config
	cache    cache.Cache
	http     HTTPClient
	logger   *slog.Logger
	now      func() time.Time
	tracer   trace.Tracer
	verifier *Verifier

	// certs collapses concurrent certificate fetches into one request.
	certs singleflight.Group
}

// New validates cfg, fills its defaults and returns a Client.
//
// Error codes returned:
//   - [pserr.CodeValidationRequired]: persona_host or persona_oauth_route
//     is missing, all missing keys listed
//   - [pserr.CodeValidationFormat], [pserr.CodeValidation]: a field is
//     malformed
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	c := &Client{
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: cfg.Timeout}
	}
	c.verifier = NewVerifier(c, cfg.Audience, c.now, c.logger)
	return c, nil
}

// Config returns the effective configuration, defaults included.
func (c *Client) Config() Config {
	return c.cfg
}

// Verifier returns the local verifier the client validates with.
func (c *Client) Verifier() *Verifier {
	return c.verifier
}

// ---------------------------------------------------------------------------
// Cache access
// ---------------------------------------------------------------------------

func (c *Client) cacheKey(key string) string {
	return c.cfg.CacheKeyPrefix + key
}

// cacheGet returns the cached value and whether there was one. Backend
// errors are logged and reported as a miss.
func (c *Client) cacheGet(ctx context.Context, key string) (string, bool) {
	if c.cache == nil {
		return "", false
	}
	v, err := c.cache.Get(ctx, key)
	if err != nil {
		if !cache.IsMiss(err) {
			c.logger.WarnContext(ctx, "persona: cache read failed", "key", key, "error", err)
		}
		return "", false
	}
	return v, true
}

// cacheSet stores value, logging and dropping backend errors.
func (c *Client) cacheSet(ctx context.Context, key, value string, ttl time.Duration) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, value, ttl); err != nil {
		c.logger.WarnContext(ctx, "persona: cache write failed", "key", key, "error", err)
	}
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, pserr.Wrap(err, pserr.CodeInternal, "persona: failed to build request")
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set(HeaderRequestID, uuid.NewString())
	return req, nil
}

// send performs req within the configured timeout and returns the status
// code and body. No retries are made.
func (c *Client) send(req *http.Request) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(req.Context(), c.cfg.Timeout)
	defer cancel()

	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

// ---------------------------------------------------------------------------
// Tracing helpers
// ---------------------------------------------------------------------------

func startSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// finishSpan records err on span and marks it failed.
func finishSpan(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
