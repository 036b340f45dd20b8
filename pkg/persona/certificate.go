package persona

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	pserr "github.com/techfromsage/persona-go/pkg/errors"
)

const certificateCacheKey = "public_key"

// RetrieveSigningCertificate returns the PEM-encoded key the authority
// signs tokens with. It is served from the cache when possible and
// cached for [CertificateTTL] after a fetch. Concurrent misses share one
// request, which is not cancelled when one of the waiting callers is.
//
// Error codes returned:
//   - [pserr.CodeCertificateUnavailable]: transport failure, non-200
//     status (detail "status") or an empty body
func (c *Client) RetrieveSigningCertificate(ctx context.Context) (string, error) {
	ctx, span := startSpan(ctx, c.tracer, "persona.RetrieveSigningCertificate")
	defer span.End()

	key := c.cacheKey(certificateCacheKey)
	if pem, ok := c.cacheGet(ctx, key); ok && pem != "" {
		span.SetAttributes(attribute.Bool("persona.cache_hit", true))
		return pem, nil
	}
	span.SetAttributes(attribute.Bool("persona.cache_hit", false))

	// The shared fetch must outlive any single caller, so it runs without
	// the caller's cancellation; send still bounds it with Config.Timeout.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.certs.DoChan(key, func() (any, error) {
		pem, err := c.fetchCertificate(fetchCtx)
		if err != nil {
			return "", err
		}
		c.cacheSet(fetchCtx, key, pem, CertificateTTL)
		return pem, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		err := pserr.Wrap(ctx.Err(), pserr.CodeCertificateUnavailable,
			"persona: gave up waiting for signing certificate")
		finishSpan(span, err)
		return "", err
	}

	span.SetAttributes(attribute.Bool("persona.shared_fetch", res.Shared))
	if res.Err != nil {
		finishSpan(span, res.Err)
		return "", res.Err
	}
	return res.Val.(string), nil
}

func (c *Client) fetchCertificate(ctx context.Context) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.cfg.Host+c.cfg.CertificateRoute, nil)
	if err != nil {
		return "", err
	}

	status, body, err := c.send(req)
	if err != nil {
		return "", pserr.Wrap(err, pserr.CodeCertificateUnavailable,
			"persona: failed to retrieve signing certificate")
	}
	if status != http.StatusOK {
		return "", pserr.Newf(pserr.CodeCertificateUnavailable,
			"persona: signing certificate request returned status %d", status).
			WithDetail("status", status)
	}
	if strings.TrimSpace(string(body)) == "" {
		return "", pserr.New(pserr.CodeCertificateUnavailable,
			"persona: signing certificate response was empty").
			WithDetail("reason", "empty body")
	}
	return string(body), nil
}
