package persona

import (
	"context"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
)

const (
	accessTokenKeyPrefix = "access_token:"

	// validatedMarker is the cache value recording a positive remote
	// validation.
	validatedMarker = "OK"
)

// accessTokenKey keys a remote validation. The scope is part of the key
// so validations of one token for different scopes never collide.
func (c *Client) accessTokenKey(token, scope string) string {
	key := accessTokenKeyPrefix + token
	if scope != "" {
		key += "@" + scope
	}
	return c.cacheKey(key)
}

// validateRemotely asks the authority whether token grants scope,
// consulting the cache first. Transport failures and any status other
// than 204 yield [InvalidToken]; nothing here is returned as an error.
func (c *Client) validateRemotely(ctx context.Context, token, scope string) ValidationResult {
	ctx, span := startSpan(ctx, c.tracer, "persona.validateRemotely",
		attribute.String("persona.scope", scope))
	defer span.End()

	key := c.accessTokenKey(token, scope)
	if v, ok := c.cacheGet(ctx, key); ok && v == validatedMarker {
		span.SetAttributes(attribute.Bool("persona.cache_hit", true))
		return Success
	}
	span.SetAttributes(attribute.Bool("persona.cache_hit", false))

	target := c.cfg.Host + c.cfg.TokenRoute + "/" + url.PathEscape(token)
	if scope != "" {
		target += "?" + url.Values{"scope": {scope}}.Encode()
	}

	req, err := c.newRequest(ctx, http.MethodHead, target, nil)
	if err != nil {
		c.logger.DebugContext(ctx, "persona: remote validation request failed", "error", err)
		return InvalidToken
	}
	req.Header.Set(HeaderAuthorization, "Bearer "+token)

	status, _, err := c.send(req)
	if err != nil {
		c.logger.DebugContext(ctx, "persona: remote validation request failed", "error", err)
		return InvalidToken
	}
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if status != http.StatusNoContent {
		c.logger.DebugContext(ctx, "persona: authority rejected token", "status", status, "scope", scope)
		return InvalidToken
	}

	c.cacheSet(ctx, key, validatedMarker, ValidatedTokenTTL)
	return Success
}
