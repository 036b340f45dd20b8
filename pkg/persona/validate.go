package persona

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	pserr "github.com/techfromsage/persona-go/pkg/errors"
)

// TokenValidator validates a bearer token for a scope. [*Client]
// implements it; [Middleware] and the gRPC interceptors accept it.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token, scope string) (ValidationResult, error)
}

var _ TokenValidator = (*Client)(nil)

// ValidateToken reports whether token is valid and, when scope is not
// empty, grants scope.
//
// The token is first verified locally. The authority is consulted only
// when the token elides its scopes and a scope was asked for. Negative
// outcomes are results, not errors.
//
// Error codes returned:
//   - [pserr.CodeNoTokenFound]: token is empty
//   - [pserr.CodeCertificateUnavailable]: the signing certificate could
//     not be retrieved
func (c *Client) ValidateToken(ctx context.Context, token, scope string) (ValidationResult, error) {
	ctx, span := startSpan(ctx, c.tracer, "persona.ValidateToken",
		attribute.String("persona.scope", scope))
	defer span.End()

	if token == "" {
		err := pserr.New(pserr.CodeNoTokenFound, "persona: no token to validate")
		finishSpan(span, err)
		return Unknown, err
	}

	local, err := c.verifier.Verify(ctx, token, scope)
	if err != nil {
		finishSpan(span, err)
		return Unknown, err
	}
	span.SetAttributes(attribute.String("persona.local_result", local.String()))

	var result ValidationResult
	switch local {
	case LocalSuccess:
		result = Success
	case LocalInvalidPublicKey:
		result = InvalidPublicKey
	case LocalNeedsRemote:
		result = c.validateRemotely(ctx, token, scope)
	default:
		result = InvalidToken
	}

	span.SetAttributes(attribute.String("persona.result", result.String()))
	return result, nil
}

// ValidateRequest extracts the token from r with [ExtractToken] and
// validates it.
func (c *Client) ValidateRequest(ctx context.Context, r *http.Request, scope string) (ValidationResult, error) {
	token, err := ExtractToken(r)
	if err != nil {
		return Unknown, err
	}
	return c.ValidateToken(ctx, token, scope)
}
