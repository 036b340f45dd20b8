package persona

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CertificateSource supplies the PEM signing certificate. [*Client]
// implements it with caching; [CertificateFunc] adapts a function.
type CertificateSource interface {
	RetrieveSigningCertificate(ctx context.Context) (string, error)
}

// CertificateFunc adapts a function to [CertificateSource].
type CertificateFunc func(ctx context.Context) (string, error)

// RetrieveSigningCertificate calls f.
func (f CertificateFunc) RetrieveSigningCertificate(ctx context.Context) (string, error) {
	return f(ctx)
}

// Claim names carrying a token's scopes. A token carries exactly one of
// them: the list, or a count when the list was too long to embed.
const (
	claimScopes     = "scopes"
	claimScopeCount = "scopeCount"
)

// signingMethods are the only algorithms accepted. Restricting the list
// rejects alg:none and HMAC tokens forged with the public key.
var signingMethods = []string{"RS256", "RS384", "RS512"}

// Verifier checks signed tokens offline against the authority's signing
// certificate. It is safe for concurrent use.
type Verifier struct {
	certs    CertificateSource
	audience string
	now      func() time.Time
	logger   *slog.Logger
}

// NewVerifier returns a Verifier. An empty audience disables the aud
// check; nil now and logger default to [time.Now] and [slog.Default].
func NewVerifier(certs CertificateSource, audience string, now func() time.Time, logger *slog.Logger) *Verifier {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{certs: certs, audience: audience, now: now, logger: logger}
}

// Verify decides locally whether token grants requiredScope. An empty
// requiredScope only checks the token itself.
//
// Every rejection is a [LocalResult], never an error; the reason is
// logged at debug level. The only error returned is the certificate
// source's.
func (v *Verifier) Verify(ctx context.Context, token, requiredScope string) (LocalResult, error) {
	pem, err := v.certs.RetrieveSigningCertificate(ctx)
	if err != nil {
		return LocalInvalid, err
	}

	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
	if err != nil {
		v.logger.DebugContext(ctx, "persona: signing certificate is not a usable RSA key", "error", err)
		return LocalInvalidPublicKey, nil
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(signingMethods),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key, nil
	}, opts...); err != nil {
		v.logger.DebugContext(ctx, "persona: token rejected by local verification", "error", err)
		return LocalInvalid, nil
	}

	if requiredScope == "" {
		return LocalSuccess, nil
	}

	scopes, listed := scopesOf(claims)
	if !listed {
		if _, counted := claims[claimScopeCount]; counted {
			return LocalNeedsRemote, nil
		}
		v.logger.DebugContext(ctx, "persona: token carries no scopes", "scope", requiredScope)
		return LocalInvalid, nil
	}

	for _, s := range scopes {
		if s == SuperUserScope || s == requiredScope {
			return LocalSuccess, nil
		}
	}
	v.logger.DebugContext(ctx, "persona: token lacks required scope", "scope", requiredScope)
	return LocalInvalid, nil
}

// scopesOf returns the scope list claim and whether one was present. A
// JSON null counts as absent.
func scopesOf(claims jwt.MapClaims) ([]string, bool) {
	switch raw := claims[claimScopes].(type) {
	case []any:
		scopes := make([]string, 0, len(raw))
		for _, s := range raw {
			if str, ok := s.(string); ok {
				scopes = append(scopes, str)
			}
		}
		return scopes, true
	case string:
		return strings.Fields(raw), true
	default:
		return nil, false
	}
}
