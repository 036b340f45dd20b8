// Package signature creates and checks presigned URLs.
//
// A presigned URL carries an "expires" query parameter (Unix seconds) and a
// "signature" query parameter holding the hex-encoded HMAC-SHA256 of the
// URL that precedes it, keyed by a shared secret. Any URL fragment stays
// after the query string and is covered by the signature.
//
//	signed, err := signature.Sign("https://cdn.example/file.pdf", secret, "+1 hour")
//	ok := signature.IsValid(signed, secret)
//
// The holder of a presigned URL needs no credentials and the verifier
// keeps no state: possession of an unexpired URL with a matching
// signature is the authorization.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
	"time"

	pserr "github.com/techfromsage/persona-go/pkg/errors"
)

const (
	// ExpiresParam is the query parameter holding the expiry epoch.
	ExpiresParam = "expires"

	// SignatureParam is the query parameter holding the hex HMAC.
	SignatureParam = "signature"

	// DefaultExpiry is used when Sign is given an empty expiry.
	DefaultExpiry = "+15 minutes"
)

// Sign presigns rawURL with secret using the current time as the
// reference for relative expiries. See [SignAt].
func Sign(rawURL, secret, expiry string) (string, error) {
	return SignAt(rawURL, secret, expiry, time.Now())
}

// SignAt presigns rawURL. expiry is either an absolute Unix epoch or a
// relative expression understood by [ParseExpiry], resolved against now.
// An empty expiry means [DefaultExpiry].
func SignAt(rawURL, secret, expiry string, now time.Time) (string, error) {
	if rawURL == "" {
		return "", pserr.New(pserr.CodeValidationRequired, "signature: url is required")
	}
	if secret == "" {
		return "", pserr.New(pserr.CodeValidationRequired, "signature: secret is required")
	}
	if expiry == "" {
		expiry = DefaultExpiry
	}

	expires, err := ParseExpiry(expiry, now)
	if err != nil {
		return "", err
	}

	base, fragment := splitFragment(rawURL)
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	base += sep + ExpiresParam + "=" + strconv.FormatInt(expires, 10)

	sig := compute(base+fragment, secret)
	return base + "&" + SignatureParam + "=" + sig + fragment, nil
}

// IsValid reports whether rawURL carries an unexpired signature produced
// with secret. See [IsValidAt].
func IsValid(rawURL, secret string) bool {
	return IsValidAt(rawURL, secret, time.Now())
}

// IsValidAt reports whether rawURL carries both parameters, has not
// expired relative to now (an expiry equal to now is still valid), and
// has a signature matching the HMAC of the URL with the signature
// parameter removed.
func IsValidAt(rawURL, secret string, now time.Time) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	query := u.Query()

	expiresRaw := lastValue(query, ExpiresParam)
	sig := lastValue(query, SignatureParam)
	if expiresRaw == "" || sig == "" {
		return false
	}

	expires, err := strconv.ParseInt(expiresRaw, 10, 64)
	if err != nil || expires < now.Unix() {
		return false
	}

	marker := "&" + SignatureParam + "=" + sig
	i := strings.LastIndex(rawURL, marker)
	if i < 0 {
		return false
	}
	unsigned := rawURL[:i] + rawURL[i+len(marker):]

	return hmac.Equal([]byte(compute(unsigned, secret)), []byte(sig))
}

// lastValue returns the final value of key. Sign appends its parameters
// after any the URL already carried, so the last occurrence is the one
// it wrote.
func lastValue(query url.Values, key string) string {
	values := query[key]
	if len(values) == 0 {
		return ""
	}
	return values[len(values)-1]
}

func compute(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func splitFragment(rawURL string) (string, string) {
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		return rawURL[:i], rawURL[i:]
	}
	return rawURL, ""
}
