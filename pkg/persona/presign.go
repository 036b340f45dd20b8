package persona

import "github.com/techfromsage/persona-go/pkg/signature"

// PresignURL signs rawURL with secret so that it stays valid until
// expiry, using the client's clock. See [signature.Sign] for the accepted
// expiry forms; an empty expiry means [signature.DefaultExpiry].
func (c *Client) PresignURL(rawURL, secret, expiry string) (string, error) {
	return signature.SignAt(rawURL, secret, expiry, c.now())
}

// IsPresignedURLValid reports whether rawURL carries an unexpired
// signature made with secret.
func (c *Client) IsPresignedURLValid(rawURL, secret string) bool {
	return signature.IsValidAt(rawURL, secret, c.now())
}
