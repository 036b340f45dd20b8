package persona

// ValidationResult is the outcome of validating a token. Only [Success]
// authorizes; the other values exist for diagnostics. The zero value is
// [Unknown].
type ValidationResult int

const (
	Unknown ValidationResult = iota
	Success
	InvalidToken
	InvalidPublicKey
	InvalidSignature
	EmptyResponse
	Unauthorised
)

var validationResultNames = [...]string{
	Unknown:          "unknown",
	Success:          "success",
	InvalidToken:     "invalid_token",
	InvalidPublicKey: "invalid_public_key",
	InvalidSignature: "invalid_signature",
	EmptyResponse:    "empty_response",
	Unauthorised:     "unauthorised",
}

func (r ValidationResult) String() string {
	if r < 0 || int(r) >= len(validationResultNames) {
		return "unknown"
	}
	return validationResultNames[r]
}

// OK reports whether r authorizes the request.
func (r ValidationResult) OK() bool {
	return r == Success
}

// LocalResult is what [Verifier.Verify] decides without asking the
// authority.
type LocalResult int

const (
	// LocalInvalid covers every structural, cryptographic, temporal and
	// scope failure.
	LocalInvalid LocalResult = iota
	LocalSuccess
	// LocalInvalidPublicKey means the signing certificate could not be
	// parsed.
	LocalInvalidPublicKey
	// LocalNeedsRemote means the token carries a scope count instead of a
	// scope list, so only the authority can answer a scope check.
	LocalNeedsRemote
)

func (r LocalResult) String() string {
	switch r {
	case LocalSuccess:
		return "success"
	case LocalInvalidPublicKey:
		return "invalid_public_key"
	case LocalNeedsRemote:
		return "needs_remote"
	default:
		return "invalid"
	}
}
