package errors

// Code is a machine-readable error code of the form CATEGORY_XXX.
// Codes are stable once assigned.
type Code string

// Error code categories:
//
//	VAL_xxx     - Validation errors (400 Bad Request)
//	AUTH_xxx    - Authentication errors (401 Unauthorized)
//	AUTHZ_xxx   - Authorization errors (403 Forbidden)
//	NF_xxx      - Not found errors (404 Not Found)
//	INT_xxx     - Internal errors (500 Internal Server Error)
//	UNAVAIL_xxx - Service unavailable (503 Service Unavailable)
//	TIMEOUT_xxx - Timeout errors (504 Gateway Timeout)
const (
	// CodeValidation indicates a general validation failure.
	CodeValidation Code = "VAL_001"

	// CodeValidationRequired indicates one or more required fields are
	// missing. Persona configuration errors use this code.
	CodeValidationRequired Code = "VAL_002"

	// CodeValidationFormat indicates a field has an invalid format.
	CodeValidationFormat Code = "VAL_003"

	// CodeMissingCredentials indicates a client id or client secret was
	// not supplied to a token request.
	CodeMissingCredentials Code = "VAL_004"

	// CodeAuthentication indicates a general authentication failure.
	CodeAuthentication Code = "AUTH_001"

	// CodeAuthenticationExpired indicates the token has expired.
	CodeAuthenticationExpired Code = "AUTH_002"

	// CodeAuthenticationInvalid indicates the token is malformed.
	CodeAuthenticationInvalid Code = "AUTH_003"

	// CodeNoTokenFound indicates no bearer token was present on the
	// request (header, query string or form body).
	CodeNoTokenFound Code = "AUTH_004"

	// CodeMalformedAuthHeader indicates an Authorization header was
	// present but did not have the form "Bearer <token>".
	CodeMalformedAuthHeader Code = "AUTH_005"

	// CodeTokenAcquisitionFailed indicates the authority refused or
	// failed a client-credentials token request. The authority's HTTP
	// status is carried in the "status" detail when known.
	CodeTokenAcquisitionFailed Code = "AUTH_006"

	// CodeAuthorization indicates a general authorization failure.
	CodeAuthorization Code = "AUTHZ_001"

	// CodeAuthorizationInsufficientScope indicates the token lacks a
	// required scope.
	CodeAuthorizationInsufficientScope Code = "AUTHZ_002"

	// CodeNotFound indicates a general not found error.
	CodeNotFound Code = "NF_001"

	// CodeInternal indicates a general internal error.
	CodeInternal Code = "INT_001"

	// CodeInternalCache indicates a cache backend operation failed.
	CodeInternalCache Code = "INT_002"

	// CodeInternalConfiguration indicates configuration could not be
	// loaded or parsed.
	CodeInternalConfiguration Code = "INT_003"

	// CodeUnavailable indicates a general service unavailable error.
	CodeUnavailable Code = "UNAVAIL_001"

	// CodeUnavailableDependency indicates a dependency (cache server,
	// database) is unavailable.
	CodeUnavailableDependency Code = "UNAVAIL_002"

	// CodeCertificateUnavailable indicates the authority's signing
	// certificate could not be retrieved.
	CodeCertificateUnavailable Code = "UNAVAIL_003"

	// CodeTimeout indicates a general timeout error.
	CodeTimeout Code = "TIMEOUT_001"

	// CodeTimeoutCache indicates a cache backend operation timed out.
	CodeTimeoutCache Code = "TIMEOUT_002"

	// CodeTimeoutDependency indicates a call to the authority timed out.
	CodeTimeoutDependency Code = "TIMEOUT_003"
)

// String returns the string representation of the error code.
func (c Code) String() string {
	return string(c)
}

// Category returns the category prefix of the error code (e.g., "VAL", "AUTH").
func (c Code) Category() string {
	s := string(c)
	for i, r := range s {
		if r == '_' {
			return s[:i]
		}
	}
	return s
}
