// Package errors provides the structured error type shared by every
// persona-go package. Each error carries a machine-readable code, a
// human-readable message, an optional cause and optional details.
//
// # Error Categories
//
//   - Validation errors: missing configuration, missing client credentials
//   - Authentication errors: no token on the request, malformed
//     Authorization header, rejected client-credentials exchange
//   - Authorization errors: token lacks a required scope
//   - Internal errors: configuration loading, cache backend failures
//   - Unavailable errors: the Persona authority cannot be reached
//   - Timeout errors: a cache backend or the authority did not answer in time
//
// Validation outcomes of a bearer token are NOT errors; they are returned
// as persona.ValidationResult values. Errors are reserved for conditions the
// caller has to act upon.
//
// # Usage
//
//	err := errors.New(errors.CodeMissingCredentials, "persona: client id and secret are required")
//
//	if errors.HasCode(err, errors.CodeNoTokenFound) {
//	    // respond 401
//	}
//
//	if e, ok := errors.AsError(err); ok {
//	    logger.Error("token request failed", "code", e.Code, "status", e.Details["status"])
//	}
package errors
