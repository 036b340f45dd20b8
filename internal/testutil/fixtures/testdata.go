// Package fixtures holds constants shared across persona-go tests so
// suites agree on credentials, routes and scopes.
package fixtures

// Authority routes as served by a Persona deployment.
const (
	TokenRoute       = "/oauth/tokens"
	CertificateRoute = "/oauth/keys"
)

// Client credentials used against fake authorities.
const (
	ClientID     = "test-client"
	ClientSecret = "test-client-secret"
	AltClientID  = "other-client"
)

// Scopes used in validation tests.
const (
	Scope      = "standard_user"
	OtherScope = "admin_reports"
	SuperScope = "su"
)

// Presigning values.
const (
	SigningSecret = "mysecretkey"
	SigningURL    = "http://someurl/someroute"
)

// ConfigYAML is a minimal valid persona configuration file.
const ConfigYAML = `persona_host: https://persona.test
persona_oauth_route: /oauth/tokens
timeout: 5s
`
