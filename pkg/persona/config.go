package persona

import (
	"net/url"
	"strings"
	"time"

	"github.com/techfromsage/persona-go/pkg/config"
	pserr "github.com/techfromsage/persona-go/pkg/errors"
)

// Defaults applied by [New] to zero-valued [Config] fields.
const (
	DefaultCertificateRoute = "/oauth/keys"
	DefaultUserAgent        = "persona-go"
	DefaultTimeout          = 30 * time.Second
)

// Config describes how to reach a Persona authority. It can be filled by
// hand or loaded with [config.Loader]:
//
//	cfg := config.MustLoad[persona.Config](config.New().WithFile("persona.yaml"))
//	client, err := persona.New(cfg)
type Config struct {
	// Host is the authority base URL, e.g. "https://users.example.com".
	Host string `yaml:"persona_host" json:"persona_host" env:"PERSONA_HOST" required:"true"`

	// TokenRoute is the path of the token endpoint. Tokens are acquired by
	// POSTing to it and validated remotely with HEAD <TokenRoute>/<token>.
	TokenRoute string `yaml:"persona_oauth_route" json:"persona_oauth_route" env:"PERSONA_OAUTH_ROUTE" required:"true"`

	// CertificateRoute is the path serving the PEM signing certificate.
	CertificateRoute string `yaml:"persona_certificate_route" json:"persona_certificate_route" env:"PERSONA_CERTIFICATE_ROUTE" envDefault:"/oauth/keys"`

	UserAgent string `yaml:"user_agent" json:"user_agent" env:"PERSONA_USER_AGENT" envDefault:"persona-go"`

	// Timeout bounds every outbound authority call.
	Timeout time.Duration `yaml:"timeout" json:"timeout" env:"PERSONA_TIMEOUT" envDefault:"30s"`

	// Audience, when set, must appear in the aud claim of signed tokens.
	Audience string `yaml:"audience" json:"audience,omitempty" env:"PERSONA_AUDIENCE"`

	// CacheKeyPrefix namespaces every cache key written by the client,
	// for caches shared between applications.
	CacheKeyPrefix string `yaml:"cache_key_prefix" json:"cache_key_prefix,omitempty" env:"PERSONA_CACHE_KEY_PREFIX"`
}

// Validate reports every missing required key in one
// [pserr.CodeValidationRequired] error, then checks the remaining fields.
func (c *Config) Validate() error {
	if missing := config.MissingRequired(c); len(missing) > 0 {
		return pserr.Newf(pserr.CodeValidationRequired,
			"persona: missing required configuration: %s", strings.Join(missing, ", ")).
			WithDetail("missing", missing)
	}

	u, err := url.Parse(c.Host)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return pserr.Newf(pserr.CodeValidationFormat,
			"persona: persona_host must be an absolute http(s) URL, got %q", c.Host)
	}

	if !strings.HasPrefix(c.TokenRoute, "/") {
		return pserr.Newf(pserr.CodeValidationFormat,
			"persona: persona_oauth_route must start with '/', got %q", c.TokenRoute)
	}
	if c.CertificateRoute != "" && !strings.HasPrefix(c.CertificateRoute, "/") {
		return pserr.Newf(pserr.CodeValidationFormat,
			"persona: persona_certificate_route must start with '/', got %q", c.CertificateRoute)
	}

	if c.Timeout < 0 {
		return pserr.New(pserr.CodeValidation, "persona: timeout must not be negative")
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.Host = strings.TrimRight(c.Host, "/")
	if c.CertificateRoute == "" {
		c.CertificateRoute = DefaultCertificateRoute
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}
