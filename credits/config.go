package credits

import (
	"net/url"
	"os"
	"time"

	internalconfig "github.com/developersupreme/supreme-ai-sdk-sub000/internal/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Defaults applied by Config.normalize.
const (
	DefaultParentTimeout          = 3 * time.Second
	DefaultRequestTimeout         = 5 * time.Second
	DefaultTokenRefreshInterval   = 10 * time.Minute
	DefaultBalanceRefreshInterval = 30 * time.Second
	DefaultStoragePrefix          = "creditSystem_"
)

// Features toggles the optional subsystems activated when the client reaches
// the ready state.
type Features struct {
	Credits  bool
	Personas bool
}

// Config is the public configuration surface of the SDK.
type Config struct {
	// APIBaseURL is the credits API root. Falls back to the
	// SUPREME_API_BASE_URL environment variable.
	APIBaseURL string
	// AuthURL is the authentication endpoint root. Falls back to
	// SUPREME_AUTH_URL.
	AuthURL string
	// PersonasBaseURL is the personas API root. Defaults to APIBaseURL.
	PersonasBaseURL string

	// ParentTimeout bounds the embedded-bootstrap wait for a parent token
	// response before falling back to standalone. Default 3s.
	ParentTimeout time.Duration
	// RequestTimeout bounds parent round-trips for user state,
	// organizations and personas. Default 5s.
	RequestTimeout time.Duration
	// TokenRefreshInterval is the periodic token refresh cadence while
	// ready. Default 10m.
	TokenRefreshInterval time.Duration
	// BalanceRefreshInterval is the periodic balance refetch cadence.
	// Default 30s; DisableBalanceRefresh turns the timer off entirely.
	BalanceRefreshInterval time.Duration
	DisableBalanceRefresh  bool

	// AllowedOrigins is the inbound message allow-list. Leaving it nil
	// accepts only the channel's own origin. An explicitly empty (non-nil)
	// slice accepts any origin, which mirrors the original protocol's
	// permissive default and should be a deliberate choice.
	AllowedOrigins []string

	// StoragePrefix namespaces the persisted session. Default "creditSystem_".
	StoragePrefix string
	// Mode forces embedded or standalone; ModeAuto detects from the
	// transport.
	Mode Mode
	// Features gates the credits and personas subsystems; nil enables both.
	Features *Features

	// Debug enables logging to stderr unless a Logger is supplied.
	Debug  bool
	Logger *zerolog.Logger

	// OnAuthRequired is invoked when the client resolves to the
	// auth-required state and the host should show a login UI.
	OnAuthRequired func(reason string)
	// OnTokenExpired is invoked when a refresh cycle fails. The client
	// never forces a logout on its own.
	OnTokenExpired func()
}

func (c *Config) normalize() error {
	c.APIBaseURL = internalconfig.DefaultAPIBaseURL(c.APIBaseURL)
	c.AuthURL = internalconfig.DefaultAuthURL(c.AuthURL)
	c.PersonasBaseURL = internalconfig.DefaultPersonasBaseURL(c.PersonasBaseURL)
	if c.APIBaseURL == "" {
		return errors.New("[Config] APIBaseURL is required")
	}
	if c.AuthURL == "" {
		return errors.New("[Config] AuthURL is required")
	}
	if c.PersonasBaseURL == "" {
		c.PersonasBaseURL = c.APIBaseURL
	}
	if c.ParentTimeout <= 0 {
		c.ParentTimeout = DefaultParentTimeout
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.TokenRefreshInterval <= 0 {
		c.TokenRefreshInterval = DefaultTokenRefreshInterval
	}
	if c.BalanceRefreshInterval <= 0 {
		c.BalanceRefreshInterval = DefaultBalanceRefreshInterval
	}
	if c.StoragePrefix == "" {
		c.StoragePrefix = DefaultStoragePrefix
	}
	if c.Mode == "" {
		c.Mode = ModeAuto
	}
	if c.Features == nil {
		c.Features = &Features{Credits: true, Personas: true}
	}
	return nil
}

func (c *Config) logger() zerolog.Logger {
	if c.Logger != nil {
		return *c.Logger
	}
	if c.Debug {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.Nop()
}

// apiRootURL strips the path from the API base URL; the agents endpoint
// lives at the API root rather than under the credits prefix.
func apiRootURL(baseURL string) string {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" {
		return baseURL
	}
	parsed.Path = ""
	parsed.RawQuery = ""
	return parsed.String()
}
