package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Backend BackendConfig     `yaml:"backend"`
	Search  SearchConfig      `yaml:"search"`
	Auth    AuthConfig        `yaml:"auth"`
	SSE     SSEConfig         `yaml:"sse"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Backend.Validate(); err != nil {
		return err
	}
	if err := c.SSE.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" env:"HEADSTONE_LOG_LEVEL"`
	HTTP     HTTPConfig `yaml:"http"`
	// Timezone used for calendar days and datetime-local form values.
	Timezone string `yaml:"timezone" env:"HEADSTONE_TIMEZONE"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	return nil
}

// Location resolves Timezone. An empty value means the host's local zone.
func (c *ApplicationConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" env:"HEADSTONE_HTTP_PORT"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds the path of the database backing the session store.
type SQLiteConfig struct {
	Path string `yaml:"path" env:"HEADSTONE_SQLITE_PATH"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// BackendConfig points at the memorial REST backend. An empty BaseURL
// disables every feature that needs it.
type BackendConfig struct {
	BaseURL string        `yaml:"base_url" env:"HEADSTONE_BACKEND_URL"`
	Timeout time.Duration `yaml:"timeout" env:"HEADSTONE_BACKEND_TIMEOUT"`
}

// Enabled reports whether a backend is configured.
func (c *BackendConfig) Enabled() bool {
	return c.BaseURL != ""
}

// Validate validates the backend configuration.
func (c *BackendConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.By(absoluteURL)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

func absoluteURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("must be an absolute http(s) URL")
	}
	return nil
}

// SearchConfig configures the optional search catalog override.
type SearchConfig struct {
	// ContentPath is a YAML catalog replacing the built-in search entries.
	ContentPath string `yaml:"content_path" env:"HEADSTONE_SEARCH_CONTENT"`
	// Watch reloads ContentPath when it changes on disk.
	Watch bool `yaml:"watch" env:"HEADSTONE_SEARCH_WATCH"`
}

// SSEConfig holds event stream tuning.
type SSEConfig struct {
	RefreshThrottle time.Duration `yaml:"refresh_throttle" env:"HEADSTONE_SSE_REFRESH_THROTTLE"`
}

// Validate validates the SSE configuration.
func (c *SSEConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RefreshThrottle, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" env:"HEADSTONE_AUTH_MODE"`
	Token string `yaml:"token" env:"HEADSTONE_AUTH_TOKEN"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./headstone.db",
		},
		Backend: BackendConfig{
			Timeout: 15 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		SSE: SSEConfig{
			RefreshThrottle: 2 * time.Second,
		},
	}
}
