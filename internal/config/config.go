// Package config loads server settings from defaults, an optional YAML file,
// GAPI_* environment variables and command line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hal9000y/gapi-gateway/internal/email"
	"github.com/hal9000y/gapi-gateway/internal/event"
)

// EnvPrefix namespaces environment overrides, e.g. GAPI_HTTP_ADDR.
const EnvPrefix = "GAPI"

// OAuth client credentials keep their historical variable names.
const (
	EnvClientID     = "OAUTH_GOOGLE_CLIENT_ID"
	EnvClientSecret = "OAUTH_GOOGLE_CLIENT_SECRET"
)

// Token store kinds.
const (
	StoreFile    = "file"
	StoreKeyring = "keyring"
)

// Config is the complete server configuration.
type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Calendar CalendarConfig `mapstructure:"calendar"`
	Gmail    GmailConfig    `mapstructure:"gmail"`
	Reply    ReplyConfig    `mapstructure:"reply"`
	Log      LogConfig      `mapstructure:"log"`
	MCP      MCPConfig      `mapstructure:"mcp"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`

	// UpstreamTimeout bounds all Google calls made for one request.
	UpstreamTimeout time.Duration `mapstructure:"upstream_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type AuthConfig struct {
	Store       string `mapstructure:"store"`
	TokenFile   string `mapstructure:"token_file"`
	KeyringDir  string `mapstructure:"keyring_dir"`
	KeyringPass string `mapstructure:"keyring_password"`
	// RedirectURL defaults to http://<listen addr>/oauth when empty.
	RedirectURL string `mapstructure:"redirect_url"`

	ClientID     string `mapstructure:"-"`
	ClientSecret string `mapstructure:"-"`
}

type CalendarConfig struct {
	ID              string `mapstructure:"id"`
	DefaultTimeZone string `mapstructure:"default_time_zone"`
	MaxResults      int64  `mapstructure:"max_results"`
}

type GmailConfig struct {
	MaxResults       int64 `mapstructure:"max_results"`
	FetchConcurrency int   `mapstructure:"fetch_concurrency"`
}

type ReplyConfig struct {
	SubjectSource email.SubjectSource `mapstructure:"subject_source"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MCPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Stdio additionally serves the tools over stdin/stdout.
	Stdio   bool `mapstructure:"stdio"`
}

var defaults = map[string]any{
	"http.addr":             ":8000",
	"http.upstream_timeout": 30 * time.Second,
	"http.read_timeout":     15 * time.Second,
	"http.write_timeout":    60 * time.Second,
	"http.idle_timeout":     120 * time.Second,
	"http.shutdown_timeout": 3 * time.Second,
	"http.cors_origins":     []string{},

	"auth.store":            StoreFile,
	"auth.token_file":       "token.json",
	"auth.keyring_dir":      "~/.config/gapi-gateway/credentials",
	"auth.keyring_password": "gapi-gateway-file-key",
	"auth.redirect_url":     "",

	"calendar.id":                "primary",
	"calendar.default_time_zone": "Asia/Kuala_Lumpur",
	"calendar.max_results":       10,

	"gmail.max_results":       10,
	"gmail.fetch_concurrency": 5,

	"reply.subject_source": string(email.SubjectFromSnippet),

	"log.level":  "info",
	"log.format": "json",

	"mcp.enabled": true,
	"mcp.stdio":   false,
}

// Flag names bound to config keys by BindFlags.
var flagKeys = map[string]string{
	"http-addr":        "http.addr",
	"token-file":       "auth.token_file",
	"token-store":      "auth.store",
	"oauth-url":        "auth.redirect_url",
	"log-level":        "log.level",
	"log-format":       "log.format",
	"stdio":            "mcp.stdio",
	"default-timezone": "calendar.default_time_zone",
}

// RegisterFlags declares the overridable flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a YAML config file")
	fs.String("env-file", "", "Path to env file")
	fs.String("http-addr", "", "HTTP server listen addr")
	fs.String("token-file", "", "Path of the OAuth token file (auth.store=file)")
	fs.String("token-store", "", "Token store: file or keyring")
	fs.String("oauth-url", "", "OAuth redirect URL")
	fs.String("log-level", "", "Log level: debug, info, warn, error")
	fs.String("log-format", "", "Log format: json or console")
	fs.Bool("stdio", false, "Also serve MCP tools over stdio")
	fs.String("default-timezone", "", "Zone used when an event carries none")
}

// Load builds a Config. fs may be nil; only flags that were set override other sources.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	var configFile, envFile string
	if fs != nil {
		configFile, _ = fs.GetString("config")
		envFile, _ = fs.GetString("env-file")

		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("v.BindPFlag failed: %w", err)
			}
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("godotenv.Load failed: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("v.ReadInConfig %s failed: %w", configFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("v.Unmarshal failed: %w", err)
	}

	cfg.Auth.ClientID = os.Getenv(EnvClientID)
	cfg.Auth.ClientSecret = os.Getenv(EnvClientSecret)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.HTTP.Addr == "" {
		add("http.addr must be set")
	}
	for key, d := range map[string]time.Duration{
		"http.upstream_timeout": c.HTTP.UpstreamTimeout,
		"http.shutdown_timeout": c.HTTP.ShutdownTimeout,
	} {
		if d <= 0 {
			add("%s must be positive, got %s", key, d)
		}
	}

	switch c.Auth.Store {
	case StoreFile:
		if c.Auth.TokenFile == "" {
			add("auth.token_file must be set for the file store")
		}
	case StoreKeyring:
	default:
		add("auth.store must be %q or %q, got %q", StoreFile, StoreKeyring, c.Auth.Store)
	}

	if c.Calendar.ID == "" {
		add("calendar.id must be set")
	}
	if _, err := event.ResolveZone(c.Calendar.DefaultTimeZone); err != nil {
		add("calendar.default_time_zone: %w", err)
	}
	if c.Calendar.MaxResults < 1 || c.Calendar.MaxResults > 2500 {
		add("calendar.max_results must be within [1, 2500], got %d", c.Calendar.MaxResults)
	}
	if c.Gmail.MaxResults < 1 || c.Gmail.MaxResults > 500 {
		add("gmail.max_results must be within [1, 500], got %d", c.Gmail.MaxResults)
	}
	if c.Gmail.FetchConcurrency < 1 {
		add("gmail.fetch_concurrency must be at least 1, got %d", c.Gmail.FetchConcurrency)
	}
	if !c.Reply.SubjectSource.Valid() {
		add("reply.subject_source must be %q or %q, got %q", email.SubjectFromSnippet, email.SubjectFromHeader, c.Reply.SubjectSource)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		add("log.format must be json or console, got %q", c.Log.Format)
	}

	return errors.Join(errs...)
}
