// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Player   PlayerConfig   `yaml:"player"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Identity IdentityConfig `yaml:"identity"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Enrich   EnrichConfig   `yaml:"enrich"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr            string        `yaml:"addr" default:":8080"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s" validate:"gt=0"`
	Hooks           HooksConfig   `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// LogConfig represents logger configuration.
type LogConfig struct {
	Level string `yaml:"level" default:"info" validate:"oneof=debug info warn warning error"`
	File  string `yaml:"file"`
}

// PlayerConfig represents playback control configuration.
type PlayerConfig struct {
	PollInterval    time.Duration `yaml:"poll_interval" default:"1s" validate:"gte=100ms"`
	SeekSettleDelay time.Duration `yaml:"seek_settle_delay" default:"150ms" validate:"gte=0"`
	InitialVolume   int           `yaml:"initial_volume" default:"70" validate:"gte=0,lte=100"`
	EventBuffer     int           `yaml:"event_buffer" default:"256" validate:"gte=1"`
}

// StorageConfig selects where per-user documents are kept.
type StorageConfig struct {
	Driver string `yaml:"driver" default:"local" validate:"oneof=local redis"`
	// Dir is the local store directory (empty: user config dir).
	Dir string `yaml:"dir"`
}

// RedisConfig represents Redis connection configuration.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Prefix   string `yaml:"prefix" default:"harmony"`
}

// IdentityConfig selects how the current user is determined.
type IdentityConfig struct {
	Mode string `yaml:"mode" default:"static" validate:"oneof=static jwt"`
	// UserID is the fixed user for static mode (empty: anonymous).
	UserID string `yaml:"user_id"`
	// Secret is the HS256 key for jwt mode.
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer" default:"harmony"`
	// Token is the bearer token presented at startup in jwt mode.
	Token string `yaml:"token"`
}

// CatalogConfig represents search configuration.
type CatalogConfig struct {
	Providers      []ProviderConfig        `yaml:"providers" validate:"required,min=1,dive"`
	Filters        map[string]FilterConfig `yaml:"filters"`
	Genres         []GenreConfig           `yaml:"genres" validate:"dive"`
	BrowseCacheTTL time.Duration           `yaml:"browse_cache_ttl" default:"30m" validate:"gte=0"`
	YouTube        YouTubeConfig           `yaml:"youtube"`
}

// ProviderConfig represents a single catalog provider configuration.
type ProviderConfig struct {
	Type        string         `yaml:"type" validate:"required,oneof=youtube index"`
	DisplayName string         `yaml:"display_name"`
	Settings    map[string]any `yaml:"settings"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// GenreConfig is a browsable genre; an empty query is derived from the name.
type GenreConfig struct {
	Name  string `yaml:"name" validate:"required"`
	Query string `yaml:"query"`
}

// YouTubeConfig represents YouTube Data API configuration.
type YouTubeConfig struct {
	APIKey            string  `yaml:"api_key"`
	MaxResults        int64   `yaml:"max_results" default:"50" validate:"gte=1,lte=50"`
	RequestsPerSecond float64 `yaml:"requests_per_second" default:"5" validate:"gte=0"`
	Burst             int     `yaml:"burst" default:"2" validate:"gte=1"`
}

// EnrichConfig represents optional metadata enrichment.
type EnrichConfig struct {
	Concurrency int           `yaml:"concurrency" default:"4" validate:"gte=1,lte=32"`
	Spotify     SpotifyConfig `yaml:"spotify"`
	LastFm      LastFmConfig  `yaml:"lastfm"`
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"JP"`
}

// Enabled reports whether Spotify credentials are configured.
func (s SpotifyConfig) Enabled() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

// LastFmConfig represents Last.fm API configuration.
type LastFmConfig struct {
	APIKey string `yaml:"api_key"`
}

// Enabled reports whether a Last.fm key is configured.
func (l LastFmConfig) Enabled() bool {
	return l.APIKey != ""
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes, then applies environment
// overrides, defaults and validation.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("HARMONY_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("HARMONY_STORAGE"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("HARMONY_DATA_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv("HARMONY_USER_ID"); v != "" {
		c.Identity.UserID = v
	}
	if v := os.Getenv("HARMONY_JWT_SECRET"); v != "" {
		c.Identity.Secret = v
	}
	if v := os.Getenv("HARMONY_TOKEN"); v != "" {
		c.Identity.Token = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = db
		}
	}
	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		c.Catalog.YouTube.APIKey = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Enrich.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Enrich.Spotify.ClientSecret = v
	}
	if v := os.Getenv("LASTFM_API_KEY"); v != "" {
		c.Enrich.LastFm.APIKey = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if err := c.validateDependencies(); err != nil {
		return err
	}

	return nil
}

// validateDependencies checks settings that only make sense together.
func (c *Config) validateDependencies() error {
	usesRedis := c.Storage.Driver == "redis" || c.HasProvider("index")
	if usesRedis && c.Redis.Addr == "" {
		return errors.New("redis.addr is required when storage.driver is redis or the index provider is enabled")
	}
	if c.HasProvider("youtube") && c.Catalog.YouTube.APIKey == "" {
		return errors.New("catalog.youtube.api_key (or YOUTUBE_API_KEY) is required by the youtube provider")
	}
	if c.Identity.Mode == "jwt" && c.Identity.Secret == "" {
		return errors.New("identity.secret (or HARMONY_JWT_SECRET) is required in jwt mode")
	}
	if (c.Enrich.Spotify.ClientID == "") != (c.Enrich.Spotify.ClientSecret == "") {
		return errors.New("enrich.spotify needs both client_id and client_secret")
	}
	return nil
}

// HasProvider reports whether a provider of the given type is configured.
func (c *Config) HasProvider(providerType string) bool {
	for _, p := range c.Catalog.Providers {
		if p.Type == providerType {
			return true
		}
	}
	return false
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Catalog.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// EnabledFilters returns the settings of every enabled filter keyed by name.
func (c *Config) EnabledFilters() map[string]map[string]any {
	enabled := make(map[string]map[string]any)
	for name, f := range c.Catalog.Filters {
		if f.Enabled {
			enabled[name] = f.Settings
		}
	}
	return enabled
}
