package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	env "github.com/netflix/go-env"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// LogConfig selects level and encoding of the process logger.
type LogConfig struct {
	// Level is one of "debug", "info", "error".
	Level string `yaml:"level" json:"level"`
	// Format is "console" or "json".
	Format string `yaml:"format" json:"format"`
}

// RedisConfig is used when Cache.Backend is "redis".
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
}

// CacheConfig controls caching of backend responses.
type CacheConfig struct {
	Backend string        `yaml:"backend" json:"backend"`
	TTL     time.Duration `yaml:"ttl" json:"ttl"`
	Redis   RedisConfig   `yaml:"redis" json:"redis"`
}

// RateLimitConfig throttles requests to the event API. Zero
// RequestsPerSecond disables the limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `yaml:"burst" json:"burst"`
}

// RenderConfig tunes the page fragments.
type RenderConfig struct {
	// BreakID is the schedule item id rendered as a non-session entry.
	BreakID string `yaml:"break_id" json:"break_id"`
	// MarkdownDescriptions renders schedule descriptions as Markdown.
	MarkdownDescriptions bool `yaml:"markdown_descriptions" json:"markdown_descriptions"`
}

// CalendarConfig enables /calendar.ics. The backend only provides display
// strings, so the event day and zone come from here.
type CalendarConfig struct {
	// Date is YYYY-MM-DD. Empty disables the export.
	Date     string `yaml:"date" json:"date"`
	Timezone string `yaml:"timezone" json:"timezone"`
}

// CaptureConfig controls the headless-browser preview.
type CaptureConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	OutputPath string `yaml:"output_path" json:"output_path"`
	Width      int    `yaml:"width" json:"width"`
	Height     int    `yaml:"height" json:"height"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the whole site.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// APIBaseURL is the origin of the event API serving /api/event,
	// /api/speakers and /api/schedule.
	APIBaseURL string `yaml:"api_base_url" json:"api_base_url"`

	// RequestTimeout bounds a single API request.
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`

	// RefreshCron is a cron-style schedule (e.g. "*/5 * * * *") for
	// warming the cache and refreshing the preview.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	Log       LogConfig       `yaml:"log" json:"log"`
	Cache     CacheConfig     `yaml:"cache" json:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Render    RenderConfig    `yaml:"render" json:"render"`
	Calendar  CalendarConfig  `yaml:"calendar" json:"calendar"`
	Capture   CaptureConfig   `yaml:"capture" json:"capture"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         "127.0.0.1:8080",
		APIBaseURL:     "http://127.0.0.1:8000",
		RequestTimeout: 10 * time.Second,
		RefreshCron:    "*/5 * * * *",
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Cache: CacheConfig{
			Backend: CacheMemory,
			TTL:     30 * time.Second,
		},
		RateLimit: RateLimitConfig{},
		Render: RenderConfig{
			BreakID: "lunch",
		},
		Calendar: CalendarConfig{
			Timezone: "UTC",
		},
		Capture: CaptureConfig{
			Enabled:    false,
			OutputPath: "/var/lib/eventpage/preview.png",
			Width:      1280,
			Height:     1600,
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if c.APIBaseURL == "" {
		c.APIBaseURL = def.APIBaseURL
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		c.Log.Format = def.Log.Format
	}
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = def.Cache.Backend
	}
	if c.Cache.TTL <= 0 && c.Cache.Backend != CacheNone {
		c.Cache.TTL = def.Cache.TTL
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		c.RateLimit.RequestsPerSecond = 0
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 1
	}
	if c.Render.BreakID == "" {
		c.Render.BreakID = def.Render.BreakID
	}
	if c.Calendar.Timezone == "" {
		c.Calendar.Timezone = def.Calendar.Timezone
	}
	if c.Capture.OutputPath == "" {
		c.Capture.OutputPath = def.Capture.OutputPath
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = def.Capture.Width
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = def.Capture.Height
	}
	if c.BasicAuth != nil && (c.BasicAuth.Username == "" || c.BasicAuth.Password == "") {
		// Half-configured credentials disable auth.
		c.BasicAuth = nil
	}
}

// Validate reports settings that cannot work. Call after Normalize.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("api_base_url %q must be an absolute http(s) URL", c.APIBaseURL))
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		errs = append(errs, fmt.Errorf("refresh %q: %w", c.RefreshCron, err))
	}
	switch c.Cache.Backend {
	case CacheMemory, CacheNone:
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("cache.redis.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q is not one of memory, redis, none", c.Cache.Backend))
	}
	loc, err := time.LoadLocation(c.Calendar.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("calendar.timezone %q: %w", c.Calendar.Timezone, err))
	}
	if c.Calendar.Date != "" && loc != nil {
		if _, err := time.ParseInLocation("2006-01-02", c.Calendar.Date, loc); err != nil {
			errs = append(errs, fmt.Errorf("calendar.date %q must be YYYY-MM-DD", c.Calendar.Date))
		}
	}

	return errors.Join(errs...)
}

// envOverrides lists the settings that may be overridden from the
// environment. Empty values leave the file value untouched.
type envOverrides struct {
	Listen        string `env:"EVENTPAGE_LISTEN"`
	APIBaseURL    string `env:"EVENTPAGE_API_BASE_URL"`
	LogLevel      string `env:"EVENTPAGE_LOG_LEVEL"`
	LogFormat     string `env:"EVENTPAGE_LOG_FORMAT"`
	CacheBackend  string `env:"EVENTPAGE_CACHE_BACKEND"`
	RedisAddr     string `env:"EVENTPAGE_REDIS_ADDR"`
	RedisPassword string `env:"EVENTPAGE_REDIS_PASSWORD"`
	AuthUsername  string `env:"EVENTPAGE_BASIC_AUTH_USERNAME"`
	AuthPassword  string `env:"EVENTPAGE_BASIC_AUTH_PASSWORD"`
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// if the file exists. Existing variables win.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv overrides file values with EVENTPAGE_* environment variables.
func (c *Config) ApplyEnv() error {
	var o envOverrides
	if _, err := env.UnmarshalFromEnviron(&o); err != nil {
		return fmt.Errorf("config: read environment: %w", err)
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Listen, o.Listen)
	set(&c.APIBaseURL, o.APIBaseURL)
	set(&c.Log.Level, o.LogLevel)
	set(&c.Log.Format, o.LogFormat)
	set(&c.Cache.Backend, o.CacheBackend)
	set(&c.Cache.Redis.Addr, o.RedisAddr)
	set(&c.Cache.Redis.Password, o.RedisPassword)
	if o.AuthUsername != "" || o.AuthPassword != "" {
		if c.BasicAuth == nil {
			c.BasicAuth = &BasicAuthConfig{}
		}
		set(&c.BasicAuth.Username, o.AuthUsername)
		set(&c.BasicAuth.Password, o.AuthPassword)
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".eventpage-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// CalendarLocation resolves Calendar.Timezone, falling back to UTC.
func (c *Config) CalendarLocation() *time.Location {
	loc, err := time.LoadLocation(c.Calendar.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
