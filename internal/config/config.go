package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the post enhancer server.
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kie       KieConfig
	Waiter    WaiterConfig
	WordPress WordPressConfig
	YouTube   YouTubeConfig
	Telegram  TelegramConfig
	Email     EmailConfig
	Gemini    GeminiConfig
	Dispatch  DispatchConfig
	Storage   StorageConfig
	Tracing   TracingConfig
	Media     MediaConfig
	Site      SiteProfile
}

type ServerConfig struct {
	Port               int
	Env                string
	LogLevel           string
	PublicURL          string
	RateLimitPerMinute int
}

type AuthConfig struct {
	Header    string
	Token     string
	TokenHash string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type KieConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	Resolution   string
	OutputFormat string
	RateLimitRPS float64
	Timeout      time.Duration
}

type WaiterConfig struct {
	Mode            string
	Timeout         time.Duration
	PollInterval    time.Duration
	PollMaxAttempts int
}

type WordPressConfig struct {
	BaseURL     string
	Username    string
	AppPassword string
	Timeout     time.Duration
}

type YouTubeConfig struct {
	APIKey    string
	ChannelID string
	BaseURL   string
	CacheTTL  time.Duration
}

// Enabled reports whether video lookup has enough configuration to run.
func (c YouTubeConfig) Enabled() bool {
	return c.APIKey != "" && c.ChannelID != ""
}

type TelegramConfig struct {
	BotToken string
	ChatID   string
	BaseURL  string
}

func (c TelegramConfig) Enabled() bool {
	return c.BotToken != "" && c.ChatID != ""
}

type EmailConfig struct {
	APIKey    string
	FromName  string
	FromEmail string
	To        string
}

func (c EmailConfig) Enabled() bool {
	return c.APIKey != "" && c.FromEmail != "" && c.To != ""
}

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

func (c GeminiConfig) Enabled() bool {
	return c.APIKey != ""
}

type DispatchConfig struct {
	Mode        string
	QueueName   string
	Concurrency int
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func (c StorageConfig) Enabled() bool {
	return c.Endpoint != ""
}

type TracingConfig struct {
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
}

type MediaConfig struct {
	JPEGQuality     int
	DownloadTimeout time.Duration
	MaxDownloadMB   int
}

const (
	// WaiterModeCallback keeps pending jobs in process memory, so kie.ai
	// callbacks must reach the instance that submitted the task. Run a
	// single replica in this mode, or use WaiterModePolling.
	WaiterModeCallback = "callback"
	WaiterModePolling  = "polling"

	DispatchModeInline = "inline"
	DispatchModeQueue  = "queue"
)

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:               envInt("PORT", 3000),
			Env:                envString("ENHANCER_ENV", "development"),
			LogLevel:           envString("LOG_LEVEL", "info"),
			PublicURL:          strings.TrimRight(envFirst("PUBLIC_URL", "RAILWAY_URL"), "/"),
			RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
		},
		Auth: AuthConfig{
			Header:    envString("AUTH_HEADER", "X-Moltbot-Key"),
			Token:     envFirst("AUTH_TOKEN", "RAILWAY_AUTH_TOKEN"),
			TokenHash: os.Getenv("AUTH_TOKEN_BCRYPT"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Kie: KieConfig{
			APIKey:       os.Getenv("KIE_API_KEY"),
			BaseURL:      strings.TrimRight(envString("KIE_BASE_URL", "https://api.kie.ai"), "/"),
			Model:        envString("KIE_MODEL", "nano-banana-pro"),
			Resolution:   envString("KIE_RESOLUTION", "1K"),
			OutputFormat: envString("KIE_OUTPUT_FORMAT", "jpg"),
			RateLimitRPS: envFloat("KIE_RATE_LIMIT_RPS", 2),
			Timeout:      envDuration("KIE_HTTP_TIMEOUT", 30*time.Second),
		},
		Waiter: WaiterConfig{
			Mode:            strings.ToLower(envString("WAITER_MODE", WaiterModeCallback)),
			Timeout:         envDurationSecs("WAITER_TIMEOUT_SECS", 120*time.Second),
			PollInterval:    envDuration("POLL_INTERVAL", 2*time.Second),
			PollMaxAttempts: envInt("POLL_MAX_ATTEMPTS", 60),
		},
		WordPress: WordPressConfig{
			BaseURL:     strings.TrimRight(envString("WP_URL", "https://sprayfoamkings.com"), "/"),
			Username:    os.Getenv("WP_USER"),
			AppPassword: os.Getenv("WP_APP_PASSWORD"),
			Timeout:     envDuration("WP_HTTP_TIMEOUT", 60*time.Second),
		},
		YouTube: YouTubeConfig{
			APIKey:    os.Getenv("YOUTUBE_API_KEY"),
			ChannelID: os.Getenv("YT_CHANNEL_ID"),
			BaseURL:   strings.TrimRight(envString("YOUTUBE_BASE_URL", "https://www.googleapis.com/youtube/v3"), "/"),
			CacheTTL:  envDuration("YOUTUBE_CACHE_TTL", 6*time.Hour),
		},
		Telegram: TelegramConfig{
			BotToken: os.Getenv("BOT_TOKEN"),
			ChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
			BaseURL:  strings.TrimRight(envString("TELEGRAM_BASE_URL", "https://api.telegram.org"), "/"),
		},
		Email: EmailConfig{
			APIKey:    os.Getenv("MAILERSEND_API_KEY"),
			FromName:  envString("MAILERSEND_FROM_NAME", "SFK Post Enhancer"),
			FromEmail: os.Getenv("MAILERSEND_FROM"),
			To:        os.Getenv("MAILERSEND_TO"),
		},
		Gemini: GeminiConfig{
			APIKey:  os.Getenv("GEMINI_API_KEY"),
			Model:   envString("GEMINI_MODEL", "gemini-2.5-flash"),
			BaseURL: os.Getenv("GEMINI_BASE_URL"),
		},
		Dispatch: DispatchConfig{
			Mode:        strings.ToLower(envString("DISPATCH_MODE", DispatchModeInline)),
			QueueName:   envString("DISPATCH_QUEUE", "enhance"),
			Concurrency: envInt("DISPATCH_CONCURRENCY", 4),
		},
		Storage: StorageConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    envString("MINIO_BUCKET", "featured-images"),
			UseSSL:    envBool("MINIO_USE_SSL", false),
		},
		Tracing: TracingConfig{
			Exporter:     envString("OTEL_TRACES_EXPORTER", "none"),
			OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			OTLPInsecure: envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		},
		Media: MediaConfig{
			JPEGQuality:     envInt("JPEG_QUALITY", 85),
			DownloadTimeout: envDuration("IMAGE_DOWNLOAD_TIMEOUT", 60*time.Second),
			MaxDownloadMB:   envInt("IMAGE_MAX_DOWNLOAD_MB", 25),
		},
	}

	site, err := LoadSiteProfile(os.Getenv("SITE_PROFILE_PATH"))
	if err != nil {
		return nil, fmt.Errorf("load site profile: %w", err)
	}
	cfg.Site = site

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.Token == "" && c.Auth.TokenHash == "" {
		return fmt.Errorf("AUTH_TOKEN or AUTH_TOKEN_BCRYPT is required")
	}
	if strings.TrimSpace(c.Auth.Header) == "" {
		return fmt.Errorf("AUTH_HEADER must not be empty")
	}

	if c.Kie.APIKey == "" {
		return fmt.Errorf("KIE_API_KEY is required")
	}
	if !isHTTPURL(c.Kie.BaseURL) {
		return fmt.Errorf("KIE_BASE_URL must start with http:// or https://, got %q", c.Kie.BaseURL)
	}

	switch c.Waiter.Mode {
	case WaiterModeCallback:
		if c.Server.PublicURL == "" {
			return fmt.Errorf("PUBLIC_URL is required when WAITER_MODE is callback")
		}
		if !isHTTPURL(c.Server.PublicURL) {
			return fmt.Errorf("PUBLIC_URL must start with http:// or https://, got %q", c.Server.PublicURL)
		}
	case WaiterModePolling:
		if c.Waiter.PollMaxAttempts <= 0 {
			return fmt.Errorf("POLL_MAX_ATTEMPTS must be positive, got %d", c.Waiter.PollMaxAttempts)
		}
		if c.Waiter.PollInterval <= 0 {
			return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.Waiter.PollInterval)
		}
	default:
		return fmt.Errorf("WAITER_MODE must be one of callback, polling; got %q", c.Waiter.Mode)
	}
	if c.Waiter.Timeout <= 0 {
		return fmt.Errorf("WAITER_TIMEOUT_SECS must be positive")
	}

	if !isHTTPURL(c.WordPress.BaseURL) {
		return fmt.Errorf("WP_URL must start with http:// or https://, got %q", c.WordPress.BaseURL)
	}
	if c.WordPress.Username == "" {
		return fmt.Errorf("WP_USER is required")
	}
	if c.WordPress.AppPassword == "" {
		return fmt.Errorf("WP_APP_PASSWORD is required")
	}

	switch c.Dispatch.Mode {
	case DispatchModeInline:
	case DispatchModeQueue:
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required when DISPATCH_MODE is queue")
		}
	default:
		return fmt.Errorf("DISPATCH_MODE must be one of inline, queue; got %q", c.Dispatch.Mode)
	}

	if c.Media.JPEGQuality < 1 || c.Media.JPEGQuality > 100 {
		return fmt.Errorf("JPEG_QUALITY must be between 1 and 100, got %d", c.Media.JPEGQuality)
	}

	if c.Storage.Enabled() && (c.Storage.AccessKey == "" || c.Storage.SecretKey == "") {
		return fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when MINIO_ENDPOINT is set")
	}

	return nil
}

// Warnings lists valid but risky settings worth logging at startup.
func (c *Config) Warnings() []string {
	var out []string
	if c.Dispatch.Mode == DispatchModeQueue && c.Waiter.Mode == WaiterModeCallback {
		out = append(out, "DISPATCH_MODE=queue with WAITER_MODE=callback only works with a single replica: "+
			"kie.ai callbacks reaching another instance are ignored and the job times out; use WAITER_MODE=polling to scale out")
	}
	return out
}

// CallbackURL is the address the image generator posts task results to.
func (c *Config) CallbackURL() string {
	if c.Server.PublicURL == "" {
		return ""
	}
	return c.Server.PublicURL + "/kie-callback"
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// envFirst returns the first non-empty value among keys.
func envFirst(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
