package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the portal.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	APIBaseURL       string
	APITimeout       time.Duration
	RedisURL         string
	SessionSecret    string
	SessionTTL       time.Duration
	SnapshotDSN      string
	SnapshotMaxAge   time.Duration
	QuestionCacheTTL time.Duration
	NATSURL          string
	EventsChannel    string
	LogLevel         string
	LogFormat        string
	OTelEnabled      bool
	OTelEndpoint     string
	CORSOrigins      string
	RateLimitMax     int
	RateLimitWindow  time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (c Config) AllowedOrigins() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PROMPTCRAFT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "PromptCraft Portal")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("api.base_url", "http://localhost:8000/api/v1")
	v.SetDefault("api.timeout", "15s")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("snapshot.dsn", "file:promptcraft.db")
	v.SetDefault("snapshot.max_age", "720h")
	v.SetDefault("questions.cache_ttl", "5m")
	v.SetDefault("events.channel", "promptcraft:portal")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.endpoint", "localhost:4318")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("rate_limit.max", 30)
	v.SetDefault("rate_limit.window", "1m")

	durations := map[string]time.Duration{}
	for _, key := range []string{"api.timeout", "session.ttl", "snapshot.max_age", "questions.cache_ttl", "rate_limit.window"} {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		if parsed <= 0 {
			return Config{}, fmt.Errorf("invalid %s: must be positive", key)
		}
		durations[key] = parsed
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		APIBaseURL:       strings.TrimRight(v.GetString("api.base_url"), "/"),
		APITimeout:       durations["api.timeout"],
		RedisURL:         v.GetString("redis.url"),
		SessionSecret:    v.GetString("session.secret"),
		SessionTTL:       durations["session.ttl"],
		SnapshotDSN:      v.GetString("snapshot.dsn"),
		SnapshotMaxAge:   durations["snapshot.max_age"],
		QuestionCacheTTL: durations["questions.cache_ttl"],
		NATSURL:          v.GetString("nats.url"),
		EventsChannel:    v.GetString("events.channel"),
		LogLevel:         strings.ToLower(v.GetString("log.level")),
		LogFormat:        strings.ToLower(v.GetString("log.format")),
		OTelEnabled:      v.GetBool("otel.enabled"),
		OTelEndpoint:     v.GetString("otel.endpoint"),
		CORSOrigins:      v.GetString("cors.origins"),
		RateLimitMax:     v.GetInt("rate_limit.max"),
		RateLimitWindow:  durations["rate_limit.window"],
	}

	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("redis url must be provided")
	}

	if cfg.SessionSecret == "" {
		return Config{}, fmt.Errorf("session secret must be provided")
	}

	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 30
	}

	return cfg, nil
}
