package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	BaseURL     string

	Timezone string

	AuthCookieSecure bool
	SessionTTL       time.Duration
	PasswordMaxAge   time.Duration
	ResetTokenTTL    time.Duration
	ScenarioTTL      time.Duration

	DBDriver          string
	DBDSN             string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime time.Duration

	StorageRoot string

	RedisAddr     string
	RedisPassword string

	SMTP SMTPConfig

	Assistant AssistantConfig

	Scheduler SchedulerConfig

	OTLPEndpoint string
	OTLPProtocol string

	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Enabled reports whether outgoing mail is configured at all.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != ""
}

type AssistantConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

func (a AssistantConfig) Enabled() bool {
	return strings.TrimSpace(a.APIKey) != ""
}

type SchedulerConfig struct {
	RunInterval time.Duration
	EnabledJobs []string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	authCookieSecure := environment == "production"
	if !authCookieSecure {
		authCookieSecure = getenvBool("AUTH_COOKIE_SECURE", false)
	}

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "fleetsla"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: environment,
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		BaseURL:     strings.TrimRight(getenv("BASE_URL", "http://localhost:8080"), "/"),

		Timezone: getenv("APP_TIMEZONE", "America/Sao_Paulo"),

		AuthCookieSecure: authCookieSecure,
		SessionTTL:       getenvDuration("SESSION_TTL", 12*time.Hour),
		PasswordMaxAge:   getenvDuration("PASSWORD_MAX_AGE", 90*24*time.Hour),
		ResetTokenTTL:    getenvDuration("RESET_TOKEN_TTL", 30*time.Minute),
		ScenarioTTL:      getenvDuration("SCENARIO_TTL", 2*time.Hour),

		DBDriver:          getenv("DB_DRIVER", "sqlite"),
		DBDSN:             getenv("DB_DSN", "fleetsla.db"),
		DBMaxIdleConn:     getenvInt("DB_MAX_IDLE_CONN", 2),
		DBMaxOpenConn:     getenvInt("DB_MAX_OPEN_CONN", 10),
		DBConnMaxLifetime: getenvDuration("DB_CONN_MAX_LIFETIME", time.Hour),

		StorageRoot: getenv("STORAGE_ROOT", "./data"),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		SMTP: SMTPConfig{
			Host:     strings.TrimSpace(getenv("SMTP_HOST", "")),
			Port:     getenv("SMTP_PORT", "587"),
			Username: getenv("SMTP_USERNAME", ""),
			Password: getenv("SMTP_PASSWORD", ""),
			From:     strings.TrimSpace(getenv("SMTP_FROM", "")),
		},

		Assistant: AssistantConfig{
			BaseURL: strings.TrimRight(getenv("ASSISTANT_BASE_URL", "https://api.openai.com/v1"), "/"),
			APIKey:  strings.TrimSpace(getenv("ASSISTANT_API_KEY", "")),
			Model:   getenv("ASSISTANT_MODEL", "gpt-4o-mini"),
		},

		Scheduler: SchedulerConfig{
			RunInterval: getenvDuration("SCHEDULER_INTERVAL", 10*time.Minute),
			EnabledJobs: parseList(getenv("SCHEDULER_JOBS", "")),
		},

		OTLPEndpoint: strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")),
		OTLPProtocol: strings.ToLower(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")),

		BootstrapAdminEmail:    strings.TrimSpace(getenv("BOOTSTRAP_ADMIN_EMAIL", "")),
		BootstrapAdminPassword: getenv("BOOTSTRAP_ADMIN_PASSWORD", ""),
	}

	return cfg
}

// Location resolves the display timezone, falling back to UTC when the
// configured name does not load.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
