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
	InstanceID  string
	HTTPPort    string

	AuthJWTSecret       string
	AuthTokenTTL        time.Duration
	SettingsAESKey      string
	XenditCallbackToken string

	OTLPEndpoint string

	Monitoring MonitoringConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimit RateLimitConfig
	Scheduler SchedulerConfig

	SMTP     SMTPConfig
	Telegram TelegramConfig
	WhatsApp WhatsAppConfig
	Alerts   AlertsConfig

	Bootstrap BootstrapConfig
}

type MonitoringConfig struct {
	Enabled   bool
	Exporter  string
	Endpoint  string
	AuthToken string
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type TelegramConfig struct {
	BotToken string
	APIBase  string
}

type WhatsAppConfig struct {
	GatewayURL string
	APIKey     string
}

// AlertsConfig names the channel operator alerts go to. An empty
// recipient disables alarm notifications.
type AlertsConfig struct {
	NotificationType string
	Recipient        string
}

type BootstrapConfig struct {
	EnsureDefaultAdmin bool
}

// SchedulerConfig paces the background job loop. An empty EnabledJobs
// runs everything; a split deployment names the jobs each instance owns.
type SchedulerConfig struct {
	RunInterval time.Duration
	JobTimeout  time.Duration
	LockTTL     time.Duration
	EnabledJobs []string
}

// RateLimitConfig bounds the telemetry ingest endpoints. Rates are
// tokens per second; bursts absorb a NAS flushing a backlog after a
// link flap. Enabling it requires RedisAddr.
type RateLimitConfig struct {
	Enabled           bool
	IngestDeviceRate  float64
	IngestDeviceBurst int
	IngestGlobalRate  float64
	IngestGlobalBurst int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "arus"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		InstanceID:  getenv("INSTANCE_ID", ""),
		HTTPPort:    getenv("HTTP_PORT", "8080"),

		AuthJWTSecret:       strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		AuthTokenTTL:        getenvDuration("AUTH_TOKEN_TTL", 24*time.Hour),
		SettingsAESKey:      strings.TrimSpace(getenv("SETTINGS_AES_KEY", "")),
		XenditCallbackToken: strings.TrimSpace(getenv("XENDIT_CALLBACK_TOKEN", "")),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		Monitoring: MonitoringConfig{
			Enabled:   getenvBool("MONITORING_PUSH_ENABLED", false),
			Exporter:  strings.ToLower(getenv("MONITORING_PUSH_EXPORTER", "")),
			Endpoint:  strings.TrimSpace(getenv("MONITORING_PUSH_ENDPOINT", "")),
			AuthToken: strings.TrimSpace(getenv("MONITORING_PUSH_AUTH_TOKEN", "")),
		},

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "arus"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		RateLimit: RateLimitConfig{
			Enabled:           getenvBool("RATE_LIMIT_ENABLED", false),
			IngestDeviceRate:  getenvFloat("RATE_LIMIT_INGEST_DEVICE_RATE", 10),
			IngestDeviceBurst: getenvInt("RATE_LIMIT_INGEST_DEVICE_BURST", 30),
			IngestGlobalRate:  getenvFloat("RATE_LIMIT_INGEST_GLOBAL_RATE", 200),
			IngestGlobalBurst: getenvInt("RATE_LIMIT_INGEST_GLOBAL_BURST", 500),
		},

		Scheduler: SchedulerConfig{
			RunInterval: getenvDuration("SCHEDULER_RUN_INTERVAL", time.Minute),
			JobTimeout:  getenvDuration("SCHEDULER_JOB_TIMEOUT", 30*time.Second),
			LockTTL:     getenvDuration("SCHEDULER_LOCK_TTL", 5*time.Minute),
			EnabledJobs: getenvList("SCHEDULER_ENABLED_JOBS"),
		},

		SMTP: SMTPConfig{
			Host:     getenv("SMTP_HOST", ""),
			Port:     getenv("SMTP_PORT", "587"),
			Username: getenv("SMTP_USERNAME", ""),
			Password: getenv("SMTP_PASSWORD", ""),
			From:     getenv("SMTP_FROM", "noc@arus.net.id"),
		},
		Telegram: TelegramConfig{
			BotToken: strings.TrimSpace(getenv("TELEGRAM_BOT_TOKEN", "")),
			APIBase:  getenv("TELEGRAM_API_BASE", "https://api.telegram.org"),
		},
		WhatsApp: WhatsAppConfig{
			GatewayURL: strings.TrimSpace(getenv("WHATSAPP_GATEWAY_URL", "")),
			APIKey:     strings.TrimSpace(getenv("WHATSAPP_API_KEY", "")),
		},
		Alerts: AlertsConfig{
			NotificationType: strings.ToLower(getenv("ALERT_NOTIFICATION_TYPE", "telegram")),
			Recipient:        strings.TrimSpace(getenv("ALERT_RECIPIENT", "")),
		},

		Bootstrap: BootstrapConfig{
			EnsureDefaultAdmin: getenvBool("BOOTSTRAP_DEFAULT_ADMIN", true),
		},
	}

	return cfg
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

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
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

func getenvList(key string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
