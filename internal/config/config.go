package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const placeholderSecret = "CHANGE_ME_PRODUCTION_SECRET_KEY"

type Config struct {
	Port       string
	ListenAddr string

	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	SecretKey           string
	SessionCookieName   string
	SessionTTLHours     int
	SessionSweepMinutes int
	CookieSecure        bool
	TrustProxy          bool
	CORSAllowedOrigins  []string

	PasswordMinLength int
	PasswordMaxLength int

	AdminEmail    string
	AdminPassword string

	HTTPReadTimeoutSec       int
	HTTPReadHeaderTimeoutSec int
	HTTPWriteTimeoutSec      int
	HTTPIdleTimeoutSec       int

	NotifySender string
	NotifyFrom   string
	SMTPHost     string
	SMTPPort     int
	SiteBaseURL  string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first; variables already set in the environment win.
func Load() (Config, error) {
	_ = godotenv.Load()

	port := env("PORT", "8080")
	cfg := Config{
		Port:                     port,
		ListenAddr:               env("LISTEN_ADDR", ":"+port),
		DatabaseURL:              env("DATABASE_URL", "sqlite://./data/app.db"),
		DBMaxOpenConns:           envInt("DB_MAX_OPEN_CONNS", 4),
		DBMaxIdleConns:           envInt("DB_MAX_IDLE_CONNS", 2),
		DBConnMaxLifetime:        time.Duration(envInt("DB_CONN_MAX_LIFETIME_MIN", 30)) * time.Minute,
		SecretKey:                env("SECRET_KEY", ""),
		SessionCookieName:        env("SESSION_COOKIE_NAME", "matchmaker_session"),
		SessionTTLHours:          envInt("SESSION_TTL_HOURS", 24),
		SessionSweepMinutes:      envInt("SESSION_SWEEP_MINUTES", 15),
		CookieSecure:             envBool("COOKIE_SECURE", false),
		TrustProxy:               envBool("TRUST_PROXY", false),
		CORSAllowedOrigins:       envCSV("CORS_ALLOWED_ORIGINS"),
		PasswordMinLength:        envInt("PASSWORD_MIN_LENGTH", 8),
		PasswordMaxLength:        envInt("PASSWORD_MAX_LENGTH", 128),
		AdminEmail:               strings.ToLower(strings.TrimSpace(env("ADMIN_EMAIL", ""))),
		AdminPassword:            env("ADMIN_PASSWORD", ""),
		HTTPReadTimeoutSec:       envInt("HTTP_READ_TIMEOUT_SEC", 10),
		HTTPReadHeaderTimeoutSec: envInt("HTTP_READ_HEADER_TIMEOUT_SEC", 5),
		HTTPWriteTimeoutSec:      envInt("HTTP_WRITE_TIMEOUT_SEC", 30),
		HTTPIdleTimeoutSec:       envInt("HTTP_IDLE_TIMEOUT_SEC", 60),
		NotifySender:             strings.ToLower(env("NOTIFY_SENDER", "log")),
		NotifyFrom:               env("NOTIFY_FROM", "no-reply@example.com"),
		SMTPHost:                 env("SMTP_HOST", "127.0.0.1"),
		SMTPPort:                 envInt("SMTP_PORT", 25),
		SiteBaseURL:              env("SITE_BASE_URL", ""),
	}

	if cfg.SessionTTLHours <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL_HOURS must be positive")
	}
	if cfg.SessionSweepMinutes <= 0 {
		return Config{}, fmt.Errorf("SESSION_SWEEP_MINUTES must be positive")
	}
	if cfg.DBMaxOpenConns <= 0 || cfg.DBMaxIdleConns < 0 {
		return Config{}, fmt.Errorf("invalid DB pool config")
	}
	if cfg.PasswordMinLength < 6 {
		return Config{}, fmt.Errorf("password min length must be >= 6")
	}
	if cfg.PasswordMaxLength < cfg.PasswordMinLength {
		return Config{}, fmt.Errorf("password max length must be >= min length")
	}
	if strings.TrimSpace(cfg.SecretKey) == "" ||
		cfg.SecretKey == placeholderSecret ||
		len(cfg.SecretKey) < 24 {
		return Config{}, fmt.Errorf("SECRET_KEY must be set to a strong non-default value (>=24 chars)")
	}
	if (cfg.AdminEmail == "") != (cfg.AdminPassword == "") {
		return Config{}, fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	switch cfg.NotifySender {
	case "", "log":
		cfg.NotifySender = "log"
	case "smtp":
		if cfg.SMTPPort <= 0 {
			return Config{}, fmt.Errorf("invalid SMTP_PORT")
		}
	default:
		return Config{}, fmt.Errorf("NOTIFY_SENDER must be one of: log, smtp")
	}
	return cfg, nil
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func (c Config) SessionSweepInterval() time.Duration {
	return time.Duration(c.SessionSweepMinutes) * time.Minute
}

func env(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return d
	}
	return n
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return d
	}
	return b
}

func envCSV(k string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
