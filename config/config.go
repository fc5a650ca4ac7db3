package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"4242"`
	// Komma-separierte Liste der erlaubten Frontend-Origins
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173"`

	// JWT-Secret des Identity-Providers (HS256)
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
	JWTIssuer string `envconfig:"JWT_ISSUER"`

	S3Key       string `envconfig:"S3_KEY" required:"true"`
	S3Secret    string `envconfig:"S3_SECRET" required:"true"`
	S3URL       string `envconfig:"S3_URL" required:"true"`
	S3Region    string `envconfig:"S3_REGION" required:"true"`
	S3Bucket    string `envconfig:"S3_BUCKET" required:"true"`
	MaxUploadMB int64  `envconfig:"MAX_UPLOAD_MB" default:"25"`

	// Redis ist optional, ohne URL laufen die öffentlichen Seiten ungecacht
	RedisURL        string `envconfig:"REDIS_URL"`
	ArticleCacheTTL int    `envconfig:"ARTICLE_CACHE_TTL_SECONDS" default:"300"`

	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser     string `envconfig:"SMTP_USER"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"Editorial Office <editor@localhost>"`
	PortalURL    string `envconfig:"PORTAL_URL" default:"http://localhost:5173"`

	ReminderCron       string `envconfig:"REMINDER_CRON" default:"0 8 * * *"`
	ReviewReminderDays int    `envconfig:"REVIEW_REMINDER_DAYS" default:"14"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

// Origins zerlegt ALLOWED_ORIGINS in eine bereinigte Liste.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// MailEnabled meldet, ob ein SMTP-Server konfiguriert ist.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
