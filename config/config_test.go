package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "journal")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "journal")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("S3_KEY", "key")
	t.Setenv("S3_SECRET", "s3-secret")
	t.Setenv("S3_URL", "https://s3.example.org")
	t.Setenv("S3_REGION", "eu-central-1")
	t.Setenv("S3_BUCKET", "manuscripts")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, "4242", cfg.HTTPPort)
	assert.Equal(t, 14, cfg.ReviewReminderDays)
	assert.Equal(t, int64(25), cfg.MaxUploadMB)
	assert.False(t, cfg.MailEnabled())
	assert.Equal(t, "host=db user=journal password=secret dbname=journal port=5432 sslmode=disable", cfg.DSN())
}

func TestLoadMissingRequired(t *testing.T) {
	setRequired(t)
	require.NoError(t, os.Unsetenv("JWT_SECRET"))

	_, err := Load()
	assert.Error(t, err)
}

func TestOrigins(t *testing.T) {
	cfg := &Config{AllowedOrigins: " https://journal.org, ,http://localhost:5173 "}
	assert.Equal(t, []string{"https://journal.org", "http://localhost:5173"}, cfg.Origins())
}
