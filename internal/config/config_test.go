package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
[database]
host = "db"
user = "edu"
dbname = "edu_booking"

[payments]
webhook_secret = "whsec_file"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "info", cfg.Logs.Level)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "Stripe-Signature", cfg.Payments.SignatureHeader)
	assert.Equal(t, 5*time.Minute, cfg.Payments.ToleranceDuration())
	assert.Equal(t, 10*time.Second, cfg.Payments.WebhookTimeoutDuration())
	assert.Equal(t, 24*time.Hour, cfg.Redis.ProcessedEventTTLDuration())
	assert.Equal(t, "edu.events", cfg.Broker.Exchange)
}

func TestLoadEnvOverridesSecrets(t *testing.T) {
	t.Setenv("DB_PASSWORD", "from-env")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_env")
	t.Setenv("BROKER_URL", "amqp://env")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Database.Password)
	assert.Equal(t, "whsec_env", cfg.Payments.WebhookSecret)
	assert.Equal(t, "amqp://env", cfg.Broker.URL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.ErrorIs(t, err, ErrReadConfig)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{
			Database: DatabaseConfig{Host: "db", DBName: "edu"},
			Payments: PaymentsConfig{WebhookSecret: "whsec"},
		}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad port", func(c *Config) { c.Server.HTTPPort = 70000 }},
		{"no host", func(c *Config) { c.Database.Host = "" }},
		{"idle above open", func(c *Config) { c.Database.MaxIdleConns = c.Database.MaxOpenConns + 1 }},
		{"no webhook secret", func(c *Config) { c.Payments.WebhookSecret = "" }},
		{"redis without address", func(c *Config) { c.Redis.Enabled = true; c.Redis.Address = "" }},
		{"broker without url", func(c *Config) { c.Broker.Enabled = true; c.Broker.URL = "" }},
	}

	require.NoError(t, valid().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "h", Port: 5433, User: "u", Password: "p", DBName: "d", SSLMode: "require"}
	assert.Equal(t, "host=h port=5433 user=u password=p dbname=d sslmode=require", db.DSN())
}
