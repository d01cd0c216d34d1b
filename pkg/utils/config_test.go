package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerConfig_Defaults(t *testing.T) {
	t.Setenv("SANTUA_HTTP_ADDR", "")
	t.Setenv("SANTUA_STORE_BACKEND", "")
	t.Setenv("SANTUA_PUBLIC_URL", "")

	cfg := LoadServerConfig()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, "http://localhost:8080", cfg.PublicURL)
}

func TestLoadServerConfig_Overrides(t *testing.T) {
	t.Setenv("SANTUA_STORE_BACKEND", "SQLite")
	t.Setenv("SANTUA_PUBLIC_URL", "https://santua.example/")
	t.Setenv("SANTUA_TRUSTED_PROXIES", "10.0.0.1, 10.0.0.2,")

	cfg := LoadServerConfig()
	assert.Equal(t, "sqlite", cfg.StoreBackend)
	assert.Equal(t, "https://santua.example", cfg.PublicURL)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.TrustedProxy)
}

func TestLoadAuthConfig_TTL(t *testing.T) {
	t.Setenv("SANTUA_JWT_TTL_HOURS", "6")
	assert.Equal(t, 6*time.Hour, LoadAuthConfig().JWTDuration)

	t.Setenv("SANTUA_JWT_TTL_HOURS", "six")
	assert.Equal(t, 24*time.Hour, LoadAuthConfig().JWTDuration)
}

func TestLoadPaymentConfig(t *testing.T) {
	t.Setenv("SANTUA_STICKER_PRICE", "1500.50")
	t.Setenv("SANTUA_MP_TIMEOUT", "3s")

	cfg := LoadPaymentConfig()
	assert.Equal(t, 1500.50, cfg.Price)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, "ARS", cfg.Currency)
}

func TestLoadNotifyConfig_Toggles(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("SANTUA_KAFKA_BROKERS", "")
	cfg := LoadNotifyConfig()
	assert.False(t, cfg.SMSEnabled())
	assert.False(t, cfg.KafkaEnabled())

	t.Setenv("TWILIO_ACCOUNT_SID", "AC1")
	t.Setenv("TWILIO_AUTH_TOKEN", "tok")
	t.Setenv("TWILIO_PHONE_NUMBER", "+15005550006")
	t.Setenv("SANTUA_KAFKA_BROKERS", "kafka:9092")
	cfg = LoadNotifyConfig()
	assert.True(t, cfg.SMSEnabled())
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SANTUA_RATE_BURST=5\nSANTUA_RATE_EVERY=1m\n"), 0o600))
	t.Setenv("SANTUA_RATE_BURST", "")
	os.Unsetenv("SANTUA_RATE_BURST")
	t.Setenv("SANTUA_RATE_EVERY", "")
	os.Unsetenv("SANTUA_RATE_EVERY")

	require.NoError(t, LoadEnv(path))
	cfg := LoadRateLimitConfig()
	assert.Equal(t, 5, cfg.Burst)
	assert.Equal(t, time.Minute, cfg.Every)

	assert.NoError(t, LoadEnv(filepath.Join(dir, "missing.env")))
}
