package utils

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnv reads .env (or the given files) into the environment. Variables
// already set win, and a missing file is not an error.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

type ServerConfig struct {
	Env          string
	HTTPAddr     string
	SyncAddr     string
	GRPCAddr     string
	PublicURL    string
	StoreBackend string // "memory" or "sqlite"
	StaticDir    string
	TrustedProxy []string
}

func LoadServerConfig() ServerConfig {
	return ServerConfig{
		Env:          getEnv("SANTUA_ENV", "development"),
		HTTPAddr:     getEnv("SANTUA_HTTP_ADDR", ":8080"),
		SyncAddr:     getEnv("SANTUA_SYNC_ADDR", ":7070"),
		GRPCAddr:     getEnv("SANTUA_GRPC_ADDR", ":9090"),
		PublicURL:    strings.TrimRight(getEnv("SANTUA_PUBLIC_URL", "http://localhost:8080"), "/"),
		StoreBackend: strings.ToLower(getEnv("SANTUA_STORE_BACKEND", "memory")),
		StaticDir:    os.Getenv("SANTUA_STATIC_DIR"),
		TrustedProxy: getList("SANTUA_TRUSTED_PROXIES", []string{"127.0.0.1"}),
	}
}

type AuthConfig struct {
	JWTSecret     string
	JWTIssuer     string
	JWTDuration   time.Duration
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

func LoadAuthConfig() AuthConfig {
	return AuthConfig{
		// dev default, override in any real deployment
		JWTSecret:     getEnv("SANTUA_JWT_SECRET", "dev-secret-change-me"),
		JWTIssuer:     getEnv("SANTUA_JWT_ISSUER", "santua"),
		JWTDuration:   time.Duration(getInt("SANTUA_JWT_TTL_HOURS", 24)) * time.Hour,
		AdminUsername: getEnv("SANTUA_ADMIN_USERNAME", "admin"),
		AdminEmail:    os.Getenv("SANTUA_ADMIN_EMAIL"),
		AdminPassword: os.Getenv("SANTUA_ADMIN_PASSWORD"),
	}
}

type PaymentConfig struct {
	BaseURL       string
	AccessToken   string
	WebhookSecret string
	Price         float64
	Currency      string
	Timeout       time.Duration
}

func LoadPaymentConfig() PaymentConfig {
	return PaymentConfig{
		BaseURL:       getEnv("SANTUA_MP_BASE_URL", "https://api.mercadopago.com"),
		AccessToken:   os.Getenv("SANTUA_MP_ACCESS_TOKEN"),
		WebhookSecret: os.Getenv("SANTUA_MP_WEBHOOK_SECRET"),
		Price:         getFloat("SANTUA_STICKER_PRICE", 2.00),
		Currency:      getEnv("SANTUA_STICKER_CURRENCY", "ARS"),
		Timeout:       getDuration("SANTUA_MP_TIMEOUT", 10*time.Second),
	}
}

type NotifyConfig struct {
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
	KafkaBrokers     []string
	KafkaTopic       string
	MaxRetries       int
	Backoff          time.Duration
}

func (c NotifyConfig) SMSEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFrom != ""
}

func (c NotifyConfig) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func LoadNotifyConfig() NotifyConfig {
	return NotifyConfig{
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:       os.Getenv("TWILIO_PHONE_NUMBER"),
		KafkaBrokers:     getList("SANTUA_KAFKA_BROKERS", nil),
		KafkaTopic:       getEnv("SANTUA_KAFKA_TOPIC", "santua.events"),
		MaxRetries:       getInt("SANTUA_NOTIFY_RETRIES", 3),
		Backoff:          getDuration("SANTUA_NOTIFY_BACKOFF", 2*time.Second),
	}
}

type RateLimitConfig struct {
	Every time.Duration
	Burst int
}

func LoadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Every: getDuration("SANTUA_RATE_EVERY", 5*time.Minute),
		Burst: getInt("SANTUA_RATE_BURST", 2),
	}
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// getInt falls back to def when the value is missing or malformed.
func getInt(key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return n
}

func getFloat(key string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64)
	if err != nil {
		return def
	}
	return f
}

func getDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getList(key string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
