// ============================================================================
// backend/internal/shared/config.go
// Configuration management and environment variable helpers
// ============================================================================

package shared

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds the full runtime configuration for the service.
type AppConfig struct {
	ServiceName string
	HTTPPort    string
	Environment string // development, staging, production

	// StoreBackend selects the profile/record persistence: "mongo" (default)
	// or "memory" for local development without a database.
	StoreBackend string

	MongoDB  MongoConfig
	Security SecurityConfig
	WhatsApp WhatsAppConfig
	Gemini   GeminiConfig
	Redis    RedisConfig
	CORS     CORSConfig

	// RateLimitPerMin caps notification endpoint calls per client IP.
	RateLimitPerMin int
}

// SecurityConfig holds identity-verification configuration.
type SecurityConfig struct {
	JWTSecret string
	JWTIssuer string
}

// WhatsAppConfig holds messaging provider configuration.
type WhatsAppConfig struct {
	APIURL             string
	APIToken           string
	DefaultCountryCode string
	WebhookSecret      string
	RequestTimeout     time.Duration
	MaxRetries         int
	BulkSendDelay      time.Duration
}

// GeminiConfig holds generative-AI provider configuration.
type GeminiConfig struct {
	APIURL         string
	APIKey         string
	RequestTimeout time.Duration
	MaxRetries     int
}

// RedisConfig holds the optional summary-cache backend configuration.
// An empty Addr disables the cache entirely.
type RedisConfig struct {
	Addr            string
	SummaryCacheTTL time.Duration
}

// CORSConfig holds CORS-related configuration.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool
	MaxAge           int // in seconds
}

// LoadEnv loads environment variables from a .env file when present.
func LoadEnv(envFile string) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("Warning: %s file not found, using system environment variables", envFile)
		return
	}
	log.Printf("Successfully loaded environment from %s", envFile)
}

// LoadAppConfig loads configuration from environment variables.
func LoadAppConfig() (*AppConfig, error) {
	config := &AppConfig{
		ServiceName:     "attendtrack",
		HTTPPort:        GetEnv("HTTP_PORT", "8080"),
		Environment:     GetEnv("ENVIRONMENT", "development"),
		StoreBackend:    GetEnv("STORE_BACKEND", "mongo"),
		RateLimitPerMin: GetIntEnv("RATE_LIMIT_PER_MIN", 30),
	}

	config.MongoDB = MongoConfig{
		URI:            GetEnv("MONGO_URI", ""),
		Database:       GetEnv("MONGO_DB_NAME", "attendtrack"),
		ConnectTimeout: GetDurationEnv("MONGO_CONNECT_TIMEOUT", 20*time.Second),
		MaxPoolSize:    uint64(GetIntEnv("MONGO_MAX_POOL_SIZE", 50)),
		MinPoolSize:    uint64(GetIntEnv("MONGO_MIN_POOL_SIZE", 10)),
		MaxIdleTime:    GetDurationEnv("MONGO_MAX_IDLE_TIME", 30*time.Second),
	}

	config.Security = SecurityConfig{
		JWTSecret: GetEnv("JWT_SECRET", ""),
		JWTIssuer: GetEnv("JWT_ISSUER", "attendtrack-identity"),
	}

	config.WhatsApp = WhatsAppConfig{
		APIURL:             GetEnv("WHATSAPP_API_URL", ""),
		APIToken:           GetEnv("WHATSAPP_API_TOKEN", ""),
		DefaultCountryCode: GetEnv("WHATSAPP_DEFAULT_COUNTRY_CODE", "91"),
		WebhookSecret:      GetEnv("WHATSAPP_WEBHOOK_SECRET", ""),
		RequestTimeout:     GetDurationEnv("WHATSAPP_REQUEST_TIMEOUT", 10*time.Second),
		MaxRetries:         GetIntEnv("WHATSAPP_MAX_RETRIES", 3),
		BulkSendDelay:      GetDurationEnv("WHATSAPP_BULK_SEND_DELAY", 1*time.Second),
	}

	config.Gemini = GeminiConfig{
		APIURL:         GetEnv("GEMINI_API_URL", ""),
		APIKey:         GetEnv("GEMINI_API_KEY", ""),
		RequestTimeout: GetDurationEnv("GEMINI_REQUEST_TIMEOUT", 15*time.Second),
		MaxRetries:     GetIntEnv("GEMINI_MAX_RETRIES", 3),
	}

	config.Redis = RedisConfig{
		Addr:            GetEnv("REDIS_ADDR", ""),
		SummaryCacheTTL: GetDurationEnv("SUMMARY_CACHE_TTL", 2*time.Minute),
	}

	config.CORS = CORSConfig{
		AllowedOrigins:   GetStringSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		AllowCredentials: GetBoolEnv("CORS_ALLOW_CREDENTIALS", true),
		MaxAge:           GetIntEnv("CORS_MAX_AGE", 300),
	}

	return config, config.Validate()
}

// Validate checks required fields for the selected backends.
func (c *AppConfig) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP port is required")
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if c.StoreBackend != "mongo" && c.StoreBackend != "memory" {
		return fmt.Errorf("unknown STORE_BACKEND %q (want mongo or memory)", c.StoreBackend)
	}
	if c.StoreBackend == "mongo" && c.MongoDB.URI == "" {
		return fmt.Errorf("MONGO_URI environment variable is required")
	}
	return nil
}

// IsProduction checks if running in production environment.
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

// PrintConfig prints configuration (sanitized) for debugging.
func (c *AppConfig) PrintConfig() {
	log.Println("=== Service Configuration ===")
	log.Printf("Service Name: %s", c.ServiceName)
	log.Printf("HTTP Port: %s", c.HTTPPort)
	log.Printf("Environment: %s", c.Environment)
	log.Printf("Store Backend: %s", c.StoreBackend)
	log.Printf("Mongo Database: %s", c.MongoDB.Database)
	log.Printf("WhatsApp Provider Configured: %t", c.WhatsApp.APIURL != "")
	log.Printf("Gemini Provider Configured: %t", c.Gemini.APIURL != "")
	log.Printf("Summary Cache Enabled: %t", c.Redis.Addr != "")
	log.Printf("Rate Limit Per Minute: %d", c.RateLimitPerMin)
	log.Println("=============================")
}

// ============================================================================
// Environment Variable Helper Functions
// ============================================================================

// GetEnv retrieves an environment variable or returns a default value.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetIntEnv retrieves an integer environment variable or returns a default value.
func GetIntEnv(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

// GetBoolEnv retrieves a boolean environment variable or returns a default value.
func GetBoolEnv(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean value for %s: %s, using default: %t", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

// GetDurationEnv retrieves a duration environment variable or returns a default
// value. Supports formats like "30s", "5m", "1h".
func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration value for %s: %s, using default: %v", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

// GetStringSliceEnv retrieves a comma-separated string list or returns a default value.
func GetStringSliceEnv(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, part := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
