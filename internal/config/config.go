// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for our application
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Security SecurityConfig
	Payment  PaymentConfig
	Supplier SupplierConfig
	Catalog  CatalogConfig
	Cart     CartConfig
	Logging  LoggingConfig
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string
	Version     string
	Environment string
	Debug       bool
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Host         string
	Port         string
	Name         string
	User         string
	Password     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// JWTConfig contains admin token configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	TrustedProxies     []string
}

// PaymentConfig contains the card payment provider configuration
type PaymentConfig struct {
	Provider         string
	SecretKey        string
	WebhookSecret    string
	APIBaseURL       string
	Currency         string
	StorefrontURL    string
	AllowedCountries []string
	RequestTimeout   time.Duration
	SignatureMaxAge  time.Duration
	BreakerFailures  int
	BreakerCooldown  time.Duration
}

// SupplierConfig contains the dropshipping supplier API configuration
type SupplierConfig struct {
	BaseURL        string
	Email          string
	Password       string
	RequestTimeout time.Duration
	RatePerSecond  float64
	RateBurst      int
	TokenTTL       time.Duration
	TokenCache     string
}

// CatalogConfig contains product import and locale configuration
type CatalogConfig struct {
	MarginMultiplier  decimal.Decimal
	CompareMultiplier decimal.Decimal
	Locales           []string
	DefaultLocale     string
	DefaultCategory   string
	ImportStock       int
}

// CartConfig contains cart session configuration
type CartConfig struct {
	TTL                time.Duration
	DefaultMaxQuantity int
	CompletionTTL      time.Duration
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	config := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Maloune Storefront"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
			Debug:       getEnvAsBool("APP_DEBUG", true),
		},
		Server: ServerConfig{
			Port:           getEnv("APP_PORT", "8080"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Name:         getEnv("DB_NAME", "storefront"),
			User:         getEnv("DB_USER", "storefront"),
			Password:     getEnv("DB_PASSWORD", "storefront"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 300*time.Second),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", "change-me-admin-import-secret-at-least-32"),
			AccessTokenExpiry: getEnvAsDuration("JWT_ACCESS_EXPIRE", 12*time.Hour),
		},
		Security: SecurityConfig{
			RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),
			CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			CORSAllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			CORSAllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Cart-Session"}),
			TrustedProxies:     getEnvAsSlice("TRUSTED_PROXIES", []string{}),
		},
		Payment: PaymentConfig{
			Provider:        getEnv("PAYMENT_PROVIDER", "stripe"),
			SecretKey:       getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:   getEnv("STRIPE_WEBHOOK_SECRET", ""),
			APIBaseURL:      getEnv("STRIPE_API_BASE_URL", "https://api.stripe.com"),
			Currency:        strings.ToLower(getEnv("PAYMENT_CURRENCY", "eur")),
			StorefrontURL:   strings.TrimRight(getEnv("STOREFRONT_URL", ""), "/"),
			RequestTimeout:  getEnvAsDuration("PAYMENT_REQUEST_TIMEOUT", 15*time.Second),
			SignatureMaxAge: getEnvAsDuration("STRIPE_SIGNATURE_TOLERANCE", 5*time.Minute),
			BreakerFailures: getEnvAsInt("PAYMENT_BREAKER_FAILURES", 5),
			BreakerCooldown: getEnvAsDuration("PAYMENT_BREAKER_COOLDOWN", 30*time.Second),
			AllowedCountries: getEnvAsSlice("SHIPPING_ALLOWED_COUNTRIES", []string{
				"FR", "BE", "CH", "CA", "US", "GB", "DE", "IT", "ES", "NL", "PT", "GP", "MQ", "GF", "RE", "HT",
			}),
		},
		Supplier: SupplierConfig{
			BaseURL:        strings.TrimRight(getEnv("CJ_API_BASE_URL", "https://developers.cjdropshipping.com/api2.0/v1"), "/"),
			Email:          getEnv("CJ_API_EMAIL", ""),
			Password:       getEnv("CJ_API_PASSWORD", ""),
			RequestTimeout: getEnvAsDuration("CJ_REQUEST_TIMEOUT", 20*time.Second),
			RatePerSecond:  getEnvAsFloat("CJ_RATE_PER_SECOND", 2),
			RateBurst:      getEnvAsInt("CJ_RATE_BURST", 1),
			TokenTTL:       getEnvAsDuration("CJ_TOKEN_TTL", 24*time.Hour),
			TokenCache:     getEnv("CJ_TOKEN_CACHE", "redis"),
		},
		Catalog: CatalogConfig{
			MarginMultiplier:  getEnvAsDecimal("CATALOG_MARGIN_MULTIPLIER", decimal.RequireFromString("2.5")),
			CompareMultiplier: getEnvAsDecimal("CATALOG_COMPARE_MULTIPLIER", decimal.RequireFromString("1.5")),
			Locales: getEnvAsSlice("CATALOG_LOCALES", []string{
				"fr", "en", "ht", "es", "pt", "de", "it", "nl", "ar", "ja", "zh", "ko", "ru", "pl", "tr", "sv",
			}),
			DefaultLocale:   getEnv("CATALOG_DEFAULT_LOCALE", "fr"),
			DefaultCategory: getEnv("CATALOG_DEFAULT_CATEGORY", "General"),
			ImportStock:     getEnvAsInt("CATALOG_IMPORT_STOCK", 999),
		},
		Cart: CartConfig{
			TTL:                getEnvAsDuration("CART_TTL", 30*24*time.Hour),
			DefaultMaxQuantity: getEnvAsInt("CART_MAX_QUANTITY", 10),
			CompletionTTL:      getEnvAsDuration("CART_COMPLETION_TTL", 7*24*time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "debug"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}

	if c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("APP_PORT is required")
	}

	// The webhook endpoint fails closed; running it without a secret is never valid in production
	if c.IsProduction() && c.Payment.WebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required in production")
	}

	if !c.Catalog.MarginMultiplier.IsPositive() {
		return fmt.Errorf("CATALOG_MARGIN_MULTIPLIER must be positive")
	}
	if c.Catalog.CompareMultiplier.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("CATALOG_COMPARE_MULTIPLIER must be at least 1")
	}
	if len(c.Catalog.Locales) == 0 {
		return fmt.Errorf("CATALOG_LOCALES must list at least one locale")
	}
	if !c.IsSupportedLocale(c.Catalog.DefaultLocale) {
		return fmt.Errorf("CATALOG_DEFAULT_LOCALE %q is not in CATALOG_LOCALES", c.Catalog.DefaultLocale)
	}

	if c.Cart.DefaultMaxQuantity < 1 {
		return fmt.Errorf("CART_MAX_QUANTITY must be at least 1")
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsSupportedLocale reports whether locale is one of the storefront locales
func (c *Config) IsSupportedLocale(locale string) bool {
	for _, l := range c.Catalog.Locales {
		if l == locale {
			return true
		}
	}
	return false
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
