package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the checkout client and the sandbox backend
type Config struct {
	// Server configuration (sandbox backend)
	Port           string
	GinMode        string
	APIVersion     string
	APIPrefix      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// Kafka configuration
	Kafka KafkaConfig

	// Rate limiting
	RateLimit RateLimitConfig

	// Checkout client
	Checkout CheckoutConfig

	// Sandbox backend behaviour
	Sandbox SandboxConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	DSN      string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string

	// TTL values for different operations
	SessionTTL time.Duration
	CacheTTL   time.Duration
}

// KafkaConfig holds broker settings for release beacons
type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	ReleaseTopic string
	GroupID      string
	Workers      int
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled         bool          `json:"enabled"`
	WindowDuration  time.Duration `json:"window_duration"`
	DefaultRequests int           `json:"default_requests"`
	SeatRequests    int           `json:"seat_requests"`
	BookingRequests int           `json:"booking_requests"`
	PaymentRequests int           `json:"payment_requests"`
	HealthRequests  int           `json:"health_requests"`
	WhitelistedIPs  []string      `json:"whitelisted_ips"`
}

// CheckoutConfig holds settings for the checkout orchestrator
type CheckoutConfig struct {
	BackendURL          string
	RequestTimeout      time.Duration
	MaxSeats            int
	ServiceFeePerTicket int64
	PaymentPollDelay    time.Duration
	PaymentPollInterval time.Duration
	BeaconTransport     string // "http" or "kafka"
	BeaconTimeout       time.Duration
	SessionStorage      string // "memory" or "redis"
	TabID               string
	PreserveKeys        []string
}

// SandboxConfig holds the reference backend's timing and pricing rules
type SandboxConfig struct {
	SeatHoldTimeout     time.Duration
	PaymentTimeout      time.Duration
	MaxSeatsPerSession  int
	ServiceFeePerTicket int64
	PollsUntilSettled   int
	GatewayBaseURL      string
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		// Server configuration
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", "v1"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB

		// Database configuration
		Database: DatabaseConfig{
			Enabled:  getBoolEnv("DB_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "boxoffice_db"),
			User:     getEnv("DB_USER", "boxoffice_user"),
			Password: getEnv("DB_PASSWORD", "boxoffice_password"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		// Redis configuration
		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),

			SessionTTL: getDurationEnv("REDIS_SESSION_TTL", 24*time.Hour),
			CacheTTL:   getDurationEnv("REDIS_CACHE_TTL", 1*time.Minute),
		},

		// Kafka configuration
		Kafka: KafkaConfig{
			Enabled:      getBoolEnv("KAFKA_ENABLED", false),
			Brokers:      getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			ReleaseTopic: getEnv("KAFKA_RELEASE_TOPIC", "seat-release-beacons"),
			GroupID:      getEnv("KAFKA_GROUP_ID", "boxoffice-release-workers"),
			Workers:      getIntEnv("KAFKA_WORKERS", 1),
		},

		// Rate limiting
		RateLimit: RateLimitConfig{
			Enabled:         getBoolEnv("RATE_LIMIT_ENABLED", false),
			WindowDuration:  getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests: getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 120),
			SeatRequests:    getIntEnv("RATE_LIMIT_SEAT_REQUESTS", 60),
			BookingRequests: getIntEnv("RATE_LIMIT_BOOKING_REQUESTS", 20),
			PaymentRequests: getIntEnv("RATE_LIMIT_PAYMENT_REQUESTS", 60),
			HealthRequests:  getIntEnv("RATE_LIMIT_HEALTH_REQUESTS", 300),
			WhitelistedIPs:  getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		// Checkout client
		Checkout: CheckoutConfig{
			BackendURL:          getEnv("CHECKOUT_BACKEND_URL", "http://localhost:8080/api/v1"),
			RequestTimeout:      getDurationEnv("CHECKOUT_REQUEST_TIMEOUT", 30*time.Second),
			MaxSeats:            getIntEnv("CHECKOUT_MAX_SEATS", 8),
			ServiceFeePerTicket: getInt64Env("CHECKOUT_SERVICE_FEE", 10000),
			PaymentPollDelay:    getDurationEnv("CHECKOUT_PAYMENT_POLL_DELAY", 5*time.Second),
			PaymentPollInterval: getDurationEnv("CHECKOUT_PAYMENT_POLL_INTERVAL", 5*time.Second),
			BeaconTransport:     getEnv("CHECKOUT_BEACON_TRANSPORT", "http"),
			BeaconTimeout:       getDurationEnv("CHECKOUT_BEACON_TIMEOUT", 3*time.Second),
			SessionStorage:      getEnv("CHECKOUT_SESSION_STORAGE", "memory"),
			TabID:               getEnv("CHECKOUT_TAB_ID", ""),
			PreserveKeys:        getStringSliceEnv("CHECKOUT_PRESERVE_KEYS", []string{"zoom_instructions_seen"}),
		},

		// Sandbox backend
		Sandbox: SandboxConfig{
			SeatHoldTimeout:     getDurationEnv("SANDBOX_SEAT_HOLD_TIMEOUT", 5*time.Minute),
			PaymentTimeout:      getDurationEnv("SANDBOX_PAYMENT_TIMEOUT", 30*time.Minute),
			MaxSeatsPerSession:  getIntEnv("SANDBOX_MAX_SEATS", 8),
			ServiceFeePerTicket: getInt64Env("SANDBOX_SERVICE_FEE", 10000),
			PollsUntilSettled:   getIntEnv("SANDBOX_POLLS_UNTIL_SETTLED", 1),
			GatewayBaseURL:      getEnv("SANDBOX_GATEWAY_URL", "http://localhost:8080/pay"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", ""),
	}

	// Build composite values
	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	return cfg
}

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getInt64Env gets an int64 environment variable with a fallback value
func getInt64Env(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix + "/" + c.APIVersion
}
