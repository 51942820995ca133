package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds configuration for the exchange and client processes
type Config struct {
	// Service name
	ServiceName string

	// HTTP health server port
	HTTPPort int

	// Log level: debug, info, warn, error
	LogLevel string

	// Path to the quickfix session settings file
	FIXSettingsPath string

	// Path to the instrument reference-data file (JSON)
	InstrumentsPath string

	// Directory for the execution journal database
	DataDir string

	// Kafka brokers (comma-separated); feed is disabled when FeedEnabled is false
	KafkaBrokers string
	FeedEnabled  bool

	// Require a Price field on every inbound order, market orders included.
	// The venue this simulator mimics rejects price-less market orders.
	RequirePrice bool

	// Interval between order book snapshot logs
	SnapshotInterval time.Duration
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig(serviceName string) *Config {
	defaultSettings := "config/acceptor.cfg"
	if serviceName == "tradeclient" {
		defaultSettings = "config/initiator.cfg"
	}

	cfg := &Config{
		ServiceName:      serviceName,
		HTTPPort:         getEnvAsInt("PORT_HTTP", 8080),
		LogLevel:         getEnvAsString("LOG_LEVEL", "info"),
		FIXSettingsPath:  getEnvAsString("FIX_SETTINGS_PATH", defaultSettings),
		InstrumentsPath:  getEnvAsString("INSTRUMENTS_PATH", "config/instruments.json"),
		DataDir:          getEnvAsString("DATA_DIR", "data"),
		KafkaBrokers:     getEnvAsString("KAFKA_BROKERS", "127.0.0.1:9092"),
		FeedEnabled:      getEnvAsBool("FEED_ENABLED", false),
		RequirePrice:     getEnvAsBool("ORDER_REQUIRE_PRICE", true),
		SnapshotInterval: getEnvAsDuration("SNAPSHOT_INTERVAL", 10*time.Second),
	}

	return cfg
}

// HTTPAddr returns the HTTP server address
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func getEnvAsString(key, defaultValue string) string {
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
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
