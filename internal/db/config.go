package db

import (
	"os"
	"strconv"
	"time"
)

// Supported database drivers
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds database configuration
type Config struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	MaxOpen  int
	MaxIdle  int
	Timeout  time.Duration
}

// NewConfig creates a new database configuration from environment variables
func NewConfig() *Config {
	driver := getEnvOrDefault("DB_DRIVER", DriverMySQL)

	defaultPort := "3306"
	if driver == DriverPostgres {
		defaultPort = "5432"
	}

	return &Config{
		Driver:   driver,
		Host:     getEnvOrDefault("DB_HOST", getEnvOrDefault("MYSQL_HOST", "localhost")),
		Port:     getEnvOrDefault("DB_PORT", getEnvOrDefault("MYSQL_PORT", defaultPort)),
		User:     getEnvOrDefault("DB_USER", getEnvOrDefault("MYSQL_USER", "root")),
		Password: getEnvOrDefault("DB_PASSWORD", os.Getenv("MYSQL_PASSWORD")),
		Database: getEnvOrDefault("DB_NAME", getEnvOrDefault("MYSQL_DATABASE", "seo_engine")),
		SSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),
		MaxOpen:  getEnvIntOrDefault("DB_MAX_OPEN", 25),
		MaxIdle:  getEnvIntOrDefault("DB_MAX_IDLE", 5),
		Timeout:  30 * time.Second,
	}
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
