package config

import (
	"fmt"     // Error messages
	"net"     // Host and port joining
	"net/url" // PostgreSQL connection URLs
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // Cache lifetime

	mysqldriver "github.com/go-sql-driver/mysql" // MySQL DSN builder
	"github.com/joho/godotenv"                   // For loading .env files
)

// Config holds the application configuration
type Config struct {
	DBDriver   string        // Database driver: sqlite, postgres or mysql
	DBDSN      string        // Full connection string; overrides the parts below
	DBUser     string        // Database user
	DBPassword string        // Database password
	DBHost     string        // Database host
	DBPort     string        // Database port
	DBName     string        // Database name, or file path for sqlite
	RedisAddr  string        // Redis server address; empty disables the cache
	RedisPass  string        // Redis password
	RedisDB    int           // Redis database number
	CacheTTL   time.Duration // Lifetime of cached category lists
	LogLevel   string        // Logrus level name
	IsProd     bool          // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	cacheTTL, _ := time.ParseDuration(os.Getenv("CACHE_TTL")) // Zero falls back to the cache default
	return &Config{
		DBDriver:   getenv("DB_DRIVER", "sqlite"),  // Database driver
		DBDSN:      os.Getenv("DB_DSN"),            // Full connection string
		DBUser:     os.Getenv("DB_USER"),           // Database user
		DBPassword: os.Getenv("DB_PASSWORD"),       // Database password
		DBHost:     os.Getenv("DB_HOST"),           // Database host
		DBPort:     os.Getenv("DB_PORT"),           // Database port
		DBName:     os.Getenv("DB_NAME"),           // Database name
		RedisAddr:  os.Getenv("REDIS_ADDR"),        // Redis server address
		RedisPass:  os.Getenv("REDIS_PASS"),        // Redis password
		RedisDB:    redisDB,                        // Redis database number
		CacheTTL:   cacheTTL,                       // Cache lifetime
		LogLevel:   getenv("LOG_LEVEL", "info"),    // Log level
		IsProd:     os.Getenv("IS_PROD") == "true", // Is production environment
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ConnectionString returns DB_DSN when set, otherwise assembles one for DBDriver
// from the individual settings
func (c *Config) ConnectionString() (string, error) {
	if c.DBDSN != "" {
		return c.DBDSN, nil
	}
	switch c.DBDriver {
	case "sqlite":
		if c.DBName == "" {
			return "kudo.db", nil // Next to the working directory
		}
		return c.DBName, nil
	case "postgres":
		if err := c.requireServer(); err != nil {
			return "", err
		}
		u := &url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.DBUser, c.DBPassword),
			Host:     net.JoinHostPort(c.DBHost, c.port("5432")),
			Path:     "/" + c.DBName,
			RawQuery: "sslmode=disable",
		}
		return u.String(), nil
	case "mysql":
		if err := c.requireServer(); err != nil {
			return "", err
		}
		mc := mysqldriver.NewConfig()
		mc.User = c.DBUser
		mc.Passwd = c.DBPassword
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.DBHost, c.port("3306"))
		mc.DBName = c.DBName
		mc.ParseTime = true // Scan DATETIME into time.Time
		mc.Loc = time.UTC
		return mc.FormatDSN(), nil
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
}

func (c *Config) requireServer() error {
	if c.DBHost == "" || c.DBName == "" {
		return fmt.Errorf("DB_HOST and DB_NAME are required for %s", c.DBDriver)
	}
	return nil
}

func (c *Config) port(fallback string) string {
	if c.DBPort == "" {
		return fallback
	}
	return c.DBPort
}
