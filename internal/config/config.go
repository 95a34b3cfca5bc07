package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend   string
	DataDirectory string
	SQLiteDBPath  string

	// Auth
	JWTSecret     string
	TokenDuration time.Duration

	// AMQP (optional; notifications stay in-app without it)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// SMTP (email worker)
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// Azure Document Intelligence (optional; mock analyzer without it)
	AzureEndpoint string
	AzureKey      string

	// Recurring worker
	ProcessInterval time.Duration

	// Receipt upload
	UploadDir     string
	MaxUploadSize int64
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:   getEnv("DATA_BACKEND", "csv"),
		DataDirectory: getEnv("DATA_DIRECTORY", "./data"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/tally.db"),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		TokenDuration: getEnvDuration("TOKEN_DURATION", 24*time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "tally"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "notifications"),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "25"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "tally@localhost"),

		AzureEndpoint: getEnv("AZURE_ENDPOINT", ""),
		AzureKey:      getEnv("AZURE_KEY", ""),

		ProcessInterval: getEnvDuration("PROCESS_INTERVAL", time.Hour),

		UploadDir:     getEnv("UPLOAD_DIR", "./data/uploads"),
		MaxUploadSize: getEnvInt64("MAX_UPLOAD_SIZE", 16<<20),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"csv", "sqlite", "memory"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "csv":
		if c.DataDirectory == "" {
			errs = append(errs, "data directory cannot be empty when using csv backend")
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		}
	}

	if c.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET is required")
	} else if len(c.JWTSecret) < 16 {
		errs = append(errs, "JWT_SECRET must be at least 16 characters")
	}

	if c.TokenDuration < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid token duration %v: must be at least 1 minute", c.TokenDuration))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if (c.AzureEndpoint == "") != (c.AzureKey == "") {
		errs = append(errs, "AZURE_ENDPOINT and AZURE_KEY must be set together")
	}

	if c.ProcessInterval < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid process interval %v: must be at least 1 minute", c.ProcessInterval))
	} else if c.ProcessInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid process interval %v: must be at most 24 hours", c.ProcessInterval))
	}

	if c.MaxUploadSize < 1<<10 {
		errs = append(errs, fmt.Sprintf("invalid max upload size %d: must be at least 1KiB", c.MaxUploadSize))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
