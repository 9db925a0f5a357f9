package logger

import (
	"io"
	"os"
	"strconv"
)

// EnvConfig holds logger configuration loaded from environment variables.
type EnvConfig struct {
	Level       string    // debug, info, warn, error
	Format      string    // json, text
	Output      io.Writer // explicit destination; overrides file/stdout selection
	ServiceName string    // value of the "service" field on every line
	Environment string    // local, dev, prod

	// File output, used outside the local environment
	LogFile     string
	LogFileOnly bool

	// Rotation (lumberjack)
	MaxSize    int  // MB
	MaxBackups int  // files
	MaxAge     int  // days
	Compress   bool // gzip rotated files
}

// LoadFromEnv reads LOG_* / SERVICE_NAME / APP_ENV with defaults.
func LoadFromEnv() *EnvConfig {
	return &EnvConfig{
		Level:       envString("LOG_LEVEL", "info"),
		Format:      envString("LOG_FORMAT", "json"),
		ServiceName: envString("SERVICE_NAME", "mojiscan"),
		Environment: envString("APP_ENV", "local"),

		LogFile:     envString("LOG_FILE", "/var/log/mojiscan/app.log"),
		LogFileOnly: envBool("LOG_FILE_ONLY", false),

		MaxSize:    envInt("LOG_MAX_SIZE", 50),
		MaxBackups: envInt("LOG_MAX_BACKUPS", 5),
		MaxAge:     envInt("LOG_MAX_AGE", 14),
		Compress:   envBool("LOG_COMPRESS", true),
	}
}

func envString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	i, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return i
}
