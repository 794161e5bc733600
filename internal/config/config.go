package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/yukikurage/task-tracker/internal/constants"
)

type Config struct {
	HTTPPort string
	GinMode  string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPath     string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	SessionStore  string
	SessionSecret string

	LogLevel    string
	LogEncoding string

	BlobBackend           string
	BlobDir               string
	PublicBaseURL         string
	AzureConnectionString string
	TaskImageBucket       string
	AvatarBucket          string
	MaxUploadBytes        int64

	CleanupWorkers     int
	CleanupQueueSize   int
	OrphanLedger       string
	JanitorInterval    time.Duration
	JanitorMaxAttempts int

	ShutdownTimeout time.Duration
}

func Load() *Config {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load(".env")

	return &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "debug"),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "taskuser"),
		DBPassword: getEnv("DB_PASSWORD", "taskpassword"),
		DBName:     getEnv("DB_NAME", "task_tracker"),
		DBPath:     getEnv("DB_PATH", "./data/task_tracker.db"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		SessionStore:  getEnv("SESSION_STORE", "redis"),
		SessionSecret: getEnv("SESSION_SECRET", "default-secret-key-change-me"),

		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogEncoding: getEnv("LOG_ENCODING", "json"),

		BlobBackend:           getEnv("BLOB_BACKEND", "disk"),
		BlobDir:               getEnv("BLOB_DIR", "./data/blobs"),
		PublicBaseURL:         getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		AzureConnectionString: getEnv("AZURE_STORAGE_CONNECTION_STRING", ""),
		TaskImageBucket:       getEnv("TASK_IMAGE_BUCKET", constants.DefaultTaskImageBucket),
		AvatarBucket:          getEnv("AVATAR_BUCKET", constants.DefaultAvatarBucket),
		MaxUploadBytes:        int64(getInt("MAX_UPLOAD_BYTES", constants.DefaultMaxUploadBytes)),

		CleanupWorkers:     getInt("CLEANUP_WORKERS", 2),
		CleanupQueueSize:   getInt("CLEANUP_QUEUE_SIZE", 256),
		OrphanLedger:       getEnv("ORPHAN_LEDGER", "redis"),
		JanitorInterval:    getDuration("JANITOR_INTERVAL", 10*time.Minute),
		JanitorMaxAttempts: getInt("JANITOR_MAX_ATTEMPTS", 5),

		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
	}
}

// RedisAddr returns the host:port pair used by both the session store and the orphan ledger
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// IsProduction reports whether gin runs in release mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
