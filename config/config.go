package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	AppPort     string
	AppMode     string
	LogMode     string
	StoreDriver string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string

	JWTSecret    string
	JWTExpiryMin int

	RedisEnabled  bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	MaxActiveDevices     int
	PairingTokenTTLMin   int
	TokenGCIntervalSec   int
	MessageRateLimit     int
	MessageRateWindowSec int

	S3Region        string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	S3Endpoint      string
	S3PresignTTLMin int
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort:     getEnv("APP_PORT", "8080"),
		AppMode:     getEnv("APP_MODE", "debug"),
		LogMode:     getEnv("LOG_MODE", "development"),
		StoreDriver: getEnv("STORE_DRIVER", StoreDriverPostgres),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "pumpkin_chat"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:    getEnv("JWT_SECRET", "change-me"),
		JWTExpiryMin: getEnvAsInt("JWT_EXPIRY_MIN", 60*24),

		RedisEnabled:  getEnvAsBool("REDIS_ENABLED", false),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		MaxActiveDevices:     getEnvAsInt("MAX_ACTIVE_DEVICES", 5),
		PairingTokenTTLMin:   getEnvAsInt("PAIRING_TOKEN_TTL_MIN", 5),
		TokenGCIntervalSec:   getEnvAsInt("TOKEN_GC_INTERVAL_SEC", 60),
		MessageRateLimit:     getEnvAsInt("MESSAGE_RATE_LIMIT", 60),
		MessageRateWindowSec: getEnvAsInt("MESSAGE_RATE_WINDOW_SEC", 60),

		S3Region:        getEnv("S3_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3AccessKey:     getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:     getEnv("S3_SECRET_KEY", ""),
		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		S3PresignTTLMin: getEnvAsInt("S3_PRESIGN_TTL_MIN", 15),
	}
}

func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTExpiryMin) * time.Minute
}

func (c *Config) PairingTokenTTL() time.Duration {
	return time.Duration(c.PairingTokenTTLMin) * time.Minute
}

func (c *Config) TokenGCInterval() time.Duration {
	return time.Duration(c.TokenGCIntervalSec) * time.Second
}

func (c *Config) MessageRateWindow() time.Duration {
	return time.Duration(c.MessageRateWindowSec) * time.Second
}

func (c *Config) S3Enabled() bool {
	return c.S3Region != "" && c.S3Bucket != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}
