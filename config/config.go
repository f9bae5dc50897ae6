package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	MinIO    MinIOConfig
	Kafka    KafkaConfig
	Server   ServerConfig
	Token    TokenConfig
}

type DatabaseConfig struct {
	DBUser     string
	DBPassword string
	DBName     string
	DBHost     string
	DBPort     string
}

type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	BucketName      string
}

type KafkaConfig struct {
	Brokers string
	Topic   string
}

type ServerConfig struct {
	HTTPPort    string
	MetricsPort string
	JWTSecret   string
	BaseURL     string
}

type TokenConfig struct {
	MaxTTL        time.Duration
	DefaultTTL    time.Duration
	SweepInterval time.Duration
}

func LoadConfig() *Config {
	// .env 可选,容器环境直接注入环境变量
	_ = godotenv.Load()

	return &Config{
		Database: DatabaseConfig{
			DBUser:     getEnv("DB_USER", "postgres"),
			DBPassword: getEnv("DB_PASSWORD", "postgres"),
			DBName:     getEnv("DB_NAME", "docvault"),
			DBHost:     getEnv("DB_HOST", "localhost"),
			DBPort:     getEnv("DB_PORT", "5432"),
		},
		MinIO: MinIOConfig{
			Endpoint:        os.Getenv("MINIO_ENDPOINT"),
			AccessKeyID:     getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			UseSSL:          false,
			BucketName:      getEnv("MINIO_BUCKET_NAME", "docvault"),
		},
		Kafka: KafkaConfig{
			Brokers: os.Getenv("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "docvault.events"),
		},
		Server: ServerConfig{
			HTTPPort:    getEnv("HTTP_PORT", "8080"),
			MetricsPort: getEnv("METRICS_PORT", "2112"),
			JWTSecret:   os.Getenv("JWT_SECRET"),
			BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		},
		Token: TokenConfig{
			MaxTTL:        time.Duration(getEnvInt("TOKEN_MAX_TTL_MINUTES", 24*60)) * time.Minute,
			DefaultTTL:    time.Duration(getEnvInt("TOKEN_DEFAULT_TTL_MINUTES", 30)) * time.Minute,
			SweepInterval: time.Duration(getEnvInt("TOKEN_SWEEP_INTERVAL_MINUTES", 10)) * time.Minute,
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
