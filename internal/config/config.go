package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server       ServerConfig
	DynamoDB     DynamoDBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	OTP          OTPConfig
	SMS          SMSConfig
	Identity     IdentityConfig
	Confirmation ConfirmationConfig
	StatusLabel  StatusLabelConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DynamoDBConfig struct {
	Endpoint  string
	Region    string
	TableName string
}

type RedisConfig struct {
	Endpoint string
	Password string
	DB       int
}

type JWTConfig struct {
	SecretKey     string
	SessionExpiry time.Duration
}

type OTPConfig struct {
	Length      int
	Expiry      time.Duration
	MaxAttempts int
}

type SMSConfig struct {
	GatewayURL string
	APIKey     string
}

type IdentityConfig struct {
	FingerprintKey string
}

// ConfirmationConfig guards the asynchronous confirmation webhook.
type ConfirmationConfig struct {
	SharedSecret string
}

type StatusLabelConfig struct {
	CatalogPath string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		DynamoDB: DynamoDBConfig{
			Endpoint:  getEnv("DYNAMODB_ENDPOINT", ""),
			Region:    getEnv("DYNAMODB_REGION", "ap-south-1"),
			TableName: getEnv("DYNAMODB_TABLE_NAME", "SevaSetuTable"),
		},
		Redis: RedisConfig{
			Endpoint: getEnv("REDIS_ENDPOINT", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			SecretKey:     getEnv("JWT_SECRET_KEY", ""),
			SessionExpiry: getEnvAsDuration("JWT_SESSION_EXPIRY", 30*time.Minute),
		},
		OTP: OTPConfig{
			Length:      getEnvAsInt("OTP_LENGTH", 6),
			Expiry:      getEnvAsDuration("OTP_EXPIRY", 10*time.Minute),
			MaxAttempts: getEnvAsInt("OTP_MAX_ATTEMPTS", 5),
		},
		SMS: SMSConfig{
			GatewayURL: getEnv("SMS_GATEWAY_URL", ""),
			APIKey:     getEnv("SMS_GATEWAY_API_KEY", ""),
		},
		Identity: IdentityConfig{
			FingerprintKey: getEnv("IDENTITY_FINGERPRINT_KEY", ""),
		},
		Confirmation: ConfirmationConfig{
			SharedSecret: getEnv("CONFIRMATION_SHARED_SECRET", ""),
		},
		StatusLabel: StatusLabelConfig{
			CatalogPath: getEnv("STATUS_LABEL_CATALOG", "configs/status_labels.yaml"),
		},
	}

	if cfg.JWT.SecretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is required")
	}

	if len(cfg.JWT.SecretKey) < 32 {
		return nil, fmt.Errorf("JWT_SECRET_KEY must be at least 32 bytes (256 bits)")
	}

	if cfg.Identity.FingerprintKey == "" {
		return nil, fmt.Errorf("IDENTITY_FINGERPRINT_KEY environment variable is required")
	}

	if cfg.Confirmation.SharedSecret == "" {
		return nil, fmt.Errorf("CONFIRMATION_SHARED_SECRET environment variable is required")
	}

	return cfg, nil
}

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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
