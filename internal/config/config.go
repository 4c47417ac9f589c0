package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string
	SNSRegion      string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	// OTP lifecycle knobs. Defaults match the mobile client's expectations;
	// override only in tests or load environments.
	OTPTTL             time.Duration
	OTPMaxAttempts     int
	OTPSweepInterval   time.Duration
	EmailMaxAttempts   int // account-level ceiling, coarser than the per-code one
	SendCooldown       time.Duration
	DedupTTL           time.Duration
	DedupSweepInterval time.Duration

	DeliveryTimeout time.Duration
	DeliveryRetries int

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Accounts string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Accounts: getEnv("DYNAMO_TABLE_ACCOUNTS", "wallet_accounts"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "wallet-kyc-documents"),
		SNSRegion:    getEnv("SNS_REGION", "us-east-1"),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         getEnvDuration("JWT_EXPIRY", 7*24*time.Hour),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		OTPTTL:             getEnvDuration("OTP_TTL", 5*time.Minute),
		OTPMaxAttempts:     getEnvInt("OTP_MAX_ATTEMPTS", 3),
		OTPSweepInterval:   getEnvDuration("OTP_SWEEP_INTERVAL", 10*time.Minute),
		EmailMaxAttempts:   getEnvInt("EMAIL_MAX_ATTEMPTS", 5),
		SendCooldown:       getEnvDuration("SEND_COOLDOWN", 60*time.Second),
		DedupTTL:           getEnvDuration("DEDUP_TTL", 30*time.Second),
		DedupSweepInterval: getEnvDuration("DEDUP_SWEEP_INTERVAL", 5*time.Minute),

		DeliveryTimeout: getEnvDuration("DELIVERY_TIMEOUT", 10*time.Second),
		DeliveryRetries: getEnvInt("DELIVERY_RETRIES", 2),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
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

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
