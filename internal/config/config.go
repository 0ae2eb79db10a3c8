package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	PublicBaseURL  string
	LogLevel       string
	UseMemoryQueue bool
	WorkerCount    int
	DatabaseURL    string

	// Inbound event transport
	IngestQueueURL string

	// SMS (Twilio REST)
	TwilioAccountSID    string
	TwilioAuthToken     string
	TwilioFromNumber    string
	TwilioWebhookSecret string

	// Email
	EmailProvider     string
	SESFromEmail      string
	SESFromName       string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	// Escalation notifications
	TelegramBotToken string
	TelegramChatID   string

	// Decision engine
	DecisionProvider string
	BedrockModelID   string
	GeminiAPIKey     string
	GeminiModelID    string

	// Orchestrator
	ConfigCacheTTL time.Duration

	// Reminder scheduler
	ReminderBatchSize     int
	ReminderMaxAttempts   int
	ReminderRetryBackoff  time.Duration
	ReminderSweepInterval time.Duration

	AdminJWTSecret string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
}

// Load reads configuration from environment variables. A .env file is
// loaded first when present so local development matches deploy env vars.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", false),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 2),
		DatabaseURL:    getEnv("DATABASE_URL", ""),

		IngestQueueURL: getEnv("INGEST_QUEUE_URL", ""),

		TwilioAccountSID:    getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:     getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber:    getEnv("TWILIO_FROM_NUMBER", ""),
		TwilioWebhookSecret: getEnv("TWILIO_WEBHOOK_SECRET", ""),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "Guestline"),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Guestline"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		DecisionProvider: strings.ToLower(strings.TrimSpace(getEnv("DECISION_PROVIDER", "bedrock"))),
		BedrockModelID:   getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:    getEnv("GEMINI_MODEL_ID", "gemini-1.5-flash"),

		ConfigCacheTTL: getEnvAsDuration("CONFIG_CACHE_TTL", 10*time.Minute),

		ReminderBatchSize:     getEnvAsInt("REMINDER_BATCH_SIZE", 10),
		ReminderMaxAttempts:   getEnvAsInt("REMINDER_MAX_ATTEMPTS", 3),
		ReminderRetryBackoff:  getEnvAsDuration("REMINDER_RETRY_BACKOFF", 5*time.Minute),
		ReminderSweepInterval: getEnvAsDuration("REMINDER_SWEEP_INTERVAL", 2*time.Minute),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
