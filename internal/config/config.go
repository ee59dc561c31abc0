package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string

	// Scheduling
	Timezone            string
	WorkingHoursStart   int
	WorkingHoursEnd     int
	SlotDurationMinutes int
	AvailabilityDays    int

	// Availability classifier
	ClassifierDataFile string

	// LLM
	GeminiAPIKey      string
	GeminiModelID     string
	ModelMaxAttempts  int
	ModelCallTimeout  time.Duration
	MaxToolCycles     int
	ConversationRedis string
	RedisPassword     string

	// Notifications
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	// Confirmation artifacts / visitor images
	ArtifactDir       string
	ArtifactS3Bucket  string
	AWSRegion         string
	MaxImageSizeBytes int64
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		Timezone:            getEnv("TIMEZONE", "Asia/Kolkata"),
		WorkingHoursStart:   getEnvAsInt("WORKING_HOURS_START", 9),
		WorkingHoursEnd:     getEnvAsInt("WORKING_HOURS_END", 17),
		SlotDurationMinutes: getEnvAsInt("SLOT_DURATION_MINUTES", 30),
		AvailabilityDays:    getEnvAsInt("AVAILABILITY_SEARCH_DAYS", 7),

		ClassifierDataFile: getEnv("CLASSIFIER_DATA_FILE", "data/appointment_data.csv"),

		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:     getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		ModelMaxAttempts:  getEnvAsInt("MODEL_MAX_ATTEMPTS", 3),
		ModelCallTimeout:  getEnvAsDuration("MODEL_CALL_TIMEOUT", 60*time.Second),
		MaxToolCycles:     getEnvAsInt("MAX_TOOL_CYCLES", 8),
		ConversationRedis: getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Clinic Reception"),

		ArtifactDir:       getEnv("ARTIFACT_DIR", "static/images"),
		ArtifactS3Bucket:  getEnv("ARTIFACT_S3_BUCKET", ""),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		MaxImageSizeBytes: int64(getEnvAsInt("MAX_IMAGE_SIZE_BYTES", 5*1024*1024)),
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
