package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	// DynamoDB table names
	ContentTable  string
	ServicesTable string
	BookingsTable string
	MembersTable  string

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Cognito
	CognitoRegion     string
	CognitoUserPoolID string
	CognitoClientID   string
	AdminGroup        string
	LifeMemberGroup   string

	// Stripe
	StripeSecretKey string
	StripeDryRun    bool

	// Notifications
	BookingEventsQueueURL string
	SNSSenderID           string
	EmailProvider         string
	SESFromEmail          string
	SESFromName           string
	SendGridAPIKey        string
	SendGridFromEmail     string
	SendGridFromName      string

	// Content fallback snapshot
	FallbackBucket string
	FallbackKey    string

	// Content cache
	RedisAddr       string
	RedisPassword   string
	RedisTLS        bool
	ContentCacheTTL time.Duration

	// Booking rules
	TempleOpenHour     int
	TempleCloseHour    int
	CleaningFeeMinimum int
	CancelNoticeHours  int
	TempleTimezone     string

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		ContentTable:  getEnv("CONTENT_TABLE", "mandir_content"),
		ServicesTable: getEnv("SERVICES_TABLE", "mandir_services"),
		BookingsTable: getEnv("BOOKINGS_TABLE", "mandir_bookings"),
		MembersTable:  getEnv("MEMBERS_TABLE", "mandir_members"),

		AWSRegion:           getEnv("AWS_REGION", "ap-southeast-2"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		CognitoRegion:     getEnv("COGNITO_REGION", getEnv("AWS_REGION", "ap-southeast-2")),
		CognitoUserPoolID: getEnv("COGNITO_USER_POOL_ID", ""),
		CognitoClientID:   getEnv("COGNITO_CLIENT_ID", ""),
		AdminGroup:        getEnv("COGNITO_ADMIN_GROUP", "admin"),
		LifeMemberGroup:   getEnv("COGNITO_LIFE_MEMBER_GROUP", "life-members"),

		StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		StripeDryRun:    getEnvAsBool("STRIPE_DRY_RUN", false),

		BookingEventsQueueURL: getEnv("BOOKING_EVENTS_QUEUE_URL", ""),
		SNSSenderID:           getEnv("SNS_SENDER_ID", "Mandir"),
		EmailProvider:         strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "ses"))),
		SESFromEmail:          getEnv("SES_FROM_EMAIL", ""),
		SESFromName:           getEnv("SES_FROM_NAME", "Shree Mandir"),
		SendGridAPIKey:        getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail:     getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:      getEnv("SENDGRID_FROM_NAME", "Shree Mandir"),

		FallbackBucket: getEnv("FALLBACK_SNAPSHOT_BUCKET", ""),
		FallbackKey:    getEnv("FALLBACK_SNAPSHOT_KEY", "fallback-content.json"),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisTLS:        getEnvAsBool("REDIS_TLS", false),
		ContentCacheTTL: getEnvAsDuration("CONTENT_CACHE_TTL", 5*time.Minute),

		TempleOpenHour:     getEnvAsInt("TEMPLE_OPEN_HOUR", 8),
		TempleCloseHour:    getEnvAsInt("TEMPLE_CLOSE_HOUR", 20),
		CleaningFeeMinimum: getEnvAsInt("CLEANING_FEE_MINIMUM", 21),
		CancelNoticeHours:  getEnvAsInt("CANCEL_NOTICE_HOURS", 48),
		TempleTimezone:     getEnv("TEMPLE_TIMEZONE", "Australia/Sydney"),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
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

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
