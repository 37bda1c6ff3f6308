package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port   string
	JWTKey string

	DBDriver   string
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	AppBaseURL string // absolute base URL used in emails and payment callbacks

	PaystackSecretKey      string
	PaystackPublicKey      string
	PaystackBaseURL        string
	PaystackVerifyAttempts int // retry ceiling for the synchronous verify poll
	PaystackTimeoutSeconds int // per-attempt network timeout

	SendGridApiKey string
	EmailSender    string
	EmailFromName  string
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	AppConfig = &Config{
		Port:   getEnv("PORT", "3000"),
		JWTKey: getEnv("JWT_SECRET_KEY", "defaultSecret"),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "lms"),
		DBPort:     getEnv("DB_PORT", "5432"),

		AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:3000"),

		PaystackSecretKey:      getEnv("PAYSTACK_SECRET_KEY", ""),
		PaystackPublicKey:      getEnv("PAYSTACK_PUBLIC_KEY", ""),
		PaystackBaseURL:        getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		PaystackVerifyAttempts: getEnvInt("PAYSTACK_VERIFY_ATTEMPTS", 6),
		PaystackTimeoutSeconds: getEnvInt("PAYSTACK_TIMEOUT_SECONDS", 10),

		SendGridApiKey: getEnv("SENDGRID_API_KEY", ""),
		EmailSender:    getEnv("EMAIL_SENDER", "noreply@localhost"),
		EmailFromName:  getEnv("EMAIL_FROM_NAME", "TechoHR Academy"),
	}

	// Validate critical configuration
	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if !AppConfig.PaymentConfigured() {
		log.Println("Warning: PAYSTACK_SECRET_KEY not set. Paid course checkout is disabled.")
	}
}

// PaymentConfigured reports whether Paystack keys are usable
func (c *Config) PaymentConfigured() bool {
	return c.PaystackSecretKey != "" && c.PaystackSecretKey != "PAYSTACK_SECRET_KEY"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}
