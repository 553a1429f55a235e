package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DatabaseURL string

	// WhatsApp Cloud API
	WhatsAppToken   string
	WhatsAppPhoneID string
	VerifyToken     string

	// Receipt extraction
	OpenAIKey string

	// Beneficiary (the restaurant's PIX identity)
	PixKey              string
	BeneficiaryName     string
	BeneficiaryDocument string

	// Order service
	OrdersBaseURL string

	// Card payment gateway
	GatewayClientID     string
	GatewayClientSecret string
	GatewayTokenURL     string
	GatewayBaseURL      string

	// Operator alerts (optional)
	DiscordToken      string
	DiscordOpsChannel string

	// Web server
	WebBind   string
	JWTSecret string

	// Timings
	PaymentReminderAfter time.Duration
	ClaimInactivity      time.Duration
	RetryAttempts        int
	RetryDelay           time.Duration
}

func Load() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		WhatsAppToken:       os.Getenv("WHATSAPP_TOKEN"),
		WhatsAppPhoneID:     os.Getenv("WHATSAPP_PHONE_ID"),
		VerifyToken:         getEnvDefault("WHATSAPP_VERIFY_TOKEN", "pagbot-verify"),
		OpenAIKey:           os.Getenv("OPENAI_API_KEY"),
		PixKey:              os.Getenv("PIX_KEY"),
		BeneficiaryName:     os.Getenv("BENEFICIARY_NAME"),
		BeneficiaryDocument: os.Getenv("BENEFICIARY_DOCUMENT"),
		OrdersBaseURL:       os.Getenv("ORDERS_BASE_URL"),
		GatewayClientID:     os.Getenv("GATEWAY_CLIENT_ID"),
		GatewayClientSecret: os.Getenv("GATEWAY_CLIENT_SECRET"),
		GatewayTokenURL:     os.Getenv("GATEWAY_TOKEN_URL"),
		GatewayBaseURL:      os.Getenv("GATEWAY_BASE_URL"),
		DiscordToken:        os.Getenv("DISCORD_TOKEN"),
		DiscordOpsChannel:   os.Getenv("DISCORD_OPS_CHANNEL"),
		WebBind:             getEnvDefault("WEB_BIND", "0.0.0.0:3000"),
		JWTSecret:           getEnvDefault("JWT_SECRET", "dev-only-change-me"),

		PaymentReminderAfter: getEnvMinutes("PAYMENT_REMINDER_MINUTES", 10),
		ClaimInactivity:      getEnvMinutes("CLAIM_INACTIVITY_MINUTES", 30),
		RetryAttempts:        getEnvInt("RETRY_ATTEMPTS", 5),
		RetryDelay:           getEnvSeconds("RETRY_DELAY_SECONDS", 5),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.WhatsAppToken == "" {
		return nil, fmt.Errorf("WHATSAPP_TOKEN is required")
	}
	if cfg.WhatsAppPhoneID == "" {
		return nil, fmt.Errorf("WHATSAPP_PHONE_ID is required")
	}
	if cfg.PixKey == "" {
		return nil, fmt.Errorf("PIX_KEY is required")
	}
	if cfg.BeneficiaryName == "" {
		return nil, fmt.Errorf("BENEFICIARY_NAME is required")
	}
	if cfg.OrdersBaseURL == "" {
		return nil, fmt.Errorf("ORDERS_BASE_URL is required")
	}

	return cfg, nil
}

func getEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getEnvMinutes(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvInt(key, defaultValue)) * time.Minute
}

func getEnvSeconds(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvInt(key, defaultValue)) * time.Second
}
