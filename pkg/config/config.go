package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Stripe       StripeConfig
	JWT          JWTConfig
	AppURL       string
	DatabaseURL  string
	ResendAPIKey string
}

type ServerConfig struct {
	Port string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

type JWTConfig struct {
	Secret string
}

func Load() *Config {
	godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		AppURL:       getEnv("APP_URL", "http://localhost:3000"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		ResendAPIKey: getEnv("RESEND_API_KEY", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
