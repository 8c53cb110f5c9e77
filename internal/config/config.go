package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	JWTSecret string
	TokenTTL  time.Duration

	PaystackSecretKey string
	PaystackBaseURL   string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	EmailFrom    string

	S3Endpoint      string
	S3Region        string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	S3PublicBaseURL string

	AllowedEmailDomains []string

	AnonTextCost       int
	AnonMemeCost       int
	UsernameChangeCost int
	StartingCoins      int

	// PriceTable maps a coin bundle to the expected paid amount in whole
	// currency units, e.g. 20 coins -> 200.
	PriceTable map[int]float64
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        fallback(os.Getenv("PORT"), "8080"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisURL:    fallback(os.Getenv("REDIS_URL"), "redis://localhost:6379"),

		JWTSecret: strings.TrimSpace(os.Getenv("JWT_SECRET")),
		TokenTTL:  time.Duration(intEnv("TOKEN_TTL_HOURS", 168)) * time.Hour,

		PaystackSecretKey: strings.TrimSpace(os.Getenv("PAYSTACK_SECRET_KEY")),
		PaystackBaseURL:   fallback(os.Getenv("PAYSTACK_BASE_URL"), "https://api.paystack.co"),

		SMTPHost:     fallback(os.Getenv("SMTP_HOST"), "smtp.gmail.com"),
		SMTPPort:     intEnv("SMTP_PORT", 587),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		EmailFrom:    fallback(os.Getenv("EMAIL_FROM"), os.Getenv("SMTP_USER")),

		S3Endpoint:      os.Getenv("S3_ENDPOINT"),
		S3Region:        fallback(os.Getenv("S3_REGION"), "us-east-1"),
		S3Bucket:        fallback(os.Getenv("S3_BUCKET"), "memes"),
		S3AccessKey:     os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:     os.Getenv("S3_SECRET_KEY"),
		S3PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),

		AllowedEmailDomains: parseCSV(fallback(os.Getenv("ALLOWED_EMAIL_DOMAINS"), "edu,ac.uk,edu.au,edu.in")),

		AnonTextCost:       intEnv("ANON_TEXT_COST", 2),
		AnonMemeCost:       intEnv("ANON_MEME_COST", 4),
		UsernameChangeCost: intEnv("USERNAME_CHANGE_COST", 70),
		StartingCoins:      intEnv("STARTING_COINS", 10),
	}

	table, err := parsePriceTable(fallback(os.Getenv("COIN_PRICE_TABLE"), "20=200,50=400,100=700"))
	if err != nil {
		return nil, err
	}
	cfg.PriceTable = table

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.PaystackSecretKey == "" {
		return nil, errors.New("PAYSTACK_SECRET_KEY is required")
	}

	return cfg, nil
}

// parsePriceTable parses "20=200,50=400,100=700" into bundle -> amount.
func parsePriceTable(input string) (map[int]float64, error) {
	table := make(map[int]float64)
	for _, pair := range strings.Split(input, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid COIN_PRICE_TABLE entry %q", pair)
		}
		coins, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil || coins <= 0 {
			return nil, fmt.Errorf("invalid coin bundle in COIN_PRICE_TABLE entry %q", pair)
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil || amount <= 0 {
			return nil, fmt.Errorf("invalid amount in COIN_PRICE_TABLE entry %q", pair)
		}
		table[coins] = amount
	}
	if len(table) == 0 {
		return nil, errors.New("COIN_PRICE_TABLE is empty")
	}
	return table, nil
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func intEnv(key string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && v > 0 {
		return v
	}
	return def
}

func parseCSV(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
