package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	OAuth       OAuthConfig
	Flutterwave FlutterwaveConfig
	Ledger      LedgerConfig
	Payment     PaymentConfig
	Forwarder   ForwarderConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

// OAuthConfig holds Google sign-in credentials. All fields empty means
// social login is disabled and the endpoints answer 503.
type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

// FlutterwaveConfig holds gateway credentials. SecretHash authenticates
// inbound webhooks (verif-hash header); SecretKey authorizes outbound API
// calls; PublicKey is handed to the browser checkout and is never used for
// verification server-side.
type FlutterwaveConfig struct {
	BaseURL     string
	SecretKey   string
	SecretHash  string
	PublicKey   string
	RedirectURL string
}

// LedgerConfig points at the wallet system of record.
type LedgerConfig struct {
	BaseURL string
	Timeout time.Duration
}

type PaymentConfig struct {
	IntentExpiry time.Duration
	MinAmountK   int64 // minimum funding amount in kobo
	MaxAmountK   int64
}

// ForwarderConfig tunes the ledger delivery worker.
type ForwarderConfig struct {
	PollInterval time.Duration
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
	BatchSize    int
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

// Load builds the config from the environment. The webhook secret hash is
// required: a service that cannot authenticate webhooks must not start.
func Load() (*Config, error) {
	secretHash := os.Getenv("FLW_SECRET_HASH")
	if secretHash == "" {
		return nil, fmt.Errorf("FLW_SECRET_HASH environment variable is required")
	}
	return &Config{
		Server: ServerConfig{
			Port:         env("SERVER_PORT", "8090"),
			Env:          env("ENVIRONMENT", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             env("DB_DSN", "starktol:starktol@tcp(localhost:3306)/starktol?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret:  env("JWT_ACCESS_SECRET", "change-me-in-production"),
			RefreshSecret: env("JWT_REFRESH_SECRET", "change-me-refresh"),
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 168 * time.Hour,
			Issuer:        "starktol",
		},
		OAuth: OAuthConfig{
			GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			GoogleRedirectURL:  env("GOOGLE_REDIRECT_URL", "https://app.starktol.com/auth/google/callback"),
		},
		Flutterwave: FlutterwaveConfig{
			BaseURL:     env("FLW_BASE_URL", "https://api.flutterwave.com/v3"),
			SecretKey:   os.Getenv("FLW_SECRET_KEY"),
			SecretHash:  secretHash,
			PublicKey:   os.Getenv("FLW_PUBLIC_KEY"),
			RedirectURL: env("FLW_REDIRECT_URL", "https://app.starktol.com/dashboard/fund-wallet/verify"),
		},
		Ledger: LedgerConfig{
			BaseURL: env("LEDGER_BASE_URL", "http://localhost:8091"),
			Timeout: 30 * time.Second,
		},
		Payment: PaymentConfig{
			IntentExpiry: 30 * time.Minute,
			MinAmountK:   envInt64("PAYMENT_MIN_KOBO", 100*100),    // NGN 100
			MaxAmountK:   envInt64("PAYMENT_MAX_KOBO", 500000*100), // NGN 500,000
		},
		Forwarder: ForwarderConfig{
			PollInterval: time.Second,
			BaseDelay:    time.Second,
			MaxDelay:     60 * time.Second,
			MaxAttempts:  5,
			BatchSize:    20,
		},
	}, nil
}
