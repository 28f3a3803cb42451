// Package config reads server settings from flags, the environment and an
// optional .env file. Flags win over the environment.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/mmynk/splitledger/internal/ledger"
)

type Config struct {
	Port        int
	DBPath      string
	JWTSecret   string
	TokenTTL    time.Duration
	LogLevel    string
	EvenDivisor ledger.Divisor
	PayerRule   ledger.PayerRule
}

const (
	defaultPort     = 8080
	defaultDBPath   = "./data/splitledger.db"
	defaultTokenTTL = 24 * time.Hour
)

// Load reads envFile into the environment when it exists, then parses args.
// Variables already set in the environment are not overwritten.
func Load(envFile string, args []string) (Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}
	return ParseFlags(args)
}

// ParseFlags validates flags and falls back to environment variables.
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var ttl, divisor, payerRule string

	fs := flag.NewFlagSet("splitledger", flag.ContinueOnError)

	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DBPath, "db", "", "SQLite database path")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&ttl, "token-ttl", "", "Session token lifetime, e.g. 24h")
	fs.StringVar(&divisor, "even-divisor", "", "Even split divisor for balances (participants or consumers)")
	fs.StringVar(&payerRule, "payer-rule", "", "Multi-payer attribution for balances (membership or split)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "JWT signing secret (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = defaultPort
		}
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("port %d out of range", cfg.Port)
	}

	if cfg.DBPath == "" {
		cfg.DBPath = getEnv("DB_PATH", defaultDBPath)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	}

	if ttl == "" {
		ttl = os.Getenv("TOKEN_TTL")
	}
	cfg.TokenTTL = defaultTokenTTL
	if ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid TOKEN_TTL %q", ttl)
		}
		cfg.TokenTTL = d
	}

	if divisor == "" {
		divisor = os.Getenv("EVEN_DIVISOR")
	}
	d, ok := ledger.ParseDivisor(divisor)
	if !ok {
		return Config{}, fmt.Errorf("invalid EVEN_DIVISOR %q (want participants or consumers)", divisor)
	}
	cfg.EvenDivisor = d

	if payerRule == "" {
		payerRule = os.Getenv("PAYER_RULE")
	}
	rule, ok := ledger.ParsePayerRule(payerRule)
	if !ok {
		return Config{}, fmt.Errorf("invalid PAYER_RULE %q (want membership or split)", payerRule)
	}
	cfg.PayerRule = rule

	// Secrets - MUST be provided
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = os.Getenv("JWT_SECRET")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
