package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/core-coin/go-core/v2/common"
	"github.com/joho/godotenv"
)

type Config struct {
	Development bool
	// API configuration
	APIPort int
	// Storage configuration
	InMemoryStore    bool
	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     int
	PostgresDB       string
	// Blockchain configuration
	ChainRPCURL           string
	TokenContractAddress  string
	ChainID               int64
	TokenDecimals         int
	RequiredConfirmations uint64

	// Payment gate configuration
	PlatformWallet      string
	PlatformFeeBps      int64
	ChallengeTTLSeconds int64

	// SMTP configuration
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPSender   string

	// Notification configuration
	TelegramBotToken string
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Development:      getEnvAsBool("DEVELOPMENT", false),
		InMemoryStore:    getEnvAsBool("IN_MEMORY_STORE", false),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "password"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnvAsInt("POSTGRES_PORT", 5432),
		PostgresDB:       getEnv("POSTGRES_DB", "creatorpay"),

		ChainRPCURL:           getEnv("CHAIN_RPC_URL", "http://localhost:8545"),
		TokenContractAddress:  getEnv("TOKEN_CONTRACT_ADDRESS", ""),
		ChainID:               getEnvAsInt64("CHAIN_ID", 1),
		TokenDecimals:         getEnvAsInt("TOKEN_DECIMALS", 6),
		RequiredConfirmations: uint64(getEnvAsInt64("REQUIRED_CONFIRMATIONS", 1)),

		PlatformWallet:      getEnv("PLATFORM_WALLET", ""),
		PlatformFeeBps:      getEnvAsInt64("PLATFORM_FEE_BPS", 2000),
		ChallengeTTLSeconds: getEnvAsInt64("CHALLENGE_TTL_SECONDS", 300),

		SMTPHost:     getEnv("SMTP_HOST", "smtp.example.com"),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPSender:   getEnv("SMTP_SENDER", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),

		APIPort: getEnvAsInt("API_PORT", 6532),
	}

	// Set default network ID before validation (required for address validation)
	common.DefaultNetworkID = common.NetworkID(cfg.ChainID)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are properly set
func (c *Config) Validate() error {
	if c.TokenContractAddress == "" {
		return fmt.Errorf("TOKEN_CONTRACT_ADDRESS is required")
	}

	if _, err := common.HexToAddress(c.TokenContractAddress); err != nil {
		return fmt.Errorf("invalid TOKEN_CONTRACT_ADDRESS format: %w", err)
	}

	if c.PlatformWallet != "" {
		if _, err := common.HexToAddress(c.PlatformWallet); err != nil {
			return fmt.Errorf("invalid PLATFORM_WALLET format: %w", err)
		}
	}

	if c.ChainRPCURL == "" {
		return fmt.Errorf("CHAIN_RPC_URL is required")
	}

	if c.PlatformFeeBps < 0 || c.PlatformFeeBps > 10000 {
		return fmt.Errorf("PLATFORM_FEE_BPS must be between 0 and 10000, got %d", c.PlatformFeeBps)
	}

	if c.ChallengeTTLSeconds <= 0 {
		return fmt.Errorf("CHALLENGE_TTL_SECONDS must be positive, got %d", c.ChallengeTTLSeconds)
	}

	if c.TokenDecimals < 0 || c.TokenDecimals > 77 {
		return fmt.Errorf("TOKEN_DECIMALS out of range: %d", c.TokenDecimals)
	}

	if !c.InMemoryStore {
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required")
		}
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
	}

	return nil
}

// Helper functions to read environment variables
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsInt64(name string, defaultValue int64) int64 {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
