package config

import (
	"os"
	"strconv"
	"time"

	"github.com/ipede/authorization-server/internal/domain"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Database configuration
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	// Issuer configuration
	Issuer     string
	LoginURL   string // external login page, receives ?request=<id>
	ConsentURL string // external consent page, receives ?request=<id>

	// Token configuration
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration

	// Signing key configuration
	JWTKeyPath string

	// Vault configuration
	VaultAddress   string
	VaultToken     string
	VaultMountPath string
	VaultKeyName   string
	VaultTimeout   time.Duration

	// Server configuration
	ServerPort int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env from project root
	_ = godotenv.Load()

	accessDuration, err := time.ParseDuration(getEnv("ACCESS_TOKEN_DURATION", "1h"))
	if err != nil {
		return nil, err
	}

	refreshDuration, err := time.ParseDuration(getEnv("REFRESH_TOKEN_DURATION", "720h"))
	if err != nil {
		return nil, err
	}

	vaultTimeout, err := time.ParseDuration(getEnv("VAULT_TIMEOUT", "5s"))
	if err != nil {
		return nil, err
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "owner"),
		DBPassword: getEnv("DB_PASSWORD", "ownerTest"),
		DBName:     getEnv("DB_NAME", "oauth"),

		Issuer:     getEnv("ISSUER_URL", "http://localhost:8080"),
		LoginURL:   getEnv("LOGIN_URL", "http://localhost:3000/login"),
		ConsentURL: getEnv("CONSENT_URL", "http://localhost:3000/consent"),

		AccessTokenDuration:  accessDuration,
		RefreshTokenDuration: refreshDuration,

		JWTKeyPath: getEnv("JWT_KEY_PATH", "keys/jwt.pem"),

		VaultAddress:   getEnv("VAULT_ADDRESS", "http://localhost:8200"),
		VaultToken:     getEnv("VAULT_TOKEN", ""),
		VaultMountPath: getEnv("VAULT_MOUNT_PATH", "transit"),
		VaultKeyName:   getEnv("VAULT_KEY_NAME", "jwt-signing-key"),
		VaultTimeout:   vaultTimeout,

		ServerPort: getEnvInt("PORT", 8080),
	}, nil
}

// LocalConfig projects the signing key settings for the local strategy
func (c *Config) LocalConfig() *domain.LocalConfig {
	return &domain.LocalConfig{KeyPath: c.JWTKeyPath}
}

// VaultConfig projects the Vault settings for the transit strategy
func (c *Config) VaultConfig() *domain.VaultConfig {
	return &domain.VaultConfig{
		Address:   c.VaultAddress,
		Token:     c.VaultToken,
		MountPath: c.VaultMountPath,
		KeyName:   c.VaultKeyName,
		Timeout:   c.VaultTimeout,
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.Atoi(value)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}
