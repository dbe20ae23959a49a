package config

import (
	"os"
	"strconv"
)

type Config struct {
	DB         DBConfig
	JWT        JWTConfig
	Server     ServerConfig
	Invitation InvitationConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

type ServerConfig struct {
	Port string
}

type InvitationConfig struct {
	ExpiryDays int
}

func Load() *Config {
	return &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "shoppy"),
			Password: getEnv("DB_PASSWORD", "shoppy_secret"),
			Name:     getEnv("DB_NAME", "shoppy"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", "change-me-in-production"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24*7),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "4000"),
		},
		Invitation: InvitationConfig{
			ExpiryDays: getEnvAsInt("INVITATION_EXPIRY_DAYS", 7),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
