package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string
	JWTSecret    string
	ServerPort   string
	BaseURL      string // public origin used to build certificate verification links
	CertIDPrefix string
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	return &Config{
		DBHost:       getEnv("DB_HOST", "localhost"),
		DBPort:       getEnv("DB_PORT", "5432"),
		DBUser:       getEnv("DB_USER", "postgres"),
		DBPassword:   getEnv("DB_PASSWORD", "postgres"),
		DBName:       getEnv("DB_NAME", "elyra"),
		JWTSecret:    getEnv("JWT_SECRET", "secret"),
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		BaseURL:      getEnv("BASE_URL", "http://localhost:8080"),
		CertIDPrefix: getEnv("CERT_ID_PREFIX", "ELY"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
