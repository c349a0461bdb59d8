package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// KhaltiConfig holds credentials and endpoints for the wallet gateway.
type KhaltiConfig struct {
	BaseURL   string
	SecretKey string
	PublicKey string
}

// EsewaConfig holds credentials and endpoints for the bank-redirect gateway.
type EsewaConfig struct {
	SecretKey    string
	MerchantCode string
	ProductCode  string
	PaymentURL   string // hosted form endpoint the browser posts to
	VerifyURL    string // legacy transaction-record verification endpoint
}

// SMTPConfig holds outbound mail settings. An empty Host disables SMTP and
// verification links are logged instead.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string
	BaseURL     string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	JWTSecret   string
	Khalti      KhaltiConfig
	Esewa       EsewaConfig
	SMTP        SMTPConfig
	SwaggerHost string
}

// Load builds Config from environment with sensible defaults. A .env file in
// the working directory is read first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		BaseURL:    getEnv("BASE_URL", "http://localhost:8080"),
		MySQLDSN:   getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/pawhaven?charset=utf8mb4&parseTime=True&loc=Local"),
		RedisAddr:  getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:    getEnvInt("REDIS_DB", 0),
		RedisPass:  os.Getenv("REDIS_PASSWORD"),
		JWTSecret:  getEnv("JWT_SECRET", "change-me"),
		Khalti: KhaltiConfig{
			BaseURL:   getEnv("KHALTI_BASE_URL", "https://a.khalti.com/api/v2"),
			SecretKey: os.Getenv("KHALTI_SECRET_KEY"),
			PublicKey: os.Getenv("KHALTI_PUBLIC_KEY"),
		},
		Esewa: EsewaConfig{
			SecretKey:    os.Getenv("ESEWA_SECRET_KEY"),
			MerchantCode: getEnv("ESEWA_MERCHANT_CODE", "EPAYTEST"),
			ProductCode:  getEnv("ESEWA_PRODUCT_CODE", "EPAYTEST"),
			PaymentURL:   getEnv("ESEWA_PAYMENT_URL", "https://rc-epay.esewa.com.np/api/epay/main/v2/form"),
			VerifyURL:    getEnv("ESEWA_VERIFY_URL", "https://uat.esewa.com.np/epay/transrec"),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("SMTP_FROM", "no-reply@pawhaven.local"),
		},
		SwaggerHost: os.Getenv("SWAGGER_HOST"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}
