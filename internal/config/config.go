package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	ReliefServiceURL  string
	GeocodeServiceURL string
	JWTSecret         string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RabbitMQURL       string
	OTLPEndpoint      string
	TracingEnabled    bool
	AllowedOrigins    []string
	LoginRateLimit    int
	LoginRateWindow   time.Duration
	GlobalRateLimit   int
}

// Load reads configuration from the environment, optionally seeded by a .env
// file. Missing .env is fine - containers inject env vars directly.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	return &Config{
		Port:              GetString("HTTP_PORT", "8080"),
		ReliefServiceURL:  GetString("RELIEF_SERVICE_URL", "http://relief-backend:8080"),
		GeocodeServiceURL: GetString("GEOCODE_SERVICE_URL", "https://nominatim.openstreetmap.org"),
		JWTSecret:         GetString("JWT_SECRET", "change-me-secret"),
		RedisAddr:         GetString("REDIS_ADDR", ""),
		RedisPassword:     GetString("REDIS_PASSWORD", ""),
		RedisDB:           GetInt("REDIS_DB", 0),
		RabbitMQURL:       GetString("RABBITMQ_URL", ""),
		OTLPEndpoint:      GetString("OTLP_ENDPOINT", ""),
		TracingEnabled:    GetBool("TRACING_ENABLED", false),
		AllowedOrigins:    []string{GetString("ALLOWED_ORIGIN", "*")},
		LoginRateLimit:    GetInt("LOGIN_RATE_LIMIT", 10),
		LoginRateWindow:   time.Duration(GetInt("LOGIN_RATE_WINDOW_SECONDS", 60)) * time.Second,
		GlobalRateLimit:   GetInt("GLOBAL_RATE_LIMIT", 300),
	}
}

func GetString(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return val
}

func GetInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	valInt, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return valInt
}

func GetBool(key string, fallback bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	valBool, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return valBool
}
