package config

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	// empty DBURL keeps users in memory
	DBURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string
	JWTTTL    time.Duration

	AI AIConfig

	OTELEndpoint    string
	OTELServiceName string

	CORSAllowedOrigins []string
	SeedDemoUsers      bool
	MaxBodyBytes       int64

	RateLimitAuth   int
	RateLimitAI     int
	RateLimitWindow time.Duration
}

type AIConfig struct {
	Provider          string
	Endpoint          string
	CustomerID        string
	Authorization     string
	DefaultChatModel  string
	DefaultImageModel string
	GeminiAPIKey      string
	Temperature       float64
	MaxTokens         int
	ExamMaxTokens     int
	Timeout           time.Duration
}

const (
	ProviderHTTP   = "http"
	ProviderGemini = "gemini"

	defaultGeminiModel = "gemini-1.5-flash-latest"
)

func Load() Config {
	// .env is optional; the process environment always wins
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, relying on environment variables")
	}

	cfg := Config{
		Env:   getEnv("APP_ENV", "dev"),
		Port:  getEnvInt("PORT", 8080),
		DBURL: getEnv("DB_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret: getEnv("JWT_SECRET", "dev-only-jwt-secret-change-me"),
		JWTTTL:    getEnvDuration("JWT_TTL", 7*24*time.Hour),

		AI: AIConfig{
			Provider:          strings.ToLower(getEnv("AI_PROVIDER", ProviderHTTP)),
			Endpoint:          getEnv("AI_API_ENDPOINT", "https://oi-server.onrender.com/chat/completions"),
			CustomerID:        getEnv("AI_CUSTOMER_ID", ""),
			Authorization:     getEnv("AI_AUTHORIZATION", ""),
			DefaultChatModel:  getEnv("DEFAULT_CHAT_MODEL", "openrouter/anthropic/claude-sonnet-4"),
			DefaultImageModel: getEnv("DEFAULT_IMAGE_MODEL", "replicate/black-forest-labs/flux-1.1-pro"),
			GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
			Temperature:       0.5,
			MaxTokens:         4000,
			ExamMaxTokens:     6000,
			Timeout:           getEnvDuration("AI_TIMEOUT", 5*time.Minute),
		},

		OTELEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELServiceName: getEnv("OTEL_SERVICE_NAME", "eduai-api"),

		CORSAllowedOrigins: csv(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		SeedDemoUsers:      getEnvBool("SEED_DEMO_USERS", true),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		RateLimitAuth:   getEnvInt("RATE_LIMIT_AUTH", 20),
		RateLimitAI:     getEnvInt("RATE_LIMIT_AI", 30),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
	}

	if cfg.AI.Provider == ProviderGemini && os.Getenv("DEFAULT_CHAT_MODEL") == "" {
		cfg.AI.DefaultChatModel = defaultGeminiModel
	}

	return cfg
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Warn("invalid integer env, using default", "key", key, "value", v)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid boolean env, using default", "key", key, "value", v)
			return fallback
		}
		return b
	}
	return fallback
}

// accepts Go durations ("90s", "168h")
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			slog.Warn("invalid duration env, using default", "key", key, "value", v)
			return fallback
		}
		return d
	}
	return fallback
}

func csv(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
