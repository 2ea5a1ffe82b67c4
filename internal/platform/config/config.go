package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LogLevel  string
	LogFormat string

	TranslationProvider       string
	DeepLAPIKey               string
	DeepLAPIURL               string
	DeepLRequestsPerSecond    float64
	DeepLBurst                int
	TranslationQueueName      string
	TranslationLockPrefix     string
	TranslationLockTTLSeconds int
	TranslationCacheTTL       time.Duration
	TranslatorEndpointURL     string
	TranslationWebhookURL     string
	WebhookSecret             string

	// InProcessWorker runs the translation worker inside the API server.
	InProcessWorker bool

	PreferenceFallbackDelays []time.Duration
	PreferenceTTL            time.Duration
}

var AppConfig *Config

const (
	ProviderDeepL    = "deepl"
	ProviderExternal = "external"
	ProviderNone     = "none"
)

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, relying on environment variables")
	}
	AppConfig = FromEnv()
}

// FromEnv builds a Config from the process environment without touching .env.
func FromEnv() *Config {
	cfg := &Config{
		APIPort:                   getEnv("API_PORT", "8080"),
		JWTKey:                    []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:                    time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		DBHost:                    getEnv("DB_HOST", "localhost"),
		DBPort:                    getEnv("DB_PORT", "5432"),
		DBUser:                    getEnv("DB_USER", "user"),
		DBPassword:                getEnv("DB_PASSWORD", "password"),
		DBName:                    getEnv("DB_NAME", "hanru_board"),
		DBSslMode:                 getEnv("DB_SSLMODE", "disable"),
		RedisAddr:                 getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:             getEnv("REDIS_PASSWORD", ""),
		RedisDB:                   getEnvAsInt("REDIS_DB", 0),
		LogLevel:                  getEnv("LOG_LEVEL", "info"),
		LogFormat:                 getEnv("LOG_FORMAT", "console"),
		TranslationProvider:       strings.ToLower(getEnv("TRANSLATION_PROVIDER", ProviderDeepL)),
		DeepLAPIKey:               getEnv("DEEPL_API_KEY", ""),
		DeepLAPIURL:               getEnv("DEEPL_API_URL", "https://api-free.deepl.com/v2/translate"),
		DeepLRequestsPerSecond:    float64(getEnvAsInt("DEEPL_REQUESTS_PER_SECOND", 5)),
		DeepLBurst:                getEnvAsInt("DEEPL_BURST", 3),
		TranslationQueueName:      getEnv("TRANSLATION_QUEUE_NAME", "translation_jobs_queue"),
		TranslationLockPrefix:     getEnv("TRANSLATION_LOCK_PREFIX", "translation_lock:"),
		TranslationLockTTLSeconds: getEnvAsInt("TRANSLATION_LOCK_TTL_SECONDS", 120),
		TranslationCacheTTL:       time.Duration(getEnvAsInt("TRANSLATION_CACHE_TTL_HOURS", 24)) * time.Hour,
		TranslatorEndpointURL:     getEnv("TRANSLATOR_ENDPOINT_URL", ""),
		TranslationWebhookURL:     getEnv("TRANSLATION_WEBHOOK_URL", "http://localhost:8080/api/v1/webhook/translation"),
		WebhookSecret:             getEnv("WEBHOOK_SECRET", ""),
		InProcessWorker:           getEnvAsBool("TRANSLATION_WORKER_IN_PROCESS", true),
		PreferenceFallbackDelays:  getEnvAsDurations("PREFERENCE_FALLBACK_DELAYS_MS", []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, time.Second, 2 * time.Second}),
		PreferenceTTL:             time.Duration(getEnvAsInt("PREFERENCE_TTL_DAYS", 0)) * 24 * time.Hour,
	}

	cfg.DBConnStr = "host=" + cfg.DBHost +
		" port=" + cfg.DBPort +
		" user=" + cfg.DBUser +
		" password=" + cfg.DBPassword +
		" dbname=" + cfg.DBName +
		" sslmode=" + cfg.DBSslMode
	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDurations parses a comma separated list of milliseconds.
// Any malformed or negative entry discards the whole list.
func getEnvAsDurations(key string, fallback []time.Duration) []time.Duration {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return fallback
	}
	parts := strings.Split(valueStr, ",")
	out := make([]time.Duration, 0, len(parts))
	for _, p := range parts {
		ms, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || ms < 0 {
			log.Warn().Str("key", key).Str("value", valueStr).Msg("Ignoring malformed duration list")
			return fallback
		}
		out = append(out, time.Duration(ms)*time.Millisecond)
	}
	return out
}
