package config

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	AppURL                 string
	DatabaseDSN            string
	RateLimit              int
	ShutdownTimeoutSeconds int
	LogLevel               slog.Level

	RedisEnabled       bool
	RedisAddr          string
	RedisQueueKey      string
	RedisChannelPrefix string

	NotifyWorkers        int
	NotifyQueueSize      int
	NotifyRequeueSeconds int
	NotifyMaxAttempts    int

	PlatformFeePercent int
	Cancellation       CancellationConfig
}

// CancellationConfig holds the refund windows applied when a booking is
// cancelled: the full refund applies at or beyond FullRefundHours before the
// scheduled time, then the partial and late tiers, then nothing.
type CancellationConfig struct {
	FullRefundHours      int
	PartialRefundHours   int
	PartialRefundPercent int
	LateRefundHours      int
	LateRefundPercent    int
}

func Load() Config {
	appHost := getEnv("APP_HOST", "127.0.0.1")
	appPort := getEnv("APP_PORT", "8080")
	redisHost := getEnv("REDIS_HOST", "127.0.0.1")
	redisPort := getEnv("REDIS_PORT", "6379")

	cfg := Config{
		AppURL:                 fmt.Sprintf("%s:%s", appHost, appPort),
		DatabaseDSN:            getEnv("DATABASE_DSN", "engagement.db"),
		RateLimit:              getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),
		ShutdownTimeoutSeconds: getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 20),
		LogLevel:               getEnvAsLevel("LOG_LEVEL", slog.LevelInfo),

		RedisEnabled:       getEnvAsBool("REDIS_ENABLED", false),
		RedisAddr:          fmt.Sprintf("%s:%s", redisHost, redisPort),
		RedisQueueKey:      getEnv("REDIS_QUEUE_KEY", "notification_queue_tokens"),
		RedisChannelPrefix: getEnv("REDIS_CHANNEL_PREFIX", "engagement"),

		NotifyWorkers:        getEnvAsInt("NOTIFY_WORKERS", 4),
		NotifyQueueSize:      getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),
		NotifyRequeueSeconds: getEnvAsInt("NOTIFY_REQUEUE_SECONDS", 30),
		NotifyMaxAttempts:    getEnvAsInt("NOTIFY_MAX_ATTEMPTS", 5),

		PlatformFeePercent: getEnvAsInt("PLATFORM_FEE_PERCENT", 10),
		Cancellation: CancellationConfig{
			FullRefundHours:      getEnvAsInt("CANCEL_FULL_REFUND_HOURS", 48),
			PartialRefundHours:   getEnvAsInt("CANCEL_PARTIAL_REFUND_HOURS", 24),
			PartialRefundPercent: getEnvAsInt("CANCEL_PARTIAL_REFUND_PERCENT", 50),
			LateRefundHours:      getEnvAsInt("CANCEL_LATE_REFUND_HOURS", 12),
			LateRefundPercent:    getEnvAsInt("CANCEL_LATE_REFUND_PERCENT", 25),
		},
	}

	if err := Validate(cfg); err != nil {
		log.Fatal(err)
	}
	return cfg
}

func Validate(cfg Config) error {
	if cfg.AppURL == "" {
		return fmt.Errorf("APP_URL must not be empty (e.g. 127.0.0.1:8080)")
	}
	if cfg.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN must not be empty")
	}
	if cfg.RateLimit <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be greater than 0")
	}
	if cfg.NotifyWorkers <= 0 {
		return fmt.Errorf("NOTIFY_WORKERS must be greater than 0")
	}
	if cfg.NotifyQueueSize <= 0 {
		return fmt.Errorf("NOTIFY_QUEUE_SIZE must be greater than 0")
	}
	if cfg.NotifyRequeueSeconds <= 0 {
		return fmt.Errorf("NOTIFY_REQUEUE_SECONDS must be greater than 0")
	}
	if cfg.NotifyMaxAttempts <= 0 {
		return fmt.Errorf("NOTIFY_MAX_ATTEMPTS must be greater than 0")
	}
	if cfg.PlatformFeePercent < 0 || cfg.PlatformFeePercent > 100 {
		return fmt.Errorf("PLATFORM_FEE_PERCENT must be between 0 and 100")
	}

	c := cfg.Cancellation
	if !(c.FullRefundHours >= c.PartialRefundHours && c.PartialRefundHours >= c.LateRefundHours && c.LateRefundHours >= 0) {
		return fmt.Errorf("cancellation windows must satisfy FULL >= PARTIAL >= LATE >= 0")
	}
	for _, p := range []int{c.PartialRefundPercent, c.LateRefundPercent} {
		if p < 0 || p > 100 {
			return fmt.Errorf("cancellation refund percents must be between 0 and 100")
		}
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid integer value for %s", key)
		}
		return i
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Fatalf("invalid boolean value for %s", key)
		}
		return b
	}
	return defaultVal
}

func getEnvAsLevel(key string, defaultVal slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(v))); err != nil {
		log.Fatalf("invalid log level for %s", key)
	}
	return level
}
