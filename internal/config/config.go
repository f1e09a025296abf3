package config

import (
	"os"
	"strconv"
	"strings"
)

// Config carries everything the terminal service needs at startup. The
// database, redis, NATS, Kafka and S3 integrations are all optional: an empty
// setting disables the integration and the service degrades gracefully (the
// store falls back to memory, audit falls back to the file sink).
type Config struct {
	Addr string

	DatabaseURL string
	RedisAddr   string
	NATSURL     string

	KafkaBrokers []string
	KafkaTopic   string
	S3Bucket     string
	S3Prefix     string
	AuditDir     string
	AuditBuffer  int

	JWTSecret string

	RateRPS   float64
	RateBurst int

	YardLayoutPath string
	StrictRelease  bool

	LogLevel  string
	LogPretty bool
}

const (
	defaultAddr       = ":8070"
	defaultAuditDir   = "./audit-archive"
	defaultKafkaTopic = "terminal.audit"
	defaultRateRPS    = 20
	defaultRateBurst  = 40
)

func Load() (Config, error) {
	cfg := Config{
		Addr:           getEnv("TERMINAL_ADDR", defaultAddr),
		DatabaseURL:    firstNonEmpty(os.Getenv("TERMINAL_DATABASE_URL"), os.Getenv("DATABASE_URL")),
		RedisAddr:      os.Getenv("TERMINAL_REDIS_ADDR"),
		NATSURL:        os.Getenv("TERMINAL_NATS_URL"),
		KafkaBrokers:   parseCSV(os.Getenv("TERMINAL_KAFKA_BROKERS")),
		KafkaTopic:     getEnv("TERMINAL_KAFKA_TOPIC", defaultKafkaTopic),
		S3Bucket:       os.Getenv("TERMINAL_AUDIT_S3_BUCKET"),
		S3Prefix:       os.Getenv("TERMINAL_AUDIT_S3_PREFIX"),
		AuditDir:       getEnv("TERMINAL_AUDIT_DIR", defaultAuditDir),
		AuditBuffer:    getInt("TERMINAL_AUDIT_BUFFER", 256),
		JWTSecret:      os.Getenv("TERMINAL_JWT_SECRET"),
		RateRPS:        getFloat("TERMINAL_RATE_RPS", defaultRateRPS),
		RateBurst:      getInt("TERMINAL_RATE_BURST", defaultRateBurst),
		YardLayoutPath: os.Getenv("TERMINAL_YARD_LAYOUT"),
		StrictRelease:  getBool("TERMINAL_STRICT_RELEASE", false),
		LogLevel:       getEnv("TERMINAL_LOG_LEVEL", "info"),
		LogPretty:      getBool("TERMINAL_LOG_PRETTY", false),
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
