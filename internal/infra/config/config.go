package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config aggregates application configuration loaded from environment variables.
// MongoURI, RedisAddr and KafkaBrokers are optional: when absent the server runs
// entirely on in-memory storage, which is also the demo mode.
type Config struct {
	Env              string
	HTTPAddr         string
	MongoURI         string
	MongoDB          string
	RedisAddr        string
	KafkaBrokers     []string
	KafkaTopicPrefix string
	SessionTTL       time.Duration
	SeedDemo         bool
	FixturesPath     string

	// Client-side knobs, consumed by the chat watcher.
	APIBaseURL       string
	PollInterval     time.Duration
	RecencyWindow    time.Duration
	ToastWindow      time.Duration
	MaxNotifications int
	HTTPTimeout      time.Duration
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "pgnest"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		FixturesPath:     getEnv("PROPERTY_FIXTURES", ""),
		APIBaseURL:       getEnv("PGNEST_API_URL", "http://localhost:8080"),
	}
	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	sessionTTL, err := parseDurationEnv("SESSION_TTL", 168*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionTTL = sessionTTL

	pollInterval, err := parseDurationEnv("POLL_INTERVAL", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.PollInterval = pollInterval

	recency, err := parseDurationEnv("NOTIFY_RECENCY_WINDOW", 30*time.Minute)
	if err != nil {
		return Config{}, err
	}
	cfg.RecencyWindow = recency

	toast, err := parseDurationEnv("NOTIFY_TOAST_WINDOW", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}
	cfg.ToastWindow = toast

	httpTimeout, err := parseDurationEnv("HTTP_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTPTimeout = httpTimeout

	maxNotifications, err := parseIntEnv("NOTIFY_MAX", 10)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxNotifications = maxNotifications

	seed, err := parseBoolEnv("SEED_DEMO", false)
	if err != nil {
		return Config{}, err
	}
	cfg.SeedDemo = seed

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	var value int
	if _, err := fmt.Sscanf(raw, "%d", &value); err != nil || value <= 0 {
		return 0, fmt.Errorf("invalid %s integer: %q", key, raw)
	}
	return value, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
