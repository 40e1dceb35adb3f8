// Package config centralizes the environment variables consumed by the binaries.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every parameter the API and the scheduler need.
type Config struct {
	HTTPAddress string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	QueueKeyPrefix   string
	CounterKeyPrefix string

	RateLimitEnabled       bool
	RateLimitMaxVotes      int
	RateLimitWindowSeconds int
	RateLimitKeyPrefix     string

	AutoMigrate bool

	AdminToken string

	// Weekly contest schedule. Creation weekdays are deliberately explicit
	// configuration; the engine never infers which day may open a window.
	CreationWeekdays []time.Weekday
	CycleStart       time.Weekday
	CycleDays        int
	CandidateCount   int

	KeepAlivePeriod   time.Duration
	StreamIdleTimeout time.Duration
	StreamSendBuffer  int

	SchedulerAPIBase     string
	SchedulerTriggerHour int
}

func Load() (Config, error) {
	// Defaults favor local runs; env vars override in Docker/K8s.
	cfg := Config{
		HTTPAddress:            getEnv("HTTP_ADDRESS", ":8080"),
		PostgresHost:           getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:           getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:           getEnv("POSTGRES_USER", "cineclube"),
		PostgresPassword:       getEnv("POSTGRES_PASSWORD", "cineclube"),
		PostgresDB:             getEnv("POSTGRES_DB", "cineclube"),
		PostgresSSLMode:        getEnv("POSTGRES_SSLMODE", "disable"),
		RedisAddr:              getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		QueueKeyPrefix:         getEnv("REDIS_QUEUE_PREFIX", "queue:notifications"),
		CounterKeyPrefix:       getEnv("REDIS_COUNTER_PREFIX", "tally"),
		RateLimitEnabled:       getEnv("VOTE_RATE_LIMIT_ENABLED", "true") == "true",
		RateLimitMaxVotes:      getEnvAsInt("VOTE_RATE_LIMIT_MAX", 10),
		RateLimitWindowSeconds: getEnvAsInt("VOTE_RATE_LIMIT_WINDOW", 60),
		RateLimitKeyPrefix:     getEnv("VOTE_RATE_LIMIT_PREFIX", "ratelimit"),
		AutoMigrate:            getEnvAsBool("DB_AUTO_MIGRATE", true),
		AdminToken:             os.Getenv("ADMIN_TOKEN"),
		CycleDays:              getEnvAsInt("VOTE_CYCLE_DAYS", 6),
		CandidateCount:         getEnvAsInt("VOTE_CANDIDATE_COUNT", 5),
		KeepAlivePeriod:        getEnvAsDuration("HUB_KEEPALIVE_PERIOD", 30*time.Second),
		StreamIdleTimeout:      getEnvAsDuration("HUB_STREAM_IDLE_TIMEOUT", 30*time.Minute),
		StreamSendBuffer:       getEnvAsInt("HUB_STREAM_SEND_BUFFER", 16),
		SchedulerAPIBase:       getEnv("SCHEDULER_API_BASE", "http://localhost:8080"),
		SchedulerTriggerHour:   getEnvAsInt("SCHEDULER_TRIGGER_HOUR", 18),
	}

	dbStr := getEnv("REDIS_DB", "0")
	dbInt, err := strconv.Atoi(dbStr)
	if err != nil {
		return Config{}, fmt.Errorf("config: invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = dbInt

	creation, err := parseWeekdays(getEnv("VOTE_CREATION_WEEKDAYS", "Sunday"))
	if err != nil {
		return Config{}, fmt.Errorf("config: invalid VOTE_CREATION_WEEKDAYS: %w", err)
	}
	cfg.CreationWeekdays = creation

	start, err := parseWeekday(getEnv("VOTE_CYCLE_START", "Monday"))
	if err != nil {
		return Config{}, fmt.Errorf("config: invalid VOTE_CYCLE_START: %w", err)
	}
	cfg.CycleStart = start

	return cfg, nil
}

func (c Config) PostgresDSN() string {
	// DSN format stays compatible with GORM and migration tooling.
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresDB,
		c.PostgresSSLMode,
	)
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekday(raw string) (time.Weekday, error) {
	day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", raw)
	}
	return day, nil
}

func parseWeekdays(raw string) ([]time.Weekday, error) {
	parts := strings.Split(raw, ",")
	days := make([]time.Weekday, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		day, err := parseWeekday(part)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("empty weekday list")
	}
	return days, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getEnvAsBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	switch value {
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return true
	}
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
