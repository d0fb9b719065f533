package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process configuration, read from the environment.
type Config struct {
	HTTPAddr string
	DBURL    string
	RedisURL string
	LogLevel slog.Level

	IdleTimeout     time.Duration
	SweepInterval   time.Duration
	SendBuffer      int
	SendTimeout     time.Duration
	WriteWait       time.Duration
	ReadTimeout     time.Duration
	MaxMessageBytes int64
	PresenceTTL     time.Duration

	AsynqConcurrency int
	AsynqQueues      string
}

// Load reads the configuration. Call godotenv.Load first to pick up a .env file.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	r := reader{getenv: getenv}
	cfg := Config{
		HTTPAddr:         httpAddr(getenv),
		DBURL:            strings.TrimSpace(getenv("DB_URL")),
		RedisURL:         strings.TrimSpace(getenv("REDIS_URL")),
		LogLevel:         r.level("LOG_LEVEL", slog.LevelInfo),
		IdleTimeout:      r.duration("COLLAB_IDLE_TIMEOUT", 30*time.Minute),
		SweepInterval:    r.duration("COLLAB_SWEEP_INTERVAL", 5*time.Minute),
		SendBuffer:       r.int("COLLAB_SEND_BUFFER", 128),
		SendTimeout:      r.duration("COLLAB_SEND_TIMEOUT", 2*time.Second),
		WriteWait:        r.duration("COLLAB_WRITE_WAIT", 10*time.Second),
		ReadTimeout:      r.duration("COLLAB_READ_TIMEOUT", 60*time.Second),
		MaxMessageBytes:  int64(r.int("COLLAB_MAX_MESSAGE_BYTES", 1<<20)),
		PresenceTTL:      r.duration("COLLAB_PRESENCE_TTL", 2*time.Minute),
		AsynqConcurrency: r.int("ASYNQ_CONCURRENCY", 10),
		AsynqQueues:      strings.TrimSpace(getenv("ASYNQ_QUEUES")),
	}
	if len(r.errs) > 0 {
		return Config{}, errors.Join(r.errs...)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	var errs []error
	if c.IdleTimeout <= 0 {
		errs = append(errs, errors.New("config: COLLAB_IDLE_TIMEOUT must be positive"))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("config: COLLAB_SWEEP_INTERVAL must be positive"))
	}
	if c.SweepInterval > c.IdleTimeout {
		errs = append(errs, errors.New("config: COLLAB_SWEEP_INTERVAL must not exceed COLLAB_IDLE_TIMEOUT"))
	}
	if c.SendBuffer <= 0 {
		errs = append(errs, errors.New("config: COLLAB_SEND_BUFFER must be positive"))
	}
	if c.ReadTimeout <= 0 || c.WriteWait <= 0 {
		errs = append(errs, errors.New("config: COLLAB_READ_TIMEOUT and COLLAB_WRITE_WAIT must be positive"))
	}
	if c.SendTimeout <= 0 || c.SendTimeout > c.WriteWait {
		errs = append(errs, errors.New("config: COLLAB_SEND_TIMEOUT must be positive and not exceed COLLAB_WRITE_WAIT"))
	}
	if c.MaxMessageBytes <= 0 {
		errs = append(errs, errors.New("config: COLLAB_MAX_MESSAGE_BYTES must be positive"))
	}
	return errors.Join(errs...)
}

// PingPeriod is how often the server pings; it must stay below ReadTimeout.
func (c Config) PingPeriod() time.Duration {
	return c.ReadTimeout * 9 / 10
}

func httpAddr(getenv func(string) string) string {
	if addr := strings.TrimSpace(getenv("HTTP_ADDR")); addr != "" {
		return addr
	}
	if port := strings.TrimSpace(getenv("PORT")); port != "" {
		return ":" + port
	}
	return ":8080"
}

type reader struct {
	getenv func(string) string
	errs   []error
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("config: %s: %w", key, err))
		return def
	}
	return d
}

func (r *reader) int(key string, def int) int {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("config: %s: %w", key, err))
		return def
	}
	return i
}

func (r *reader) level(key string, def slog.Level) slog.Level {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		r.errs = append(r.errs, fmt.Errorf("config: %s: %w", key, err))
		return def
	}
	return l
}
