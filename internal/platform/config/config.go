// Package config builds runtime configuration from environment variables so
// main stays lean. Every knob has a default that works for local development
// with in-memory stores.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full engine configuration.
type Config struct {
	Server    Server
	Postgres  Postgres
	Redis     Redis
	Kafka     Kafka
	Audit     Audit
	Poller    Poller
	Directory Directory
}

// Directory is the static role membership used to fan notifications out when
// no external user directory is wired.
type Directory struct {
	Admins      []string
	Supervisors []string
	Crew        []string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
}

// Postgres selects the durable store. Empty DSN means in-memory stores.
type Postgres struct {
	DSN string
}

// Redis configures the presence store. Empty URL disables Redis and falls
// back to the in-memory presence tracker.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the notable-event feed. Empty broker list disables it.
type Kafka struct {
	Brokers   []string
	FeedTopic string
}

// Audit tunes the recorder and dispatcher.
type Audit struct {
	// StrictChanges makes RecordChange propagate store failures to the
	// caller instead of logging and continuing.
	StrictChanges bool
	// DispatchBuffer bounds the recorder -> dispatcher inbox channel.
	DispatchBuffer int
	// DispatchRetries bounds notification creation attempts per recipient.
	DispatchRetries int
	// DispatchBackoff is the delay between dispatch retries.
	DispatchBackoff time.Duration
}

// Poller tunes the client sync poller defaults. Interval/backlog trade-offs
// are configuration, not constants, so latency and request volume stay
// tunable without code changes.
type Poller struct {
	Interval       time.Duration
	RequestTimeout time.Duration
	PageSize       int
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          getenv("SHIPLOG_ADDR", ":8080"),
			JWTSigningKey: getenv("SHIPLOG_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		},
		Postgres: Postgres{
			DSN: os.Getenv("SHIPLOG_POSTGRES_DSN"),
		},
		Redis: Redis{
			URL:          os.Getenv("SHIPLOG_REDIS_URL"),
			PoolSize:     getint("SHIPLOG_REDIS_POOL_SIZE", 10),
			MinIdleConns: getint("SHIPLOG_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getduration("SHIPLOG_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getduration("SHIPLOG_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getduration("SHIPLOG_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:   split(os.Getenv("SHIPLOG_KAFKA_BROKERS")),
			FeedTopic: getenv("SHIPLOG_KAFKA_FEED_TOPIC", "shiplog.system-events"),
		},
		Audit: Audit{
			StrictChanges:   getbool("SHIPLOG_AUDIT_STRICT_CHANGES", false),
			DispatchBuffer:  getint("SHIPLOG_DISPATCH_BUFFER", 1024),
			DispatchRetries: getint("SHIPLOG_DISPATCH_RETRIES", 3),
			DispatchBackoff: getduration("SHIPLOG_DISPATCH_BACKOFF", 250*time.Millisecond),
		},
		Poller: Poller{
			Interval:       getduration("SHIPLOG_POLL_INTERVAL", 15*time.Second),
			RequestTimeout: getduration("SHIPLOG_POLL_TIMEOUT", 5*time.Second),
			PageSize:       getint("SHIPLOG_POLL_PAGE_SIZE", 50),
		},
		Directory: Directory{
			Admins:      split(os.Getenv("SHIPLOG_DIRECTORY_ADMINS")),
			Supervisors: split(os.Getenv("SHIPLOG_DIRECTORY_SUPERVISORS")),
			Crew:        split(os.Getenv("SHIPLOG_DIRECTORY_CREW")),
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getbool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func split(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
