package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/arborsync/arbor/internal/domain"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	RootTitle       string        // title of the managed root folder
	ForestFile      string        // path to the forest seed yaml (optional, empty = start empty)
	ImportChunkSize int           // items per batch-import chunk
	FlushDebounce   time.Duration // metadata write-coalescing window
	MaintenanceCron time.Duration // interval between maintenance sweeps (default: 1h)
	FetchTimeout    time.Duration // hard deadline for enrichment page fetches

	// Redis (optional, empty addr = in-memory store)
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict access to specific IP (e.g. "1.2.3.4, 5.6.7.8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("ARBOR_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("ARBOR_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("ARBOR_LOG_LEVEL", "info"),
		PrettyLog: mustBool("ARBOR_PRETTY_LOG", true),

		// Tree and import settings
		RootTitle:       getenv("ARBOR_ROOT_TITLE", "Arbor"),
		ForestFile:      getenv("ARBOR_FOREST_FILE", ""), // Optional, empty = no seeding
		ImportChunkSize: getenvInt("ARBOR_IMPORT_CHUNK_SIZE", domain.DefaultChunkSize),
		FlushDebounce:   mustDuration("ARBOR_FLUSH_DEBOUNCE", domain.FlushDebounce),
		MaintenanceCron: mustDuration("ARBOR_MAINTENANCE_INTERVAL", time.Hour),
		FetchTimeout:    mustDuration("ARBOR_FETCH_TIMEOUT", 3*time.Second),

		// Redis settings
		RedisAddr:             getenv("ARBOR_REDIS_ADDR", ""),
		RedisUser:             getenv("ARBOR_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("ARBOR_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("ARBOR_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("ARBOR_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("ARBOR_ALLOWED_HOSTS", "")),
		AllowedCIDRS: splitAndTrim(getenv("ARBOR_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("ARBOR_TRUST_PROXY", true),
	}

	// Validate Redis password configuration
	if cfg.RedisAddr != "" && cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: ARBOR_REDIS_PASSWORD is required when ARBOR_REDIS_PASSWORD_REQUIRED=true")
	}

	if cfg.ImportChunkSize <= 0 {
		cfg.ImportChunkSize = domain.DefaultChunkSize
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
