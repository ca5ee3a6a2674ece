package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yeremiapane/restaurant-dashboard/utils"
)

type Config struct {
	Port    string
	GinMode string

	LogLevel string

	RemoteBaseURL   string
	RemotePushURL   string
	RemoteToken     string
	RemoteTimeout   time.Duration
	RemoteRateLimit float64
	PushTransport   string

	BusinessIDs  []string
	SyncSchedule string

	DBDriver string
	DBDSN    string

	JWTSecret   string
	StalePolicy string

	CORSOrigins  []string
	APIRateLimit float64
	APIRateBurst int
}

// Load -> baca .env (kalau ada) lalu environment variable
func Load() Config {
	if err := godotenv.Load(); err != nil {
		utils.InfoLogger.Println("Warning: .env file not found")
	}
	return FromEnv()
}

// FromEnv reads the configuration from the current environment only.
func FromEnv() Config {
	return Config{
		Port:            GetEnv("PORT", "8080"),
		GinMode:         GetEnv("GIN_MODE", "debug"),
		LogLevel:        GetEnv("LOG_LEVEL", "info"),
		RemoteBaseURL:   GetEnv("REMOTE_BASE_URL", "http://localhost:9000"),
		RemotePushURL:   GetEnv("REMOTE_PUSH_URL", ""),
		RemoteToken:     GetEnv("REMOTE_TOKEN", ""),
		RemoteTimeout:   getDuration("REMOTE_TIMEOUT", 15*time.Second),
		RemoteRateLimit: getFloat("REMOTE_RATE_LIMIT", 20),
		PushTransport:   strings.ToLower(GetEnv("PUSH_TRANSPORT", "ws")),
		BusinessIDs:     splitList(GetEnv("BUSINESS_IDS", "")),
		SyncSchedule:    GetEnv("SYNC_SCHEDULE", "@every 30s"),
		DBDriver:        strings.ToLower(GetEnv("DB_DRIVER", "sqlite")),
		DBDSN:           GetEnv("DB_DSN", "dashboard.db"),
		JWTSecret:       GetEnv("JWT_SECRET", ""),
		StalePolicy:     GetEnv("STALE_POLICY", "discard"),
		CORSOrigins:     splitList(GetEnv("CORS_ORIGINS", "")),
		APIRateLimit:    getFloat("API_RATE_LIMIT", 50),
		APIRateBurst:    getInt("API_RATE_BURST", 100),
	}
}

func GetEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	// angka polos dianggap detik
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	utils.ErrorLogger.Warnf("invalid %s=%q, using %s", key, raw, fallback)
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	raw := GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		utils.ErrorLogger.Warnf("invalid %s=%q, using %v", key, raw, fallback)
		return fallback
	}
	return f
}

func getInt(key string, fallback int) int {
	raw := GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		utils.ErrorLogger.Warnf("invalid %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return n
}

func splitList(raw string) []string {
	var out []string
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}

// PushURL -> REMOTE_PUSH_URL, atau REMOTE_BASE_URL dengan skema ws/wss
func (c Config) PushURL() string {
	if c.RemotePushURL != "" {
		return c.RemotePushURL
	}
	switch {
	case strings.HasPrefix(c.RemoteBaseURL, "https://"):
		return "wss://" + strings.TrimPrefix(c.RemoteBaseURL, "https://")
	case strings.HasPrefix(c.RemoteBaseURL, "http://"):
		return "ws://" + strings.TrimPrefix(c.RemoteBaseURL, "http://")
	}
	return c.RemoteBaseURL
}
