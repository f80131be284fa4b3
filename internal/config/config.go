package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	MongoURI       string
	MongoDB        string
	PostgresURI    string
	RedisURI       string
	Port           string
	FrontendURL    string
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	Environment    string   // ENV: production, development, etc.
	InstanceID     string   // Written into the Redis presence mirror
	APIHost        string   // API_HOST: when set, production requests for other hosts get 403

	// Dispatch defaults: collectors within DispatchRadiusMeters, nearest DispatchLimit first.
	DispatchRadiusMeters float64
	DispatchLimit        int64

	OutboxBuffer int

	// Per-connection chat send limit for the WebSocket gateway.
	SocketMessagesPerSecond float64
	SocketBurst             int

	PresenceTTL time.Duration
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", "http://localhost:5173"), getEnv("FRONTEND_URL_2", "")} {
			u = strings.TrimSpace(u)
			if u != "" {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "econex"
	}

	return &Config{
		MongoURI:                getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/econex")),
		MongoDB:                 getEnv("MONGO_DB", "econex"),
		PostgresURI:             getEnv("POSTGRES_URI", "postgres://localhost:5432/econex?sslmode=disable"),
		RedisURI:                getEnv("REDIS_URI", "redis://localhost:6379/0"),
		Port:                    getEnv("PORT", "5001"),
		FrontendURL:             getEnv("FRONTEND_URL", "http://localhost:5173"),
		AllowedOrigins:          allowedOrigins,
		Environment:             env,
		InstanceID:              getEnv("INSTANCE_ID", hostname),
		APIHost:                 strings.TrimSpace(getEnv("API_HOST", "")),
		DispatchRadiusMeters:    getEnvFloat("DISPATCH_RADIUS_METERS", 10000),
		DispatchLimit:           int64(getEnvInt("DISPATCH_LIMIT", 10)),
		OutboxBuffer:            getEnvInt("OUTBOX_BUFFER", 1024),
		SocketMessagesPerSecond: getEnvFloat("SOCKET_MESSAGES_PER_SECOND", 5),
		SocketBurst:             getEnvInt("SOCKET_BURST", 10),
		PresenceTTL:             getEnvDuration("PRESENCE_TTL", 90*time.Second),
	}
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
