package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBAutoMigrate     bool

	Rebuild RebuildConfig
	Redis   RedisConfig

	PushgatewayURL string
}

// RebuildConfig holds the parameters of a single plan rebuild invocation.
type RebuildConfig struct {
	// RelayID limits the run to one relay. Empty means every eligible relay.
	RelayID    string
	DryRun     bool
	Throttle   time.Duration
	OrderTypes []string
	LockTTL    time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

const (
	DefaultOrderTypes = "standard,premium"
	DefaultThrottle   = 100 * time.Millisecond
	DefaultLockTTL    = 30 * time.Minute
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_SERVICE", "relayplan")
	v.SetDefault("APP_VERSION", "0.1.0")
	v.SetDefault("ENVIRONMENT", "development")

	v.SetDefault("DATABASE_TYPE", "postgres")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", "5432")
	v.SetDefault("DATABASE_NAME", "postgres")
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_PASSWORD", "")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_IDLE_CONN", 2)
	v.SetDefault("DATABASE_MAX_OPEN_CONN", 4)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", 300)
	v.SetDefault("DATABASE_CONN_MAX_IDLE_TIME", 60)
	v.SetDefault("DATABASE_AUTO_MIGRATE", false)

	v.SetDefault("RELAY_ID", "")
	v.SetDefault("DRY_RUN", "true")
	v.SetDefault("REBUILD_THROTTLE", DefaultThrottle.String())
	v.SetDefault("PLAN_ORDER_TYPES", DefaultOrderTypes)
	v.SetDefault("RUN_LOCK_TTL", DefaultLockTTL.String())

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("PUSHGATEWAY_URL", "")
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) Config {
	return Config{
		AppName:     strings.TrimSpace(v.GetString("APP_SERVICE")),
		AppVersion:  strings.TrimSpace(v.GetString("APP_VERSION")),
		Environment: strings.TrimSpace(v.GetString("ENVIRONMENT")),

		DBType:            strings.ToLower(strings.TrimSpace(v.GetString("DATABASE_TYPE"))),
		DBHost:            v.GetString("DATABASE_HOST"),
		DBPort:            v.GetString("DATABASE_PORT"),
		DBName:            v.GetString("DATABASE_NAME"),
		DBUser:            v.GetString("DATABASE_USER"),
		DBPassword:        v.GetString("DATABASE_PASSWORD"),
		DBSSLMode:         v.GetString("DATABASE_SSLMODE"),
		DBMaxIdleConn:     v.GetInt("DATABASE_MAX_IDLE_CONN"),
		DBMaxOpenConn:     v.GetInt("DATABASE_MAX_OPEN_CONN"),
		DBConnMaxLifetime: v.GetInt("DATABASE_CONN_MAX_LIFETIME"),
		DBConnMaxIdleTime: v.GetInt("DATABASE_CONN_MAX_IDLE_TIME"),
		DBAutoMigrate:     parseBool(v.GetString("DATABASE_AUTO_MIGRATE"), false),

		Rebuild: RebuildConfig{
			RelayID:    strings.TrimSpace(v.GetString("RELAY_ID")),
			DryRun:     ParseDryRun(v.GetString("DRY_RUN")),
			Throttle:   parseDuration(v.GetString("REBUILD_THROTTLE"), DefaultThrottle),
			OrderTypes: ParseList(v.GetString("PLAN_ORDER_TYPES")),
			LockTTL:    parseDuration(v.GetString("RUN_LOCK_TTL"), DefaultLockTTL),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(v.GetString("REDIS_ADDR")),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},

		PushgatewayURL: strings.TrimSpace(v.GetString("PUSHGATEWAY_URL")),
	}
}

// ParseDryRun only leaves dry-run mode on an explicit false value.
func ParseDryRun(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "0", "false", "no", "n", "off":
		return false
	default:
		return true
	}
}

// ParseList splits a comma separated list, lower-cases the entries and drops
// blanks and duplicates while keeping the first-seen order.
func ParseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func parseBool(raw string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func parseDuration(raw string, def time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return def
	}
	return d
}
