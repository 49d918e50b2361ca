package config

import (
	"os"
	"time"
)

type Config struct {
	Token        string
	GuildID      string
	AdminRoleID  string
	MySQLDSN     string
	RedisURL     string
	JWTSecret    string
	AdminAPIKey  string
	APIPort      string
	TickInterval time.Duration
	DryRun       bool
}

func Load() Config {
	tick := 24 * time.Hour
	if v := os.Getenv("CYCLE_TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			tick = d
		}
	}

	return Config{
		Token:        os.Getenv("DISCORD_TOKEN"),
		GuildID:      os.Getenv("GUILD_ID"),
		AdminRoleID:  os.Getenv("ADMIN_ROLE_ID"),
		MySQLDSN:     getenv("MYSQL_DSN", "electionbot:electionbot@tcp(127.0.0.1:3306)/electionbot"),
		RedisURL:     getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		JWTSecret:    getenv("JWT_SECRET", "dev-secret"),
		AdminAPIKey:  getenv("API_ADMIN_KEY", ""),
		APIPort:      getenv("API_PORT", "8090"),
		TickInterval: tick,
		DryRun:       os.Getenv("DRY_RUN") == "1",
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
