package config

import (
	"database/sql"
	"log"
	"os"
	"strconv"

	"github.com/spf13/cast"
)

type Config struct {
	Port        int
	DatabaseURL string
	RedisAddr   string
	JWTSecret   string

	// Session buffering
	SilenceTimeoutSecs  int
	FinalizeTimeoutSecs int
	SweepIntervalSecs   int

	// Analysis tunables
	PaceWindowSecs int
	OptimalWPMLow  float64
	OptimalWPMHigh float64

	// Rollup
	RollupHour int // local hour the daily batch runs

	// Notifications
	WebhookURL string
}

func Load() *Config {
	return &Config{
		Port:                envInt("PORT", 8080),
		DatabaseURL:         env("DATABASE_URL", "postgres://speechcoach:speechcoach@db:5432/speechcoach?sslmode=disable"),
		RedisAddr:           env("REDIS_ADDR", "redis:6379"),
		JWTSecret:           env("JWT_SECRET", "change-me-in-production"),
		SilenceTimeoutSecs:  envInt("SILENCE_TIMEOUT_SECS", 90),
		FinalizeTimeoutSecs: envInt("FINALIZE_TIMEOUT_SECS", 600),
		SweepIntervalSecs:   envInt("SWEEP_INTERVAL_SECS", 30),
		PaceWindowSecs:      envInt("PACE_WINDOW_SECS", 30),
		OptimalWPMLow:       envFloat("OPTIMAL_WPM_LOW", 140),
		OptimalWPMHigh:      envFloat("OPTIMAL_WPM_HIGH", 180),
		RollupHour:          envInt("ROLLUP_HOUR", 19),
		WebhookURL:          env("WEBHOOK_URL", ""),
	}
}

// MergeFromDB overlays operator-set values from the settings table on top of
// the environment defaults. Unknown keys are ignored; unparsable values keep
// the prior value.
func (c *Config) MergeFromDB(db *sql.DB) {
	rows, err := db.Query("SELECT key, value FROM settings")
	if err != nil {
		log.Printf("config: skipping DB merge: %v", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		switch key {
		case "silence_timeout_secs":
			c.SilenceTimeoutSecs = castInt(value, c.SilenceTimeoutSecs)
		case "finalize_timeout_secs":
			c.FinalizeTimeoutSecs = castInt(value, c.FinalizeTimeoutSecs)
		case "sweep_interval_secs":
			c.SweepIntervalSecs = castInt(value, c.SweepIntervalSecs)
		case "pace_window_secs":
			c.PaceWindowSecs = castInt(value, c.PaceWindowSecs)
		case "optimal_wpm_low":
			c.OptimalWPMLow = castFloat(value, c.OptimalWPMLow)
		case "optimal_wpm_high":
			c.OptimalWPMHigh = castFloat(value, c.OptimalWPMHigh)
		case "rollup_hour":
			if h := castInt(value, c.RollupHour); h >= 0 && h <= 23 {
				c.RollupHour = h
			}
		case "webhook_url":
			c.WebhookURL = value
		}
	}
}

func (c *Config) WebhookEnabled() bool {
	return c.WebhookURL != ""
}

func castInt(value string, fallback int) int {
	if v, err := cast.ToIntE(value); err == nil {
		return v
	}
	return fallback
}

func castFloat(value string, fallback float64) float64 {
	if v, err := cast.ToFloat64E(value); err == nil {
		return v
	}
	return fallback
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
