// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/PortNumber53/brandhub/internal/calendar"
)

type Config struct {
	Port              string
	DatabaseURL       string
	RedisURL          string
	LogLevel          string
	InternalWSSecret  string
	WeekStart         time.Weekday
	MonthCellCap      int
	WeekCellCap       int
	DragSessionTTL    time.Duration
	DragSweepInterval time.Duration
	RateLimitRPS      float64
	RateLimitBurst    int
}

const (
	DefaultPort              = "18911"
	DefaultDragSessionTTL    = 10 * time.Minute
	DefaultDragSweepInterval = time.Minute
	DefaultRateLimitRPS      = 10
	DefaultRateLimitBurst    = 20
)

// LoadEnv overlays .env and .env.dev onto the process environment when present.
func LoadEnv(logger *logrus.Logger) {
	files := []string{".env", ".env.dev"}
	loaded := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			if logger != nil {
				logger.WithError(err).Warnf("failed to load %s", file)
			}
			continue
		}
		loaded = append(loaded, file)
	}
	if logger == nil {
		return
	}
	if len(loaded) == 0 {
		logger.Debug("no local env files loaded; relying on process environment")
		return
	}
	logger.Debugf("loaded env files: %s", strings.Join(loaded, ", "))
}

// Load builds a Config from getenv. Unset or unparsable numeric values fall back to defaults;
// WEEK_START is the only value that is rejected outright when malformed.
func Load(getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	c := Config{
		Port:              strOr(getenv, "PORT", DefaultPort),
		DatabaseURL:       strings.TrimSpace(getenv("DATABASE_URL")),
		RedisURL:          strings.TrimSpace(getenv("REDIS_URL")),
		LogLevel:          strOr(getenv, "LOG_LEVEL", "info"),
		InternalWSSecret:  strings.TrimSpace(getenv("INTERNAL_WS_SECRET")),
		MonthCellCap:      intOr(getenv, "CALENDAR_MONTH_CAP", calendar.MonthCellCap),
		WeekCellCap:       intOr(getenv, "CALENDAR_WEEK_CAP", calendar.WeekCellCap),
		DragSessionTTL:    secondsOr(getenv, "DRAG_SESSION_TTL_SECONDS", DefaultDragSessionTTL),
		DragSweepInterval: secondsOr(getenv, "DRAG_SWEEP_INTERVAL_SECONDS", DefaultDragSweepInterval),
		RateLimitRPS:      floatOr(getenv, "RATE_LIMIT_RPS", DefaultRateLimitRPS),
		RateLimitBurst:    intOr(getenv, "RATE_LIMIT_BURST", DefaultRateLimitBurst),
	}
	ws, err := ParseWeekday(getenv("WEEK_START"))
	if err != nil {
		return c, err
	}
	c.WeekStart = ws
	return c, nil
}

// ParseWeekday accepts full or three-letter English day names, or 0-6 with 0 = Sunday. Empty is Sunday.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return time.Sunday, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 6 {
			return time.Sunday, fmt.Errorf("WEEK_START out of range: %d", n)
		}
		return time.Weekday(n), nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("invalid WEEK_START %q", s)
}

func strOr(getenv func(string) string, key, def string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return def
}

func intOr(getenv func(string) string, key string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(getenv(key))); err == nil && n >= 0 {
		return n
	}
	return def
}

func floatOr(getenv func(string) string, key string, def float64) float64 {
	if f, err := strconv.ParseFloat(strings.TrimSpace(getenv(key)), 64); err == nil && f > 0 {
		return f
	}
	return def
}

func secondsOr(getenv func(string) string, key string, def time.Duration) time.Duration {
	if n, err := strconv.Atoi(strings.TrimSpace(getenv(key))); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}
