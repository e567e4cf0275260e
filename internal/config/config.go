package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the task backend.
type Config struct {
	DatabasePath  string
	HTTPAddr      string
	AllowedOrigin string
	GinMode       string
	LogLevel      string
	LogJSON       bool

	// Telegram shell; disabled when TelegramToken is empty.
	TelegramToken  string
	TelegramChatID int64
	ReportTime     string

	// Prayer times; enabled when both coordinates are set.
	PrayerEnabled   bool
	PrayerLatitude  float64
	PrayerLongitude float64
	PrayerMethod    int
	PrayerAPIURL    string
	PrayerTimezone  string
}

// TelegramEnabled reports whether the chat shell should start.
func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

// Load reads configuration from the environment, after merging a .env file if
// one exists. Variables already set in the environment win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		DatabasePath:   env("DATABASE_PATH", "prayerflow.db"),
		HTTPAddr:       env("HTTP_ADDR", "127.0.0.1:3000"),
		AllowedOrigin:  env("ALLOWED_ORIGIN", "tauri://localhost"),
		GinMode:        env("GIN_MODE", "release"),
		LogLevel:       env("LOG_LEVEL", "info"),
		LogJSON:        strings.EqualFold(env("LOG_JSON", "false"), "true"),
		TelegramToken:  env("TELEGRAM_TOKEN", ""),
		ReportTime:     env("REPORT_TIME", "08:00"),
		PrayerAPIURL:   env("PRAYER_API_URL", "https://api.aladhan.com/v1"),
		PrayerTimezone: env("PRAYER_TIMEZONE", ""),
	}

	if raw := env("TELEGRAM_CHAT_ID", ""); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("TELEGRAM_CHAT_ID must be a number: %w", err)
		}
		cfg.TelegramChatID = id
	}

	if err := loadPrayer(&cfg); err != nil {
		return cfg, err
	}

	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		return cfg, fmt.Errorf("GIN_MODE must be debug, release or test, got %q", cfg.GinMode)
	}

	if cfg.TelegramEnabled() && cfg.TelegramChatID == 0 {
		return cfg, fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}

	return cfg, nil
}

func loadPrayer(cfg *Config) error {
	lat, lng := env("PRAYER_LATITUDE", ""), env("PRAYER_LONGITUDE", "")
	if lat == "" && lng == "" {
		return nil
	}
	if lat == "" || lng == "" {
		return fmt.Errorf("PRAYER_LATITUDE and PRAYER_LONGITUDE must be set together")
	}

	var err error
	if cfg.PrayerLatitude, err = strconv.ParseFloat(lat, 64); err != nil || cfg.PrayerLatitude < -90 || cfg.PrayerLatitude > 90 {
		return fmt.Errorf("PRAYER_LATITUDE must be a number between -90 and 90, got %q", lat)
	}
	if cfg.PrayerLongitude, err = strconv.ParseFloat(lng, 64); err != nil || cfg.PrayerLongitude < -180 || cfg.PrayerLongitude > 180 {
		return fmt.Errorf("PRAYER_LONGITUDE must be a number between -180 and 180, got %q", lng)
	}
	method := env("PRAYER_METHOD", "2")
	if cfg.PrayerMethod, err = strconv.Atoi(method); err != nil || cfg.PrayerMethod < 0 {
		return fmt.Errorf("PRAYER_METHOD must be a calculation method id, got %q", method)
	}
	if cfg.PrayerTimezone != "" {
		if _, err := time.LoadLocation(cfg.PrayerTimezone); err != nil {
			return fmt.Errorf("PRAYER_TIMEZONE: %w", err)
		}
	}

	cfg.PrayerEnabled = true
	return nil
}

// PrayerLocation returns the configured prayer timezone, or the local one.
func (c Config) PrayerLocation() *time.Location {
	if c.PrayerTimezone == "" {
		return time.Local
	}
	if loc, err := time.LoadLocation(c.PrayerTimezone); err == nil {
		return loc
	}
	return time.Local
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
