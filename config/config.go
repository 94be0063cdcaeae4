package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL string
	DBPath      string
	HTTPAddr    string
	LogLevel    string
	LogPath     string
	Scheduler   SchedulerConfig
	Tracker     TrackerConfig
}

type SchedulerConfig struct {
	Cron     string
	Interval time.Duration
}

// TrackerConfig holds the reconciliation and alerting thresholds.
type TrackerConfig struct {
	// DropAlertThreshold is the minimum drop percentage that raises
	// price_drop_alert.
	DropAlertThreshold float64 `yaml:"drop_alert_threshold"`
	// AlertWindow is how long an alert stays up after the change.
	AlertWindow time.Duration `yaml:"alert_window"`
	// PriceEpsilon is the tolerance under which two prices count as
	// unchanged. Zero means exact equality.
	PriceEpsilon float64 `yaml:"price_epsilon"`
	// MaxRetries bounds reconcile retries on write conflicts.
	MaxRetries int `yaml:"max_retries"`
	// HistoryMaxEntries and HistoryMaxAge bound each record's ledger.
	HistoryMaxEntries int           `yaml:"history_max_entries"`
	HistoryMaxAge     time.Duration `yaml:"history_max_age"`
}

func DefaultTracker() TrackerConfig {
	return TrackerConfig{
		DropAlertThreshold: 5.0,
		AlertWindow:        24 * time.Hour,
		PriceEpsilon:       0,
		MaxRetries:         3,
		HistoryMaxEntries:  50,
		HistoryMaxAge:      730 * 24 * time.Hour,
	}
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBPath:      getEnv("DB_PATH", "tracker.db"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogPath:     getEnv("LOG_PATH", "daemon.log"),
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("ALERT_REFRESH_CRON"),
		},
		Tracker: DefaultTracker(),
	}

	if interval := os.Getenv("ALERT_REFRESH_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	cfg.Tracker.DropAlertThreshold = getEnvFloat("DROP_ALERT_THRESHOLD", cfg.Tracker.DropAlertThreshold)
	cfg.Tracker.PriceEpsilon = getEnvFloat("PRICE_EPSILON", cfg.Tracker.PriceEpsilon)
	cfg.Tracker.MaxRetries = getEnvInt("RECONCILE_MAX_RETRIES", cfg.Tracker.MaxRetries)
	cfg.Tracker.HistoryMaxEntries = getEnvInt("HISTORY_MAX_ENTRIES", cfg.Tracker.HistoryMaxEntries)
	if window := os.Getenv("ALERT_WINDOW"); window != "" {
		if d, err := time.ParseDuration(window); err == nil {
			cfg.Tracker.AlertWindow = d
		}
	}
	if age := os.Getenv("HISTORY_MAX_AGE"); age != "" {
		if d, err := time.ParseDuration(age); err == nil {
			cfg.Tracker.HistoryMaxAge = d
		}
	}

	if err := cfg.loadTrackerFile(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadTrackerFile overrides thresholds from config/tracker.yaml when the
// file exists.
func (c *Config) loadTrackerFile() error {
	path := getEnv("TRACKER_CONFIG", "config/tracker.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, &c.Tracker)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
