package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Attendance AttendanceConfig `yaml:"attendance"`
	Cleanup    CleanupConfig    `yaml:"cleanup"`
	Debounce   DebounceConfig   `yaml:"debounce"`
	Auth       AuthConfig       `yaml:"auth"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level"`
}

// AttendanceConfig holds the time windows used when validating scans.
type AttendanceConfig struct {
	Timezone               string         `yaml:"timezone"`
	Location               *time.Location `yaml:"-"`
	LateToleranceMinutes   int            `yaml:"late_tolerance_minutes"`
	EarlyWindowMinutes     int            `yaml:"early_window_minutes"`
	InstructorEarlyMinutes int            `yaml:"instructor_early_minutes"`
	TermCacheSeconds       int            `yaml:"term_cache_seconds"`
}

// LateTolerance returns the grace period after session start.
func (a AttendanceConfig) LateTolerance() time.Duration {
	return time.Duration(a.LateToleranceMinutes) * time.Minute
}

// EarlyWindow returns how long before class start a student may register an early arrival.
func (a AttendanceConfig) EarlyWindow() time.Duration {
	return time.Duration(a.EarlyWindowMinutes) * time.Minute
}

// InstructorEarly returns how long before class start an instructor may open the room.
func (a AttendanceConfig) InstructorEarly() time.Duration {
	return time.Duration(a.InstructorEarlyMinutes) * time.Minute
}

// CleanupConfig holds the early-arrival cleanup worker configuration.
type CleanupConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"` // Ignored by YAML parser
}

// DebounceConfig controls suppression of repeated reader scans.
type DebounceConfig struct {
	Backend   string        `yaml:"backend"` // none, memory or redis
	WindowMS  int           `yaml:"window_ms"`
	Window    time.Duration `yaml:"-"`
	RedisAddr string        `yaml:"redis_addr"`
}

// AuthConfig holds the scanner device token settings.
type AuthConfig struct {
	DeviceSigningKey string `yaml:"device_signing_key"`
	Issuer           string `yaml:"issuer"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: could not read .env file: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Debounce.RedisAddr = v
	}
	if v := os.Getenv("DEVICE_SIGNING_KEY"); v != "" {
		cfg.Auth.DeviceSigningKey = v
	}
}

func (cfg *Config) applyDefaults() error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Attendance.Timezone == "" {
		cfg.Attendance.Timezone = "Local"
	}
	loc, err := time.LoadLocation(cfg.Attendance.Timezone)
	if err != nil {
		return err
	}
	cfg.Attendance.Location = loc
	if cfg.Attendance.LateToleranceMinutes <= 0 {
		cfg.Attendance.LateToleranceMinutes = 15
	}
	if cfg.Attendance.EarlyWindowMinutes <= 0 {
		cfg.Attendance.EarlyWindowMinutes = 15
	}
	if cfg.Attendance.InstructorEarlyMinutes <= 0 {
		cfg.Attendance.InstructorEarlyMinutes = 15
	}
	if cfg.Attendance.TermCacheSeconds <= 0 {
		cfg.Attendance.TermCacheSeconds = 60
	}

	if cfg.Cleanup.IntervalSeconds <= 0 {
		cfg.Cleanup.IntervalSeconds = 300
	}
	cfg.Cleanup.Interval = time.Duration(cfg.Cleanup.IntervalSeconds) * time.Second

	if cfg.Debounce.Backend == "" {
		cfg.Debounce.Backend = "memory"
	}
	if cfg.Debounce.WindowMS <= 0 {
		log.Printf("debounce.window_ms is not set or invalid; defaulting to 3000")
		cfg.Debounce.WindowMS = 3000
	}
	cfg.Debounce.Window = time.Duration(cfg.Debounce.WindowMS) * time.Millisecond

	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "classroom-access"
	}
	return nil
}
