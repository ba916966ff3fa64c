package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"route2lnm/internal/models"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for route2lnm
type Config struct {
	DBPath    string
	OutputDir string
	Dataset   DatasetConfig
	Directory DirectoryConfig
	Output    OutputConfig
	Recent    RecentConfig
	HTTP      HTTPConfig
	Plan      PlanConfig
	Log       LogConfig
}

// DatasetConfig locates the airport reference dataset
type DatasetConfig struct {
	Path      string // JSON or zstd-compressed JSON (.json.zst)
	URL       string // Downloaded to Path when the file is missing
	BatchSize int    // Airports per insert transaction
}

// DirectoryConfig names the canonical dataset in user-facing messages
type DirectoryConfig struct {
	Label string // Prefix of alias substitution comments (e.g., "FSE")
	World string // Used in resolution errors (e.g., "FSEconomy world")
}

// OutputConfig controls retention of generated archives in serve mode
type OutputConfig struct {
	RetentionHours  int
	CleanupInterval int // minutes
}

// RecentConfig controls the recent routes history
type RecentConfig struct {
	Max int
}

// HTTPConfig configures the HTTP API
type HTTPConfig struct {
	Addr string
}

// PlanConfig holds the default plan settings
type PlanConfig struct {
	Simulator string
	Rules     string
	Altitude  int
	Aircraft  string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
	File   string // Rotated log file; empty logs to stdout
}

// Load loads configuration from config file and environment variables
func Load() (*Config, error) {
	// A missing .env file is fine
	_ = godotenv.Load()

	v := viper.New()

	// Set defaults
	v.SetDefault("db_path", "route2lnm.db")
	v.SetDefault("output_dir", ".")
	v.SetDefault("dataset.path", "airports.json")
	v.SetDefault("dataset.url", "")
	v.SetDefault("dataset.batch_size", 5000)
	v.SetDefault("directory.label", "FSE")
	v.SetDefault("directory.world", "FSEconomy world")
	v.SetDefault("output.retention_hours", 24)
	v.SetDefault("output.cleanup_interval", 60)
	v.SetDefault("recent.max", 10)
	v.SetDefault("http.addr", "localhost:8080")
	v.SetDefault("plan.simulator", string(models.SimulatorMSFS))
	v.SetDefault("plan.rules", string(models.RuleVFR))
	v.SetDefault("plan.altitude", 1000)
	v.SetDefault("plan.aircraft", models.DefaultAircraftType)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")

	// Set config file name and type
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Set config file search paths
	v.AddConfigPath("/etc/route2lnm")
	v.AddConfigPath(".")

	// Explicit config file path, also set by the -config flag
	if configPath := os.Getenv("ROUTE2LNM_CONFIG_PATH"); configPath != "" {
		v.SetConfigFile(configPath)
	}

	// Read config file (if it exists)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults + env vars
	}

	// Set environment variable prefix
	v.SetEnvPrefix("ROUTE2LNM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		DBPath:    v.GetString("db_path"),
		OutputDir: v.GetString("output_dir"),
		Dataset: DatasetConfig{
			Path:      v.GetString("dataset.path"),
			URL:       v.GetString("dataset.url"),
			BatchSize: v.GetInt("dataset.batch_size"),
		},
		Directory: DirectoryConfig{
			Label: v.GetString("directory.label"),
			World: v.GetString("directory.world"),
		},
		Output: OutputConfig{
			RetentionHours:  v.GetInt("output.retention_hours"),
			CleanupInterval: v.GetInt("output.cleanup_interval"),
		},
		Recent: RecentConfig{
			Max: v.GetInt("recent.max"),
		},
		HTTP: HTTPConfig{
			Addr: v.GetString("http.addr"),
		},
		Plan: PlanConfig{
			Simulator: v.GetString("plan.simulator"),
			Rules:     v.GetString("plan.rules"),
			Altitude:  v.GetInt("plan.altitude"),
			Aircraft:  v.GetString("plan.aircraft"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			File:   v.GetString("log.file"),
		},
	}

	// Validate configuration
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// PlanSettings returns the configured default plan settings
func (c *Config) PlanSettings() models.PlanSettings {
	return models.PlanSettings{
		Simulator:    models.Simulator(c.Plan.Simulator),
		Rule:         models.FlightRule(c.Plan.Rules),
		Altitude:     c.Plan.Altitude,
		AircraftType: c.Plan.Aircraft,
	}.Normalize()
}

// Retention returns how long generated archives are kept
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Output.RetentionHours) * time.Hour
}

// CleanupInterval returns how often expired archives are removed
func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.Output.CleanupInterval) * time.Minute
}

// validate validates the configuration values
func validate(cfg *Config) error {
	if cfg.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}

	if cfg.Dataset.Path == "" {
		return fmt.Errorf("dataset.path is required")
	}

	if cfg.Dataset.BatchSize <= 0 {
		return fmt.Errorf("dataset.batch_size must be greater than 0")
	}

	if cfg.Output.RetentionHours <= 0 {
		return fmt.Errorf("output.retention_hours must be greater than 0")
	}

	if cfg.Output.CleanupInterval <= 0 {
		return fmt.Errorf("output.cleanup_interval must be greater than 0")
	}

	if cfg.Recent.Max <= 0 {
		return fmt.Errorf("recent.max must be greater than 0")
	}

	if err := cfg.PlanSettings().Validate(); err != nil {
		return fmt.Errorf("invalid plan defaults: %w", err)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Log.Level)
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[strings.ToLower(cfg.Log.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", cfg.Log.Format)
	}

	return nil
}
