package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config keeps runtime settings for the planner.
type Config struct {
	TelegramToken         string        `mapstructure:"telegram_token"`
	DatabaseURL           string        `mapstructure:"database_url"`
	Timezone              string        `mapstructure:"timezone"`
	FocusThresholdMinutes int           `mapstructure:"focus_threshold_minutes"`
	PurgeInterval         time.Duration `mapstructure:"purge_interval"`
	PurgeAge              time.Duration `mapstructure:"purge_age"`
	ReportTime            string        `mapstructure:"report_time"`
	Log                   LogConfig     `mapstructure:"log"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
	// Dir is where planner.log is written; empty means stderr.
	Dir string `mapstructure:"dir"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		DatabaseURL:           "goal_planner.db",
		Timezone:              "Local",
		FocusThresholdMinutes: 360,
		PurgeInterval:         time.Minute,
		PurgeAge:              30 * time.Second,
		ReportTime:            "09:00",
		Log:                   LogConfig{Level: "INFO"},
	}
}

// Load reads configuration from .env, the optional goalplanner.yaml and
// environment variables, with sane defaults.
func Load() (Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path string) (Config, error) {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GOALPLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Keep the bare names the bot deployment already uses.
	_ = v.BindEnv("telegram_token", "GOALPLANNER_TELEGRAM_TOKEN", "TELEGRAM_TOKEN")
	_ = v.BindEnv("database_url", "GOALPLANNER_DATABASE_URL", "DATABASE_URL")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("goalplanner")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/goalplanner")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("telegram_token", "")
	v.SetDefault("database_url", d.DatabaseURL)
	v.SetDefault("timezone", d.Timezone)
	v.SetDefault("focus_threshold_minutes", d.FocusThresholdMinutes)
	v.SetDefault("purge_interval", d.PurgeInterval)
	v.SetDefault("purge_age", d.PurgeAge)
	v.SetDefault("report_time", d.ReportTime)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.dir", d.Log.Dir)
}

// Validate checks values that would otherwise fail later at runtime.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database_url is required")
	}
	if c.FocusThresholdMinutes <= 0 {
		return fmt.Errorf("focus_threshold_minutes must be positive, got %d", c.FocusThresholdMinutes)
	}
	if c.PurgeAge < 0 {
		return fmt.Errorf("purge_age must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.ReportTime != "" {
		if _, err := time.Parse("15:04", c.ReportTime); err != nil {
			return fmt.Errorf("invalid report_time %q, expected HH:MM", c.ReportTime)
		}
	}
	return nil
}

// Location resolves Timezone; "Local" and "" mean the process time zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
