package library

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// AppName is printed in headers and report titles.
	AppName string `yaml:"app_name"`

	// DatabasePath is the SQLite file backing the record store.
	DatabasePath string `yaml:"database_path"`

	Mirror      MirrorConfig      `yaml:"mirror"`
	Circulation CirculationConfig `yaml:"circulation"`
	Report      ReportConfig      `yaml:"report"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// MirrorConfig configures the spreadsheet mirror endpoint.
type MirrorConfig struct {
	// ScriptURL is the deployed web-app endpoint. Empty disables syncing.
	ScriptURL string `yaml:"script_url"`
	Timeout   string `yaml:"timeout"`
}

// CirculationConfig configures loan terms.
type CirculationConfig struct {
	FinePerDay     int `yaml:"fine_per_day"`
	LoanPeriodDays int `yaml:"loan_period_days"`
}

// ReportConfig configures the narrative report generator.
type ReportConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		AppName:      "E-Pustaka SMPN 4 Mappedeceng",
		DatabasePath: "epustaka.db",
		Mirror: MirrorConfig{
			ScriptURL: "",
			Timeout:   "10s",
		},
		Circulation: CirculationConfig{
			FinePerDay:     DefaultFinePerDay,
			LoanPeriodDays: DefaultLoanPeriodDays,
		},
		Report: ReportConfig{
			Model: "gemini-3-flash-preview",
		},
	}
}

// LoadConfig reads the YAML config at path, filling unset fields with
// defaults. A missing file is not an error; defaults are returned.
// GEMINI_API_KEY in the environment overrides the configured API key.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.Report.APIKey = key
	}

	if cfg.Circulation.FinePerDay <= 0 {
		cfg.Circulation.FinePerDay = DefaultFinePerDay
	}
	if cfg.Circulation.LoanPeriodDays <= 0 {
		cfg.Circulation.LoanPeriodDays = DefaultLoanPeriodDays
	}
	if cfg.Report.Model == "" {
		cfg.Report.Model = "gemini-3-flash-preview"
	}

	return cfg, nil
}

// MirrorTimeout parses the configured mirror timeout, falling back to 10s.
func (c *Config) MirrorTimeout() time.Duration {
	d, err := time.ParseDuration(c.Mirror.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}
