package library

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Circulation.FinePerDay != DefaultFinePerDay {
		t.Fatalf("fine per day: got %d", cfg.Circulation.FinePerDay)
	}
	if cfg.Circulation.LoanPeriodDays != DefaultLoanPeriodDays {
		t.Fatalf("loan period: got %d", cfg.Circulation.LoanPeriodDays)
	}
	if cfg.Report.Model == "" {
		t.Fatalf("model default missing")
	}
	if cfg.MirrorTimeout() != 10*time.Second {
		t.Fatalf("timeout default: got %v", cfg.MirrorTimeout())
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "epustaka.yml")
	content := `
app_name: Perpustakaan Uji
database_path: data/uji.db
mirror:
  script_url: https://example.com/exec
  timeout: 3s
circulation:
  fine_per_day: 1000
  loan_period_days: 14
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AppName != "Perpustakaan Uji" {
		t.Fatalf("app name: %s", cfg.AppName)
	}
	if cfg.Mirror.ScriptURL != "https://example.com/exec" {
		t.Fatalf("script url: %s", cfg.Mirror.ScriptURL)
	}
	if cfg.MirrorTimeout() != 3*time.Second {
		t.Fatalf("timeout: %v", cfg.MirrorTimeout())
	}
	if cfg.Circulation.FinePerDay != 1000 || cfg.Circulation.LoanPeriodDays != 14 {
		t.Fatalf("circulation: %+v", cfg.Circulation)
	}
}

func TestLoadConfigEnvOverridesAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Report.APIKey != "env-key" {
		t.Fatalf("api key: %s", cfg.Report.APIKey)
	}
}
