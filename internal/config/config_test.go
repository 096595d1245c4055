package config

import (
	"errors"
	"os"
	"testing"

	"github.com/quantdesk/quantdesk/internal/types"
)

const validYAML = `
server:
  port: 8080
upstream:
  base_url: https://market.example.com/v1
  user_agent: quantdesk/1.0
  requests_per_second: 5
desk:
  sales_tax_percent: 3.6
  broker_fee_percent: 1.5
persistence:
  enabled: true
  path: /tmp/quantdesk.db
metrics:
  enabled: true
  port: 9090
`

func TestLoadFromBytes(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(validYAML))
	if err != nil {
		t.Fatalf("LoadFromBytes() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Upstream.BaseURL != "https://market.example.com/v1" {
		t.Errorf("Upstream.BaseURL = %q", cfg.Upstream.BaseURL)
	}
	if cfg.Desk.SalesTaxPercent != 3.6 {
		t.Errorf("Desk.SalesTaxPercent = %v, want 3.6", cfg.Desk.SalesTaxPercent)
	}
}

func TestLoadFromBytesDefaults(t *testing.T) {
	cfg, err := LoadFromBytes([]byte("upstream:\n  base_url: https://x.test\n"))
	if err != nil {
		t.Fatalf("LoadFromBytes() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Desk.TargetETADays != 3 {
		t.Errorf("default Desk.TargetETADays = %v, want 3", cfg.Desk.TargetETADays)
	}
	if cfg.Desk.HistoryWindowDays != 7 {
		t.Errorf("default Desk.HistoryWindowDays = %d, want 7", cfg.Desk.HistoryWindowDays)
	}
	if cfg.Impact.LookbackDays != 30 {
		t.Errorf("default Impact.LookbackDays = %d, want 30", cfg.Impact.LookbackDays)
	}
}

func TestLoadFromBytesExpandsEnv(t *testing.T) {
	os.Setenv("QD_TEST_BASE_URL", "https://env.example.com")
	defer os.Unsetenv("QD_TEST_BASE_URL")

	cfg, err := LoadFromBytes([]byte("upstream:\n  base_url: ${QD_TEST_BASE_URL}\n"))
	if err != nil {
		t.Fatalf("LoadFromBytes() error = %v", err)
	}
	if cfg.Upstream.BaseURL != "https://env.example.com" {
		t.Errorf("Upstream.BaseURL = %q, want env value", cfg.Upstream.BaseURL)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing base url", "server:\n  port: 8080\n"},
		{"bad tax", "upstream:\n  base_url: https://x.test\ndesk:\n  sales_tax_percent: 150\n"},
		{"persistence without path", "upstream:\n  base_url: https://x.test\npersistence:\n  enabled: true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tt.yaml))
			if !errors.Is(err, types.ErrInvalidConfig) {
				t.Errorf("LoadFromBytes() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}
