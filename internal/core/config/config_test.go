package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "itad.yaml")
	requireNoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	requireNoError(t, err)

	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr())
	}
	if cfg.Database.Type != "postgres" || !cfg.Database.AutoMigrate {
		t.Fatalf("unexpected database defaults: %+v", cfg.Database)
	}
	if cfg.Publish.IntervalDuration() != time.Minute || cfg.Publish.TimeoutDuration() != 30*time.Second {
		t.Fatalf("unexpected publish defaults: %+v", cfg.Publish)
	}
	if cfg.Reporting.WindowMonths != 12 {
		t.Fatalf("expected 12 month window, got %d", cfg.Reporting.WindowMonths)
	}
	if cfg.Valuation.CarbonPerCar().String() != "4600" || cfg.Valuation.MaterialValue().String() != "0.5" {
		t.Fatalf("unexpected valuation defaults: %+v", cfg.Valuation)
	}
	if !cfg.Records.Earliest().Equal(time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected earliest date %v", cfg.Records.Earliest())
	}
	if cfg.Records.FutureSkew() != 48*time.Hour || cfg.Records.AmountCap().String() != "1000000000000" {
		t.Fatalf("unexpected record limits: %+v", cfg.Records)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  host: "127.0.0.1"
  mode: "debug"
database:
  type: "memory"
ingestion:
  max_batch_size: 10
publish:
  interval: "0s"
  on_ingest: true
  history_size: 3
reporting:
  window_months: 0
valuation:
  material_value_per_kg: "1.25"
records:
  extra_device_types: ["Printer", "Switch"]
`)

	cfg, err := Load(path)
	requireNoError(t, err)

	if cfg.Server.Addr() != "127.0.0.1:9090" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr())
	}
	if cfg.Database.Type != "memory" {
		t.Fatalf("expected memory database, got %q", cfg.Database.Type)
	}
	if cfg.Ingestion.MaxBatchSize != 10 || cfg.Publish.HistorySize != 3 {
		t.Fatalf("file values not applied: %+v %+v", cfg.Ingestion, cfg.Publish)
	}
	if cfg.Publish.IntervalDuration() != 0 {
		t.Fatalf("expected disabled interval, got %s", cfg.Publish.IntervalDuration())
	}
	if cfg.Reporting.WindowMonths != 0 {
		t.Fatalf("expected all-months window, got %d", cfg.Reporting.WindowMonths)
	}
	if cfg.Valuation.MaterialValue().String() != "1.25" {
		t.Fatalf("unexpected material value %s", cfg.Valuation.MaterialValue())
	}
	if len(cfg.Records.ExtraDeviceTypes) != 2 || cfg.Records.ExtraDeviceTypes[0] != "Printer" {
		t.Fatalf("unexpected extra device types %v", cfg.Records.ExtraDeviceTypes)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
`)
	t.Setenv("ITAD_SERVER__PORT", "7070")
	t.Setenv("ITAD_PUBLISH__TIMEOUT", "5s")

	cfg, err := Load(path)
	requireNoError(t, err)

	if cfg.Server.Port != 7070 {
		t.Fatalf("expected env port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Publish.TimeoutDuration() != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %s", cfg.Publish.TimeoutDuration())
	}
}

func TestLoad_InvalidValuesFailStartup(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "server port",
			body:    "server:\n  port: -1\n",
			wantErr: "invalid server.port",
		},
		{
			name:    "database type",
			body:    "database:\n  type: \"sqlite\"\n",
			wantErr: "unsupported database.type",
		},
		{
			name:    "postgres without dsn",
			body:    "database:\n  type: \"postgres\"\n  dsn: \"\"\n",
			wantErr: "database.dsn is required",
		},
		{
			name:    "publish interval",
			body:    "publish:\n  interval: \"nope\"\n",
			wantErr: "invalid publish.interval",
		},
		{
			name:    "no trigger at all",
			body:    "publish:\n  interval: \"0s\"\n  on_ingest: false\n",
			wantErr: "publish.interval must be > 0",
		},
		{
			name:    "publish timeout",
			body:    "publish:\n  timeout: \"0s\"\n",
			wantErr: "publish.timeout must be > 0",
		},
		{
			name:    "negative window",
			body:    "reporting:\n  window_months: -3\n",
			wantErr: "reporting.window_months must be >= 0",
		},
		{
			name:    "material value",
			body:    "valuation:\n  material_value_per_kg: \"cheap\"\n",
			wantErr: "invalid valuation.material_value_per_kg",
		},
		{
			name:    "carbon per car",
			body:    "valuation:\n  carbon_kg_per_car: \"0\"\n",
			wantErr: "valuation.carbon_kg_per_car must be > 0",
		},
		{
			name:    "earliest date",
			body:    "records:\n  earliest_date: \"01/01/1970\"\n",
			wantErr: "invalid records.earliest_date",
		},
		{
			name:    "future skew",
			body:    "records:\n  max_future_skew: \"-1h\"\n",
			wantErr: "records.max_future_skew must be >= 0",
		},
		{
			name:    "max amount above float-safe bound",
			body:    "records:\n  max_amount: \"1e400\"\n",
			wantErr: "records.max_amount must be > 0 and <= 1e15",
		},
		{
			name:    "batch size",
			body:    "ingestion:\n  max_batch_size: 0\n",
			wantErr: "ingestion.max_batch_size must be > 0",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected %q error, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoad_CatalogDirMustBeDirectory(t *testing.T) {
	root := t.TempDir()
	notDir := filepath.Join(root, "metrics.yaml")
	requireNoError(t, os.WriteFile(notDir, []byte("name: x\n"), 0o644))

	path := writeConfig(t, "catalog:\n  dir: \""+notDir+"\"\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "is not a directory") {
		t.Fatalf("expected catalog dir error, got %v", err)
	}
}

func requireNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func TestConfig_RedactedHidesDatabasePassword(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{dsn: "postgres://itad:s3cret@db:5432/itad?sslmode=disable", want: "postgres://itad:xxxxx@db:5432/itad?sslmode=disable"},
		{dsn: "postgres://db:5432/itad", want: "postgres://db:5432/itad"},
		{dsn: "host=db user=itad password=s3cret", want: "[redacted]"},
		{dsn: "", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			cfg := Config{Database: DatabaseConfig{DSN: tc.dsn}}
			redacted := cfg.Redacted()
			if redacted.Database.DSN != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, redacted.Database.DSN)
			}
			if strings.Contains(redacted.Database.DSN, "s3cret") {
				t.Fatalf("password leaked: %q", redacted.Database.DSN)
			}
			if cfg.Database.DSN != tc.dsn {
				t.Fatalf("original config modified: %q", cfg.Database.DSN)
			}
		})
	}
}
