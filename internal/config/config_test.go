package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zalando/go-keyring"
)

func isolate(t *testing.T) string {
	t.Helper()
	keyring.MockInit()
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	for _, k := range []string{EnvServiceURL, EnvServiceTimeoutMs, EnvServiceRate, EnvServiceToken,
		EnvPanelInset, EnvHistoryDepth, EnvJPEGQuality, EnvPGDSN,
		EnvLogLevel, EnvLogFormat, EnvLogSource, EnvLogFile} {
		t.Setenv(k, "")
	}
	return dir
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	isolate(t)
	cfg, tok, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tok != "" {
		t.Fatalf("token = %q, want empty", tok)
	}
	if cfg != Defaults() {
		t.Fatalf("cfg = %#v, want defaults", cfg)
	}
}

func TestEnvOverridesServiceURL(t *testing.T) {
	isolate(t)
	t.Setenv(EnvServiceURL, "https://example.test:8443")
	t.Setenv(EnvServiceTimeoutMs, "5000")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.Service.BaseURL, "https://example.test:8443"; got != want {
		t.Fatalf("Service.BaseURL = %q, want %q", got, want)
	}
	if got := cfg.Service.Timeout(); got != 5*time.Second {
		t.Fatalf("Timeout() = %v, want 5s", got)
	}
	if name, ok := EnvOverrideFor("service.base_url"); !ok || name != EnvServiceURL {
		t.Fatalf("EnvOverrideFor = %q,%v", name, ok)
	}
	if _, ok := EnvOverrideFor("storage.pg_dsn"); ok {
		t.Fatalf("pg_dsn reported as overridden")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := isolate(t)
	cfg := Defaults()
	cfg.Workflow.PanelInset = 4
	cfg.Workflow.HistoryDepth = 20
	cfg.Workflow.CoalesceMs = 300
	cfg.Export.JPEGQuality = 80
	cfg.Storage.PGDSN = "postgres://u@h/db"
	if err := Save(cfg, "s3cret"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	got, tok, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != cfg {
		t.Fatalf("loaded %#v, want %#v", got, cfg)
	}
	if tok != "s3cret" {
		t.Fatalf("token = %q, want s3cret", tok)
	}
	if got.Workflow.CoalesceWindow() != 300*time.Millisecond {
		t.Fatalf("CoalesceWindow = %v", got.Workflow.CoalesceWindow())
	}

	if err := ClearToken(); err != nil {
		t.Fatalf("ClearToken: %v", err)
	}
	if err := ClearToken(); err != nil {
		t.Fatalf("second ClearToken: %v", err)
	}
	if _, tok, _ = Load(); tok != "" {
		t.Fatalf("token after clear = %q", tok)
	}
}

func TestEnvTokenWinsOverKeyring(t *testing.T) {
	isolate(t)
	if err := Save(Defaults(), "from-keyring"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	t.Setenv(EnvServiceToken, "from-env")
	_, tok, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tok != "from-env" {
		t.Fatalf("token = %q, want from-env", tok)
	}
}

func TestMalformedFileIsAnError(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("service: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "DEBUG"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/bst.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/bst.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestMergeKeepsDefaultsForZeroFields(t *testing.T) {
	dst := Defaults()
	mergeInto(&dst, &AppConfig{Workflow: WorkflowConfig{PanelInset: -1}})
	if dst.Workflow.PanelInset != -1 {
		t.Fatalf("PanelInset = %v, want -1", dst.Workflow.PanelInset)
	}
	if dst.Workflow.HistoryDepth != 50 || dst.Export.JPEGQuality != 95 || dst.Service.BaseURL == "" {
		t.Fatalf("defaults lost: %#v", dst)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "/var/log/bst.log")
	t.Setenv(EnvHistoryDepth, "12")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "/var/log/bst.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
	if cfg.Workflow.HistoryDepth != 12 {
		t.Fatalf("HistoryDepth = %d, want 12", cfg.Workflow.HistoryDepth)
	}
}
