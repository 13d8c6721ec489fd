/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"balloonstudio/internal/coords"
	"balloonstudio/internal/undo"
)

// AppConfig is the user-editable configuration persisted as YAML in the user
// scope. Environment variables override it at runtime and are never written
// back. The service token lives in the OS keychain, not in the file.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int            `yaml:"config_version"`
	Service       ServiceConfig  `yaml:"service"`
	Workflow      WorkflowConfig `yaml:"workflow"`
	Export        ExportConfig   `yaml:"export"`
	Storage       StorageConfig  `yaml:"storage"`
	Logging       LoggingConfig  `yaml:"logging"`
}

type ServiceConfig struct {
	BaseURL    string  `yaml:"base_url"`
	TimeoutMs  int     `yaml:"timeout_ms"`
	RatePerSec float64 `yaml:"rate_per_sec"`
}

type WorkflowConfig struct {
	// PanelInset is in pixels; negative disables the inset.
	PanelInset   float64 `yaml:"panel_inset"`
	HistoryDepth int     `yaml:"history_depth"`
	CoalesceMs   int     `yaml:"coalesce_ms"`
	SnapDistance float64 `yaml:"snap_distance"`
}

type ExportConfig struct {
	JPEGQuality int    `yaml:"jpeg_quality"`
	Preset      string `yaml:"preset"`
}

type StorageConfig struct {
	PGDSN string `yaml:"pg_dsn"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Service:       ServiceConfig{BaseURL: "http://localhost:8000", TimeoutMs: 120000, RatePerSec: 2},
		Workflow:      WorkflowConfig{PanelInset: coords.DefaultPanelInset, HistoryDepth: undo.DefaultMaxEntries},
		Export:        ExportConfig{JPEGQuality: 95, Preset: "web"},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvServiceURL       = "BST_SERVICE_URL"
	EnvServiceTimeoutMs = "BST_SERVICE_TIMEOUT_MS"
	EnvServiceRate      = "BST_SERVICE_RATE"
	EnvServiceToken     = "BST_SERVICE_TOKEN"
	EnvPanelInset       = "BST_PANEL_INSET"
	EnvHistoryDepth     = "BST_HISTORY_DEPTH"
	EnvJPEGQuality      = "BST_JPEG_QUALITY"
	EnvPGDSN            = "BST_PG_DSN"
	EnvConfigDir        = "BST_CONFIG_DIR"

	EnvLogLevel  = "BST_LOG_LEVEL"
	EnvLogFormat = "BST_LOG_FORMAT"
	EnvLogSource = "BST_LOG_SOURCE"
	EnvLogFile   = "BST_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "BalloonStudio"
	keyringToken   = "service_token"
)

// TokenStore abstracts the keyring so tests can swap it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error   { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error       { return keyring.Delete(service, key) }

var tokenStore TokenStore = osKeyring{}

// ConfigPath returns the per-user config file path. BST_CONFIG_DIR replaces
// the platform directory.
func ConfigPath() (string, error) {
	if d := strings.TrimSpace(os.Getenv(EnvConfigDir)); d != "" {
		return filepath.Join(d, "config.yaml"), nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "BalloonStudio")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "BalloonStudio")
	default:
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "balloonstudio")
		} else if h := os.Getenv("HOME"); h != "" {
			base = filepath.Join(h, ".config", "balloonstudio")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults and merges
// environment overrides. The service token is returned separately: from
// BST_SERVICE_TOKEN when set, otherwise from the keyring. A malformed file is
// an error; a missing one is not.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, "", fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)

	if tok := strings.TrimSpace(os.Getenv(EnvServiceToken)); tok != "" {
		return cfg, tok, nil
	}
	tok, err := tokenStore.Get(keyringService, keyringToken)
	if err != nil {
		// No token, or no keychain: the client runs unauthenticated.
		return cfg, "", nil
	}
	return cfg, tok, nil
}

// Save writes the user config YAML and stores token in the keyring when non-empty.
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return fmt.Errorf("store token: %w", err)
		}
	}
	return nil
}

// ClearToken removes the stored service token. A missing token is not an error.
func ClearToken() error {
	if err := tokenStore.Delete(keyringService, keyringToken); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if s := strings.TrimSpace(src.Service.BaseURL); s != "" {
		dst.Service.BaseURL = s
	}
	if src.Service.TimeoutMs > 0 {
		dst.Service.TimeoutMs = src.Service.TimeoutMs
	}
	if src.Service.RatePerSec != 0 {
		dst.Service.RatePerSec = src.Service.RatePerSec
	}
	if src.Workflow.PanelInset != 0 {
		dst.Workflow.PanelInset = src.Workflow.PanelInset
	}
	if src.Workflow.HistoryDepth > 0 {
		dst.Workflow.HistoryDepth = src.Workflow.HistoryDepth
	}
	if src.Workflow.CoalesceMs > 0 {
		dst.Workflow.CoalesceMs = src.Workflow.CoalesceMs
	}
	if src.Workflow.SnapDistance > 0 {
		dst.Workflow.SnapDistance = src.Workflow.SnapDistance
	}
	if src.Export.JPEGQuality > 0 {
		dst.Export.JPEGQuality = src.Export.JPEGQuality
	}
	if s := strings.ToLower(strings.TrimSpace(src.Export.Preset)); s != "" {
		dst.Export.Preset = s
	}
	if s := strings.TrimSpace(src.Storage.PGDSN); s != "" {
		dst.Storage.PGDSN = s
	}
	if s := strings.TrimSpace(src.Logging.Level); s != "" {
		dst.Logging.Level = strings.ToLower(s)
	}
	if s := strings.TrimSpace(src.Logging.Format); s != "" {
		dst.Logging.Format = strings.ToLower(s)
	}
	dst.Logging.Source = src.Logging.Source
	if s := strings.TrimSpace(src.Logging.File); s != "" {
		dst.Logging.File = s
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := env(EnvServiceURL); v != "" {
		cfg.Service.BaseURL = v
	}
	if n, ok := envInt(EnvServiceTimeoutMs); ok {
		cfg.Service.TimeoutMs = n
	}
	if f, ok := envFloat(EnvServiceRate); ok {
		cfg.Service.RatePerSec = f
	}
	if f, ok := envFloat(EnvPanelInset); ok {
		cfg.Workflow.PanelInset = f
	}
	if n, ok := envInt(EnvHistoryDepth); ok && n > 0 {
		cfg.Workflow.HistoryDepth = n
	}
	if n, ok := envInt(EnvJPEGQuality); ok {
		cfg.Export.JPEGQuality = n
	}
	if v := env(EnvPGDSN); v != "" {
		cfg.Storage.PGDSN = v
	}
	if v := env(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := env(EnvLogFormat); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := env(EnvLogSource); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := env(EnvLogFile); v != "" {
		cfg.Logging.File = v
	}
}

func env(key string) string { return strings.TrimSpace(os.Getenv(key)) }

func envInt(key string) (int, bool) {
	v := env(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func envFloat(key string) (float64, bool) {
	v := env(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := map[string]string{
		"service.base_url":       EnvServiceURL,
		"service.timeout_ms":     EnvServiceTimeoutMs,
		"service.rate_per_sec":   EnvServiceRate,
		"workflow.panel_inset":   EnvPanelInset,
		"workflow.history_depth": EnvHistoryDepth,
		"export.jpeg_quality":    EnvJPEGQuality,
		"storage.pg_dsn":         EnvPGDSN,
		"logging.level":          EnvLogLevel,
		"logging.format":         EnvLogFormat,
		"logging.source":         EnvLogSource,
		"logging.file":           EnvLogFile,
	}[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// Timeout returns the request timeout, falling back to the default.
func (s ServiceConfig) Timeout() time.Duration {
	if s.TimeoutMs <= 0 {
		return time.Duration(Defaults().Service.TimeoutMs) * time.Millisecond
	}
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// CoalesceWindow is the undo merge interval; zero disables merging.
func (w WorkflowConfig) CoalesceWindow() time.Duration {
	return time.Duration(max(w.CoalesceMs, 0)) * time.Millisecond
}
