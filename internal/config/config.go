/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type EditorConfig struct {
	HistoryMaxEntries  int     `yaml:"history_max_entries"`
	HistoryMaxBytes    int64   `yaml:"history_max_bytes"`
	FitMargin          float64 `yaml:"fit_margin"`
	ZoomMin            float64 `yaml:"zoom_min"`
	ZoomMax            float64 `yaml:"zoom_max"`
	ZoomStep           float64 `yaml:"zoom_step"`
	AutosaveDebounceMs int     `yaml:"autosave_debounce_ms"`
}

type ImagesConfig struct {
	HeadTimeoutMs  int     `yaml:"head_timeout_ms"`
	FetchTimeoutMs int     `yaml:"fetch_timeout_ms"`
	MaxBytes       int64   `yaml:"max_bytes"`
	SizeTolerance  float64 `yaml:"size_tolerance"`
	CacheTTLSec    int     `yaml:"cache_ttl_s"`
}

type CardsConfig struct {
	MaxCards int    `yaml:"max_cards"`
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	Style    string `yaml:"style"` // "editorial-bold" | "card-with-image"
}

type StorageConfig struct {
	Driver    string `yaml:"driver"` // "sqlite" | "postgres" | "remote"
	DSN       string `yaml:"dsn"`
	RemoteURL string `yaml:"remote_url"`
	// Token for the remote driver is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Editor        EditorConfig  `yaml:"editor"`
	Images        ImagesConfig  `yaml:"images"`
	Cards         CardsConfig   `yaml:"cards"`
	Storage       StorageConfig `yaml:"storage"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Editor: EditorConfig{
			HistoryMaxEntries:  50,
			HistoryMaxBytes:    16 << 20,
			FitMargin:          0.85,
			ZoomMin:            0.2,
			ZoomMax:            1.0,
			ZoomStep:           0.05,
			AutosaveDebounceMs: 500,
		},
		Images: ImagesConfig{
			HeadTimeoutMs:  3000,
			FetchTimeoutMs: 5000,
			MaxBytes:       10 << 20,
			SizeTolerance:  0.10,
			CacheTTLSec:    600,
		},
		Cards:   CardsConfig{MaxCards: 15, Width: 1080, Height: 1350, Style: "editorial-bold"},
		Storage: StorageConfig{Driver: "sqlite", DSN: ""},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvStorageDriver  = "CST_STORAGE_DRIVER"
	EnvStorageDSN     = "CST_STORAGE_DSN"
	EnvRemoteURL      = "CST_REMOTE_URL"
	EnvMaxCards       = "CST_MAX_CARDS"
	EnvCardStyle      = "CST_CARD_STYLE"
	EnvAutosaveMs     = "CST_AUTOSAVE_DEBOUNCE_MS"
	EnvFetchTimeoutMs = "CST_FETCH_TIMEOUT_MS"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "CST_LOG_LEVEL"
	EnvLogFormat = "CST_LOG_FORMAT"
	EnvLogSource = "CST_LOG_SOURCE"
	EnvLogFile   = "CST_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "CarouselStudio"
	keyringToken   = "remote_token"
)

// tokenStore abstracts keyring, so we can stub in tests.
var tokenStore TokenStore = osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error { return keyring.Delete(service, key) }

// SetTokenStore swaps the keyring backend and returns a func restoring the previous one.
func SetTokenStore(ts TokenStore) (restore func()) {
	prev := tokenStore
	tokenStore = ts
	return func() { tokenStore = prev }
}

// ConfigDir returns the per-user application directory (config, default database, crash reports).
func ConfigDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("CST_CONFIG_DIR")); v != "" {
		return v, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "CarouselStudio")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "CarouselStudio")
	default: // linux and others
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "carouselstudio")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "carouselstudio")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads user config file (if present), applies defaults, and merges environment overrides.
// It also loads the remote API token from keyring (not kept inside the struct; returned separately).
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into OS keyring (if non-empty).
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
			return err
		}
	}
	return nil
}

// ClearToken removes the remote API token from the keyring.
func ClearToken() error {
	err := tokenStore.Delete(keyringService, keyringToken)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// editor
	if src.Editor.HistoryMaxEntries > 0 {
		dst.Editor.HistoryMaxEntries = src.Editor.HistoryMaxEntries
	}
	if src.Editor.HistoryMaxBytes > 0 {
		dst.Editor.HistoryMaxBytes = src.Editor.HistoryMaxBytes
	}
	if src.Editor.FitMargin > 0 && src.Editor.FitMargin <= 1 {
		dst.Editor.FitMargin = src.Editor.FitMargin
	}
	if src.Editor.ZoomMin > 0 {
		dst.Editor.ZoomMin = src.Editor.ZoomMin
	}
	if src.Editor.ZoomMax > 0 {
		dst.Editor.ZoomMax = src.Editor.ZoomMax
	}
	if src.Editor.ZoomStep > 0 {
		dst.Editor.ZoomStep = src.Editor.ZoomStep
	}
	if src.Editor.AutosaveDebounceMs > 0 {
		dst.Editor.AutosaveDebounceMs = src.Editor.AutosaveDebounceMs
	}
	// images
	if src.Images.HeadTimeoutMs > 0 {
		dst.Images.HeadTimeoutMs = src.Images.HeadTimeoutMs
	}
	if src.Images.FetchTimeoutMs > 0 {
		dst.Images.FetchTimeoutMs = src.Images.FetchTimeoutMs
	}
	if src.Images.MaxBytes > 0 {
		dst.Images.MaxBytes = src.Images.MaxBytes
	}
	if src.Images.SizeTolerance > 0 {
		dst.Images.SizeTolerance = src.Images.SizeTolerance
	}
	if src.Images.CacheTTLSec > 0 {
		dst.Images.CacheTTLSec = src.Images.CacheTTLSec
	}
	// cards
	if src.Cards.MaxCards > 0 {
		dst.Cards.MaxCards = src.Cards.MaxCards
	}
	if src.Cards.Width > 0 {
		dst.Cards.Width = src.Cards.Width
	}
	if src.Cards.Height > 0 {
		dst.Cards.Height = src.Cards.Height
	}
	if s := strings.TrimSpace(src.Cards.Style); s != "" {
		dst.Cards.Style = strings.ToLower(s)
	}
	// storage
	if s := strings.TrimSpace(src.Storage.Driver); s != "" {
		dst.Storage.Driver = strings.ToLower(s)
	}
	if s := strings.TrimSpace(src.Storage.DSN); s != "" {
		dst.Storage.DSN = s
	}
	if s := strings.TrimSpace(src.Storage.RemoteURL); s != "" {
		dst.Storage.RemoteURL = s
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func envInt(name string, dst *int) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvStorageDriver)); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageDSN)); v != "" {
		cfg.Storage.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRemoteURL)); v != "" {
		cfg.Storage.RemoteURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCardStyle)); v != "" {
		cfg.Cards.Style = strings.ToLower(v)
	}
	envInt(EnvMaxCards, &cfg.Cards.MaxCards)
	envInt(EnvAutosaveMs, &cfg.Editor.AutosaveDebounceMs)
	envInt(EnvFetchTimeoutMs, &cfg.Images.FetchTimeoutMs)
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envByKey = map[string]string{
	"storage.driver":              EnvStorageDriver,
	"storage.dsn":                 EnvStorageDSN,
	"storage.remote_url":          EnvRemoteURL,
	"cards.max_cards":             EnvMaxCards,
	"cards.style":                 EnvCardStyle,
	"editor.autosave_debounce_ms": EnvAutosaveMs,
	"images.fetch_timeout_ms":     EnvFetchTimeoutMs,
	"logging.level":               EnvLogLevel,
	"logging.format":              EnvLogFormat,
	"logging.source":              EnvLogSource,
	"logging.file":                EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envByKey[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// AutosaveDebounce returns the autosave delay, falling back to the default for non-positive values.
func (e EditorConfig) AutosaveDebounce() time.Duration {
	if e.AutosaveDebounceMs <= 0 {
		return time.Duration(Defaults().Editor.AutosaveDebounceMs) * time.Millisecond
	}
	return time.Duration(e.AutosaveDebounceMs) * time.Millisecond
}

// HeadTimeout is the bound for the cheap content-type check.
func (i ImagesConfig) HeadTimeout() time.Duration {
	if i.HeadTimeoutMs <= 0 {
		return time.Duration(Defaults().Images.HeadTimeoutMs) * time.Millisecond
	}
	return time.Duration(i.HeadTimeoutMs) * time.Millisecond
}

// FetchTimeout is the bound for a full fetch and decode.
func (i ImagesConfig) FetchTimeout() time.Duration {
	if i.FetchTimeoutMs <= 0 {
		return time.Duration(Defaults().Images.FetchTimeoutMs) * time.Millisecond
	}
	return time.Duration(i.FetchTimeoutMs) * time.Millisecond
}

// CacheTTL is how long resolved image references stay cached.
func (i ImagesConfig) CacheTTL() time.Duration {
	if i.CacheTTLSec <= 0 {
		return time.Duration(Defaults().Images.CacheTTLSec) * time.Second
	}
	return time.Duration(i.CacheTTLSec) * time.Second
}
