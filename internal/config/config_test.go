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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

type memTokens map[string]string

func (m memTokens) Get(service, key string) (string, error) {
	v, ok := m[service+"/"+key]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return v, nil
}

func (m memTokens) Set(service, key, value string) error {
	m[service+"/"+key] = value
	return nil
}

func (m memTokens) Delete(service, key string) error {
	if _, ok := m[service+"/"+key]; !ok {
		return keyring.ErrNotFound
	}
	delete(m, service+"/"+key)
	return nil
}

func isolate(t *testing.T) memTokens {
	t.Helper()
	t.Setenv("CST_CONFIG_DIR", t.TempDir())
	for _, k := range envByKey {
		t.Setenv(k, "")
	}
	mem := memTokens{}
	t.Cleanup(SetTokenStore(mem))
	return mem
}

func TestLoadWithoutFileReturnsDefaults(t *testing.T) {
	isolate(t)
	cfg, tok, err := Load()
	require.NoError(t, err)
	assert.Empty(t, tok)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, 0.85, cfg.Editor.FitMargin)
	assert.Equal(t, 15, cfg.Cards.MaxCards)
	assert.Equal(t, 500*time.Millisecond, cfg.Editor.AutosaveDebounce())
	assert.Equal(t, 3*time.Second, cfg.Images.HeadTimeout())
	assert.Equal(t, 5*time.Second, cfg.Images.FetchTimeout())
}

func TestSaveAndLoadRoundTripKeepsTokenOutOfYAML(t *testing.T) {
	mem := isolate(t)
	cfg := Defaults()
	cfg.Cards.Style = "card-with-image"
	cfg.Storage.Driver = "remote"
	cfg.Storage.RemoteURL = "https://api.example.test"
	require.NoError(t, Save(cfg, "s3cret"))

	path, err := ConfigPath()
	require.NoError(t, err)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "s3cret")
	assert.Equal(t, "s3cret", mem[keyringService+"/"+keyringToken])

	got, tok, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", tok)
	assert.Equal(t, "card-with-image", got.Cards.Style)
	assert.Equal(t, "https://api.example.test", got.Storage.RemoteURL)

	require.NoError(t, ClearToken())
	require.NoError(t, ClearToken(), "clearing a missing token is not an error")
}

func TestPartialFileKeepsDefaultsForMissingFields(t *testing.T) {
	isolate(t)
	path, err := ConfigPath()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("editor:\n  zoom_step: 0.1\ncards:\n  max_cards: 8\n"), 0o600))

	cfg, _, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.1, cfg.Editor.ZoomStep)
	assert.Equal(t, 8, cfg.Cards.MaxCards)
	assert.Equal(t, 0.2, cfg.Editor.ZoomMin)
	assert.Equal(t, 1080, cfg.Cards.Width)
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = " DEBUG "
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/cst.log"
	mergeInto(&dst, &src)
	assert.Equal(t, LoggingConfig{Level: "debug", Format: "json", Source: true, File: "/tmp/cst.log"}, dst.Logging)
}

func TestMergeRejectsOutOfRangeFitMargin(t *testing.T) {
	dst := Defaults()
	src := AppConfig{Editor: EditorConfig{FitMargin: 1.7}}
	mergeInto(&dst, &src)
	assert.Equal(t, 0.85, dst.Editor.FitMargin)
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(EnvStorageDriver, "Postgres")
	t.Setenv(EnvStorageDSN, "postgres://u@localhost/cst")
	t.Setenv(EnvMaxCards, "6")
	t.Setenv(EnvAutosaveMs, "not-a-number")
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogSource, "1")

	cfg, _, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "postgres://u@localhost/cst", cfg.Storage.DSN)
	assert.Equal(t, 6, cfg.Cards.MaxCards)
	assert.Equal(t, 500, cfg.Editor.AutosaveDebounceMs)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Source)

	name, ok := EnvOverrideFor("storage.driver")
	assert.True(t, ok)
	assert.Equal(t, EnvStorageDriver, name)
	_, ok = EnvOverrideFor("cards.style")
	assert.False(t, ok)
	_, ok = EnvOverrideFor("no.such.key")
	assert.False(t, ok)
}
