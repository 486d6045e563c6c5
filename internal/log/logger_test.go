/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastJSONLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var last string
	for _, line := range strings.Split(buf.String(), "\n") {
		if s := strings.TrimSpace(line); s != "" {
			last = s
		}
	}
	require.NotEmpty(t, last, "no log lines written")
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(last), &m))
	return m
}

func TestInitJSONCarriesStaticAndContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "debug", Format: "json", Writer: &buf})

	l := WithOperation(WithComponent("editor"), "undo")
	l.Info("history moved", slog.Int("cursor", 3))

	m := lastJSONLine(t, &buf)
	assert.Equal(t, "carouselstudio", m["app"])
	assert.IsType(t, "", m["ver"])
	assert.Equal(t, "editor", m["component"])
	assert.Equal(t, "undo", m["op"])
	assert.Equal(t, "history moved", m["msg"])
	assert.EqualValues(t, 3, m["cursor"])
}

func TestContextWithPageEnrichesRecords(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "info", Format: "json", Writer: &buf})

	ctx := ContextWithPage(context.Background(), "proj-1", "page-7")
	L().InfoContext(ctx, "autosave flushed")

	m := lastJSONLine(t, &buf)
	assert.Equal(t, "proj-1", m["project"])
	assert.Equal(t, "page-7", m["page"])

	L().Info("no ctx")
	m = lastJSONLine(t, &buf)
	_, hasPage := m["page"]
	assert.False(t, hasPage)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "warn", Format: "json", Writer: &buf})
	L().Info("dropped")
	L().Debug("dropped too")
	assert.Empty(t, buf.String())
	L().Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestFromEnv(t *testing.T) {
	t.Setenv("CST_LOG_LEVEL", "warn")
	t.Setenv("CST_LOG_FORMAT", "json")
	t.Setenv("CST_LOG_SOURCE", "true")
	t.Setenv("CST_LOG_FILE", "")

	opts := FromEnv()
	assert.Equal(t, "warn", opts.Level)
	assert.Equal(t, "json", opts.Format)
	assert.True(t, opts.AddSource)
	assert.Empty(t, opts.File)
	assert.Equal(t, "fallback", getenv("CST_SURELY_UNSET_VAR", "fallback"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel(" DEBUG "))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}

func TestConsoleHandler(t *testing.T) {
	var buf bytes.Buffer
	h := newConsoleHandler(&buf, slog.LevelWarn, false)

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))

	l := slog.New(h).With(slog.String("component", "pages"), slog.String("k", "v"))
	l = WithOperation(l, "save").WithGroup("grp")
	l.Error("save failed", slog.Int("n", 42), slog.Float64("pi", 3.14), slog.Bool("ok", true), slog.String("title", "two words"))
	l.Info("dropped")

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, "ERR pages/save save failed k=v")
	assert.Contains(t, out, "grp.n=42")
	assert.Contains(t, out, "grp.pi=3.14")
	assert.Contains(t, out, "grp.ok=true")
	assert.Contains(t, out, `grp.title="two words"`)
	assert.NotContains(t, out, "component=")
}

func TestConsoleHandlerFlattensGroupsAndSource(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(newConsoleHandler(&buf, slog.LevelDebug, true))
	l.Debug("sized", slog.Group("size", slog.Int("w", 1080), slog.Int("h", 1350)))
	out := buf.String()
	assert.Contains(t, out, "DBG sized size.w=1080 size.h=1350")
	assert.Contains(t, out, "src=logger_test.go:")
}

func TestDiscardDropsOutput(t *testing.T) {
	l := Discard()
	require.NotNil(t, l)
	l.Error("nothing to see")
}

func TestFileSinkReceivesJSONAlongsideConsole(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "carousel.log")
	Init(Options{Level: "info", Format: "console", File: path, Writer: &buf})
	t.Cleanup(func() { Init(Options{Writer: &bytes.Buffer{}}) })

	ctx := ContextWithPage(context.Background(), "proj-1", "page-2")
	WithComponent("pages").InfoContext(ctx, "page saved")
	L().Debug("below threshold")

	assert.Contains(t, buf.String(), "INF pages page saved")
	assert.NotContains(t, buf.String(), "below threshold")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	m := lastJSONLine(t, bytes.NewBuffer(data))
	assert.Equal(t, "page saved", m["msg"])
	assert.Equal(t, "pages", m["component"])
	assert.Equal(t, "page-2", m["page"])
	assert.NotContains(t, string(data), "below threshold")
}
