/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"carouselstudio/internal/config"
	"carouselstudio/internal/pages"
	"carouselstudio/internal/scene"
	"carouselstudio/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CST_CONFIG_DIR", dir)
	for _, k := range []string{
		config.EnvStorageDriver, config.EnvStorageDSN, config.EnvRemoteURL,
		config.EnvMaxCards, config.EnvCardStyle, config.EnvAutosaveMs, config.EnvFetchTimeoutMs,
	} {
		t.Setenv(k, "")
	}
	t.Setenv(config.EnvLogLevel, "error")
	keyring.MockInit()
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func openStore(t *testing.T, dir string) pages.Store {
	t.Helper()
	db, err := storage.Open(context.Background(), storage.SQLite, filepath.Join(dir, storage.DefaultFileName))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return storage.NewStore(db)
}

var projectRe = regexp.MustCompile(`project (\S+)`)

func TestSegmentMarkers(t *testing.T) {
	isolate(t)
	out, err := run(t, "texto 1 - Primeiro ponto importante. texto 2 - Segundo ponto importante. texto 3 - Terceiro ponto importante.", "segment")
	require.NoError(t, err)
	assert.Contains(t, out, " 1  Primeiro ponto importante.")
	assert.Contains(t, out, " 3  Terceiro ponto importante.")
	assert.Contains(t, out, "strategy: markers")
}

func TestGenerateStoresOnePagePerCard(t *testing.T) {
	dir := isolate(t)
	pngDir := filepath.Join(dir, "png")
	in := `{"headline":"Três ideias para começar","cards":"1. Comece pequeno e publique todos os dias.\n2. Meça o que importa para o seu público.\n3. Ajuste a rota a cada semana.","legenda":"Salve para depois"}`
	out, err := run(t, in, "generate", "--out-dir", pngDir)
	require.NoError(t, err)
	assert.Contains(t, out, "4 cards")
	assert.Contains(t, out, "caption: Salve para depois")

	m := projectRe.FindStringSubmatch(out)
	require.Len(t, m, 2)
	ps, err := openStore(t, dir).ListPages(context.Background(), m[1])
	require.NoError(t, err)
	require.Len(t, ps, 4)
	for i, p := range ps {
		assert.Equal(t, i, p.Order)
		snap, err := scene.UnmarshalString(p.Scene)
		require.NoError(t, err)
		require.NoError(t, snap.Validate())
	}
	_, err = os.Stat(filepath.Join(pngDir, "card-4.png"))
	assert.NoError(t, err)
}

func TestPagesLifecycle(t *testing.T) {
	dir := isolate(t)
	out, err := run(t, "", "projects", "create", "Demo", "--width", "200", "--height", "250")
	require.NoError(t, err)
	m := projectRe.FindStringSubmatch(out)
	require.Len(t, m, 2)
	pid := m[1]

	store := openStore(t, dir)
	ps, err := store.ListPages(context.Background(), pid)
	require.NoError(t, err)
	require.Len(t, ps, 1)
	first := ps[0].ID

	_, err = run(t, "", "pages", "delete", pid, first)
	require.Error(t, err)

	_, err = run(t, "", "pages", "add", pid, "--title", "Second")
	require.NoError(t, err)
	ps, err = store.ListPages(context.Background(), pid)
	require.NoError(t, err)
	require.Len(t, ps, 2)
	second := ps[1].ID

	_, err = run(t, "", "pages", "reorder", pid, second, first)
	require.NoError(t, err)
	ps, err = store.ListPages(context.Background(), pid)
	require.NoError(t, err)
	assert.Equal(t, second, ps[0].ID)

	_, err = run(t, "", "pages", "reorder", pid, second)
	require.Error(t, err)

	_, err = run(t, "", "pages", "delete", pid, first)
	require.NoError(t, err)
	ps, err = store.ListPages(context.Background(), pid)
	require.NoError(t, err)
	require.Len(t, ps, 1)
}

func TestEditSavesSceneAndThumbnail(t *testing.T) {
	dir := isolate(t)
	out, err := run(t, "", "projects", "create", "Edit me", "--width", "300", "--height", "300")
	require.NoError(t, err)
	pid := projectRe.FindStringSubmatch(out)[1]
	store := openStore(t, dir)
	ps, err := store.ListPages(context.Background(), pid)
	require.NoError(t, err)
	page := ps[0].ID

	_, err = run(t, "", "pages", "edit", pid, page, "background=#112233", "rect", "text=Olá", "undo")
	require.NoError(t, err)

	p, err := store.GetPage(context.Background(), pid, page)
	require.NoError(t, err)
	snap, err := scene.UnmarshalString(p.Scene)
	require.NoError(t, err)
	require.Len(t, snap.Objects, 2)
	assert.Equal(t, "#112233", snap.Workspace().Fill)
	_, isRect := snap.Objects[1].(*scene.RectObj)
	assert.True(t, isRect)
	assert.True(t, strings.HasPrefix(p.Thumbnail, "data:image/png;base64,"))

	_, err = run(t, "", "pages", "edit", pid, page, "spin")
	require.Error(t, err)
}

func TestExportWritesFiles(t *testing.T) {
	dir := isolate(t)
	out, err := run(t, "", "projects", "create", "Export", "--width", "100", "--height", "100")
	require.NoError(t, err)
	pid := projectRe.FindStringSubmatch(out)[1]

	outDir := filepath.Join(dir, "out")
	out, err = run(t, "", "export", pid, "--preset", "print", "-o", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(outDir, "print", "pdf", "carousel.pdf"))
	assert.Contains(t, out, "page-1.png")

	_, err = run(t, "", "export", pid, "--pages", "0")
	require.Error(t, err)
}

func TestDBMigrateStatus(t *testing.T) {
	isolate(t)
	out, err := run(t, "", "db", "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "(current)")
}

func TestParsePageList(t *testing.T) {
	got, err := parsePageList(" 1, 3")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, got)
	got, err = parsePageList("")
	require.NoError(t, err)
	assert.Nil(t, got)
	_, err = parsePageList("x")
	assert.Error(t, err)
}
