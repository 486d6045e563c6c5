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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"carouselstudio/internal/backend"
	"carouselstudio/internal/cache"
	"carouselstudio/internal/cards"
	"carouselstudio/internal/config"
	"carouselstudio/internal/editor"
	"carouselstudio/internal/history"
	"carouselstudio/internal/imaging"
	applog "carouselstudio/internal/log"
	"carouselstudio/internal/pages"
	"carouselstudio/internal/render"
	"carouselstudio/internal/storage"
	"carouselstudio/internal/viewport"
)

// app holds what one command invocation needs. The caller must defer Close.
type app struct {
	cfg   config.AppConfig
	token string
	db    *storage.DB // nil for the remote driver
	store pages.Store
	cache cache.Cache
	log   *slog.Logger
}

// newApp reads the config and opens the configured store. operation names
// the command for log records.
func newApp(ctx context.Context, operation string) (*app, error) {
	cfg, token, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	a := &app{cfg: cfg, token: token, log: applog.WithOperation(applog.WithComponent("cli"), operation)}

	if strings.EqualFold(cfg.Storage.Driver, "remote") {
		if cfg.Storage.RemoteURL == "" {
			return nil, errors.New("storage driver remote needs storage.remote_url")
		}
		a.store = backend.NewClient(cfg.Storage.RemoteURL, token)
		a.cache = cache.NewMemory()
		return a, nil
	}
	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.store = storage.NewStore(db)
	a.cache = storage.NewBlobCache(db, 0)
	return a, nil
}

func openDB(ctx context.Context, cfg config.AppConfig) (*storage.DB, error) {
	d, err := storage.ParseDialect(cfg.Storage.Driver)
	if err != nil {
		return nil, err
	}
	dsn := cfg.Storage.DSN
	if dsn == "" && d == storage.SQLite {
		dir, err := config.ConfigDir()
		if err != nil {
			return nil, err
		}
		dsn = filepath.Join(dir, storage.DefaultFileName)
	}
	db, err := storage.Open(ctx, d, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("closing database failed", slog.Any("err", err))
		}
	}
}

func (a *app) normalizer() *imaging.Normalizer {
	ic := a.cfg.Images
	return imaging.New(imaging.Config{
		HeadTimeout:  ic.HeadTimeout(),
		FetchTimeout: ic.FetchTimeout(),
		MaxBytes:     ic.MaxBytes,
		Tolerance:    ic.SizeTolerance,
		CacheTTL:     ic.CacheTTL(),
	}, http.DefaultClient, a.cache)
}

func (a *app) compiler(style string) (*cards.Compiler, error) {
	if style == "" {
		style = a.cfg.Cards.Style
	}
	st, err := cards.ParseStyle(style)
	if err != nil {
		return nil, err
	}
	return cards.NewCompiler(a.normalizer(), cards.Options{
		Width:  float64(a.cfg.Cards.Width),
		Height: float64(a.cfg.Cards.Height),
		Style:  st,
	}), nil
}

func (a *app) renderer() *render.Renderer {
	return render.New(render.Options{})
}

func (a *app) bridge() *pages.Bridge {
	ec := a.cfg.Editor
	b := pages.NewBridge(a.store, pages.Options{
		Debounce: ec.AutosaveDebounce(),
		Editor: editor.Options{
			History: history.Config{MaxEntries: ec.HistoryMaxEntries, MaxBytes: int(ec.HistoryMaxBytes)},
			Viewport: viewport.Config{
				Margin: ec.FitMargin, MinZoom: ec.ZoomMin, MaxZoom: ec.ZoomMax, Step: ec.ZoomStep,
			},
		},
		Thumbnailer: a.renderer(),
	})
	activeBridge.set(b)
	return b
}

// bridgeFlusher lets the crash handler flush whichever bridge is live.
type bridgeFlusher struct {
	mu sync.Mutex
	b  *pages.Bridge
}

var activeBridge = &bridgeFlusher{}

func (f *bridgeFlusher) set(b *pages.Bridge) {
	f.mu.Lock()
	f.b = b
	f.mu.Unlock()
}

func (f *bridgeFlusher) Flush(ctx context.Context) error {
	f.mu.Lock()
	b := f.b
	f.mu.Unlock()
	if b == nil {
		return nil
	}
	return b.Flush(ctx)
}
