/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package log configures carouselstudio's slog logger: a console line (or JSON)
// on stderr, an optional rotated JSON file, and project/page tags taken from
// the context of editor and storage calls.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"carouselstudio/internal/version"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Options mirrors the logging section of the config file. FromEnv reads the
// CST_LOG_LEVEL, CST_LOG_FORMAT, CST_LOG_SOURCE and CST_LOG_FILE variables.
type Options struct {
	Level     string // debug, info, warn or error; anything else is info
	Format    string // "console" or "json"
	AddSource bool
	File      string    // rotated JSON log, off when empty
	Writer    io.Writer // nil means os.Stderr
}

// Rotation of the file sink.
const (
	fileMaxSizeMB  = 10
	fileMaxBackups = 3
	fileMaxAgeDays = 28
)

var current atomic.Pointer[slog.Logger]

// L returns the process logger. Before Init it configures one from the
// environment.
func L() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	Init(FromEnv())
	return current.Load()
}

// Init replaces the process logger and slog's default.
func Init(opts Options) {
	lvl := parseLevel(opts.Level)
	out := opts.Writer
	if out == nil {
		out = os.Stderr
	}

	sinks := []slog.Handler{terminalSink(out, opts.Format, lvl, opts.AddSource)}
	if path := strings.TrimSpace(opts.File); path != "" {
		w := &lj.Logger{Filename: path, MaxSize: fileMaxSizeMB, MaxBackups: fileMaxBackups, MaxAge: fileMaxAgeDays, Compress: true}
		sinks = append(sinks, slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource}))
	}
	var h slog.Handler = sinks[0]
	if len(sinks) > 1 {
		h = fanout(sinks)
	}

	logger := slog.New(pageTags{next: h}).With(
		slog.String("app", "carouselstudio"),
		slog.String("ver", version.Version),
	)
	current.Store(logger)
	slog.SetDefault(logger)
}

func terminalSink(w io.Writer, format string, lvl slog.Level, addSource bool) slog.Handler {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: addSource})
	}
	return newConsoleHandler(w, lvl, addSource)
}

// FromEnv builds Options from the CST_LOG_* variables.
func FromEnv() Options {
	return Options{
		Level:     getenv("CST_LOG_LEVEL", "info"),
		Format:    getenv("CST_LOG_FORMAT", "console"),
		AddSource: strings.EqualFold(getenv("CST_LOG_SOURCE", "false"), "true"),
		File:      os.Getenv("CST_LOG_FILE"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// WithComponent tags records with the subsystem (editor, pages, backend, cli).
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation tags records with the command or editor operation.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

// Discard returns a logger that writes nothing.
func Discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

type pageRef struct{ project, page string }

type pageRefKey struct{}

// ContextWithPage tags ctx with the project and page an operation runs against.
// Records logged with that ctx (InfoContext etc.) carry project/page attributes.
func ContextWithPage(ctx context.Context, projectID, pageID string) context.Context {
	return context.WithValue(ctx, pageRefKey{}, pageRef{project: projectID, page: pageID})
}

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

func parseLevel(s string) slog.Level {
	return levels[strings.ToLower(strings.TrimSpace(s))] // zero value is LevelInfo
}

// fanout sends every record to each sink that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) each(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = fn(h)
	}
	return out
}

func pageFrom(ctx context.Context) (pageRef, bool) {
	if ctx == nil {
		return pageRef{}, false
	}
	ref, ok := ctx.Value(pageRefKey{}).(pageRef)
	return ref, ok
}

// pageTags adds the project and page from ContextWithPage to each record.
type pageTags struct{ next slog.Handler }

func (p pageTags) Enabled(ctx context.Context, level slog.Level) bool {
	return p.next.Enabled(ctx, level)
}

func (p pageTags) Handle(ctx context.Context, r slog.Record) error {
	if ref, ok := pageFrom(ctx); ok {
		if ref.project != "" {
			r.AddAttrs(slog.String("project", ref.project))
		}
		if ref.page != "" {
			r.AddAttrs(slog.String("page", ref.page))
		}
	}
	return p.next.Handle(ctx, r)
}

func (p pageTags) WithAttrs(attrs []slog.Attr) slog.Handler {
	return pageTags{next: p.next.WithAttrs(attrs)}
}

func (p pageTags) WithGroup(name string) slog.Handler {
	return pageTags{next: p.next.WithGroup(name)}
}
