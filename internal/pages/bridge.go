/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package pages

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bep/debounce"

	"carouselstudio/internal/editor"
	"carouselstudio/internal/host"
	applog "carouselstudio/internal/log"
	"carouselstudio/internal/scene"
)

// DefaultDebounce is the autosave delay after the last committed mutation.
const DefaultDebounce = 500 * time.Millisecond

// saveTimeout bounds one background save.
const saveTimeout = 10 * time.Second

// Thumbnailer renders a page preview as PNG.
type Thumbnailer interface {
	Thumbnail(s scene.Snapshot) ([]byte, error)
}

// Options configure a Bridge.
type Options struct {
	Debounce time.Duration
	// Editor is the template for each page's session; OnSave and the
	// fallback size are set by the bridge.
	Editor      editor.Options
	Thumbnailer Thumbnailer
	NewID       scene.IDFunc
	Logger      *slog.Logger
}

// Bridge owns at most one active page and its editor session.
type Bridge struct {
	store Store
	opts  Options
	log   *slog.Logger

	mu     sync.Mutex
	gen    uint64
	active *activePage
}

type activePage struct {
	gen       uint64
	projectID string
	pageID    string
	session   *editor.Session
	debounced func(f func())

	// guarded by Bridge.mu
	pending   *queuedSave
	lastSaved string
	// seq numbers saves in the order their scenes were taken; savedSeq is
	// the newest one written.
	seq      uint64
	savedSeq uint64

	// saveMu serializes writes for this page.
	saveMu sync.Mutex
}

func NewBridge(store Store, opts Options) *Bridge {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.NewID == nil {
		opts.NewID = scene.NewID
	}
	if opts.Logger == nil {
		opts.Logger = applog.WithComponent("pages")
	}
	return &Bridge{store: store, opts: opts, log: opts.Logger}
}

// Store returns the underlying persistence boundary.
func (b *Bridge) Store() Store { return b.store }

// Activate tears down the current page (flushing its pending save) and loads
// pageID into a new session attached to h.
func (b *Bridge) Activate(ctx context.Context, projectID, pageID string, h host.Host) (*editor.Session, error) {
	l := applog.WithOperation(b.log, "activate")
	if err := b.Deactivate(ctx); err != nil {
		l.Warn("flush before page switch failed", slog.Any("err", err))
	}
	page, err := b.store.GetPage(ctx, projectID, pageID)
	if err != nil {
		return nil, fmt.Errorf("load page %s: %w", pageID, err)
	}

	b.mu.Lock()
	b.gen++
	gen := b.gen
	opts := b.opts.Editor
	opts.OnSave = func(s editor.Save) { b.schedule(gen, s) }
	opts.FallbackWidth, opts.FallbackHeight = page.Width, page.Height
	if opts.NewID == nil {
		opts.NewID = b.opts.NewID
	}
	a := &activePage{
		gen:       gen,
		projectID: projectID,
		pageID:    pageID,
		session:   editor.New(opts),
		debounced: debounce.New(b.opts.Debounce),
	}
	b.active = a
	b.mu.Unlock()

	if err := a.session.Attach(h); err != nil {
		b.drop(a)
		return nil, err
	}
	if err := a.session.Load(page.Scene, page.Width, page.Height); err != nil {
		b.drop(a)
		return nil, err
	}
	loaded, err := a.session.Serialize()
	if err != nil {
		b.drop(a)
		return nil, err
	}
	b.mu.Lock()
	a.lastSaved = loaded
	b.mu.Unlock()

	ctx = applog.ContextWithPage(ctx, projectID, pageID)
	l.InfoContext(ctx, "page active", slog.Float64("width", page.Width), slog.Float64("height", page.Height))
	return a.session, nil
}

// drop disposes a without saving and makes its scheduled saves stale.
func (b *Bridge) drop(a *activePage) {
	b.mu.Lock()
	if b.active == a {
		b.active = nil
		b.gen++
	}
	b.mu.Unlock()
	a.session.Dispose()
}

// Deactivate saves the active page's latest scene and disposes its session.
// Saves scheduled by that session afterwards are dropped.
func (b *Bridge) Deactivate(ctx context.Context) error {
	b.mu.Lock()
	a := b.active
	b.mu.Unlock()
	if a == nil {
		return nil
	}
	err := b.Flush(ctx)
	b.drop(a)
	return err
}

// Active returns the active session and its page, or nil.
func (b *Bridge) Active() (s *editor.Session, projectID, pageID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active == nil {
		return nil, "", ""
	}
	return b.active.session, b.active.projectID, b.active.pageID
}

func (b *Bridge) schedule(gen uint64, s editor.Save) {
	b.mu.Lock()
	a := b.active
	if a == nil || a.gen != gen {
		b.mu.Unlock()
		applog.WithOperation(b.log, "autosave").Debug("stale save dropped", slog.Uint64("gen", gen))
		return
	}
	a.seq++
	a.pending = &queuedSave{save: s, seq: a.seq}
	deb := a.debounced
	b.mu.Unlock()
	deb(func() {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := b.flushPending(ctx, gen); err != nil {
			applog.WithOperation(b.log, "autosave").Warn("autosave failed", slog.Any("err", err))
		}
	})
}

func (b *Bridge) flushPending(ctx context.Context, gen uint64) error {
	b.mu.Lock()
	a := b.active
	if a == nil || a.gen != gen {
		b.mu.Unlock()
		applog.WithOperation(b.log, "autosave").Info("stale save dropped after page switch", slog.Uint64("gen", gen))
		return nil
	}
	p := a.pending
	a.pending = nil
	b.mu.Unlock()
	if p == nil {
		return nil
	}
	return b.persist(ctx, a, p.save, p.seq)
}

type queuedSave struct {
	save editor.Save
	seq  uint64
}

// Flush writes the active session's current scene now, cancelling nothing:
// a debounced save that fires later finds nothing pending.
func (b *Bridge) Flush(ctx context.Context) error {
	b.mu.Lock()
	a := b.active
	var seq uint64
	if a != nil {
		a.pending = nil
		a.seq++
		seq = a.seq
	}
	b.mu.Unlock()
	if a == nil {
		return nil
	}
	data, err := a.session.Serialize()
	if err != nil {
		if errors.Is(err, editor.ErrDisposed) || errors.Is(err, editor.ErrNotReady) {
			return nil
		}
		return err
	}
	w, h, err := a.session.WorkspaceSize()
	if err != nil {
		return err
	}
	return b.persist(ctx, a, editor.Save{Scene: data, Width: w, Height: h}, seq)
}

// persist writes s unless a newer save of the page already landed or the
// page is no longer active.
func (b *Bridge) persist(ctx context.Context, a *activePage, s editor.Save, seq uint64) error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()
	b.mu.Lock()
	if b.active != a || seq <= a.savedSeq {
		b.mu.Unlock()
		applog.WithOperation(b.log, "save").Debug("superseded save dropped", slog.Uint64("seq", seq))
		return nil
	}
	same := s.Scene == a.lastSaved
	if same {
		a.savedSeq = seq
	}
	b.mu.Unlock()
	if same {
		return nil
	}
	ctx = applog.ContextWithPage(ctx, a.projectID, a.pageID)
	l := applog.WithOperation(b.log, "save")
	upd := PageUpdate{Scene: &s.Scene}
	if s.Width > 0 && s.Height > 0 {
		upd.Width, upd.Height = &s.Width, &s.Height
	}
	if b.opts.Thumbnailer != nil {
		if thumb, err := b.thumbnail(s.Scene); err != nil {
			l.WarnContext(ctx, "thumbnail render failed", slog.Any("err", err))
		} else {
			upd.Thumbnail = &thumb
		}
	}
	if _, err := b.store.SavePage(ctx, a.projectID, a.pageID, upd); err != nil {
		return fmt.Errorf("save page %s: %w", a.pageID, err)
	}
	b.mu.Lock()
	a.lastSaved = s.Scene
	a.savedSeq = seq
	b.mu.Unlock()
	l.DebugContext(ctx, "page saved", slog.Int("bytes", len(s.Scene)))
	return nil
}

func (b *Bridge) thumbnail(data string) (string, error) {
	snap, err := scene.UnmarshalString(data)
	if err != nil {
		return "", err
	}
	png, err := b.opts.Thumbnailer.Thumbnail(snap)
	if err != nil {
		return "", err
	}
	return PNGDataURI(png), nil
}

// PNGDataURI encodes PNG bytes as a data URI.
func PNGDataURI(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

// BlankScene serializes a workspace-only scene of the given size.
func (b *Bridge) BlankScene(width, height float64) (string, error) {
	return scene.MarshalString(scene.Blank(width, height, b.opts.NewID))
}

// CreateProject creates a project whose first page (order 0) holds a blank
// workspace at the project size unless np.FirstScene is set.
func (b *Bridge) CreateProject(ctx context.Context, np NewProject) (Project, Page, error) {
	if np.Width <= 0 || np.Height <= 0 {
		return Project{}, Page{}, fmt.Errorf("pages: project size must be positive, got %vx%v", np.Width, np.Height)
	}
	if np.FirstScene == "" {
		blank, err := b.BlankScene(np.Width, np.Height)
		if err != nil {
			return Project{}, Page{}, err
		}
		np.FirstScene = blank
	}
	return b.store.CreateProject(ctx, np)
}

// AddPage appends a blank page sized like the project.
func (b *Bridge) AddPage(ctx context.Context, projectID, title string) (Page, error) {
	pr, err := b.store.GetProject(ctx, projectID)
	if err != nil {
		return Page{}, err
	}
	blank, err := b.BlankScene(pr.Width, pr.Height)
	if err != nil {
		return Page{}, err
	}
	return b.store.CreatePage(ctx, projectID, NewPage{Title: title, Width: pr.Width, Height: pr.Height, Scene: blank})
}

// AddPageWithScene appends a page holding data (e.g. a generated card). The data
// is checked against the snapshot schema before anything is stored.
func (b *Bridge) AddPageWithScene(ctx context.Context, projectID, title, data string) (Page, error) {
	if err := scene.ValidateJSON([]byte(data)); err != nil {
		return Page{}, fmt.Errorf("%w: %w", ErrInvalidScene, err)
	}
	snap, err := scene.UnmarshalString(data)
	if err != nil {
		return Page{}, fmt.Errorf("%w: %w", ErrInvalidScene, err)
	}
	w, h := snap.Size()
	return b.store.CreatePage(ctx, projectID, NewPage{Title: title, Width: w, Height: h, Scene: data})
}

func (b *Bridge) ListProjects(ctx context.Context, userID string) ([]Project, error) {
	return b.store.ListProjects(ctx, userID)
}

func (b *Bridge) ListPages(ctx context.Context, projectID string) ([]Page, error) {
	return b.store.ListPages(ctx, projectID)
}

// UpdatePage changes a page's title and/or size. A new size is written into
// the scene's workspace too; for the active page it goes through the session.
func (b *Bridge) UpdatePage(ctx context.Context, projectID, pageID string, title *string, width, height *float64) (Page, error) {
	resize := width != nil && height != nil && *width > 0 && *height > 0
	if s, pid, id := b.Active(); s != nil && pid == projectID && id == pageID && resize {
		if err := s.SetWorkspaceSize(*width, *height); err != nil {
			return Page{}, err
		}
		if err := b.Flush(ctx); err != nil {
			return Page{}, err
		}
		if title == nil {
			return b.store.GetPage(ctx, projectID, pageID)
		}
		return b.store.SavePage(ctx, projectID, pageID, PageUpdate{Title: title})
	}
	upd := PageUpdate{Title: title}
	if resize {
		page, err := b.store.GetPage(ctx, projectID, pageID)
		if err != nil {
			return Page{}, err
		}
		upd.Width, upd.Height = width, height
		if page.Scene != "" {
			snap, err := scene.UnmarshalString(page.Scene)
			if err == nil {
				ws := snap.Workspace()
				ws.Width, ws.Height, ws.ScaleX, ws.ScaleY = *width, *height, 1, 1
				data, err := scene.MarshalString(snap)
				if err != nil {
					return Page{}, err
				}
				upd.Scene = &data
			} else {
				applog.WithOperation(b.log, "update_page").Warn("stored scene unreadable; size updated without it", slog.Any("err", err))
			}
		}
	}
	return b.store.SavePage(ctx, projectID, pageID, upd)
}

// SaveThumbnail stores a rendered PNG preview with the page.
func (b *Bridge) SaveThumbnail(ctx context.Context, projectID, pageID string, png []byte) (Page, error) {
	uri := PNGDataURI(png)
	return b.store.SavePage(ctx, projectID, pageID, PageUpdate{Thumbnail: &uri})
}

// ReorderPages applies a full order assignment as one unit.
func (b *Bridge) ReorderPages(ctx context.Context, projectID string, order []OrderAssignment) error {
	if err := b.store.ReorderPages(ctx, projectID, order); err != nil {
		applog.WithOperation(b.log, "reorder").Warn("reorder rejected", slog.String("project", projectID), slog.Any("err", err))
		return err
	}
	return nil
}

// DeletePage removes a page unless it is the project's last. The active
// page is flushed first and its session is disposed only once the store
// has deleted the page; a failed delete leaves the session live.
func (b *Bridge) DeletePage(ctx context.Context, projectID, pageID string) error {
	pages, err := b.store.ListPages(ctx, projectID)
	if err != nil {
		return err
	}
	if len(pages) <= 1 {
		return ErrLastPage
	}
	b.mu.Lock()
	a := b.active
	b.mu.Unlock()
	if a == nil || a.projectID != projectID || a.pageID != pageID {
		return b.store.DeletePage(ctx, projectID, pageID)
	}
	if err := b.Flush(ctx); err != nil {
		return fmt.Errorf("flush before delete: %w", err)
	}
	if err := b.store.DeletePage(ctx, projectID, pageID); err != nil {
		applog.WithOperation(b.log, "delete_page").Warn("delete rejected; page stays active", slog.Any("err", err))
		return err
	}
	b.drop(a)
	return nil
}
