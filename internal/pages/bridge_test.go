/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package pages_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carouselstudio/internal/editor"
	"carouselstudio/internal/host"
	applog "carouselstudio/internal/log"
	"carouselstudio/internal/pages"
	"carouselstudio/internal/scene"
)

// countingStore records SavePage calls per page.
type countingStore struct {
	pages.Store
	mu    sync.Mutex
	saves map[string]int
}

func newCountingStore() *countingStore {
	return &countingStore{Store: pages.NewMemoryStore(), saves: map[string]int{}}
}

func (c *countingStore) SavePage(ctx context.Context, projectID, pageID string, u pages.PageUpdate) (pages.Page, error) {
	c.mu.Lock()
	c.saves[pageID]++
	c.mu.Unlock()
	return c.Store.SavePage(ctx, projectID, pageID, u)
}

func (c *countingStore) count(pageID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves[pageID]
}

type pngStub struct{ calls int }

func (p *pngStub) Thumbnail(scene.Snapshot) ([]byte, error) {
	p.calls++
	return []byte{0x89, 'P', 'N', 'G'}, nil
}

func newBridge(store pages.Store, debounce time.Duration) *pages.Bridge {
	return pages.NewBridge(store, pages.Options{
		Debounce: debounce,
		Logger:   applog.Discard(),
		Editor:   editor.Options{Logger: applog.Discard()},
	})
}

func twoPageProject(t *testing.T, b *pages.Bridge) (pages.Project, pages.Page, pages.Page) {
	t.Helper()
	ctx := context.Background()
	p, first, err := b.CreateProject(ctx, pages.NewProject{UserID: "u", Name: "Deck", Width: 1080, Height: 1350})
	require.NoError(t, err)
	second, err := b.AddPage(ctx, p.ID, "two")
	require.NoError(t, err)
	return p, first, second
}

func TestCreateProjectSeedsBlankWorkspace(t *testing.T) {
	b := newBridge(pages.NewMemoryStore(), time.Hour)
	_, first, err := b.CreateProject(context.Background(), pages.NewProject{Name: "x", Width: 1080, Height: 1080})
	require.NoError(t, err)
	snap, err := scene.UnmarshalString(first.Scene)
	require.NoError(t, err)
	require.Len(t, snap.Objects, 1)
	w, h := snap.Size()
	assert.InDelta(t, 1080, w, 1e-9)
	assert.InDelta(t, 1080, h, 1e-9)

	_, _, err = b.CreateProject(context.Background(), pages.NewProject{Name: "bad"})
	assert.Error(t, err)
}

func TestDebouncedAutosavePersistsFinalState(t *testing.T) {
	store := newCountingStore()
	b := newBridge(store, 20*time.Millisecond)
	p, first, _ := twoPageProject(t, b)
	ctx := context.Background()

	s, err := b.Activate(ctx, p.ID, first.ID, host.NewMemory(800, 600))
	require.NoError(t, err)
	assert.Zero(t, store.count(first.ID), "activation alone does not write")

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AddRectangle())
	}
	want, err := s.Serialize()
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := store.GetPage(ctx, p.ID, first.ID)
		return err == nil && got.Scene == want
	}, time.Second, 5*time.Millisecond)
	assert.Less(t, store.count(first.ID), 5, "bursts are coalesced")
}

func TestUndoneStateIsFlushedOnSwitch(t *testing.T) {
	store := newCountingStore()
	b := newBridge(store, time.Hour)
	p, first, second := twoPageProject(t, b)
	ctx := context.Background()
	h := host.NewMemory(800, 600)

	s, err := b.Activate(ctx, p.ID, first.ID, h)
	require.NoError(t, err)
	require.NoError(t, s.AddRectangle())
	require.NoError(t, s.Undo())
	require.NoError(t, s.AddCircle())
	want, err := s.Serialize()
	require.NoError(t, err)

	_, err = b.Activate(ctx, p.ID, second.ID, h)
	require.NoError(t, err)
	got, err := store.GetPage(ctx, p.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got.Scene)
	assert.Equal(t, editor.Disposed, s.State())
}

func TestStaleSaveIsDroppedAfterPageSwitch(t *testing.T) {
	store := newCountingStore()
	b := newBridge(store, 30*time.Millisecond)
	p, first, second := twoPageProject(t, b)
	ctx := context.Background()
	h := host.NewMemory(800, 600)

	s, err := b.Activate(ctx, p.ID, first.ID, h)
	require.NoError(t, err)
	require.NoError(t, s.AddRectangle())
	firstScene, err := s.Serialize()
	require.NoError(t, err)

	before, err := store.GetPage(ctx, p.ID, second.ID)
	require.NoError(t, err)
	_, err = b.Activate(ctx, p.ID, second.ID, h)
	require.NoError(t, err)
	assert.Equal(t, 1, store.count(first.ID), "switch flushes once")

	time.Sleep(90 * time.Millisecond)
	assert.Equal(t, 1, store.count(first.ID), "the debounced save of the old page is dropped")
	assert.Zero(t, store.count(second.ID))
	got, err := store.GetPage(ctx, p.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, firstScene, got.Scene)
	after, err := store.GetPage(ctx, p.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Scene, after.Scene)
}

func TestDeleteActivePageAndLastPageGuard(t *testing.T) {
	b := newBridge(pages.NewMemoryStore(), time.Hour)
	p, first, second := twoPageProject(t, b)
	ctx := context.Background()

	s, err := b.Activate(ctx, p.ID, second.ID, host.NewMemory(800, 600))
	require.NoError(t, err)
	require.NoError(t, b.DeletePage(ctx, p.ID, second.ID))
	assert.Equal(t, editor.Disposed, s.State())
	active, _, _ := b.Active()
	assert.Nil(t, active)

	assert.ErrorIs(t, b.DeletePage(ctx, p.ID, first.ID), pages.ErrLastPage)
	list, err := b.ListPages(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)
}

func TestUpdatePageResizesScene(t *testing.T) {
	b := newBridge(pages.NewMemoryStore(), time.Hour)
	p, first, second := twoPageProject(t, b)
	ctx := context.Background()
	w, h, title := 1080.0, 1080.0, "square"

	got, err := b.UpdatePage(ctx, p.ID, second.ID, &title, &w, &h)
	require.NoError(t, err)
	assert.Equal(t, "square", got.Title)
	snap, err := scene.UnmarshalString(got.Scene)
	require.NoError(t, err)
	sw, sh := snap.Size()
	assert.InDelta(t, 1080, sw, 1e-9)
	assert.InDelta(t, 1080, sh, 1e-9)

	s, err := b.Activate(ctx, p.ID, first.ID, host.NewMemory(800, 600))
	require.NoError(t, err)
	got, err = b.UpdatePage(ctx, p.ID, first.ID, nil, &w, &h)
	require.NoError(t, err)
	aw, ah, err := s.WorkspaceSize()
	require.NoError(t, err)
	assert.InDelta(t, 1080, aw, 1e-9)
	assert.InDelta(t, 1080, ah, 1e-9)
	assert.InDelta(t, 1080, got.Height, 1e-9)
}

func TestSaveWritesThumbnail(t *testing.T) {
	store := pages.NewMemoryStore()
	thumbs := &pngStub{}
	b := pages.NewBridge(store, pages.Options{Debounce: time.Hour, Thumbnailer: thumbs, Logger: applog.Discard()})
	p, first, _ := twoPageProject(t, b)
	ctx := context.Background()

	s, err := b.Activate(ctx, p.ID, first.ID, host.NewMemory(800, 600))
	require.NoError(t, err)
	require.NoError(t, s.AddText("hello"))
	require.NoError(t, b.Flush(ctx))

	got, err := store.GetPage(ctx, p.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, thumbs.calls)
	assert.Equal(t, pages.PNGDataURI([]byte{0x89, 'P', 'N', 'G'}), got.Thumbnail)
}

func TestReorderThroughBridge(t *testing.T) {
	b := newBridge(pages.NewMemoryStore(), time.Hour)
	p, first, second := twoPageProject(t, b)
	ctx := context.Background()
	require.NoError(t, b.ReorderPages(ctx, p.ID, []pages.OrderAssignment{{ID: second.ID, Order: 0}, {ID: first.ID, Order: 1}}))
	list, err := b.ListPages(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, list[0].ID)
	assert.ErrorIs(t, b.ReorderPages(ctx, p.ID, []pages.OrderAssignment{{ID: "zz", Order: 3}}), pages.ErrForeignPage)
}

// gatedStore blocks the first SavePage until release is closed.
type gatedStore struct {
	pages.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) SavePage(ctx context.Context, projectID, pageID string, u pages.PageUpdate) (pages.Page, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.Store.SavePage(ctx, projectID, pageID, u)
}

func TestOlderAutosaveNeverOverwritesNewerFlush(t *testing.T) {
	store := &gatedStore{Store: pages.NewMemoryStore(), entered: make(chan struct{}), release: make(chan struct{})}
	b := newBridge(store, 10*time.Millisecond)
	p, first, _ := twoPageProject(t, b)
	ctx := context.Background()

	s, err := b.Activate(ctx, p.ID, first.ID, host.NewMemory(800, 600))
	require.NoError(t, err)

	// The first write hangs in the store and holds the page's save lock.
	require.NoError(t, s.AddRectangle())
	flushed := make(chan error, 2)
	go func() { flushed <- b.Flush(ctx) }()
	<-store.entered

	// A debounced save of this scene queues up behind it.
	require.NoError(t, s.AddTriangle())
	time.Sleep(60 * time.Millisecond)

	// A newer scene is flushed while the debounced save still waits.
	require.NoError(t, s.AddCircle())
	want, err := s.Serialize()
	require.NoError(t, err)
	go func() { flushed <- b.Flush(ctx) }()
	time.Sleep(20 * time.Millisecond)

	close(store.release)
	require.NoError(t, <-flushed)
	require.NoError(t, <-flushed)
	time.Sleep(60 * time.Millisecond)

	got, err := store.GetPage(ctx, p.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got.Scene)

	require.NoError(t, b.Deactivate(ctx))
	got, err = store.GetPage(ctx, p.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got.Scene)
}

// failDeleteStore rejects every page deletion.
type failDeleteStore struct{ pages.Store }

func (failDeleteStore) DeletePage(context.Context, string, string) error {
	return errors.New("database is locked")
}

func TestFailedDeleteKeepsActiveEdits(t *testing.T) {
	store := failDeleteStore{Store: pages.NewMemoryStore()}
	b := newBridge(store, time.Hour)
	p, _, second := twoPageProject(t, b)
	ctx := context.Background()

	s, err := b.Activate(ctx, p.ID, second.ID, host.NewMemory(800, 600))
	require.NoError(t, err)
	require.NoError(t, s.AddText("keep me"))
	want, err := s.Serialize()
	require.NoError(t, err)

	require.Error(t, b.DeletePage(ctx, p.ID, second.ID))
	assert.Equal(t, editor.Ready, s.State())
	active, _, pageID := b.Active()
	assert.Same(t, s, active)
	assert.Equal(t, second.ID, pageID)

	got, err := store.GetPage(ctx, p.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got.Scene)
}

func TestEitherPageOfTwoCanBeDeleted(t *testing.T) {
	ctx := context.Background()
	for _, deleteFirst := range []bool{true, false} {
		b := newBridge(pages.NewMemoryStore(), time.Hour)
		p, first, second := twoPageProject(t, b)
		gone, kept := second, first
		if deleteFirst {
			gone, kept = first, second
		}
		require.NoError(t, b.DeletePage(ctx, p.ID, gone.ID))
		list, err := b.ListPages(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, kept.ID, list[0].ID)
		assert.ErrorIs(t, b.DeletePage(ctx, p.ID, kept.ID), pages.ErrLastPage)
	}
}

func TestAddPageWithSceneRejectsSchemaViolations(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	b := newBridge(store, time.Hour)
	p, _, err := b.CreateProject(ctx, pages.NewProject{UserID: "u", Name: "Deck", Width: 1080, Height: 1350})
	require.NoError(t, err)

	noFont := `{"version":"1","objects":[` +
		`{"type":"rect","id":"ws","role":"workspace","left":0,"top":0,"width":1080,"height":1350},` +
		`{"type":"textbox","id":"t","left":0,"top":0,"width":1,"height":1,"text":"x"}]}`
	_, err = b.AddPageWithScene(ctx, p.ID, "bad", noFont)
	require.ErrorIs(t, err, pages.ErrInvalidScene)

	list, err := b.ListPages(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1, "rejected scene must not create a page")

	good, err := scene.MarshalString(scene.Blank(1080, 1080, nil))
	require.NoError(t, err)
	pg, err := b.AddPageWithScene(ctx, p.ID, "good", good)
	require.NoError(t, err)
	assert.Equal(t, 1080.0, pg.Height)
}
