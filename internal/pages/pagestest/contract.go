/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package pagestest holds the behavioural checks every pages.Store must pass.
package pagestest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carouselstudio/internal/pages"
)

// RunStoreContract exercises a fresh Store from newStore in subtests.
func RunStoreContract(t *testing.T, newStore func(t *testing.T) pages.Store) {
	t.Helper()
	ctx := context.Background()

	newProject := func(t *testing.T, s pages.Store) (pages.Project, pages.Page) {
		t.Helper()
		p, first, err := s.CreateProject(ctx, pages.NewProject{UserID: "u1", Name: "Deck", Width: 1080, Height: 1350, FirstScene: `{"v":"1"}`})
		require.NoError(t, err)
		return p, first
	}

	t.Run("create project seeds first page", func(t *testing.T) {
		s := newStore(t)
		p, first := newProject(t, s)
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, p.ID, first.ProjectID)
		assert.Equal(t, 0, first.Order)
		assert.Equal(t, `{"v":"1"}`, first.Scene)
		assert.InDelta(t, 1080, first.Width, 1e-9)

		got, err := s.GetProject(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Deck", got.Name)

		list, err := s.ListProjects(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, list, 1)
		other, err := s.ListProjects(ctx, "u2")
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("unknown ids", func(t *testing.T) {
		s := newStore(t)
		p, _ := newProject(t, s)
		_, err := s.GetProject(ctx, "nope")
		assert.ErrorIs(t, err, pages.ErrNotFound)
		_, err = s.GetPage(ctx, p.ID, "nope")
		assert.ErrorIs(t, err, pages.ErrNotFound)
		_, err = s.SavePage(ctx, p.ID, "nope", pages.PageUpdate{})
		assert.ErrorIs(t, err, pages.ErrNotFound)
	})

	t.Run("pages append in order", func(t *testing.T) {
		s := newStore(t)
		p, first := newProject(t, s)
		a, err := s.CreatePage(ctx, p.ID, pages.NewPage{Title: "A", Width: 500, Height: 500})
		require.NoError(t, err)
		b, err := s.CreatePage(ctx, p.ID, pages.NewPage{Title: "B", Width: 500, Height: 500})
		require.NoError(t, err)
		assert.Equal(t, 1, a.Order)
		assert.Equal(t, 2, b.Order)

		list, err := s.ListPages(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{first.ID, a.ID, b.ID}, ids(list))
	})

	t.Run("save page partial update", func(t *testing.T) {
		s := newStore(t)
		p, first := newProject(t, s)
		sc, title, thumb := `{"v":"1","objects":[]}`, "Cover", "data:image/png;base64,AA=="
		w := 800.0
		got, err := s.SavePage(ctx, p.ID, first.ID, pages.PageUpdate{Scene: &sc, Title: &title})
		require.NoError(t, err)
		assert.Equal(t, sc, got.Scene)
		assert.Equal(t, "Cover", got.Title)
		assert.InDelta(t, 1080, got.Width, 1e-9)

		got, err = s.SavePage(ctx, p.ID, first.ID, pages.PageUpdate{Width: &w, Thumbnail: &thumb})
		require.NoError(t, err)
		assert.Equal(t, sc, got.Scene)
		assert.InDelta(t, 800, got.Width, 1e-9)
		assert.Equal(t, thumb, got.Thumbnail)

		again, err := s.GetPage(ctx, p.ID, first.ID)
		require.NoError(t, err)
		assert.Equal(t, got.Scene, again.Scene)
		assert.Equal(t, "Cover", again.Title)
	})

	t.Run("last page cannot be deleted", func(t *testing.T) {
		s := newStore(t)
		p, first := newProject(t, s)
		assert.ErrorIs(t, s.DeletePage(ctx, p.ID, first.ID), pages.ErrLastPage)

		second, err := s.CreatePage(ctx, p.ID, pages.NewPage{Width: 1, Height: 1})
		require.NoError(t, err)
		require.NoError(t, s.DeletePage(ctx, p.ID, first.ID))
		list, err := s.ListPages(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{second.ID}, ids(list))
		assert.ErrorIs(t, s.DeletePage(ctx, p.ID, second.ID), pages.ErrLastPage)
	})

	t.Run("reorder is atomic", func(t *testing.T) {
		s := newStore(t)
		p, first := newProject(t, s)
		a, err := s.CreatePage(ctx, p.ID, pages.NewPage{Width: 1, Height: 1})
		require.NoError(t, err)
		b, err := s.CreatePage(ctx, p.ID, pages.NewPage{Width: 1, Height: 1})
		require.NoError(t, err)

		require.NoError(t, s.ReorderPages(ctx, p.ID, []pages.OrderAssignment{
			{ID: b.ID, Order: 0}, {ID: first.ID, Order: 1}, {ID: a.ID, Order: 2},
		}))
		list, err := s.ListPages(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{b.ID, first.ID, a.ID}, ids(list))

		// a partial swap must keep orders unique
		err = s.ReorderPages(ctx, p.ID, []pages.OrderAssignment{{ID: a.ID, Order: 0}})
		assert.ErrorIs(t, err, pages.ErrInvalidOrder)

		_, foreign := newProject(t, s)
		err = s.ReorderPages(ctx, p.ID, []pages.OrderAssignment{{ID: a.ID, Order: 0}, {ID: foreign.ID, Order: 2}})
		assert.ErrorIs(t, err, pages.ErrForeignPage)

		list, err = s.ListPages(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{b.ID, first.ID, a.ID}, ids(list), "failed reorders leave no trace")
	})

	t.Run("delete foreign page", func(t *testing.T) {
		s := newStore(t)
		p, _ := newProject(t, s)
		_, err := s.CreatePage(ctx, p.ID, pages.NewPage{Width: 1, Height: 1})
		require.NoError(t, err)
		_, foreign := newProject(t, s)
		err = s.DeletePage(ctx, p.ID, foreign.ID)
		assert.True(t, errors.Is(err, pages.ErrNotFound) || errors.Is(err, pages.ErrForeignPage), "got %v", err)
	})
}

func ids(ps []pages.Page) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}
