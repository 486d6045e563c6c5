/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carouselstudio/internal/pages"
	"carouselstudio/internal/pages/pagestest"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), SQLite, filepath.Join(t.TempDir(), DefaultFileName))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteStoreContract(t *testing.T) {
	pagestest.RunStoreContract(t, func(t *testing.T) pages.Store { return NewStore(openTestDB(t)) })
}

func TestPostgresStoreContract(t *testing.T) {
	dsn := os.Getenv("CST_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("CST_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	db, err := Open(ctx, Postgres, dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	pagestest.RunStoreContract(t, func(t *testing.T) pages.Store {
		_, err := db.ExecContext(ctx, `TRUNCATE pages, projects`)
		require.NoError(t, err)
		return NewStore(db)
	})
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "deck.sqlite")
	db, err := Open(ctx, SQLite, path)
	require.NoError(t, err)
	s := NewStore(db)
	p, first, err := s.CreateProject(ctx, pages.NewProject{UserID: "u", Name: "Deck", Width: 1080, Height: 1350, IsTemplate: true})
	require.NoError(t, err)
	sc := `{"v":"1","objects":[]}`
	_, err = s.SavePage(ctx, p.ID, first.ID, pages.PageUpdate{Scene: &sc})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(ctx, SQLite, path)
	require.NoError(t, err)
	defer db.Close()
	s = NewStore(db)
	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.IsTemplate)
	assert.WithinDuration(t, p.CreatedAt, got.CreatedAt, 0)
	page, err := s.GetPage(ctx, p.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, sc, page.Scene)
	assert.False(t, page.UpdatedAt.Before(page.CreatedAt))
}

func TestReorderFullRotation(t *testing.T) {
	ctx := context.Background()
	s := NewStore(openTestDB(t))
	p, a, err := s.CreateProject(ctx, pages.NewProject{Width: 1, Height: 1})
	require.NoError(t, err)
	b, err := s.CreatePage(ctx, p.ID, pages.NewPage{Width: 1, Height: 1})
	require.NoError(t, err)
	c, err := s.CreatePage(ctx, p.ID, pages.NewPage{Width: 1, Height: 1})
	require.NoError(t, err)

	// every page moves onto a position another page holds
	require.NoError(t, s.ReorderPages(ctx, p.ID, []pages.OrderAssignment{
		{ID: a.ID, Order: 1}, {ID: b.ID, Order: 2}, {ID: c.ID, Order: 0},
	}))
	list, err := s.ListPages(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{c.ID, a.ID, b.ID}, []string{list[0].ID, list[1].ID, list[2].ID})

	d, err := s.CreatePage(ctx, p.ID, pages.NewPage{Width: 1, Height: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, d.Order)
}

func TestRebind(t *testing.T) {
	pg := &DB{dialect: Postgres}
	assert.Equal(t, "SELECT a FROM t WHERE x=$1 AND y=$2", pg.rebind("SELECT a FROM t WHERE x=? AND y=?"))
	lite := &DB{dialect: SQLite}
	assert.Equal(t, "x=?", lite.rebind("x=?"))
	assert.Equal(t, " FOR UPDATE", pg.lockRow())
	assert.Empty(t, lite.lockRow())
}

func TestParseDialect(t *testing.T) {
	for in, want := range map[string]Dialect{"": SQLite, "sqlite": SQLite, "Postgres": Postgres, "pgx": Postgres} {
		got, err := ParseDialect(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDialect("mysql")
	assert.Error(t, err)
}
