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
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	applog "carouselstudio/internal/log"
	"carouselstudio/internal/pages"
)

const (
	projectCols = `id, user_id, name, width, height, is_template, created_at, updated_at`
	pageCols    = `id, project_id, position, title, width, height, scene, thumbnail, created_at, updated_at`
)

// Store is a pages.Store on a SQL database.
type Store struct {
	db    *DB
	now   func() time.Time
	newID func() string
	log   *slog.Logger
}

var _ pages.Store = (*Store)(nil)

func NewStore(db *DB) *Store {
	return &Store{
		db:    db,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
		log:   applog.WithComponent("storage"),
	}
}

type rowScanner interface{ Scan(dest ...any) error }

func scanProject(r rowScanner) (pages.Project, error) {
	var p pages.Project
	err := r.Scan(&p.ID, &p.UserID, &p.Name, &p.Width, &p.Height, &p.IsTemplate,
		timeCol{&p.CreatedAt}, timeCol{&p.UpdatedAt})
	return p, err
}

func scanPage(r rowScanner) (pages.Page, error) {
	var p pages.Page
	err := r.Scan(&p.ID, &p.ProjectID, &p.Order, &p.Title, &p.Width, &p.Height, &p.Scene, &p.Thumbnail,
		timeCol{&p.CreatedAt}, timeCol{&p.UpdatedAt})
	return p, err
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return pages.ErrNotFound
	}
	return err
}

func (s *Store) CreateProject(ctx context.Context, np pages.NewProject) (pages.Project, pages.Page, error) {
	now := s.now()
	p := pages.Project{
		ID: s.newID(), UserID: np.UserID, Name: np.Name,
		Width: np.Width, Height: np.Height, IsTemplate: np.IsTemplate,
		CreatedAt: now, UpdatedAt: now,
	}
	first := pages.Page{
		ID: s.newID(), ProjectID: p.ID, Order: 0,
		Width: np.Width, Height: np.Height, Scene: np.FirstScene,
		CreatedAt: now, UpdatedAt: now,
	}
	err := s.db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.db.rebind(`INSERT INTO projects(`+projectCols+`) VALUES(?,?,?,?,?,?,?,?)`),
			p.ID, p.UserID, p.Name, p.Width, p.Height, p.IsTemplate, s.db.timeArg(now), s.db.timeArg(now)); err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
		return s.insertPage(ctx, tx, first)
	})
	if err != nil {
		return pages.Project{}, pages.Page{}, err
	}
	applog.WithOperation(s.log, "create_project").Info("project created", slog.String("project", p.ID))
	return p, first, nil
}

func (s *Store) insertPage(ctx context.Context, tx *sql.Tx, p pages.Page) error {
	_, err := tx.ExecContext(ctx, s.db.rebind(`INSERT INTO pages(`+pageCols+`) VALUES(?,?,?,?,?,?,?,?,?,?)`),
		p.ID, p.ProjectID, p.Order, p.Title, p.Width, p.Height, p.Scene, p.Thumbnail,
		s.db.timeArg(p.CreatedAt), s.db.timeArg(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert page: %w", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, projectID string) (pages.Project, error) {
	row := s.db.QueryRowContext(ctx, s.db.rebind(`SELECT `+projectCols+` FROM projects WHERE id=?`), projectID)
	p, err := scanProject(row)
	if err != nil {
		return pages.Project{}, notFound(err)
	}
	return p, nil
}

func (s *Store) ListProjects(ctx context.Context, userID string) ([]pages.Project, error) {
	rows, err := s.db.QueryContext(ctx, s.db.rebind(`SELECT `+projectCols+` FROM projects WHERE user_id=? ORDER BY updated_at DESC, id`), userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()
	var out []pages.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListPages(ctx context.Context, projectID string) ([]pages.Page, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.listPages(ctx, s.db.DB, projectID)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) listPages(ctx context.Context, q querier, projectID string) ([]pages.Page, error) {
	rows, err := q.QueryContext(ctx, s.db.rebind(`SELECT `+pageCols+` FROM pages WHERE project_id=? ORDER BY position`), projectID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()
	var out []pages.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetPage(ctx context.Context, projectID, pageID string) (pages.Page, error) {
	row := s.db.QueryRowContext(ctx, s.db.rebind(`SELECT `+pageCols+` FROM pages WHERE id=? AND project_id=?`), pageID, projectID)
	p, err := scanPage(row)
	if err != nil {
		return pages.Page{}, notFound(err)
	}
	return p, nil
}

// lockProject fails with ErrNotFound for unknown projects and, on Postgres,
// holds the project row until the transaction ends.
func (s *Store) lockProject(ctx context.Context, tx *sql.Tx, projectID string) error {
	var id string
	err := tx.QueryRowContext(ctx, s.db.rebind(`SELECT id FROM projects WHERE id=?`+s.db.lockRow()), projectID).Scan(&id)
	return notFound(err)
}

func (s *Store) touchProject(ctx context.Context, tx *sql.Tx, projectID string, at time.Time) error {
	_, err := tx.ExecContext(ctx, s.db.rebind(`UPDATE projects SET updated_at=? WHERE id=?`), s.db.timeArg(at), projectID)
	return err
}

func (s *Store) CreatePage(ctx context.Context, projectID string, np pages.NewPage) (pages.Page, error) {
	now := s.now()
	p := pages.Page{
		ID: s.newID(), ProjectID: projectID, Title: np.Title,
		Width: np.Width, Height: np.Height, Scene: np.Scene,
		CreatedAt: now, UpdatedAt: now,
	}
	err := s.db.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.lockProject(ctx, tx, projectID); err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx, s.db.rebind(`SELECT COALESCE(MAX(position), -1) + 1 FROM pages WHERE project_id=?`), projectID).Scan(&p.Order); err != nil {
			return fmt.Errorf("next position: %w", err)
		}
		if err := s.insertPage(ctx, tx, p); err != nil {
			return err
		}
		return s.touchProject(ctx, tx, projectID, now)
	})
	if err != nil {
		return pages.Page{}, err
	}
	return p, nil
}

func (s *Store) SavePage(ctx context.Context, projectID, pageID string, u pages.PageUpdate) (pages.Page, error) {
	var out pages.Page
	err := s.db.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, s.db.rebind(`SELECT `+pageCols+` FROM pages WHERE id=? AND project_id=?`+s.db.lockRow()), pageID, projectID)
		p, err := scanPage(row)
		if err != nil {
			return notFound(err)
		}
		p = pages.ApplyUpdate(p, u)
		p.UpdatedAt = s.now()
		if _, err := tx.ExecContext(ctx, s.db.rebind(`UPDATE pages SET title=?, width=?, height=?, scene=?, thumbnail=?, updated_at=? WHERE id=?`),
			p.Title, p.Width, p.Height, p.Scene, p.Thumbnail, s.db.timeArg(p.UpdatedAt), p.ID); err != nil {
			return fmt.Errorf("update page: %w", err)
		}
		out = p
		return s.touchProject(ctx, tx, projectID, p.UpdatedAt)
	})
	if err != nil {
		return pages.Page{}, err
	}
	return out, nil
}

// ReorderPages moves every reassigned page to a unique negative position
// first, so the (project, position) constraint holds after each statement.
func (s *Store) ReorderPages(ctx context.Context, projectID string, order []pages.OrderAssignment) error {
	l := applog.WithOperation(s.log, "reorder")
	return s.db.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.lockProject(ctx, tx, projectID); err != nil {
			return err
		}
		current, err := s.listPages(ctx, tx, projectID)
		if err != nil {
			return err
		}
		next, err := pages.ValidateReorder(current, order)
		if err != nil {
			return err
		}
		var moved []pages.Page
		for _, p := range current {
			if next[p.ID] != p.Order {
				moved = append(moved, p)
			}
		}
		if len(moved) == 0 {
			return nil
		}
		upd := s.db.rebind(`UPDATE pages SET position=?, updated_at=? WHERE id=?`)
		now := s.now()
		for i, p := range moved {
			if _, err := tx.ExecContext(ctx, upd, -(i + 1), s.db.timeArg(now), p.ID); err != nil {
				return fmt.Errorf("park page %s: %w", p.ID, err)
			}
		}
		for _, p := range moved {
			if _, err := tx.ExecContext(ctx, upd, next[p.ID], s.db.timeArg(now), p.ID); err != nil {
				return fmt.Errorf("place page %s: %w", p.ID, err)
			}
		}
		l.Debug("pages reordered", slog.String("project", projectID), slog.Int("moved", len(moved)))
		return s.touchProject(ctx, tx, projectID, now)
	})
}

func (s *Store) DeletePage(ctx context.Context, projectID, pageID string) error {
	return s.db.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.lockProject(ctx, tx, projectID); err != nil {
			return err
		}
		var found int
		if err := tx.QueryRowContext(ctx, s.db.rebind(`SELECT COUNT(*) FROM pages WHERE id=? AND project_id=?`), pageID, projectID).Scan(&found); err != nil {
			return fmt.Errorf("find page: %w", err)
		}
		if found == 0 {
			return pages.ErrNotFound
		}
		var n int
		if err := tx.QueryRowContext(ctx, s.db.rebind(`SELECT COUNT(*) FROM pages WHERE project_id=?`), projectID).Scan(&n); err != nil {
			return fmt.Errorf("count pages: %w", err)
		}
		if n <= 1 {
			return pages.ErrLastPage
		}
		if _, err := tx.ExecContext(ctx, s.db.rebind(`DELETE FROM pages WHERE id=?`), pageID); err != nil {
			return fmt.Errorf("delete page: %w", err)
		}
		return s.touchProject(ctx, tx, projectID, s.now())
	})
}
