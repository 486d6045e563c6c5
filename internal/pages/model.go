/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package pages connects persisted pages to editor sessions: it loads a page
// into a session when it becomes active and saves the session's scene back,
// debounced, as the user edits.
package pages

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrLastPage rejects deleting a project's only page.
	ErrLastPage = errors.New("pages: cannot delete the last page of a project")
	// ErrForeignPage rejects a reorder that names a page of another project.
	ErrForeignPage = errors.New("pages: page does not belong to project")
	// ErrNotFound is returned for unknown projects or pages.
	ErrNotFound = errors.New("pages: not found")
	// ErrInvalidOrder rejects a reorder with duplicate or missing positions.
	ErrInvalidOrder = errors.New("pages: invalid page order")
	// ErrInvalidScene rejects scene data that fails the snapshot schema or cannot be decoded.
	ErrInvalidScene = errors.New("pages: invalid scene")
)

// Project groups ordered pages. Width/Height are the default size of new pages.
type Project struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Name       string    `json:"name"`
	Width      float64   `json:"width"`
	Height     float64   `json:"height"`
	IsTemplate bool      `json:"isTemplate"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Page is one persisted canvas. An empty Scene means a blank workspace of
// Width×Height. Order is unique within the project.
type Page struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Order     int       `json:"order"`
	Title     string    `json:"title"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	Scene     string    `json:"scene"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewProject describes a project to create.
type NewProject struct {
	UserID     string  `json:"userId"`
	Name       string  `json:"name"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	IsTemplate bool    `json:"isTemplate"`
	// FirstScene seeds the first page; empty means blank.
	FirstScene string `json:"firstScene,omitempty"`
}

// NewPage describes a page to append to a project.
type NewPage struct {
	Title  string  `json:"title,omitempty"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Scene  string  `json:"scene,omitempty"`
}

// PageUpdate is a partial page update; nil fields are kept.
type PageUpdate struct {
	Scene     *string  `json:"scene,omitempty"`
	Width     *float64 `json:"width,omitempty"`
	Height    *float64 `json:"height,omitempty"`
	Title     *string  `json:"title,omitempty"`
	Thumbnail *string  `json:"thumbnail,omitempty"`
}

// OrderAssignment places one page at a position.
type OrderAssignment struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

// Store is the persistence boundary for projects and pages.
type Store interface {
	CreateProject(ctx context.Context, p NewProject) (Project, Page, error)
	GetProject(ctx context.Context, projectID string) (Project, error)
	ListProjects(ctx context.Context, userID string) ([]Project, error)

	ListPages(ctx context.Context, projectID string) ([]Page, error)
	GetPage(ctx context.Context, projectID, pageID string) (Page, error)
	// CreatePage appends a page at the next free order.
	CreatePage(ctx context.Context, projectID string, p NewPage) (Page, error)
	SavePage(ctx context.Context, projectID, pageID string, u PageUpdate) (Page, error)
	// ReorderPages applies all assignments or none. Every assignment must name a
	// page of projectID and the resulting orders must stay unique.
	ReorderPages(ctx context.Context, projectID string, order []OrderAssignment) error
	// DeletePage fails with ErrLastPage when it would leave the project empty.
	DeletePage(ctx context.Context, projectID, pageID string) error
}

// ValidateReorder checks assignments against the project's current pages and
// returns the full resulting id→order map.
func ValidateReorder(current []Page, order []OrderAssignment) (map[string]int, error) {
	next := make(map[string]int, len(current))
	for _, p := range current {
		next[p.ID] = p.Order
	}
	for _, a := range order {
		if _, ok := next[a.ID]; !ok {
			return nil, ErrForeignPage
		}
		if a.Order < 0 {
			return nil, ErrInvalidOrder
		}
		next[a.ID] = a.Order
	}
	seen := make(map[int]struct{}, len(next))
	for _, o := range next {
		if _, dup := seen[o]; dup {
			return nil, ErrInvalidOrder
		}
		seen[o] = struct{}{}
	}
	return next, nil
}
