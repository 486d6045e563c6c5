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
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu       sync.Mutex
	projects map[string]Project
	pages    map[string]Page
	now      func() time.Time
	newID    func() string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects: map[string]Project{},
		pages:    map[string]Page{},
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

func (m *MemoryStore) CreateProject(_ context.Context, np NewProject) (Project, Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	p := Project{
		ID: m.newID(), UserID: np.UserID, Name: np.Name,
		Width: np.Width, Height: np.Height, IsTemplate: np.IsTemplate,
		CreatedAt: now, UpdatedAt: now,
	}
	m.projects[p.ID] = p
	first := Page{
		ID: m.newID(), ProjectID: p.ID, Order: 0,
		Width: np.Width, Height: np.Height, Scene: np.FirstScene,
		CreatedAt: now, UpdatedAt: now,
	}
	m.pages[first.ID] = first
	return p, first, nil
}

func (m *MemoryStore) GetProject(_ context.Context, id string) (Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return Project{}, ErrNotFound
	}
	return p, nil
}

func (m *MemoryStore) ListProjects(_ context.Context, userID string) ([]Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Project
	for _, p := range m.projects {
		if userID == "" || p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *MemoryStore) ListPages(_ context.Context, projectID string) ([]Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[projectID]; !ok {
		return nil, ErrNotFound
	}
	return m.pagesLocked(projectID), nil
}

func (m *MemoryStore) pagesLocked(projectID string) []Page {
	var out []Page
	for _, p := range m.pages {
		if p.ProjectID == projectID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func (m *MemoryStore) GetPage(_ context.Context, projectID, pageID string) (Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pages[pageID]
	if !ok || p.ProjectID != projectID {
		return Page{}, ErrNotFound
	}
	return p, nil
}

func (m *MemoryStore) CreatePage(_ context.Context, projectID string, np NewPage) (Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[projectID]; !ok {
		return Page{}, ErrNotFound
	}
	next := 0
	for _, p := range m.pagesLocked(projectID) {
		if p.Order >= next {
			next = p.Order + 1
		}
	}
	now := m.now()
	p := Page{
		ID: m.newID(), ProjectID: projectID, Order: next, Title: np.Title,
		Width: np.Width, Height: np.Height, Scene: np.Scene,
		CreatedAt: now, UpdatedAt: now,
	}
	m.pages[p.ID] = p
	m.touchLocked(projectID, now)
	return p, nil
}

func (m *MemoryStore) SavePage(_ context.Context, projectID, pageID string, u PageUpdate) (Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pages[pageID]
	if !ok || p.ProjectID != projectID {
		return Page{}, ErrNotFound
	}
	p = ApplyUpdate(p, u)
	p.UpdatedAt = m.now()
	m.pages[pageID] = p
	m.touchLocked(projectID, p.UpdatedAt)
	return p, nil
}

func (m *MemoryStore) ReorderPages(_ context.Context, projectID string, order []OrderAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[projectID]; !ok {
		return ErrNotFound
	}
	next, err := ValidateReorder(m.pagesLocked(projectID), order)
	if err != nil {
		return err
	}
	now := m.now()
	for id, o := range next {
		p := m.pages[id]
		if p.Order != o {
			p.Order = o
			p.UpdatedAt = now
			m.pages[id] = p
		}
	}
	m.touchLocked(projectID, now)
	return nil
}

func (m *MemoryStore) DeletePage(_ context.Context, projectID, pageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pages[pageID]
	if !ok || p.ProjectID != projectID {
		return ErrNotFound
	}
	if len(m.pagesLocked(projectID)) <= 1 {
		return ErrLastPage
	}
	delete(m.pages, pageID)
	m.touchLocked(projectID, m.now())
	return nil
}

func (m *MemoryStore) touchLocked(projectID string, at time.Time) {
	if pr, ok := m.projects[projectID]; ok {
		pr.UpdatedAt = at
		m.projects[projectID] = pr
	}
}

// ApplyUpdate returns p with the non-nil fields of u applied.
func ApplyUpdate(p Page, u PageUpdate) Page {
	if u.Scene != nil {
		p.Scene = *u.Scene
	}
	if u.Width != nil && *u.Width > 0 {
		p.Width = *u.Width
	}
	if u.Height != nil && *u.Height > 0 {
		p.Height = *u.Height
	}
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Thumbnail != nil {
		p.Thumbnail = *u.Thumbnail
	}
	return p
}
