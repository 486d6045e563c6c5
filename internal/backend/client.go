/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"carouselstudio/internal/pages"
)

// Client is a pages.Store backed by the remote pages API.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

var _ pages.Store = (*Client)(nil)

// NewClient creates a new backend client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// RemoteError is a non-2xx response that maps to no pages sentinel.
type RemoteError struct {
	Method string
	Path   string
	Status int
	Msg    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("server %s %s: %d %s", e.Method, e.Path, e.Status, e.Msg)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ae apiError
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&ae)
		if sentinel := errorFor(ae.Code); sentinel != nil {
			return fmt.Errorf("server %s %s: %w", method, u.Path, sentinel)
		}
		return &RemoteError{Method: method, Path: u.Path, Status: resp.StatusCode, Msg: ae.Error}
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func projectPath(projectID string, rest ...string) string {
	p := "/api/projects/" + url.PathEscape(projectID)
	for _, r := range rest {
		p += "/" + url.PathEscape(r)
	}
	return p
}

// FetchToken asks the server for a token for subject and stores it on c.
func (c *Client) FetchToken(ctx context.Context, subject string, ttl time.Duration) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]any{"subject": subject, "ttl_seconds": int64(ttl / time.Second)}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/token", body, &out); err != nil {
		return "", err
	}
	c.Token = out.Token
	return out.Token, nil
}

func (c *Client) CreateProject(ctx context.Context, np pages.NewProject) (pages.Project, pages.Page, error) {
	var out createdProject
	if err := c.doJSON(ctx, http.MethodPost, "/api/projects", np, &out); err != nil {
		return pages.Project{}, pages.Page{}, err
	}
	return out.Project, out.Page, nil
}

func (c *Client) GetProject(ctx context.Context, projectID string) (pages.Project, error) {
	var p pages.Project
	err := c.doJSON(ctx, http.MethodGet, projectPath(projectID), nil, &p)
	return p, err
}

func (c *Client) ListProjects(ctx context.Context, userID string) ([]pages.Project, error) {
	var list []pages.Project
	if err := c.doJSON(ctx, http.MethodGet, "/api/projects?user="+url.QueryEscape(userID), nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) ListPages(ctx context.Context, projectID string) ([]pages.Page, error) {
	var list []pages.Page
	if err := c.doJSON(ctx, http.MethodGet, projectPath(projectID, "pages"), nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) GetPage(ctx context.Context, projectID, pageID string) (pages.Page, error) {
	var p pages.Page
	err := c.doJSON(ctx, http.MethodGet, projectPath(projectID, "pages", pageID), nil, &p)
	return p, err
}

func (c *Client) CreatePage(ctx context.Context, projectID string, np pages.NewPage) (pages.Page, error) {
	var p pages.Page
	err := c.doJSON(ctx, http.MethodPost, projectPath(projectID, "pages"), np, &p)
	return p, err
}

func (c *Client) SavePage(ctx context.Context, projectID, pageID string, u pages.PageUpdate) (pages.Page, error) {
	var p pages.Page
	err := c.doJSON(ctx, http.MethodPatch, projectPath(projectID, "pages", pageID), u, &p)
	return p, err
}

func (c *Client) ReorderPages(ctx context.Context, projectID string, order []pages.OrderAssignment) error {
	return c.doJSON(ctx, http.MethodPost, projectPath(projectID, "reorder"), order, nil)
}

func (c *Client) DeletePage(ctx context.Context, projectID, pageID string) error {
	return c.doJSON(ctx, http.MethodDelete, projectPath(projectID, "pages", pageID), nil, nil)
}
