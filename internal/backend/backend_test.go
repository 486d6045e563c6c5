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
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "carouselstudio/internal/log"
	"carouselstudio/internal/pages"
	"carouselstudio/internal/pages/pagestest"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(pages.NewMemoryStore(), ServerConfig{Secret: "test-secret", Logger: applog.Discard()})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func TestClientServerStoreContract(t *testing.T) {
	pagestest.RunStoreContract(t, func(t *testing.T) pages.Store {
		s, ts := newTestServer(t)
		tok, _, err := s.IssueToken("u1", time.Hour)
		require.NoError(t, err)
		return NewClient(ts.URL+"/", tok)
	})
}

func TestAuthRequired(t *testing.T) {
	_, ts := newTestServer(t)
	c := NewClient(ts.URL, "")
	_, err := c.ListProjects(context.Background(), "u1")
	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusUnauthorized, re.Status)

	c.Token = "garbage.token"
	_, err = c.ListProjects(context.Background(), "u1")
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusUnauthorized, re.Status)
}

func TestFetchTokenThenUse(t *testing.T) {
	_, ts := newTestServer(t)
	c := NewClient(ts.URL, "")
	ctx := context.Background()
	tok, err := c.FetchToken(ctx, "alice", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, tok)

	p, first, err := c.CreateProject(ctx, pages.NewProject{Name: "Deck", Width: 1080, Height: 1350})
	require.NoError(t, err)
	assert.Equal(t, "alice", p.UserID, "owner defaults to token subject")
	assert.Equal(t, p.ID, first.ProjectID)

	list, err := c.ListProjects(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestTokens(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tok, err := SignToken("k", "bob", now.Add(time.Minute))
	require.NoError(t, err)

	sub, err := VerifyToken("k", tok, now)
	require.NoError(t, err)
	assert.Equal(t, "bob", sub)

	_, err = VerifyToken("other", tok, now)
	assert.ErrorIs(t, err, ErrBadToken)
	_, err = VerifyToken("k", tok, now.Add(2*time.Minute))
	assert.ErrorIs(t, err, ErrExpiredToken)
	_, err = VerifyToken("k", "nodot", now)
	assert.ErrorIs(t, err, ErrBadToken)
}

type downPinger struct{}

func (downPinger) PingContext(context.Context) error { return assert.AnError }

func TestHealthEndpoints(t *testing.T) {
	_, ts := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz", "/version"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	s := NewServer(pages.NewMemoryStore(), ServerConfig{Secret: "x", Ready: downPinger{}, Logger: applog.Discard()})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
