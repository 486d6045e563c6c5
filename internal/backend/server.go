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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	applog "carouselstudio/internal/log"
	"carouselstudio/internal/pages"
	"carouselstudio/internal/version"
)

const maxBody = 32 << 20

// Pinger is implemented by stores that can report database readiness.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ServerConfig configures the remote pages API.
type ServerConfig struct {
	Addr   string // e.g. ":8080"
	Secret string // HMAC key for bearer tokens
	// Ready reports database readiness for /readyz; nil means always ready.
	Ready  Pinger
	Logger *slog.Logger
}

// Server exposes a pages.Store over HTTP with bearer-token auth.
type Server struct {
	store pages.Store
	cfg   ServerConfig
	log   *slog.Logger
	now   func() time.Time
}

func NewServer(store pages.Store, cfg ServerConfig) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = applog.WithComponent("backend")
	}
	s := &Server{store: store, cfg: cfg, log: cfg.Logger, now: time.Now}
	if cfg.Secret == "" {
		s.cfg.Secret = "dev-secret-change-me"
		s.log.Warn("no auth secret configured; using insecure dev secret")
	}
	return s
}

// IssueToken signs a token for subject valid for ttl.
func (s *Server) IssueToken(subject string, ttl time.Duration) (string, time.Time, error) {
	exp := s.now().Add(ttl)
	tok, err := SignToken(s.cfg.Secret, subject, exp)
	return tok, exp, err
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", s.readyz)
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(version.String()))
	})
	mux.HandleFunc("POST /api/auth/token", s.token)

	mux.HandleFunc("GET /api/projects", s.withAuth(s.listProjects))
	mux.HandleFunc("POST /api/projects", s.withAuth(s.createProject))
	mux.HandleFunc("GET /api/projects/{project}", s.withAuth(s.getProject))
	mux.HandleFunc("GET /api/projects/{project}/pages", s.withAuth(s.listPages))
	mux.HandleFunc("POST /api/projects/{project}/pages", s.withAuth(s.createPage))
	mux.HandleFunc("POST /api/projects/{project}/reorder", s.withAuth(s.reorderPages))
	mux.HandleFunc("GET /api/projects/{project}/pages/{page}", s.withAuth(s.getPage))
	mux.HandleFunc("PATCH /api/projects/{project}/pages/{page}", s.withAuth(s.savePage))
	mux.HandleFunc("DELETE /api/projects/{project}/pages/{page}", s.withAuth(s.deletePage))
	return mux
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.Addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("carousel server listening", slog.String("addr", s.cfg.Addr))
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	}
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.cfg.Ready.PingContext(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// POST /api/auth/token → { token, expires_at }
func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject    string `json:"subject"`
		TTLSeconds int64  `json:"ttl_seconds"`
	}
	b, _ := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	_ = json.Unmarshal(b, &req)
	if req.Subject == "" {
		req.Subject = "dev"
	}
	if req.TTLSeconds <= 0 || req.TTLSeconds > 24*3600 {
		req.TTLSeconds = 3600
	}
	tok, exp, err := s.IssueToken(req.Subject, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      tok,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, subject string)

func (s *Server) withAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		const prefix = "bearer "
		if !strings.HasPrefix(strings.ToLower(auth), prefix) {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}
		sub, err := VerifyToken(s.cfg.Secret, strings.TrimSpace(auth[len(prefix):]), s.now())
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		next(w, r, sub)
	}
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request, sub string) {
	user := r.URL.Query().Get("user")
	if user == "" {
		user = sub
	}
	list, err := s.store.ListProjects(r.Context(), user)
	s.respond(w, r, "list_projects", list, err)
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request, sub string) {
	var np pages.NewProject
	if !decode(w, r, &np) {
		return
	}
	if np.UserID == "" {
		np.UserID = sub
	}
	p, first, err := s.store.CreateProject(r.Context(), np)
	s.respondStatus(w, r, "create_project", http.StatusCreated, createdProject{Project: p, Page: first}, err)
}

type createdProject struct {
	Project pages.Project `json:"project"`
	Page    pages.Page    `json:"page"`
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request, _ string) {
	p, err := s.store.GetProject(r.Context(), r.PathValue("project"))
	s.respond(w, r, "get_project", p, err)
}

func (s *Server) listPages(w http.ResponseWriter, r *http.Request, _ string) {
	list, err := s.store.ListPages(r.Context(), r.PathValue("project"))
	s.respond(w, r, "list_pages", list, err)
}

func (s *Server) createPage(w http.ResponseWriter, r *http.Request, _ string) {
	var np pages.NewPage
	if !decode(w, r, &np) {
		return
	}
	p, err := s.store.CreatePage(r.Context(), r.PathValue("project"), np)
	s.respondStatus(w, r, "create_page", http.StatusCreated, p, err)
}

func (s *Server) getPage(w http.ResponseWriter, r *http.Request, _ string) {
	p, err := s.store.GetPage(r.Context(), r.PathValue("project"), r.PathValue("page"))
	s.respond(w, r, "get_page", p, err)
}

func (s *Server) savePage(w http.ResponseWriter, r *http.Request, _ string) {
	var u pages.PageUpdate
	if !decode(w, r, &u) {
		return
	}
	p, err := s.store.SavePage(r.Context(), r.PathValue("project"), r.PathValue("page"), u)
	s.respond(w, r, "save_page", p, err)
}

func (s *Server) reorderPages(w http.ResponseWriter, r *http.Request, _ string) {
	var order []pages.OrderAssignment
	if !decode(w, r, &order) {
		return
	}
	err := s.store.ReorderPages(r.Context(), r.PathValue("project"), order)
	s.respondStatus(w, r, "reorder", http.StatusNoContent, nil, err)
}

func (s *Server) deletePage(w http.ResponseWriter, r *http.Request, _ string) {
	err := s.store.DeletePage(r.Context(), r.PathValue("project"), r.PathValue("page"))
	s.respondStatus(w, r, "delete_page", http.StatusNoContent, nil, err)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, op string, v any, err error) {
	s.respondStatus(w, r, op, http.StatusOK, v, err)
}

func (s *Server) respondStatus(w http.ResponseWriter, r *http.Request, op string, status int, v any, err error) {
	if err != nil {
		code, st := errorCode(err)
		if st >= 500 {
			applog.WithOperation(s.log, op).ErrorContext(r.Context(), "request failed", slog.Any("err", err))
		}
		writeJSON(w, st, apiError{Error: err.Error(), Code: code})
		return
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, v)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return false
	}
	return true
}

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

var errorCodes = []struct {
	err    error
	code   string
	status int
}{
	{pages.ErrNotFound, "not_found", http.StatusNotFound},
	{pages.ErrLastPage, "last_page", http.StatusConflict},
	{pages.ErrForeignPage, "foreign_page", http.StatusUnprocessableEntity},
	{pages.ErrInvalidOrder, "invalid_order", http.StatusUnprocessableEntity},
	{pages.ErrInvalidScene, "invalid_scene", http.StatusUnprocessableEntity},
}

func errorCode(err error) (string, int) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code, e.status
		}
	}
	return "", http.StatusInternalServerError
}

func errorFor(code string) error {
	for _, e := range errorCodes {
		if e.code == code {
			return e.err
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, apiError{Error: err.Error()})
}
