/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package editor is the single point of mutation for the active page's scene.
// A Session drives a host, records history after every committed mutation and
// notifies a save callback.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"carouselstudio/internal/history"
	"carouselstudio/internal/host"
	applog "carouselstudio/internal/log"
	"carouselstudio/internal/scene"
	"carouselstudio/internal/viewport"
)

var (
	ErrNotReady    = errors.New("editor: session is not ready")
	ErrDisposed    = errors.New("editor: session is disposed")
	ErrNoHost      = errors.New("editor: no host attached")
	ErrHostInUse   = errors.New("editor: host already attached to a session")
	errNoWorkspace = errors.New("editor: live scene has no workspace")
)

// State is the session lifecycle phase.
type State int

const (
	Uninitialized State = iota
	Ready
	Disposed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Disposed:
		return "disposed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Save is what the session hands to its save callback.
type Save struct {
	Scene  string
	Width  float64
	Height float64
}

// Options configure a Session.
type Options struct {
	History  history.Config
	Viewport viewport.Config
	Tools    *Tools
	// OnSave is called after each committed mutation, outside the session lock.
	OnSave func(Save)
	// FallbackWidth/Height size the blank scene used when a load fails.
	FallbackWidth  float64
	FallbackHeight float64
	NewID          scene.IDFunc
	Logger         *slog.Logger
}

// Session is one page's editor. Create with New, Attach a host, then Load.
type Session struct {
	mu sync.Mutex

	state     State
	host      host.Host
	hist      *history.History
	vp        viewport.Config
	tools     Tools
	selection []string
	clipboard []scene.Object

	// replaying is set while history entries are installed in the host.
	replaying bool
	// saveDue is set by commitLocked; the save callback fires after unlock.
	saveDue bool

	onSave func(Save)
	fbW    float64
	fbH    float64
	newID  scene.IDFunc
	log    *slog.Logger
}

// attached tracks hosts owned by a live session.
var attached sync.Map

func New(opts Options) *Session {
	s := &Session{
		hist:   history.New(opts.History),
		vp:     opts.Viewport,
		tools:  DefaultTools(),
		onSave: opts.OnSave,
		fbW:    opts.FallbackWidth,
		fbH:    opts.FallbackHeight,
		newID:  opts.NewID,
		log:    opts.Logger,
	}
	if opts.Tools != nil {
		s.tools = *opts.Tools
	}
	if s.fbW <= 0 || s.fbH <= 0 {
		s.fbW, s.fbH = 1080, 1350
	}
	if s.newID == nil {
		s.newID = scene.NewID
	}
	if s.log == nil {
		s.log = applog.WithComponent("editor")
	}
	return s
}

// Attach binds the host. The session becomes Ready on its first Load.
func (s *Session) Attach(h host.Host) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state == Disposed:
		return ErrDisposed
	case s.host != nil:
		return fmt.Errorf("editor: session already has a host")
	}
	if _, loaded := attached.LoadOrStore(h, s); loaded {
		return ErrHostInUse
	}
	s.host = h
	return nil
}

// Dispose detaches the host and drops history, selection and the save
// callback. Later calls return ErrDisposed.
func (s *Session) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Disposed {
		return
	}
	if s.host != nil {
		attached.Delete(s.host)
		s.host.SetDrawingMode(false)
	}
	s.state = Disposed
	s.host = nil
	s.onSave = nil
	s.selection = nil
	s.clipboard = nil
	s.saveDue = false
	s.hist = history.New(history.Config{})
}

// State returns the lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// mutate runs fn under the lock in the Ready state and fires the save
// callback afterwards if fn committed.
func (s *Session) mutate(op string, fn func() error) error {
	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	err := fn()
	save, cb := s.takeSaveLocked(op)
	s.mu.Unlock()
	if cb != nil && save != nil {
		cb(*save)
	}
	return err
}

func (s *Session) readyLocked() error {
	switch s.state {
	case Disposed:
		return ErrDisposed
	case Uninitialized:
		return ErrNotReady
	}
	return nil
}

// commitLocked records the live scene and schedules a save. It does nothing
// while a history entry is being replayed.
func (s *Session) commitLocked(op string) {
	if s.replaying {
		return
	}
	data, err := s.host.Serialize()
	if err != nil {
		applog.WithOperation(s.log, op).Warn("serialize failed; mutation not recorded", slog.Any("err", err))
		return
	}
	s.hist.Record([]byte(data))
	s.saveDue = true
}

func (s *Session) takeSaveLocked(op string) (*Save, func(Save)) {
	if !s.saveDue || s.onSave == nil {
		s.saveDue = false
		return nil, nil
	}
	s.saveDue = false
	data, ok := s.hist.Current()
	if !ok {
		return nil, nil
	}
	w, h := s.workspaceSizeLocked()
	applog.WithOperation(s.log, op).Debug("save scheduled", slog.Int("bytes", len(data)))
	return &Save{Scene: string(data), Width: w, Height: h}, s.onSave
}

func (s *Session) workspaceLocked() *scene.Workspace {
	for _, o := range s.host.Objects() {
		if ws, ok := o.(*scene.Workspace); ok {
			return ws
		}
	}
	return nil
}

func (s *Session) workspaceSizeLocked() (float64, float64) {
	ws := s.workspaceLocked()
	if ws == nil {
		return 0, 0
	}
	b := ws.Bounds()
	return b.W, b.H
}

// installLocked replaces the host scene and waits for the host to finish.
func (s *Session) installLocked(data string) error {
	done := make(chan error, 1)
	s.host.Deserialize(data, func(err error) { done <- err })
	return <-done
}

// Load replaces the whole scene. Empty or malformed data falls back to a
// blank workspace of width×height (or the fallback size when zero); the
// failure is logged, never returned. The first Load makes the session Ready
// and becomes the base history entry; later loads are recorded and saved.
func (s *Session) Load(data string, width, height float64) error {
	s.mu.Lock()
	if s.state == Disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	if s.host == nil {
		s.mu.Unlock()
		return ErrNoHost
	}
	l := applog.WithOperation(s.log, "deserialize")
	if width <= 0 || height <= 0 {
		width, height = s.fbW, s.fbH
	}
	var err error
	if data == "" {
		err = errors.New("empty scene")
	} else {
		err = s.installLocked(data)
	}
	if err != nil {
		if data != "" {
			l.Warn("malformed scene; falling back to blank workspace", slog.Any("err", err), slog.Int("bytes", len(data)))
		}
		blank, merr := scene.MarshalString(scene.Blank(width, height, s.newID))
		if merr == nil {
			merr = s.installLocked(blank)
		}
		if merr != nil {
			s.mu.Unlock()
			return fmt.Errorf("editor: install blank scene: %w", merr)
		}
	}
	s.selection = nil
	s.autoZoomLocked()
	if s.state == Uninitialized {
		cur, serr := s.host.Serialize()
		if serr != nil {
			s.mu.Unlock()
			return fmt.Errorf("editor: serialize loaded scene: %w", serr)
		}
		s.hist.Reset([]byte(cur))
		s.state = Ready
		s.mu.Unlock()
		return nil
	}
	s.commitLocked("deserialize")
	save, cb := s.takeSaveLocked("deserialize")
	s.mu.Unlock()
	if cb != nil && save != nil {
		cb(*save)
	}
	return nil
}

// Deserialize is Load with the current page size as the fallback.
func (s *Session) Deserialize(data string) error {
	s.mu.Lock()
	var w, h float64
	if s.host != nil {
		w, h = s.workspaceSizeLocked()
	}
	s.mu.Unlock()
	return s.Load(data, w, h)
}

// Serialize returns the canonical snapshot of the live scene.
func (s *Session) Serialize() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return "", err
	}
	return s.host.Serialize()
}

// Snapshot returns a deep copy of the live scene.
func (s *Session) Snapshot() (scene.Snapshot, error) {
	data, err := s.Serialize()
	if err != nil {
		return scene.Snapshot{}, err
	}
	return scene.UnmarshalString(data)
}

// WorkspaceSize returns the page size held by the workspace descriptor.
func (s *Session) WorkspaceSize() (float64, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return 0, 0, err
	}
	w, h := s.workspaceSizeLocked()
	return w, h, nil
}

// CanUndo reports whether Undo would move.
func (s *Session) CanUndo() bool { return s.hist.CanUndo() }

// CanRedo reports whether Redo would move.
func (s *Session) CanRedo() bool { return s.hist.CanRedo() }

// Undo installs the previous history entry. Nothing is recorded or saved
// during the replay. A corrupt entry is logged and leaves everything as is.
func (s *Session) Undo() error { return s.replay("undo", s.hist.Undo) }

// Redo installs the next history entry, mirroring Undo.
func (s *Session) Redo() error { return s.replay("redo", s.hist.Redo) }

func (s *Session) replay(op string, step func(func([]byte) error) (bool, error)) error {
	return s.mutate(op, func() error {
		s.replaying = true
		defer func() { s.replaying = false }()
		moved, err := step(func(data []byte) error { return s.installLocked(string(data)) })
		if err != nil {
			applog.WithOperation(s.log, op).Warn("history entry could not be restored", slog.Any("err", err))
			return nil
		}
		if moved {
			s.pruneSelectionLocked()
		}
		return nil
	})
}

func (s *Session) pruneSelectionLocked() {
	live := make(map[string]struct{})
	for _, o := range s.host.Objects() {
		if !scene.IsWorkspace(o) {
			live[o.Common().ID] = struct{}{}
		}
	}
	kept := s.selection[:0]
	for _, id := range s.selection {
		if _, ok := live[id]; ok {
			kept = append(kept, id)
		}
	}
	s.selection = kept
}
