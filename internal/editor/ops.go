/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package editor

import (
	"fmt"
	"log/slog"

	applog "carouselstudio/internal/log"
	"carouselstudio/internal/scene"
	"carouselstudio/internal/viewport"
)

// AddObject centers o on the workspace, inserts it on top and selects it.
// An empty id is assigned.
func (s *Session) AddObject(o scene.Object) error {
	return s.mutate("add", func() error {
		if scene.IsWorkspace(o) {
			return scene.ErrMultipleWorkspaces
		}
		ws := s.workspaceLocked()
		if ws == nil {
			return errNoWorkspace
		}
		b := o.Common()
		if b.ID == "" || s.indexLocked(b.ID) >= 0 {
			b.ID = s.newID()
		}
		b.CenterOn(ws.Bounds().Center())
		s.host.Add(o)
		s.selection = []string{b.ID}
		s.commitLocked("add")
		return nil
	})
}

func (s *Session) AddRectangle() error       { return s.AddObject(s.Tools().Rectangle()) }
func (s *Session) AddSoftRectangle() error   { return s.AddObject(s.Tools().SoftRectangle()) }
func (s *Session) AddCircle() error          { return s.AddObject(s.Tools().Circle()) }
func (s *Session) AddTriangle() error        { return s.AddObject(s.Tools().Triangle()) }
func (s *Session) AddInverseTriangle() error { return s.AddObject(s.Tools().InverseTriangle()) }
func (s *Session) AddDiamond() error         { return s.AddObject(s.Tools().Diamond()) }
func (s *Session) AddText(v string) error    { return s.AddObject(s.Tools().Text(v)) }

// AddImage inserts an image of natural size w×h, scaled down to fit the page.
func (s *Session) AddImage(src string, w, h float64) error {
	img := s.Tools().Image(src, w, h)
	if pw, ph, err := s.WorkspaceSize(); err == nil && w > 0 && h > 0 {
		if k := min(pw/w, ph/h, 1); k < 1 {
			img.ScaleX, img.ScaleY = k, k
		}
	}
	return s.AddObject(img)
}

// AddPath inserts a freehand stroke drawn in drawing mode.
func (s *Session) AddPath(data string, w, h float64) error {
	return s.AddObject(s.Tools().Path(data, w, h))
}

// Update changes one descriptor in place (move, resize, edit text) and commits.
func (s *Session) Update(id string, fn func(o scene.Object)) error {
	return s.mutate("update", func() error {
		if !s.host.Update(id, fn) {
			return fmt.Errorf("editor: no descriptor %q", id)
		}
		s.host.Move(s.workspaceIDLocked(), 0)
		s.commitLocked("update")
		return nil
	})
}

// ApplyToSelection applies c to every selected descriptor. Properties that do
// not apply to a descriptor's kind are skipped without error.
func (s *Session) ApplyToSelection(c Change) error {
	return s.mutate("apply", func() error {
		if c.empty() || len(s.selection) == 0 {
			return nil
		}
		for _, id := range s.selection {
			s.host.Update(id, c.apply)
		}
		s.commitLocked("apply")
		return nil
	})
}

// SetWorkspaceSize resizes the workspace only; other descriptors keep their
// geometry. The viewport is refit.
func (s *Session) SetWorkspaceSize(w, h float64) error {
	return s.mutate("resize", func() error {
		if w <= 0 || h <= 0 {
			return nil
		}
		ws := s.workspaceLocked()
		if ws == nil {
			return errNoWorkspace
		}
		s.host.Update(ws.ID, func(o scene.Object) {
			b := o.Common()
			b.Width, b.Height = w, h
			b.ScaleX, b.ScaleY = 1, 1
		})
		s.autoZoomLocked()
		s.commitLocked("resize")
		return nil
	})
}

// ChangeBackground sets the workspace fill. Setting the current color again
// adds no history entry but still notifies the save callback.
func (s *Session) ChangeBackground(color string) error {
	return s.mutate("background", func() error {
		ws := s.workspaceLocked()
		if ws == nil {
			return errNoWorkspace
		}
		s.host.Update(ws.ID, func(o scene.Object) {
			b := o.Common()
			b.Fill = color
			b.Gradient = nil
		})
		s.commitLocked("background")
		return nil
	})
}

// Tool setters update the defaults and restyle the selection.

func (s *Session) SetFillColor(c string) error {
	s.setTools(func(t *Tools) { t.FillColor = c })
	return s.ApplyToSelection(Change{Fill: &c})
}

func (s *Session) SetStrokeColor(c string) error {
	s.setTools(func(t *Tools) { t.StrokeColor = c })
	return s.ApplyToSelection(Change{Stroke: &c})
}

func (s *Session) SetStrokeWidth(w float64) error {
	s.setTools(func(t *Tools) { t.StrokeWidth = w })
	return s.ApplyToSelection(Change{StrokeWidth: &w})
}

func (s *Session) SetStrokeDash(d []float64) error {
	s.setTools(func(t *Tools) { t.StrokeDash = append([]float64(nil), d...) })
	return s.ApplyToSelection(Change{StrokeDash: &d})
}

func (s *Session) SetFontFamily(f string) error {
	s.setTools(func(t *Tools) { t.FontFamily = f })
	return s.ApplyToSelection(Change{FontFamily: &f})
}

// SetFilters replaces the filter list of every selected image.
func (s *Session) SetFilters(filters ...scene.Filter) error {
	return s.ApplyToSelection(Change{Filters: &filters})
}

// Tools returns a copy of the current tool defaults.
func (s *Session) Tools() Tools {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tools
	t.StrokeDash = append([]float64(nil), s.tools.StrokeDash...)
	return t
}

func (s *Session) setTools(fn func(t *Tools)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.tools)
}

// Selection returns the selected descriptor ids in z-order of selection.
func (s *Session) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.selection...)
}

// Select replaces the selection; unknown ids and the workspace are skipped.
func (s *Session) Select(ids ...string) error {
	return s.mutate("select", func() error {
		s.selection = s.selection[:0]
		for _, id := range ids {
			i := s.indexLocked(id)
			if i < 0 || scene.IsWorkspace(s.host.Objects()[i]) || contains(s.selection, id) {
				continue
			}
			s.selection = append(s.selection, id)
		}
		return nil
	})
}

// SelectAll selects every descriptor except the workspace.
func (s *Session) SelectAll() error {
	return s.mutate("select", func() error {
		s.selection = s.selection[:0]
		for _, o := range s.host.Objects() {
			if !scene.IsWorkspace(o) {
				s.selection = append(s.selection, o.Common().ID)
			}
		}
		return nil
	})
}

// ClearSelection deselects everything.
func (s *Session) ClearSelection() error {
	return s.mutate("select", func() error {
		s.selection = nil
		return nil
	})
}

// DeleteSelection removes the selected descriptors.
func (s *Session) DeleteSelection() error {
	return s.mutate("delete", func() error {
		if len(s.selection) == 0 {
			return nil
		}
		for _, id := range s.selection {
			s.host.Remove(id)
		}
		s.selection = nil
		s.commitLocked("delete")
		return nil
	})
}

// Copy stores deep copies of the selected descriptors.
func (s *Session) Copy() error {
	return s.mutate("copy", func() error {
		s.clipboard = s.clipboard[:0]
		objs := s.host.Objects()
		for _, o := range objs {
			if contains(s.selection, o.Common().ID) {
				s.clipboard = append(s.clipboard, o.Clone())
			}
		}
		return nil
	})
}

// Paste inserts fresh copies of the clipboard with new ids, centered as a
// group on the workspace, and selects them.
func (s *Session) Paste() error {
	return s.mutate("paste", func() error {
		if len(s.clipboard) == 0 {
			return nil
		}
		ws := s.workspaceLocked()
		if ws == nil {
			return errNoWorkspace
		}
		group := s.clipboard[0].Common().Bounds()
		for _, o := range s.clipboard[1:] {
			group = group.Union(o.Common().Bounds())
		}
		target := ws.Bounds().Center()
		c := group.Center()
		dx, dy := target.X-c.X, target.Y-c.Y

		s.selection = s.selection[:0]
		for _, src := range s.clipboard {
			o := src.Clone()
			b := o.Common()
			b.ID = s.newID()
			b.Left += dx
			b.Top += dy
			s.host.Add(o)
			s.selection = append(s.selection, b.ID)
		}
		s.commitLocked("paste")
		return nil
	})
}

// BringForward moves each selected descriptor one step up.
func (s *Session) BringForward() error { return s.reorder("bring_forward", forward) }

// SendBackward moves each selected descriptor one step down, never below the workspace.
func (s *Session) SendBackward() error { return s.reorder("send_backward", backward) }

// BringToFront moves the selection to the top, keeping its relative order.
func (s *Session) BringToFront() error { return s.reorder("bring_to_front", toFront) }

// SendToBack moves the selection just above the workspace, keeping its relative order.
func (s *Session) SendToBack() error { return s.reorder("send_to_back", toBack) }

type direction int

const (
	forward direction = iota
	backward
	toFront
	toBack
)

// reorder moves the selection and then pins the workspace back to index 0.
// A selected descriptor blocked by a selected neighbor stays put, so a
// selected block moves as a unit.
func (s *Session) reorder(op string, dir direction) error {
	return s.mutate(op, func() error {
		if len(s.selection) == 0 {
			return nil
		}
		var order []string
		for _, o := range s.host.Objects() {
			if id := o.Common().ID; contains(s.selection, id) {
				order = append(order, id)
			}
		}
		if dir == forward || dir == toBack {
			// topmost first
			for l, r := 0, len(order)-1; l < r; l, r = l+1, r-1 {
				order[l], order[r] = order[r], order[l]
			}
		}
		for _, id := range order {
			objs := s.host.Objects()
			i, last := s.indexLocked(id), len(objs)-1
			switch dir {
			case forward:
				if i < last && !contains(s.selection, objs[i+1].Common().ID) {
					s.host.Move(id, i+1)
				}
			case backward:
				if i > 1 && !contains(s.selection, objs[i-1].Common().ID) {
					s.host.Move(id, i-1)
				}
			case toFront:
				s.host.Move(id, last)
			case toBack:
				s.host.Move(id, 1)
			}
		}
		if ws := s.workspaceLocked(); ws != nil {
			s.host.Move(ws.ID, 0)
		}
		s.commitLocked(op)
		return nil
	})
}

// SetDrawingMode toggles freehand drawing on the host.
func (s *Session) SetDrawingMode(on bool) error {
	return s.mutate("drawing_mode", func() error {
		s.host.SetDrawingMode(on)
		if on {
			s.selection = nil
		}
		return nil
	})
}

// AutoZoom fits the workspace into the container. It is a no-op until the
// container has a non-zero size.
func (s *Session) AutoZoom() error {
	return s.mutate("auto_zoom", func() error {
		s.autoZoomLocked()
		return nil
	})
}

// ZoomIn steps the zoom up around the container center.
func (s *Session) ZoomIn() error {
	return s.mutate("zoom_in", func() error {
		s.host.SetViewport(s.vp.ZoomIn(s.host.Viewport(), s.host.ContainerSize()))
		return nil
	})
}

// ZoomOut steps the zoom down around the container center.
func (s *Session) ZoomOut() error {
	return s.mutate("zoom_out", func() error {
		s.host.SetViewport(s.vp.ZoomOut(s.host.Viewport(), s.host.ContainerSize()))
		return nil
	})
}

// Viewport returns the host's current view transform.
func (s *Session) Viewport() (viewport.Transform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return viewport.Transform{}, err
	}
	return s.host.Viewport(), nil
}

func (s *Session) autoZoomLocked() {
	ws := s.workspaceLocked()
	if ws == nil {
		return
	}
	t, ok := s.vp.Fit(s.host.ContainerSize(), ws.Bounds())
	if !ok {
		applog.WithOperation(s.log, "auto_zoom").Debug("container not measured; fit deferred",
			slog.Float64("w", s.host.ContainerSize().W), slog.Float64("h", s.host.ContainerSize().H))
		return
	}
	s.host.SetViewport(t)
}

func (s *Session) workspaceIDLocked() string {
	if ws := s.workspaceLocked(); ws != nil {
		return ws.ID
	}
	return ""
}

func (s *Session) indexLocked(id string) int {
	for i, o := range s.host.Objects() {
		if o.Common().ID == id {
			return i
		}
	}
	return -1
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
