/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package scene

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// FormatVersion is written into every serialized snapshot.
const FormatVersion = "1"

var (
	ErrNoWorkspace        = errors.New("scene: snapshot has no workspace")
	ErrMultipleWorkspaces = errors.New("scene: snapshot has more than one workspace")
)

// Snapshot is a flat, z-ordered list of descriptors. Objects[0] is the workspace.
type Snapshot struct {
	Version string
	Objects []Object
}

// IDFunc produces identifiers for new descriptors.
type IDFunc func() string

// NewID is the default IDFunc (random UUIDs).
func NewID() string { return uuid.NewString() }

// Blank returns a workspace-only snapshot of the given page size.
func Blank(width, height float64, newID IDFunc) Snapshot {
	if newID == nil {
		newID = NewID
	}
	return Snapshot{
		Version: FormatVersion,
		Objects: []Object{NewWorkspace(newID(), width, height, "#ffffff")},
	}
}

// NewWorkspace builds a workspace descriptor at the page origin.
func NewWorkspace(id string, width, height float64, fill string) *Workspace {
	return &Workspace{
		Base: Base{
			ID: id, Width: width, Height: height,
			ScaleX: 1, ScaleY: 1, Opacity: 1,
			Fill: fill, Selectable: Bool(false),
		},
		Role: RoleWorkspace,
	}
}

// Workspace returns the page boundary descriptor, or nil if missing.
func (s Snapshot) Workspace() *Workspace {
	for _, o := range s.Objects {
		if ws, ok := o.(*Workspace); ok {
			return ws
		}
	}
	return nil
}

// Size returns the workspace dimensions (scaled), or zeros without a workspace.
func (s Snapshot) Size() (w, h float64) {
	ws := s.Workspace()
	if ws == nil {
		return 0, 0
	}
	return ws.Width * ws.scaleX(), ws.Height * ws.scaleY()
}

// Validate checks the single-workspace invariant and descriptor identity.
func (s Snapshot) Validate() error {
	n := 0
	seen := make(map[string]struct{}, len(s.Objects))
	for i, o := range s.Objects {
		if o == nil {
			return fmt.Errorf("scene: object %d is nil", i)
		}
		if IsWorkspace(o) {
			n++
		}
		id := o.Common().ID
		if id == "" {
			return fmt.Errorf("scene: object %d has no id", i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("scene: duplicate object id %q", id)
		}
		seen[id] = struct{}{}
	}
	switch {
	case n == 0:
		return ErrNoWorkspace
	case n > 1:
		return ErrMultipleWorkspaces
	}
	if !IsWorkspace(s.Objects[0]) {
		return errors.New("scene: workspace is not at index 0")
	}
	return nil
}

// PinWorkspace moves the workspace descriptor to index 0, keeping the relative
// order of every other descriptor.
func (s *Snapshot) PinWorkspace() {
	for i, o := range s.Objects {
		if IsWorkspace(o) {
			if i == 0 {
				return
			}
			copy(s.Objects[1:i+1], s.Objects[0:i])
			s.Objects[0] = o
			return
		}
	}
}

// Clone deep-copies the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Version: s.Version, Objects: make([]Object, len(s.Objects))}
	for i, o := range s.Objects {
		out.Objects[i] = o.Clone()
	}
	return out
}

// IndexOf returns the z-index of the descriptor with id, or -1.
func (s Snapshot) IndexOf(id string) int {
	for i, o := range s.Objects {
		if o.Common().ID == id {
			return i
		}
	}
	return -1
}

// Find returns the descriptor with id, or nil.
func (s Snapshot) Find(id string) Object {
	if i := s.IndexOf(id); i >= 0 {
		return s.Objects[i]
	}
	return nil
}
