/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package host

import (
	"sync"

	"carouselstudio/internal/scene"
	"carouselstudio/internal/viewport"
)

// Memory is a Host backed by a scene.Snapshot. OnRender, when set, receives a
// clone of the scene each time a render is requested.
type Memory struct {
	mu        sync.Mutex
	snap      scene.Snapshot
	vp        viewport.Transform
	container viewport.Size
	drawing   bool
	renders   int

	OnRender func(s scene.Snapshot)
}

// NewMemory returns an empty host with the given container size.
func NewMemory(containerW, containerH float64) *Memory {
	return &Memory{
		snap:      scene.Snapshot{Version: scene.FormatVersion},
		vp:        viewport.IdentityTransform,
		container: viewport.Size{W: containerW, H: containerH},
	}
}

func (m *Memory) Objects() []scene.Object {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]scene.Object(nil), m.snap.Objects...)
}

func (m *Memory) Add(o scene.Object) {
	m.mu.Lock()
	m.snap.Objects = append(m.snap.Objects, o)
	m.mu.Unlock()
	m.RequestRender()
}

func (m *Memory) Remove(id string) bool {
	m.mu.Lock()
	i := m.snap.IndexOf(id)
	if i < 0 {
		m.mu.Unlock()
		return false
	}
	m.snap.Objects = append(m.snap.Objects[:i], m.snap.Objects[i+1:]...)
	m.mu.Unlock()
	m.RequestRender()
	return true
}

func (m *Memory) Move(id string, to int) bool {
	m.mu.Lock()
	from := m.snap.IndexOf(id)
	if from < 0 {
		m.mu.Unlock()
		return false
	}
	if to < 0 {
		to = 0
	}
	if last := len(m.snap.Objects) - 1; to > last {
		to = last
	}
	o := m.snap.Objects[from]
	objs := append(m.snap.Objects[:from:from], m.snap.Objects[from+1:]...)
	objs = append(objs[:to], append([]scene.Object{o}, objs[to:]...)...)
	m.snap.Objects = objs
	m.mu.Unlock()
	m.RequestRender()
	return true
}

func (m *Memory) Update(id string, fn func(o scene.Object)) bool {
	m.mu.Lock()
	o := m.snap.Find(id)
	if o == nil {
		m.mu.Unlock()
		return false
	}
	fn(o)
	m.mu.Unlock()
	m.RequestRender()
	return true
}

func (m *Memory) Serialize() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return scene.MarshalString(m.snap)
}

func (m *Memory) Deserialize(data string, done func(err error)) {
	s, err := scene.UnmarshalString(data)
	if err == nil {
		m.mu.Lock()
		m.snap = s
		m.mu.Unlock()
		m.RequestRender()
	}
	if done != nil {
		done(err)
	}
}

func (m *Memory) Viewport() viewport.Transform {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vp
}

func (m *Memory) SetViewport(t viewport.Transform) {
	m.mu.Lock()
	m.vp = t
	m.mu.Unlock()
	m.RequestRender()
}

func (m *Memory) ContainerSize() viewport.Size {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.container
}

// Resize records a new container measurement.
func (m *Memory) Resize(w, h float64) {
	m.mu.Lock()
	m.container = viewport.Size{W: w, H: h}
	m.mu.Unlock()
}

func (m *Memory) SetDrawingMode(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drawing = on
}

func (m *Memory) DrawingMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drawing
}

func (m *Memory) RequestRender() {
	m.mu.Lock()
	m.renders++
	cb := m.OnRender
	var snap scene.Snapshot
	if cb != nil {
		snap = m.snap.Clone()
	}
	m.mu.Unlock()
	if cb != nil {
		cb(snap)
	}
}

// Renders returns how many renders were requested so far.
func (m *Memory) Renders() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renders
}

// Snapshot returns a deep copy of the live scene.
func (m *Memory) Snapshot() scene.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Clone()
}
