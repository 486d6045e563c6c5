/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package host defines the scene graph host an editor session drives, and an
// in-memory implementation used by the CLI and tests.
package host

import (
	"carouselstudio/internal/scene"
	"carouselstudio/internal/viewport"
)

// Host owns the live descriptors of one page. A Host is attached to at most
// one editor session at a time.
type Host interface {
	// Objects returns the live z-ordered descriptors. The slice is a copy; the
	// descriptors are the host's own and must be changed through Update.
	Objects() []scene.Object
	Add(o scene.Object)
	Remove(id string) bool
	// Move places the descriptor with id at z-index i (clamped).
	Move(id string, i int) bool
	// Update applies fn to the descriptor with id and requests a render.
	Update(id string, fn func(o scene.Object)) bool

	Serialize() (string, error)
	// Deserialize replaces the whole scene. done runs once the scene is live,
	// with a nil error on success; on error the previous scene is kept.
	Deserialize(data string, done func(err error))

	Viewport() viewport.Transform
	SetViewport(t viewport.Transform)
	ContainerSize() viewport.Size

	SetDrawingMode(on bool)
	DrawingMode() bool

	RequestRender()
}
