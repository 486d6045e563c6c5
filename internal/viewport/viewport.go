/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package viewport computes the uniform scale and translation that shows the
// page inside the editor's container, and the clamped zoom steps around it.
package viewport

import (
	"math"

	"carouselstudio/internal/scene"
)

// Transform maps page coordinates to container coordinates:
// screen = Zoom*page + (TX, TY).
type Transform struct {
	Zoom   float64
	TX, TY float64
}

// IdentityTransform shows the page at 100% anchored at the origin.
var IdentityTransform = Transform{Zoom: 1}

// ToScreen maps a page point into the container.
func (t Transform) ToScreen(p scene.Pt) scene.Pt {
	return scene.Pt{X: t.Zoom*p.X + t.TX, Y: t.Zoom*p.Y + t.TY}
}

// ToPage maps a container point back to page space.
func (t Transform) ToPage(p scene.Pt) scene.Pt {
	if t.Zoom == 0 {
		return p
	}
	return scene.Pt{X: (p.X - t.TX) / t.Zoom, Y: (p.Y - t.TY) / t.Zoom}
}

// Size is the container's measured size in pixels.
type Size struct{ W, H float64 }

// Empty reports whether the container has not been laid out yet.
func (s Size) Empty() bool { return s.W <= 0 || s.H <= 0 }

// Config holds the fit margin and the bounds of user zoom steps.
type Config struct {
	Margin  float64
	MinZoom float64
	MaxZoom float64
	Step    float64
}

// DefaultConfig returns the editor defaults.
func DefaultConfig() Config {
	return Config{Margin: 0.85, MinZoom: 0.2, MaxZoom: 1.0, Step: 0.05}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.Margin <= 0 || c.Margin > 1 {
		c.Margin = d.Margin
	}
	if c.MinZoom <= 0 {
		c.MinZoom = d.MinZoom
	}
	if c.MaxZoom < c.MinZoom {
		c.MaxZoom = math.Max(d.MaxZoom, c.MinZoom)
	}
	if c.Step <= 0 {
		c.Step = d.Step
	}
	return c
}

// Fit returns the transform that shows the workspace rect fully inside the
// container with the configured margin, centered. The scale depends only on
// the two sizes. ok is false when either size is empty; callers must keep the
// current transform and retry after the next measurement.
func (c Config) Fit(container Size, workspace scene.Rect) (t Transform, ok bool) {
	c = c.normalized()
	if container.Empty() || workspace.W <= 0 || workspace.H <= 0 {
		return Transform{}, false
	}
	zoom := math.Min(container.W/workspace.W, container.H/workspace.H) * c.Margin
	return centerOn(zoom, container, workspace.Center()), true
}

// ZoomIn steps the zoom up by Step, pivoting on the container center.
func (c Config) ZoomIn(cur Transform, container Size) Transform {
	c = c.normalized()
	return c.ZoomTo(cur, container, cur.Zoom+c.Step)
}

// ZoomOut steps the zoom down by Step, pivoting on the container center.
func (c Config) ZoomOut(cur Transform, container Size) Transform {
	c = c.normalized()
	return c.ZoomTo(cur, container, cur.Zoom-c.Step)
}

// ZoomTo sets an absolute zoom clamped to [MinZoom, MaxZoom]. The page point
// under the container center stays under it.
func (c Config) ZoomTo(cur Transform, container Size, zoom float64) Transform {
	c = c.normalized()
	zoom = scene.FloatRound(math.Min(math.Max(zoom, c.MinZoom), c.MaxZoom), 6)
	if cur.Zoom <= 0 {
		cur = IdentityTransform
	}
	pivot := scene.Pt{X: container.W / 2, Y: container.H / 2}
	anchor := cur.ToPage(pivot)
	return Transform{
		Zoom: zoom,
		TX:   pivot.X - zoom*anchor.X,
		TY:   pivot.Y - zoom*anchor.Y,
	}
}

// Center returns the page point currently shown at the container center.
func (t Transform) Center(container Size) scene.Pt {
	return t.ToPage(scene.Pt{X: container.W / 2, Y: container.H / 2})
}

// CenterOn keeps t's zoom and moves the page point p to the container center.
func (t Transform) CenterOn(container Size, p scene.Pt) Transform {
	return centerOn(t.Zoom, container, p)
}

func centerOn(zoom float64, container Size, p scene.Pt) Transform {
	return Transform{
		Zoom: zoom,
		TX:   container.W/2 - zoom*p.X,
		TY:   container.H/2 - zoom*p.Y,
	}
}
