/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package viewport

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"carouselstudio/internal/scene"
)

func TestFitScaleIsDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	container := Size{W: 800, H: 600}
	ws := scene.R(0, 0, 1080, 1350)
	want := math.Min(800.0/1080, 600.0/1350) * 0.85

	first, ok := cfg.Fit(container, ws)
	assert.True(t, ok)
	assert.InDelta(t, want, first.Zoom, 1e-12)

	zoomed := cfg.ZoomIn(cfg.ZoomIn(first, container), container)
	assert.NotEqual(t, first.Zoom, zoomed.Zoom)
	again, ok := cfg.Fit(container, ws)
	assert.True(t, ok)
	assert.Equal(t, first, again)
}

func TestFitCentersWorkspace(t *testing.T) {
	cfg := DefaultConfig()
	container := Size{W: 1000, H: 400}
	ws := scene.R(0, 0, 500, 500)
	tr, ok := cfg.Fit(container, ws)
	assert.True(t, ok)
	assert.InDelta(t, 0.68, tr.Zoom, 1e-12)

	c := tr.ToScreen(ws.Center())
	assert.InDelta(t, 500, c.X, 1e-9)
	assert.InDelta(t, 200, c.Y, 1e-9)

	// uniform: both axes share the zoom
	tl := tr.ToScreen(scene.Pt{X: 0, Y: 0})
	br := tr.ToScreen(scene.Pt{X: 500, Y: 500})
	assert.InDelta(t, br.X-tl.X, br.Y-tl.Y, 1e-9)
	assert.LessOrEqual(t, br.Y-tl.Y, 400.0)
}

func TestFitWithEmptyContainerIsNoOp(t *testing.T) {
	cfg := DefaultConfig()
	_, ok := cfg.Fit(Size{W: 0, H: 600}, scene.R(0, 0, 100, 100))
	assert.False(t, ok)
	_, ok = cfg.Fit(Size{W: 600, H: 0}, scene.R(0, 0, 100, 100))
	assert.False(t, ok)
	_, ok = cfg.Fit(Size{W: 600, H: 600}, scene.R(0, 0, 0, 100))
	assert.False(t, ok)
}

func TestZoomStepsAreClamped(t *testing.T) {
	cfg := DefaultConfig()
	container := Size{W: 800, H: 800}
	tr := Transform{Zoom: 0.95}
	tr = cfg.ZoomIn(tr, container)
	assert.InDelta(t, 1.0, tr.Zoom, 1e-9)
	tr = cfg.ZoomIn(tr, container)
	assert.InDelta(t, 1.0, tr.Zoom, 1e-9)

	for i := 0; i < 40; i++ {
		tr = cfg.ZoomOut(tr, container)
	}
	assert.InDelta(t, 0.2, tr.Zoom, 1e-9)

	tr = cfg.ZoomIn(tr, container)
	assert.InDelta(t, 0.25, tr.Zoom, 1e-9)
}

func TestZoomPivotsOnContainerCenter(t *testing.T) {
	cfg := DefaultConfig()
	container := Size{W: 800, H: 600}
	start := Transform{Zoom: 0.5, TX: 37, TY: -12}
	before := start.Center(container)

	after := cfg.ZoomOut(start, container)
	assert.InDelta(t, 0.45, after.Zoom, 1e-9)
	got := after.Center(container)
	assert.InDelta(t, before.X, got.X, 1e-9)
	assert.InDelta(t, before.Y, got.Y, 1e-9)
}

func TestToPageInvertsToScreen(t *testing.T) {
	tr := Transform{Zoom: 0.4, TX: 10, TY: 20}
	p := scene.Pt{X: 123, Y: 456}
	q := tr.ToPage(tr.ToScreen(p))
	assert.InDelta(t, p.X, q.X, 1e-9)
	assert.InDelta(t, p.Y, q.Y, 1e-9)
}

func TestNormalizedConfigFallsBack(t *testing.T) {
	c := Config{}.normalized()
	assert.Equal(t, DefaultConfig(), c)
}
