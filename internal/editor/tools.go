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
	"carouselstudio/internal/scene"
)

// Tools are the defaults applied to newly created descriptors.
type Tools struct {
	FillColor   string
	StrokeColor string
	StrokeWidth float64
	StrokeDash  []float64
	FontFamily  string
	FontSize    float64
}

// DefaultTools returns the editor's initial tool state.
func DefaultTools() Tools {
	return Tools{
		FillColor:   "rgba(0,0,0,1)",
		StrokeColor: "rgba(0,0,0,1)",
		StrokeWidth: 2,
		FontFamily:  "Arial",
		FontSize:    32,
	}
}

// Shape sizes for the insert helpers.
const (
	rectSize     = 400
	circleRadius = 225
	triangleSize = 400
	diamondSize  = 600
	textWidth    = 400
)

func (t Tools) base(w, h float64) scene.Base {
	b := scene.Base{
		Width: w, Height: h,
		ScaleX: 1, ScaleY: 1, Opacity: 1,
		Fill:        t.FillColor,
		Stroke:      t.StrokeColor,
		StrokeWidth: t.StrokeWidth,
	}
	if len(t.StrokeDash) > 0 {
		b.StrokeDashArray = append([]float64(nil), t.StrokeDash...)
	}
	return b
}

// Rectangle builds a rectangle with the current tool defaults.
func (t Tools) Rectangle() *scene.RectObj {
	return &scene.RectObj{Base: t.base(rectSize, rectSize)}
}

// SoftRectangle is a rectangle with rounded corners.
func (t Tools) SoftRectangle() *scene.RectObj {
	r := t.Rectangle()
	r.Rx, r.Ry = 50, 50
	return r
}

// Circle is a fully rounded square.
func (t Tools) Circle() *scene.RectObj {
	return &scene.RectObj{Base: t.base(2*circleRadius, 2*circleRadius), Rx: circleRadius, Ry: circleRadius}
}

func (t Tools) Triangle() *scene.PolygonObj {
	return &scene.PolygonObj{
		Base:   t.base(triangleSize, triangleSize),
		Points: []scene.Pt{{X: triangleSize / 2, Y: 0}, {X: triangleSize, Y: triangleSize}, {X: 0, Y: triangleSize}},
	}
}

func (t Tools) InverseTriangle() *scene.PolygonObj {
	return &scene.PolygonObj{
		Base:   t.base(triangleSize, triangleSize),
		Points: []scene.Pt{{X: 0, Y: 0}, {X: triangleSize, Y: 0}, {X: triangleSize / 2, Y: triangleSize}},
	}
}

func (t Tools) Diamond() *scene.PolygonObj {
	return &scene.PolygonObj{
		Base: t.base(diamondSize, diamondSize),
		Points: []scene.Pt{
			{X: diamondSize / 2, Y: 0}, {X: diamondSize, Y: diamondSize / 2},
			{X: diamondSize / 2, Y: diamondSize}, {X: 0, Y: diamondSize / 2},
		},
	}
}

// Text builds a text box. Text has no stroke by default.
func (t Tools) Text(value string) *scene.TextObj {
	b := t.base(textWidth, t.FontSize*1.16)
	b.Stroke, b.StrokeWidth, b.StrokeDashArray = "", 0, nil
	return &scene.TextObj{Base: b, Text: value, FontFamily: t.FontFamily, FontSize: t.FontSize, FontWeight: "normal", TextAlign: "left"}
}

// Image builds an image descriptor of natural size w×h.
func (t Tools) Image(src string, w, h float64) *scene.ImageObj {
	return &scene.ImageObj{Base: scene.Base{Width: w, Height: h, ScaleX: 1, ScaleY: 1, Opacity: 1}, Src: src}
}

// Path builds a freehand stroke from SVG path data with local size w×h.
func (t Tools) Path(data string, w, h float64) *scene.PathObj {
	b := t.base(w, h)
	b.Fill = ""
	return &scene.PathObj{Base: b, Path: data}
}
