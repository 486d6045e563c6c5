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

import "carouselstudio/internal/scene"

// Change is a property mutation applied to the selection. Nil fields are left
// alone. Font fields only affect text and Filters only affect images; on other
// descriptors they are ignored.
type Change struct {
	Fill        *string
	Stroke      *string
	StrokeWidth *float64
	StrokeDash  *[]float64
	Opacity     *float64

	FontFamily  *string
	FontSize    *float64
	FontWeight  *string
	FontStyle   *string
	TextAlign   *string
	Underline   *bool
	Linethrough *bool

	Filters *[]scene.Filter
}

// Ptr returns a pointer to v, for building a Change.
func Ptr[T any](v T) *T { return &v }

func (c Change) empty() bool {
	return c == Change{}
}

func (c Change) apply(o scene.Object) {
	b := o.Common()
	if c.Fill != nil {
		b.Fill = *c.Fill
		b.Gradient = nil
	}
	if c.Stroke != nil {
		b.Stroke = *c.Stroke
	}
	if c.StrokeWidth != nil {
		b.StrokeWidth = *c.StrokeWidth
	}
	if c.StrokeDash != nil {
		b.StrokeDashArray = append([]float64(nil), (*c.StrokeDash)...)
		if len(b.StrokeDashArray) == 0 {
			b.StrokeDashArray = nil
		}
	}
	if c.Opacity != nil {
		b.Opacity = clamp01(*c.Opacity)
	}
	switch v := o.(type) {
	case *scene.TextObj:
		if c.FontFamily != nil {
			v.FontFamily = *c.FontFamily
		}
		if c.FontSize != nil && *c.FontSize > 0 {
			v.FontSize = *c.FontSize
		}
		if c.FontWeight != nil {
			v.FontWeight = *c.FontWeight
		}
		if c.FontStyle != nil {
			v.FontStyle = *c.FontStyle
		}
		if c.TextAlign != nil {
			v.TextAlign = *c.TextAlign
		}
		if c.Underline != nil {
			v.Underline = *c.Underline
		}
		if c.Linethrough != nil {
			v.Linethrough = *c.Linethrough
		}
	case *scene.ImageObj:
		if c.Filters != nil {
			v.Filters = append([]scene.Filter(nil), (*c.Filters)...)
			if len(v.Filters) == 0 {
				v.Filters = nil
			}
		}
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
