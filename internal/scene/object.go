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

// Kind discriminates the closed set of drawable descriptors.
type Kind string

const (
	KindRect    Kind = "rect"
	KindPolygon Kind = "polygon"
	KindText    Kind = "textbox"
	KindImage   Kind = "image"
	KindPath    Kind = "path"
)

// RoleWorkspace marks the page boundary descriptor.
const RoleWorkspace = "workspace"

// Base carries the geometry and paint fields shared by every descriptor.
// The struct fields are the serialization allowlist: anything else is dropped.
type Base struct {
	ID              string    `json:"id"`
	Left            float64   `json:"left"`
	Top             float64   `json:"top"`
	Width           float64   `json:"width"`
	Height          float64   `json:"height"`
	ScaleX          float64   `json:"scaleX"`
	ScaleY          float64   `json:"scaleY"`
	Angle           float64   `json:"angle"`
	FlipX           bool      `json:"flipX,omitempty"`
	FlipY           bool      `json:"flipY,omitempty"`
	Opacity         float64   `json:"opacity"`
	Fill            string    `json:"fill,omitempty"`
	Gradient        *Gradient `json:"gradient,omitempty"`
	Stroke          string    `json:"stroke,omitempty"`
	StrokeWidth     float64   `json:"strokeWidth,omitempty"`
	StrokeDashArray []float64 `json:"strokeDashArray,omitempty"`
	Selectable      *bool     `json:"selectable,omitempty"`
}

// Gradient is a linear fill expressed in fractions of the descriptor box.
type Gradient struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Stops []Stop  `json:"stops"`
}

type Stop struct {
	Offset float64 `json:"offset"`
	Color  string  `json:"color"`
}

// Filter is one image adjustment; Value is ignored by the parameterless kinds.
type Filter struct {
	Type  string  `json:"type"`
	Value float64 `json:"value,omitempty"`
}

// Known filter types.
const (
	FilterGrayscale  = "grayscale"
	FilterSepia      = "sepia"
	FilterInvert     = "invert"
	FilterBlur       = "blur"
	FilterBrightness = "brightness"
	FilterContrast   = "contrast"
	FilterSaturation = "saturation"
	FilterPixelate   = "pixelate"
)

// Object is a drawable descriptor in a Snapshot.
type Object interface {
	Kind() Kind
	Common() *Base
	Clone() Object
}

// Workspace is the page boundary. Its fill is the page background.
type Workspace struct {
	Base
	Role string `json:"role"`
}

type RectObj struct {
	Base
	Rx float64 `json:"rx,omitempty"`
	Ry float64 `json:"ry,omitempty"`
}

type PolygonObj struct {
	Base
	Points []Pt `json:"points"`
}

type TextObj struct {
	Base
	Text           string  `json:"text"`
	FontFamily     string  `json:"fontFamily"`
	FontSize       float64 `json:"fontSize"`
	FontWeight     string  `json:"fontWeight,omitempty"`
	FontStyle      string  `json:"fontStyle,omitempty"`
	TextAlign      string  `json:"textAlign,omitempty"`
	Underline      bool    `json:"underline,omitempty"`
	Linethrough    bool    `json:"linethrough,omitempty"`
	Overline       bool    `json:"overline,omitempty"`
	LineHeight     float64 `json:"lineHeight,omitempty"`
	TextBackground string  `json:"textBackgroundColor,omitempty"`
}

type ImageObj struct {
	Base
	Src     string   `json:"src"`
	Filters []Filter `json:"filters,omitempty"`
	// ClipCircle renders the image through a circular mask (profile thumbnails).
	ClipCircle bool `json:"clipCircle,omitempty"`
}

type PathObj struct {
	Base
	// Path is SVG path data in the descriptor's local box.
	Path string `json:"path"`
}

func (w *Workspace) Kind() Kind  { return KindRect }
func (o *RectObj) Kind() Kind    { return KindRect }
func (o *PolygonObj) Kind() Kind { return KindPolygon }
func (o *TextObj) Kind() Kind    { return KindText }
func (o *ImageObj) Kind() Kind   { return KindImage }
func (o *PathObj) Kind() Kind    { return KindPath }

func (w *Workspace) Common() *Base  { return &w.Base }
func (o *RectObj) Common() *Base    { return &o.Base }
func (o *PolygonObj) Common() *Base { return &o.Base }
func (o *TextObj) Common() *Base    { return &o.Base }
func (o *ImageObj) Common() *Base   { return &o.Base }
func (o *PathObj) Common() *Base    { return &o.Base }

func (b Base) clone() Base {
	c := b
	if b.Gradient != nil {
		g := *b.Gradient
		g.Stops = append([]Stop(nil), b.Gradient.Stops...)
		c.Gradient = &g
	}
	if b.StrokeDashArray != nil {
		c.StrokeDashArray = append([]float64(nil), b.StrokeDashArray...)
	}
	if b.Selectable != nil {
		v := *b.Selectable
		c.Selectable = &v
	}
	return c
}

func (w *Workspace) Clone() Object {
	c := *w
	c.Base = w.Base.clone()
	return &c
}

func (o *RectObj) Clone() Object {
	c := *o
	c.Base = o.Base.clone()
	return &c
}

func (o *PolygonObj) Clone() Object {
	c := *o
	c.Base = o.Base.clone()
	if o.Points != nil {
		c.Points = append([]Pt(nil), o.Points...)
	}
	return &c
}

func (o *TextObj) Clone() Object {
	c := *o
	c.Base = o.Base.clone()
	return &c
}

func (o *ImageObj) Clone() Object {
	c := *o
	c.Base = o.Base.clone()
	if o.Filters != nil {
		c.Filters = append([]Filter(nil), o.Filters...)
	}
	return &c
}

func (o *PathObj) Clone() Object {
	c := *o
	c.Base = o.Base.clone()
	return &c
}

// IsWorkspace reports whether o is the page boundary descriptor.
func IsWorkspace(o Object) bool {
	_, ok := o.(*Workspace)
	return ok
}

// Bool returns a pointer to v, for optional boolean fields.
func Bool(v bool) *bool { return &v }
