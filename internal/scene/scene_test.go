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
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqIDs() IDFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("obj-%d", n)
	}
}

func sample(t *testing.T) Snapshot {
	t.Helper()
	ids := seqIDs()
	s := Blank(1080, 1350, ids)
	s.Objects = append(s.Objects,
		&RectObj{Base: Base{ID: ids(), Left: 10, Top: 20, Width: 100, Height: 50, ScaleX: 1, ScaleY: 1, Opacity: 1, Fill: "#ff0000"}, Rx: 4},
		&TextObj{Base: Base{ID: ids(), Left: 50, Top: 60, Width: 400, Height: 80, ScaleX: 1, ScaleY: 1, Opacity: 1, Fill: "#000000"},
			Text: "Hello", FontFamily: "Arial", FontSize: 32, FontWeight: "bold", TextAlign: "center", Underline: true},
		&ImageObj{Base: Base{ID: ids(), Width: 200, Height: 200, ScaleX: 0.5, ScaleY: 0.5, Opacity: 1},
			Src: "data:image/png;base64,iVBO", Filters: []Filter{{Type: FilterGrayscale}, {Type: FilterBlur, Value: 0.2}}},
		&PolygonObj{Base: Base{ID: ids(), Width: 100, Height: 100, ScaleX: 1, ScaleY: 1, Opacity: 1, Fill: "#00ff00"},
			Points: []Pt{{50, 0}, {100, 100}, {0, 100}}},
		&PathObj{Base: Base{ID: ids(), Width: 10, Height: 10, ScaleX: 1, ScaleY: 1, Opacity: 1, Stroke: "#000", StrokeWidth: 2}, Path: "M 0 0 L 10 10"},
	)
	return s
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	s := sample(t)
	data, err := Marshal(s)
	require.NoError(t, err)
	require.NoError(t, ValidateJSON(data))

	back, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, s, back)

	again, err := Marshal(back)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestUnmarshalDropsFieldsOutsideAllowlist(t *testing.T) {
	in := `{"version":"1","objects":[
	  {"type":"rect","role":"workspace","id":"ws","left":0,"top":0,"width":100,"height":100,"scaleX":1,"scaleY":1,"opacity":1,"shadow":"x","clipPath":{"a":1}},
	  {"type":"textbox","id":"t","left":0,"top":0,"width":10,"height":10,"scaleX":1,"scaleY":1,"opacity":1,"text":"hi","fontFamily":"Arial","fontSize":12,"styles":{"0":{}},"editable":true}
	]}`
	s, err := UnmarshalString(in)
	require.NoError(t, err)
	out, err := Marshal(s)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(out, &generic))
	objs := generic["objects"].([]any)
	ws := objs[0].(map[string]any)
	txt := objs[1].(map[string]any)
	assert.NotContains(t, ws, "shadow")
	assert.NotContains(t, ws, "clipPath")
	assert.Equal(t, "workspace", ws["role"])
	assert.NotContains(t, txt, "styles")
	assert.NotContains(t, txt, "editable")
	assert.Equal(t, "hi", txt["text"])
}

func TestUnmarshalEnforcesSingleWorkspace(t *testing.T) {
	none := `{"version":"1","objects":[{"type":"rect","id":"a","left":0,"top":0,"width":1,"height":1}]}`
	_, err := UnmarshalString(none)
	assert.ErrorIs(t, err, ErrNoWorkspace)

	two := `{"version":"1","objects":[
	  {"type":"rect","role":"workspace","id":"a","left":0,"top":0,"width":1,"height":1},
	  {"type":"rect","role":"workspace","id":"b","left":0,"top":0,"width":1,"height":1}]}`
	_, err = UnmarshalString(two)
	assert.ErrorIs(t, err, ErrMultipleWorkspaces)

	_, err = UnmarshalString(`{"version":"1","objects":[{"type":"ellipse","id":"x"}]}`)
	assert.Error(t, err)

	_, err = UnmarshalString("not json")
	assert.Error(t, err)
}

func TestUnmarshalPinsWorkspaceToBottom(t *testing.T) {
	in := `{"version":"1","objects":[
	  {"type":"rect","id":"a","left":0,"top":0,"width":1,"height":1},
	  {"type":"rect","id":"b","left":0,"top":0,"width":1,"height":1},
	  {"type":"rect","role":"workspace","id":"ws","left":0,"top":0,"width":1,"height":1}]}`
	s, err := UnmarshalString(in)
	require.NoError(t, err)
	ids := []string{}
	for _, o := range s.Objects {
		ids = append(ids, o.Common().ID)
	}
	assert.Equal(t, []string{"ws", "a", "b"}, ids)
}

func TestValidateRejectsDuplicateIDs(t *testing.T) {
	s := sample(t)
	s.Objects[2].Common().ID = s.Objects[1].Common().ID
	assert.Error(t, s.Validate())
}

func TestCloneIsDeep(t *testing.T) {
	s := sample(t)
	c := s.Clone()
	c.Objects[3].(*ImageObj).Filters[0].Type = FilterSepia
	c.Objects[4].(*PolygonObj).Points[0].X = 999
	assert.Equal(t, FilterGrayscale, s.Objects[3].(*ImageObj).Filters[0].Type)
	assert.Equal(t, 50.0, s.Objects[4].(*PolygonObj).Points[0].X)
	assert.True(t, Equal(s, s.Clone()))
	assert.False(t, Equal(s, c))
}

func TestBoundsAndCenterOn(t *testing.T) {
	b := Base{Left: 10, Top: 20, Width: 100, Height: 50, ScaleX: 2, ScaleY: 1}
	r := b.Bounds()
	assert.InDelta(t, 10, r.X, 1e-9)
	assert.InDelta(t, 200, r.W, 1e-9)
	assert.InDelta(t, 50, r.H, 1e-9)

	b.CenterOn(Pt{540, 675})
	c := b.Bounds().Center()
	assert.InDelta(t, 540, c.X, 1e-9)
	assert.InDelta(t, 675, c.Y, 1e-9)

	flipped := Base{Left: 10, Top: 0, Width: 100, Height: 50, FlipX: true}
	fr := flipped.Bounds()
	assert.InDelta(t, 10, fr.X, 1e-9)
	assert.InDelta(t, 100, fr.W, 1e-9)
	assert.True(t, flipped.Hit(Pt{20, 10}))

	rot := Base{Width: 100, Height: 100, Angle: 45}
	rr := rot.Bounds()
	assert.InDelta(t, 100*math.Sqrt2, rr.W, 1e-9)
}

func TestAffineInvert(t *testing.T) {
	m := Translate(10, 5).Mul(Rotate(30)).Mul(Scale(2, 3))
	p := Pt{7, -4}
	q := m.Invert().Apply(m.Apply(p))
	assert.InDelta(t, p.X, q.X, 1e-9)
	assert.InDelta(t, p.Y, q.Y, 1e-9)
	assert.Equal(t, Identity, Scale(0, 0).Invert())
}

func TestSize(t *testing.T) {
	s := Blank(1080, 1350, nil)
	w, h := s.Size()
	assert.Equal(t, 1080.0, w)
	assert.Equal(t, 1350.0, h)
	assert.NotEmpty(t, s.Workspace().ID)
	w, h = Snapshot{}.Size()
	assert.Zero(t, w)
	assert.Zero(t, h)
}

func TestValidateJSONRejectsTextWithoutFont(t *testing.T) {
	bad := `{"version":"1","objects":[{"type":"textbox","id":"t","left":0,"top":0,"width":1,"height":1,"text":"x"}]}`
	assert.Error(t, ValidateJSON([]byte(bad)))
}
