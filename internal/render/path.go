/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package render

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"carouselstudio/internal/scene"
)

// PathOp is one drawing command of a parsed path.
type PathOp uint8

const (
	MoveTo PathOp = iota
	LineTo
	QuadTo  // quadratic bezier (cx, cy, x, y)
	CubicTo // cubic bezier (cx1, cy1, cx2, cy2, x, y)
	Close
)

type PathCmd struct {
	Op   PathOp
	Data [6]float64 // enough for cubic; unused slots are zero
}

// Path is SVG path data reduced to absolute move/line/curve commands.
type Path struct{ Cmds []PathCmd }

func (p *Path) MoveTo(x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: MoveTo, Data: [6]float64{x, y}})
}
func (p *Path) LineTo(x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: LineTo, Data: [6]float64{x, y}})
}
func (p *Path) QuadTo(cx, cy, x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: QuadTo, Data: [6]float64{cx, cy, x, y}})
}
func (p *Path) CubicTo(cx1, cy1, cx2, cy2, x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: CubicTo, Data: [6]float64{cx1, cy1, cx2, cy2, x, y}})
}
func (p *Path) Close() { p.Cmds = append(p.Cmds, PathCmd{Op: Close}) }

// Bounds approximates the path box from its end and control points.
func (p *Path) Bounds() scene.Rect {
	minX, minY := 1e18, 1e18
	maxX, maxY := -1e18, -1e18
	add := func(x, y float64) {
		minX, minY = min(minX, x), min(minY, y)
		maxX, maxY = max(maxX, x), max(maxY, y)
	}
	for _, c := range p.Cmds {
		switch c.Op {
		case MoveTo, LineTo:
			add(c.Data[0], c.Data[1])
		case QuadTo:
			add(c.Data[0], c.Data[1])
			add(c.Data[2], c.Data[3])
		case CubicTo:
			add(c.Data[0], c.Data[1])
			add(c.Data[2], c.Data[3])
			add(c.Data[4], c.Data[5])
		}
	}
	if minX > maxX || minY > maxY {
		return scene.Rect{}
	}
	return scene.R(minX, minY, maxX-minX, maxY-minY)
}

// ParsePath reads SVG path data (M L H V C S Q T Z, absolute and relative).
// Arcs are not supported.
func ParsePath(d string) (*Path, error) {
	toks, err := tokenize(d)
	if err != nil {
		return nil, err
	}
	p := &Path{}
	var (
		cx, cy     float64 // current point
		sx, sy     float64 // subpath start
		lcx, lcy   float64 // last control point, for S and T
		prev, cmd  byte
		i          int
	)
	num := func() (float64, error) {
		if i >= len(toks) || toks[i].cmd != 0 {
			return 0, fmt.Errorf("render: path %q: missing number after %c", abbreviate(d), cmd)
		}
		v := toks[i].num
		i++
		return v, nil
	}
	nums := func(n int) ([]float64, error) {
		out := make([]float64, n)
		for k := range out {
			v, err := num()
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	}
	for i < len(toks) {
		if toks[i].cmd != 0 {
			cmd = toks[i].cmd
			i++
		} else if cmd == 0 {
			return nil, fmt.Errorf("render: path %q: number without a command", abbreviate(d))
		}
		rel := unicode.IsLower(rune(cmd))
		ox, oy := 0.0, 0.0
		if rel {
			ox, oy = cx, cy
		}
		switch unicode.ToUpper(rune(cmd)) {
		case 'M':
			v, err := nums(2)
			if err != nil {
				return nil, err
			}
			cx, cy = ox+v[0], oy+v[1]
			sx, sy = cx, cy
			p.MoveTo(cx, cy)
			// further pairs are implicit line-tos
			if rel {
				cmd = 'l'
			} else {
				cmd = 'L'
			}
		case 'L':
			v, err := nums(2)
			if err != nil {
				return nil, err
			}
			cx, cy = ox+v[0], oy+v[1]
			p.LineTo(cx, cy)
		case 'H':
			v, err := num()
			if err != nil {
				return nil, err
			}
			cx = ox + v
			p.LineTo(cx, cy)
		case 'V':
			v, err := num()
			if err != nil {
				return nil, err
			}
			cy = oy + v
			p.LineTo(cx, cy)
		case 'C':
			v, err := nums(6)
			if err != nil {
				return nil, err
			}
			p.CubicTo(ox+v[0], oy+v[1], ox+v[2], oy+v[3], ox+v[4], oy+v[5])
			lcx, lcy = ox+v[2], oy+v[3]
			cx, cy = ox+v[4], oy+v[5]
		case 'S':
			v, err := nums(4)
			if err != nil {
				return nil, err
			}
			c1x, c1y := cx, cy
			if up := unicode.ToUpper(rune(prev)); up == 'C' || up == 'S' {
				c1x, c1y = 2*cx-lcx, 2*cy-lcy
			}
			p.CubicTo(c1x, c1y, ox+v[0], oy+v[1], ox+v[2], oy+v[3])
			lcx, lcy = ox+v[0], oy+v[1]
			cx, cy = ox+v[2], oy+v[3]
		case 'Q':
			v, err := nums(4)
			if err != nil {
				return nil, err
			}
			p.QuadTo(ox+v[0], oy+v[1], ox+v[2], oy+v[3])
			lcx, lcy = ox+v[0], oy+v[1]
			cx, cy = ox+v[2], oy+v[3]
		case 'T':
			v, err := nums(2)
			if err != nil {
				return nil, err
			}
			qx, qy := cx, cy
			if up := unicode.ToUpper(rune(prev)); up == 'Q' || up == 'T' {
				qx, qy = 2*cx-lcx, 2*cy-lcy
			}
			p.QuadTo(qx, qy, ox+v[0], oy+v[1])
			lcx, lcy = qx, qy
			cx, cy = ox+v[0], oy+v[1]
		case 'Z':
			p.Close()
			cx, cy = sx, sy
			// a number right after Z has no command to belong to
			prev, cmd = 'Z', 0
			continue
		default:
			return nil, fmt.Errorf("render: path %q: unsupported command %c", abbreviate(d), cmd)
		}
		prev = cmd
	}
	return p, nil
}

type pathToken struct {
	cmd byte
	num float64
}

func tokenize(d string) ([]pathToken, error) {
	var out []pathToken
	s := d
	for len(s) > 0 {
		c := s[0]
		switch {
		case c == ' ' || c == ',' || c == '\t' || c == '\n' || c == '\r':
			s = s[1:]
		case strings.IndexByte("MmLlHhVvCcSsQqTtZzAa", c) >= 0:
			out = append(out, pathToken{cmd: c})
			s = s[1:]
		default:
			n := numberLen(s)
			if n == 0 {
				return nil, fmt.Errorf("render: path %q: unexpected %q", abbreviate(d), c)
			}
			v, err := strconv.ParseFloat(s[:n], 64)
			if err != nil {
				return nil, fmt.Errorf("render: path %q: %w", abbreviate(d), err)
			}
			out = append(out, pathToken{num: v})
			s = s[n:]
		}
	}
	return out, nil
}

// numberLen is the length of the number literal at the start of s.
func numberLen(s string) int {
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	digits, dot := 0, false
	for ; i < len(s); i++ {
		c := s[i]
		if c >= '0' && c <= '9' {
			digits++
			continue
		}
		if c == '.' && !dot {
			dot = true
			continue
		}
		break
	}
	if digits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '-' || s[j] == '+') {
			j++
		}
		k := j
		for k < len(s) && s[k] >= '0' && s[k] <= '9' {
			k++
		}
		if k > j {
			i = k
		}
	}
	return i
}

func abbreviate(s string) string {
	if len(s) <= 40 {
		return s
	}
	return s[:37] + "..."
}
