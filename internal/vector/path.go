/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"strconv"
	"strings"
)

// Path commands and shapes.

type PathOp uint8

const (
	MoveTo PathOp = iota
	LineTo
	QuadTo  // quadratic bezier (cx, cy, x, y)
	CubicTo // cubic bezier (cx1, cy1, cx2, cy2, x, y)
	ArcTo   // elliptical arc (rx, ry, rotation, large, sweep, x, y)
	Close
)

type PathCmd struct {
	Op   PathOp
	Data [7]float64 // enough for arcs; unused slots are zero
}

// End returns the point the command moves the pen to. Close has no own end point.
func (c PathCmd) End() Pt {
	switch c.Op {
	case MoveTo, LineTo:
		return Pt{c.Data[0], c.Data[1]}
	case QuadTo:
		return Pt{c.Data[2], c.Data[3]}
	case CubicTo:
		return Pt{c.Data[4], c.Data[5]}
	case ArcTo:
		return Pt{c.Data[5], c.Data[6]}
	}
	return Pt{}
}

// Path is an ordered list of drawing commands. Outline output is
// expressed in the same normalized space as the balloon box.
type Path struct{ Cmds []PathCmd }

func (p *Path) MoveTo(x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: MoveTo, Data: [7]float64{x, y}})
}
func (p *Path) LineTo(x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: LineTo, Data: [7]float64{x, y}})
}
func (p *Path) QuadTo(cx, cy, x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: QuadTo, Data: [7]float64{cx, cy, x, y}})
}
func (p *Path) CubicTo(cx1, cy1, cx2, cy2, x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: CubicTo, Data: [7]float64{cx1, cy1, cx2, cy2, x, y}})
}

// ArcTo appends an SVG-style elliptical arc from the current point to (x, y).
func (p *Path) ArcTo(rx, ry, rotation float64, large, sweep bool, x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: ArcTo, Data: [7]float64{rx, ry, rotation, b2f(large), b2f(sweep), x, y}})
}
func (p *Path) Close() { p.Cmds = append(p.Cmds, PathCmd{Op: Close}) }

// Convenience wrappers taking points.
func (p *Path) moveTo(a Pt)              { p.MoveTo(a.X, a.Y) }
func (p *Path) lineTo(a Pt)              { p.LineTo(a.X, a.Y) }
func (p *Path) quadTo(c, a Pt)           { p.QuadTo(c.X, c.Y, a.X, a.Y) }
func (p *Path) cubicTo(c1, c2, a Pt)     { p.CubicTo(c1.X, c1.Y, c2.X, c2.Y, a.X, a.Y) }
func (p *Path) cornerTo(r float64, a Pt) { p.ArcTo(r, r, 0, false, true, a.X, a.Y) }

// Append copies all commands of o onto p.
func (p *Path) Append(o Path) { p.Cmds = append(p.Cmds, o.Cmds...) }

// Start returns the first MoveTo point, or the origin for an empty path.
func (p *Path) Start() Pt {
	for _, c := range p.Cmds {
		if c.Op == MoveTo {
			return c.End()
		}
	}
	return Pt{}
}

// End returns the current point after the last command. A trailing Close
// returns the pen to the start of its subpath.
func (p *Path) End() Pt {
	var cur, start Pt
	for _, c := range p.Cmds {
		switch c.Op {
		case MoveTo:
			cur = c.End()
			start = cur
		case Close:
			cur = start
		default:
			cur = c.End()
		}
	}
	return cur
}

// Subpaths splits the path at each MoveTo.
func (p *Path) Subpaths() []Path {
	var out []Path
	for _, c := range p.Cmds {
		if c.Op == MoveTo || len(out) == 0 {
			out = append(out, Path{})
		}
		out[len(out)-1].Cmds = append(out[len(out)-1].Cmds, c)
	}
	return out
}

// Closed reports whether every subpath ends with Close.
func (p *Path) Closed() bool {
	subs := p.Subpaths()
	if len(subs) == 0 {
		return false
	}
	for _, s := range subs {
		if n := len(s.Cmds); n == 0 || s.Cmds[n-1].Op != Close {
			return false
		}
	}
	return true
}

// Points returns the end point of every drawing command, skipping Close.
func (p *Path) Points() []Pt {
	out := make([]Pt, 0, len(p.Cmds))
	for _, c := range p.Cmds {
		if c.Op != Close {
			out = append(out, c.End())
		}
	}
	return out
}

// Bounds returns an axis-aligned bounding box of the flattened path. Curves
// are sampled so the result hugs arcs instead of their control points.
func (p *Path) Bounds() Rect {
	pts := p.Flatten(16)
	if len(pts) == 0 {
		return Rect{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, q := range pts[1:] {
		minX, maxX = min(minX, q.X), max(maxX, q.X)
		minY, maxY = min(minY, q.Y), max(maxY, q.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// SVG renders the path as an SVG path data string with coordinates rounded to
// three decimals, so identical input always yields identical text.
func (p *Path) SVG() string {
	var b strings.Builder
	for i, c := range p.Cmds {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch c.Op {
		case MoveTo:
			b.WriteString("M ")
			writeNums(&b, c.Data[:2]...)
		case LineTo:
			b.WriteString("L ")
			writeNums(&b, c.Data[:2]...)
		case QuadTo:
			b.WriteString("Q ")
			writeNums(&b, c.Data[:4]...)
		case CubicTo:
			b.WriteString("C ")
			writeNums(&b, c.Data[:6]...)
		case ArcTo:
			b.WriteString("A ")
			writeNums(&b, c.Data[:7]...)
		case Close:
			b.WriteString("Z")
		}
	}
	return b.String()
}

func writeNums(b *strings.Builder, vs ...float64) {
	for i, v := range vs {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(FloatRound(v, 3), 'f', -1, 64))
	}
}

func b2f(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
