/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"math"

	"balloonstudio/internal/domain"
)

// Thought trail layout: radii grow while moving from the tail target toward
// the balloon center.
var (
	thoughtRadii     = [3]float64{15, 25, 35}
	thoughtFractions = [3]float64{0.2, 0.45, 0.75}
)

const (
	cloudBumps   = 8
	screamSpikes = 12
)

// Circle is a standalone circle emitted next to an outline (thought trails).
type Circle struct {
	C Pt
	R float64
}

// Outline is the renderable description of a balloon. Path holds every
// closed subpath; Circles holds thought bubbles trailing toward the speaker.
type Outline struct {
	Path    Path
	Circles []Circle
	Tail    *TailGeometry
}

// BuildOutline converts a balloon into its closed outline. It is pure: the
// same balloon always yields the same commands, which makes it usable for
// both on-screen rendering and exported vector files.
func BuildOutline(b domain.Balloon) Outline {
	r := RectFromBox(b.Box)
	hasTail := b.TailTarget != nil
	notch := hasTail && b.Style != domain.StyleThought

	var out Outline
	switch b.Shape {
	case domain.ShapeEllipse:
		if notch {
			tip, ctrl, width := tailInputs(b, r)
			tg := ComputeEllipseTail(r, tip, ctrl, width)
			out.Path = ellipseWithTail(r, tg)
			out.Tail = &tg
		} else {
			out.Path = ellipsePath(r)
		}
	case domain.ShapeCloud:
		out.Path = cloudPath(r, roughness(b))
		out.Tail = appendDetachedTail(&out.Path, b, r, notch)
	case domain.ShapeScream:
		out.Path = screamPath(r, roughness(b))
		out.Tail = appendDetachedTail(&out.Path, b, r, notch)
	case domain.ShapeCustom:
		if b.Outline != nil && len(b.Outline.Vertices) >= 3 {
			out.Path = customPath(r, *b.Outline)
			out.Tail = appendDetachedTail(&out.Path, b, r, notch)
			break
		}
		fallthrough
	default:
		radius := cornerRadius(r, b.CornerRadius)
		if notch {
			tip, ctrl, width := tailInputs(b, r)
			tg := ComputeRectTail(r, radius, tip, ctrl, width)
			out.Path = roundedRectPath(r, radius, &tg)
			out.Tail = &tg
		} else {
			out.Path = roundedRectPath(r, radius, nil)
		}
	}
	if hasTail && b.Style == domain.StyleThought {
		out.Circles = thoughtTrail(r.Center(), P(*b.TailTarget))
	}
	return out
}

// cornerRadius clamps the requested radius to half of either side.
func cornerRadius(r Rect, want float64) float64 {
	return math.Max(0, math.Min(want, math.Min(r.W/2, r.H/2)))
}

func roughness(b domain.Balloon) float64 {
	if b.Roughness <= 0 {
		return 1
	}
	return b.Roughness
}

func ellipsePath(r Rect) Path {
	c := r.Center()
	rx, ry := r.W/2, r.H/2
	var p Path
	p.MoveTo(c.X-rx, c.Y)
	p.ArcTo(rx, ry, 0, true, true, c.X+rx, c.Y)
	p.ArcTo(rx, ry, 0, true, true, c.X-rx, c.Y)
	p.Close()
	return p
}

// ellipseWithTail walks the long way from Base2 around to Base1 in one arc,
// then cuts the notch out to the tip and back.
func ellipseWithTail(r Rect, tg TailGeometry) Path {
	rx, ry := r.W/2, r.H/2
	var p Path
	p.moveTo(tg.Base2)
	p.ArcTo(rx, ry, 0, true, true, tg.Base1.X, tg.Base1.Y)
	p.quadTo(tg.Control, tg.Tip)
	p.quadTo(tg.Control, tg.Base2)
	p.Close()
	return p
}

// roundedRectPath walks top, right, bottom and left edges clockwise from
// (xmin+r, ymin). When tg is set, its edge gets the notch between the straight
// run and the following corner.
func roundedRectPath(r Rect, radius float64, tg *TailGeometry) Path {
	xmin, ymin, xmax, ymax := r.X, r.Y, r.X+r.W, r.Y+r.H
	type side struct {
		edge        Edge
		end, corner Pt
	}
	sides := [4]side{
		{EdgeTop, Pt{xmax - radius, ymin}, Pt{xmax, ymin + radius}},
		{EdgeRight, Pt{xmax, ymax - radius}, Pt{xmax - radius, ymax}},
		{EdgeBottom, Pt{xmin + radius, ymax}, Pt{xmin, ymax - radius}},
		{EdgeLeft, Pt{xmin, ymin + radius}, Pt{xmin + radius, ymin}},
	}
	var p Path
	p.MoveTo(xmin+radius, ymin)
	for _, s := range sides {
		if tg != nil && tg.Edge == s.edge {
			p.lineTo(tg.Base1)
			p.quadTo(tg.Control, tg.Tip)
			p.quadTo(tg.Control, tg.Base2)
		}
		p.lineTo(s.end)
		if radius > 0 {
			p.cornerTo(radius, s.corner)
		}
	}
	p.Close()
	return p
}

// cloudPath strings quadratic bumps between points on a wobbling ellipse.
func cloudPath(r Rect, rough float64) Path {
	c := r.Center()
	rx, ry := r.W/2, r.H/2
	vertex := func(k int) (Pt, float64, float64) {
		k %= cloudBumps
		a := float64(k) * 2 * math.Pi / cloudBumps
		fx := 0.8 + 0.2*math.Sin(float64(k)*1.5)
		fy := 0.8 + 0.2*math.Cos(float64(k)*1.5)
		return Pt{c.X + rx*fx*math.Cos(a), c.Y + ry*fy*math.Sin(a)}, fx, fy
	}
	bump := 1 + 0.15*rough
	var p Path
	first, _, _ := vertex(0)
	p.moveTo(first)
	for i := 0; i < cloudBumps; i++ {
		_, fx1, fy1 := vertex(i)
		next, fx2, fy2 := vertex(i + 1)
		mid := (float64(i) + 0.5) * 2 * math.Pi / cloudBumps
		cp := Pt{
			X: c.X + rx*(fx1+fx2)/2*bump*math.Cos(mid),
			Y: c.Y + ry*(fy1+fy2)/2*bump*math.Sin(mid),
		}
		p.quadTo(cp, next)
	}
	p.Close()
	return p
}

// screamPath alternates outer spikes and inner valleys.
func screamPath(r Rect, rough float64) Path {
	c := r.Center()
	rx, ry := r.W/2, r.H/2
	inner := clamp(1-0.3*rough, 0.3, 0.95)
	var p Path
	for i := 0; i < screamSpikes; i++ {
		a := float64(i) * 2 * math.Pi / screamSpikes
		f := 1.0
		if i%2 == 1 {
			f = inner
		}
		pt := Pt{c.X + rx*f*math.Cos(a), c.Y + ry*f*math.Sin(a)}
		if i == 0 {
			p.moveTo(pt)
		} else {
			p.lineTo(pt)
		}
	}
	p.Close()
	return p
}

// customPath maps an outline from its viewBox into r. Segments are cubic when
// both adjoining handles exist, quadratic when one does, straight otherwise.
func customPath(r Rect, o domain.CustomOutline) Path {
	vb := Rect{X: o.ViewBox[0], Y: o.ViewBox[1], W: o.ViewBox[2], H: o.ViewBox[3]}
	if vb.W <= 0 || vb.H <= 0 {
		vb = verticesBounds(o.Vertices)
	}
	m := FitRect(vb, r)
	at := func(x, y float64) Pt { return m.Apply(Pt{x, y}) }
	handle := func(h *domain.Point) *Pt {
		if h == nil {
			return nil
		}
		q := at(h.X, h.Y)
		return &q
	}

	vs := o.Vertices
	var p Path
	p.moveTo(at(vs[0].X, vs[0].Y))
	segment := func(from, to domain.Vertex) {
		end := at(to.X, to.Y)
		out, in := handle(from.HandleOut), handle(to.HandleIn)
		switch {
		case out != nil && in != nil:
			p.cubicTo(*out, *in, end)
		case out != nil:
			p.quadTo(*out, end)
		case in != nil:
			p.quadTo(*in, end)
		default:
			p.lineTo(end)
		}
	}
	for i := 1; i < len(vs); i++ {
		segment(vs[i-1], vs[i])
	}
	last, first := vs[len(vs)-1], vs[0]
	if last.HandleOut != nil || first.HandleIn != nil {
		segment(last, first)
	}
	p.Close()
	return p
}

func verticesBounds(vs []domain.Vertex) Rect {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, v := range vs {
		minX, maxX = math.Min(minX, v.X), math.Max(maxX, v.X)
		minY, maxY = math.Min(minY, v.Y), math.Max(maxY, v.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// appendDetachedTail adds the tail as its own closed subpath for shapes whose
// boundary has no single arc primitive. The base sits on the inscribed ellipse.
func appendDetachedTail(p *Path, b domain.Balloon, r Rect, notch bool) *TailGeometry {
	if !notch {
		return nil
	}
	tip, ctrl, width := tailInputs(b, r)
	tg := ComputeEllipseTail(r, tip, ctrl, width)
	p.moveTo(tg.Base1)
	p.quadTo(tg.Control, tg.Tip)
	p.quadTo(tg.Control, tg.Base2)
	p.Close()
	return &tg
}

func thoughtTrail(center, tip Pt) []Circle {
	out := make([]Circle, len(thoughtRadii))
	for i := range thoughtRadii {
		out[i] = Circle{C: Lerp(tip, center, thoughtFractions[i]), R: thoughtRadii[i]}
	}
	return out
}
