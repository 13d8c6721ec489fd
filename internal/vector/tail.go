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

// Edge names one side of a rectangular balloon.
type Edge string

const (
	EdgeTop    Edge = "top"
	EdgeRight  Edge = "right"
	EdgeBottom Edge = "bottom"
	EdgeLeft   Edge = "left"
)

// edgeTolerance is how far a boundary point may sit from an edge coordinate
// and still count as lying on it.
const edgeTolerance = 1.0

// maxEllipseDelta keeps the notch strictly narrower than half the ellipse so
// the remaining outline is always the large arc.
const maxEllipseDelta = math.Pi/2 - 1e-3

// TailGeometry describes where a tail notch is cut into a balloon boundary.
// Base1 and Base2 are the notch base points in outline walking order; for
// well-formed input Base1 corresponds to angle-Delta and Base2 to angle+Delta.
type TailGeometry struct {
	Tip     Pt
	Control Pt
	Angle   float64 // radians, direction from balloon center to tip
	Delta   float64 // angular half width of the opening
	Base1   Pt
	Base2   Pt
	Edge    Edge // set for rectangles only
}

// tailInputs resolves tip, control point and base width with defaults:
// the control point falls back to the midpoint of center and tip.
func tailInputs(b domain.Balloon, r Rect) (tip, ctrl Pt, width float64) {
	tip = P(*b.TailTarget)
	if b.TailControl != nil {
		ctrl = P(*b.TailControl)
	} else {
		ctrl = Lerp(r.Center(), tip, 0.5)
	}
	width = b.TailWidth
	if width <= 0 {
		width = domain.DefaultTailWidth
	}
	return tip, ctrl, width
}

// ComputeEllipseTail places the notch base points on the ellipse inscribed in r.
// The half width is measured against the average radius.
func ComputeEllipseTail(r Rect, tip, ctrl Pt, width float64) TailGeometry {
	c := r.Center()
	rx, ry := r.W/2, r.H/2
	angle := AngleTo(c, tip)
	delta := clamp((width/2)/math.Max((rx+ry)/2, Epsilon), 0, maxEllipseDelta)
	return TailGeometry{
		Tip:     tip,
		Control: ctrl,
		Angle:   angle,
		Delta:   delta,
		Base1:   PointOnEllipse(c, rx, ry, angle-delta),
		Base2:   PointOnEllipse(c, rx, ry, angle+delta),
	}
}

// ComputeRectTail picks the single edge the tail attaches to and projects the
// notch base points onto its straight span between the rounded corners.
func ComputeRectTail(r Rect, radius float64, tip, ctrl Pt, width float64) TailGeometry {
	c := r.Center()
	angle := AngleTo(c, tip)
	delta := (width / 2) / math.Max(math.Max(r.W, r.H)/2, Epsilon)
	edge := ClassifyEdge(r, PointOnRectBoundary(c, r.W, r.H, angle))

	q1 := PointOnRectBoundary(c, r.W, r.H, angle-delta)
	q2 := PointOnRectBoundary(c, r.W, r.H, angle+delta)
	xmin, ymin, xmax, ymax := r.X, r.Y, r.X+r.W, r.Y+r.H

	var b1, b2 Pt
	switch edge {
	case EdgeTop:
		a, b := clamp(q1.X, xmin+radius, xmax-radius), clamp(q2.X, xmin+radius, xmax-radius)
		b1, b2 = Pt{min(a, b), ymin}, Pt{max(a, b), ymin}
	case EdgeRight:
		a, b := clamp(q1.Y, ymin+radius, ymax-radius), clamp(q2.Y, ymin+radius, ymax-radius)
		b1, b2 = Pt{xmax, min(a, b)}, Pt{xmax, max(a, b)}
	case EdgeBottom:
		a, b := clamp(q1.X, xmin+radius, xmax-radius), clamp(q2.X, xmin+radius, xmax-radius)
		b1, b2 = Pt{max(a, b), ymax}, Pt{min(a, b), ymax}
	default:
		a, b := clamp(q1.Y, ymin+radius, ymax-radius), clamp(q2.Y, ymin+radius, ymax-radius)
		b1, b2 = Pt{xmin, max(a, b)}, Pt{xmin, min(a, b)}
	}
	return TailGeometry{Tip: tip, Control: ctrl, Angle: angle, Delta: delta, Base1: b1, Base2: b2, Edge: edge}
}

// ClassifyEdge matches a boundary point against the four edge coordinates.
// Corner points match two edges; the first of top, right, bottom, left wins.
func ClassifyEdge(r Rect, bp Pt) Edge {
	switch {
	case math.Abs(bp.Y-r.Y) < edgeTolerance:
		return EdgeTop
	case math.Abs(bp.X-(r.X+r.W)) < edgeTolerance:
		return EdgeRight
	case math.Abs(bp.Y-(r.Y+r.H)) < edgeTolerance:
		return EdgeBottom
	case math.Abs(bp.X-r.X) < edgeTolerance:
		return EdgeLeft
	}
	c := r.Center()
	return classifySide(bp.X-c.X, bp.Y-c.Y)
}

func classifySide(ux, uy float64) Edge {
	// Determine the dominant axis of the direction vector.
	if math.Abs(ux) >= math.Abs(uy) {
		if ux >= 0 {
			return EdgeRight
		}
		return EdgeLeft
	}
	if uy >= 0 {
		return EdgeBottom
	}
	return EdgeTop
}
