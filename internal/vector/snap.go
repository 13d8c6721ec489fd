/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Snapping helpers for dragging balloons and panels. They are UI-agnostic
// and deterministic so a drag commit can be replayed in tests.

import "math"

// DefaultSnapThreshold is in normalized 1000-space units.
const DefaultSnapThreshold = 6.0

// Guide is an alignment line found while snapping. Vertical guides carry an
// x position, horizontal ones a y position.
type Guide struct {
	Vertical bool
	Center   bool
	Position float64
	From, To Pt
}

type snapCandidate struct {
	delta  float64
	dist   float64
	guide  Guide
	active bool
}

func (c *snapCandidate) consider(delta, threshold float64, g Guide) {
	d := math.Abs(delta)
	if d > threshold || (c.active && d >= c.dist) {
		return
	}
	*c = snapCandidate{delta: delta, dist: d, guide: g, active: true}
}

// SnapRect aligns the moving rectangle to the edges and centers of anchors.
// X and Y snap independently; the nearest candidate within threshold wins and
// earlier anchors win ties. A threshold <= 0 uses DefaultSnapThreshold.
func SnapRect(moving Rect, anchors []Rect, threshold float64) (Rect, []Guide) {
	if threshold <= 0 {
		threshold = DefaultSnapThreshold
	}
	var bx, by snapCandidate
	mx := [3]float64{moving.X, moving.X + moving.W/2, moving.X + moving.W}
	my := [3]float64{moving.Y, moving.Y + moving.H/2, moving.Y + moving.H}

	for _, a := range anchors {
		ax := [3]float64{a.X, a.X + a.W/2, a.X + a.W}
		ay := [3]float64{a.Y, a.Y + a.H/2, a.Y + a.H}
		for i := range mx {
			for j := range ax {
				// Centers only align with centers.
				if (i == 1) != (j == 1) {
					continue
				}
				bx.consider(mx[i]-ax[j], threshold, verticalGuide(ax[j], moving, a, j == 1))
				by.consider(my[i]-ay[j], threshold, horizontalGuide(ay[j], moving, a, j == 1))
			}
		}
	}

	out := moving
	var guides []Guide
	if bx.active {
		out.X = FloatRound(moving.X-bx.delta, 3)
		guides = append(guides, bx.guide)
	}
	if by.active {
		out.Y = FloatRound(moving.Y-by.delta, 3)
		guides = append(guides, by.guide)
	}
	return out, guides
}

func verticalGuide(x float64, a, b Rect, center bool) Guide {
	x = FloatRound(x, 3)
	return Guide{
		Vertical: true,
		Center:   center,
		Position: x,
		From:     Pt{x, min(a.Y, b.Y)},
		To:       Pt{x, max(a.Y+a.H, b.Y+b.H)},
	}
}

func horizontalGuide(y float64, a, b Rect, center bool) Guide {
	y = FloatRound(y, 3)
	return Guide{
		Center:   center,
		Position: y,
		From:     Pt{min(a.X, b.X), y},
		To:       Pt{max(a.X+a.W, b.X+b.W), y},
	}
}
