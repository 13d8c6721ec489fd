/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "math"

// DefaultCornerRadius is used when no traced contour is available.
const DefaultCornerRadius = 10.0

// PolygonArea returns the unsigned shoelace area.
func PolygonArea(poly []Pt) float64 {
	var a float64
	for i := range poly {
		j := (i + 1) % len(poly)
		a += poly[i].X*poly[j].Y - poly[j].X*poly[i].Y
	}
	return math.Abs(a) / 2
}

// FillRatio is the polygon area over the w x h bounding area. A degenerate
// box yields 0.8, a typical rounded balloon.
func FillRatio(poly []Pt, w, h float64) float64 {
	if w*h <= 0 {
		return 0.8
	}
	return PolygonArea(poly) / (w * h)
}

// DynamicCornerRadius derives a corner radius from how much of its box a
// traced contour fills: boxy contours get tight corners, ovals get round ones.
func DynamicCornerRadius(poly []Pt, w, h float64) float64 {
	minDim := math.Min(w, h)
	r := DefaultCornerRadius
	if len(poly) > 4 {
		switch ratio := FillRatio(poly, w, h); {
		case ratio > 0.88:
			r = math.Min(8, minDim*0.1)
		case ratio > 0.75:
			r = math.Min(30, minDim*0.25)
		default:
			r = math.Min(50, minDim*0.4)
		}
	}
	if minDim < 40 {
		r = math.Min(r, 6)
	}
	return r
}
