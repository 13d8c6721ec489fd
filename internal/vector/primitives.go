/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "math"

// PointOnEllipse returns the parametric ellipse point at angle (radians).
func PointOnEllipse(c Pt, rx, ry, angle float64) Pt {
	return Pt{X: c.X + rx*math.Cos(angle), Y: c.Y + ry*math.Sin(angle)}
}

// PointOnRectBoundary intersects the ray leaving c at angle with the
// boundary of the w x h rectangle centered on c. The nearer of the vertical
// and horizontal edge hits wins, which makes corners exact.
func PointOnRectBoundary(c Pt, w, h, angle float64) Pt {
	dx, dy := math.Cos(angle), math.Sin(angle)
	tx := (w / 2) / math.Max(math.Abs(dx), Epsilon)
	ty := (h / 2) / math.Max(math.Abs(dy), Epsilon)
	t := math.Min(tx, ty)
	return Pt{X: c.X + t*dx, Y: c.Y + t*dy}
}

// AngleTo returns the direction from a to b.
func AngleTo(a, b Pt) float64 { return math.Atan2(b.Y-a.Y, b.X-a.X) }
