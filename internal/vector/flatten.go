/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "math"

// Flatten approximates curves with fixed-step sampling to a polyline.
// steps defines the number of segments used per curve or arc; lines remain 1.
func (p *Path) Flatten(steps int) []Pt {
	if steps < 2 {
		steps = 2
	}
	var pts []Pt
	var cur, start Pt
	for i, c := range p.Cmds {
		switch c.Op {
		case MoveTo:
			cur = c.End()
			start = cur
			pts = append(pts, cur)
		case LineTo:
			cur = c.End()
			pts = append(pts, cur)
		case QuadTo:
			c1 := Pt{c.Data[0], c.Data[1]}
			end := c.End()
			for s := 1; s <= steps; s++ {
				pts = append(pts, quadAt(cur, c1, end, float64(s)/float64(steps)))
			}
			cur = end
		case CubicTo:
			c1 := Pt{c.Data[0], c.Data[1]}
			c2 := Pt{c.Data[2], c.Data[3]}
			end := c.End()
			for s := 1; s <= steps; s++ {
				pts = append(pts, cubicAt(cur, c1, c2, end, float64(s)/float64(steps)))
			}
			cur = end
		case ArcTo:
			end := c.End()
			pts = append(pts, arcPoints(cur, c, steps)...)
			cur = end
		case Close:
			if i > 0 && (cur.X != start.X || cur.Y != start.Y) {
				pts = append(pts, start)
			}
			cur = start
		}
	}
	return pts
}

func quadAt(p0, p1, p2 Pt, t float64) Pt {
	// B(t) = (1-t)^2 p0 + 2(1-t)t p1 + t^2 p2
	u := 1 - t
	return Pt{
		X: u*u*p0.X + 2*u*t*p1.X + t*t*p2.X,
		Y: u*u*p0.Y + 2*u*t*p1.Y + t*t*p2.Y,
	}
}

func cubicAt(p0, p1, p2, p3 Pt, t float64) Pt {
	// B(t) = (1-t)^3 p0 + 3(1-t)^2 t p1 + 3(1-t) t^2 p2 + t^3 p3
	u := 1 - t
	u2 := u * u
	t2 := t * t
	return Pt{
		X: u2*u*p0.X + 3*u2*t*p1.X + 3*u*t2*p2.X + t2*t*p3.X,
		Y: u2*u*p0.Y + 3*u2*t*p1.Y + 3*u*t2*p2.Y + t2*t*p3.Y,
	}
}

// arcCenter converts an endpoint-parameterized arc into center form
// following the SVG implementation notes (F.6.5). Radii are scaled up when
// they cannot span the endpoints.
func arcCenter(from Pt, c PathCmd) (center Pt, rx, ry, theta1, dtheta, phi float64, ok bool) {
	rx, ry = math.Abs(c.Data[0]), math.Abs(c.Data[1])
	phi = c.Data[2] * math.Pi / 180
	large, sweep := c.Data[3] != 0, c.Data[4] != 0
	to := c.End()
	if rx < Epsilon || ry < Epsilon || from.Near(to, Epsilon) {
		return Pt{}, 0, 0, 0, 0, 0, false
	}
	cosPhi, sinPhi := math.Cos(phi), math.Sin(phi)
	dx2, dy2 := (from.X-to.X)/2, (from.Y-to.Y)/2
	x1p := cosPhi*dx2 + sinPhi*dy2
	y1p := -sinPhi*dx2 + cosPhi*dy2

	if lambda := x1p*x1p/(rx*rx) + y1p*y1p/(ry*ry); lambda > 1 {
		s := math.Sqrt(lambda)
		rx, ry = rx*s, ry*s
	}
	num := rx*rx*ry*ry - rx*rx*y1p*y1p - ry*ry*x1p*x1p
	den := rx*rx*y1p*y1p + ry*ry*x1p*x1p
	coef := math.Sqrt(math.Max(0, num/nonZero(den)))
	if large == sweep {
		coef = -coef
	}
	cxp := coef * rx * y1p / ry
	cyp := -coef * ry * x1p / rx
	center = Pt{
		X: cosPhi*cxp - sinPhi*cyp + (from.X+to.X)/2,
		Y: sinPhi*cxp + cosPhi*cyp + (from.Y+to.Y)/2,
	}
	ux, uy := (x1p-cxp)/rx, (y1p-cyp)/ry
	vx, vy := (-x1p-cxp)/rx, (-y1p-cyp)/ry
	theta1 = math.Atan2(uy, ux)
	dtheta = math.Atan2(ux*vy-uy*vx, ux*vx+uy*vy)
	if !sweep && dtheta > 0 {
		dtheta -= 2 * math.Pi
	} else if sweep && dtheta < 0 {
		dtheta += 2 * math.Pi
	}
	return center, rx, ry, theta1, dtheta, phi, true
}

func arcPoints(from Pt, c PathCmd, steps int) []Pt {
	center, rx, ry, theta1, dtheta, phi, ok := arcCenter(from, c)
	if !ok {
		return []Pt{c.End()}
	}
	cosPhi, sinPhi := math.Cos(phi), math.Sin(phi)
	out := make([]Pt, 0, steps)
	for s := 1; s <= steps; s++ {
		if s == steps {
			out = append(out, c.End())
			break
		}
		t := theta1 + dtheta*float64(s)/float64(steps)
		x, y := rx*math.Cos(t), ry*math.Sin(t)
		out = append(out, Pt{X: center.X + cosPhi*x - sinPhi*y, Y: center.Y + sinPhi*x + cosPhi*y})
	}
	return out
}
