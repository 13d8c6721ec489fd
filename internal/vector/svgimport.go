/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"balloonstudio/internal/domain"
)

var (
	ErrNoSVGRoot = errors.New("no <svg> element found")
	ErrNoSVGPath = errors.New("no usable <path> found in SVG")
)

// ImportSVG reads an SVG document and turns its first path (or, failing that,
// its first rect) into a custom balloon outline. The viewBox comes from the
// root element, then its width/height, then the bounds of the path itself.
func ImportSVG(r io.Reader) (domain.CustomOutline, error) {
	dec := xml.NewDecoder(r)
	var (
		sawRoot bool
		vb      [4]float64
		hasVB   bool
		d       string
		rectD   string
	)
	for d == "" {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.CustomOutline{}, fmt.Errorf("parse svg: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "svg":
			if sawRoot {
				continue
			}
			sawRoot = true
			vb, hasVB = rootViewBox(se.Attr)
		case "path":
			d = strings.TrimSpace(attr(se.Attr, "d"))
		case "rect":
			x, y := attrFloat(se.Attr, "x"), attrFloat(se.Attr, "y")
			w, h := attrFloat(se.Attr, "width"), attrFloat(se.Attr, "height")
			if w > 0 && h > 0 && rectD == "" {
				rectD = fmt.Sprintf("M%g,%g h%g v%g h%g Z", x, y, w, h, -w)
			}
		}
	}
	if !sawRoot {
		return domain.CustomOutline{}, ErrNoSVGRoot
	}
	if d == "" {
		d = rectD
	}
	if d == "" {
		return domain.CustomOutline{}, ErrNoSVGPath
	}
	p, err := ParsePathData(d)
	if err != nil {
		return domain.CustomOutline{}, err
	}
	verts := PathVertices(p)
	if len(verts) < 3 {
		return domain.CustomOutline{}, fmt.Errorf("%w: fewer than 3 vertices", ErrNoSVGPath)
	}
	if !hasVB {
		b := p.Bounds()
		vb = [4]float64{b.X, b.Y, b.W, b.H}
	}
	return domain.CustomOutline{ViewBox: vb, Vertices: verts}, nil
}

func rootViewBox(attrs []xml.Attr) ([4]float64, bool) {
	if raw := attr(attrs, "viewBox"); raw != "" {
		parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' || r == '\n' })
		if len(parts) == 4 {
			var vb [4]float64
			ok := true
			for i, s := range parts {
				v, err := strconv.ParseFloat(s, 64)
				if err != nil {
					ok = false
					break
				}
				vb[i] = v
			}
			if ok && vb[2] > 0 && vb[3] > 0 {
				return vb, true
			}
		}
	}
	w, h := attrFloat(attrs, "width"), attrFloat(attrs, "height")
	if w > 0 && h > 0 {
		return [4]float64{0, 0, w, h}, true
	}
	return [4]float64{}, false
}

func attr(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// attrFloat parses a numeric attribute, ignoring a trailing "px".
func attrFloat(attrs []xml.Attr, name string) float64 {
	s := strings.TrimSuffix(strings.TrimSpace(attr(attrs, name)), "px")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// PathVertices converts the first subpath of p into editable vertices.
// Quadratic controls become the outgoing handle of the segment start; cubic
// controls become the outgoing and incoming handles. Arcs are sampled.
func PathVertices(p Path) []domain.Vertex {
	subs := p.Subpaths()
	if len(subs) == 0 {
		return nil
	}
	var (
		vs  []domain.Vertex
		cur Pt
	)
	dp := func(q Pt) *domain.Point { return &domain.Point{X: q.X, Y: q.Y} }
	add := func(q Pt) {
		vs = append(vs, domain.Vertex{X: q.X, Y: q.Y})
		cur = q
	}
	for _, c := range subs[0].Cmds {
		if len(vs) == 0 && c.Op != MoveTo {
			add(Pt{})
		}
		switch c.Op {
		case MoveTo, LineTo:
			add(c.End())
		case QuadTo:
			vs[len(vs)-1].HandleOut = dp(Pt{c.Data[0], c.Data[1]})
			add(c.End())
		case CubicTo:
			vs[len(vs)-1].HandleOut = dp(Pt{c.Data[0], c.Data[1]})
			add(c.End())
			vs[len(vs)-1].HandleIn = dp(Pt{c.Data[2], c.Data[3]})
		case ArcTo:
			for _, q := range arcPoints(cur, c, 8) {
				add(q)
			}
		}
	}
	// A path that returns to its start explicitly carries a duplicate vertex.
	if n := len(vs); n > 1 && (Pt{vs[n-1].X, vs[n-1].Y}).Near(Pt{vs[0].X, vs[0].Y}, 1e-6) {
		if vs[n-1].HandleIn != nil {
			vs[0].HandleIn = vs[n-1].HandleIn
		}
		vs = vs[:n-1]
	}
	return vs
}

// ParsePathData parses SVG path data. Supported commands are M L H V Q T C S
// A Z in absolute and relative form; H and V become lines, T and S get their
// reflected control points resolved.
func ParsePathData(d string) (Path, error) {
	sc := pathScanner{s: d}
	var (
		p                 Path
		cmd, prevCmd      byte
		cur, start, lastC Pt
	)
	for {
		sc.skipSep()
		if sc.done() {
			break
		}
		if ch := sc.s[sc.i]; isCommand(ch) {
			cmd = ch
			sc.i++
		} else if cmd == 0 || cmd == 'Z' || cmd == 'z' {
			return Path{}, fmt.Errorf("path data: unexpected %q at %d", ch, sc.i)
		}
		rel := cmd >= 'a'
		base := Pt{}
		if rel {
			base = cur
		}
		pt := func() (Pt, error) {
			x, err := sc.number()
			if err != nil {
				return Pt{}, err
			}
			y, err := sc.number()
			if err != nil {
				return Pt{}, err
			}
			return Pt{x, y}.Add(base), nil
		}

		var err error
		switch cmd {
		case 'M', 'm':
			var q Pt
			if q, err = pt(); err != nil {
				return Path{}, err
			}
			p.moveTo(q)
			cur, start = q, q
			// Further coordinate pairs are implicit lines.
			if rel {
				cmd = 'l'
			} else {
				cmd = 'L'
			}
		case 'L', 'l':
			var q Pt
			if q, err = pt(); err != nil {
				return Path{}, err
			}
			p.lineTo(q)
			cur = q
		case 'H', 'h':
			var x float64
			if x, err = sc.number(); err != nil {
				return Path{}, err
			}
			if rel {
				x += cur.X
			}
			cur = Pt{x, cur.Y}
			p.lineTo(cur)
		case 'V', 'v':
			var y float64
			if y, err = sc.number(); err != nil {
				return Path{}, err
			}
			if rel {
				y += cur.Y
			}
			cur = Pt{cur.X, y}
			p.lineTo(cur)
		case 'Q', 'q':
			var c1, q Pt
			if c1, err = pt(); err != nil {
				return Path{}, err
			}
			if q, err = pt(); err != nil {
				return Path{}, err
			}
			p.quadTo(c1, q)
			lastC, cur = c1, q
		case 'T', 't':
			c1 := cur
			if isAny(prevCmd, "QqTt") {
				c1 = cur.Mul(2).Sub(lastC)
			}
			var q Pt
			if q, err = pt(); err != nil {
				return Path{}, err
			}
			p.quadTo(c1, q)
			lastC, cur = c1, q
		case 'C', 'c':
			var c1, c2, q Pt
			if c1, err = pt(); err != nil {
				return Path{}, err
			}
			if c2, err = pt(); err != nil {
				return Path{}, err
			}
			if q, err = pt(); err != nil {
				return Path{}, err
			}
			p.cubicTo(c1, c2, q)
			lastC, cur = c2, q
		case 'S', 's':
			c1 := cur
			if isAny(prevCmd, "CcSs") {
				c1 = cur.Mul(2).Sub(lastC)
			}
			var c2, q Pt
			if c2, err = pt(); err != nil {
				return Path{}, err
			}
			if q, err = pt(); err != nil {
				return Path{}, err
			}
			p.cubicTo(c1, c2, q)
			lastC, cur = c2, q
		case 'A', 'a':
			var rx, ry, rot float64
			var large, sweep bool
			if rx, err = sc.number(); err != nil {
				return Path{}, err
			}
			if ry, err = sc.number(); err != nil {
				return Path{}, err
			}
			if rot, err = sc.number(); err != nil {
				return Path{}, err
			}
			if large, err = sc.flag(); err != nil {
				return Path{}, err
			}
			if sweep, err = sc.flag(); err != nil {
				return Path{}, err
			}
			var q Pt
			if q, err = pt(); err != nil {
				return Path{}, err
			}
			p.ArcTo(rx, ry, rot, large, sweep, q.X, q.Y)
			cur = q
		case 'Z', 'z':
			p.Close()
			cur = start
		}
		prevCmd = cmd
	}
	if len(p.Cmds) == 0 {
		return Path{}, ErrNoSVGPath
	}
	if p.Cmds[0].Op != MoveTo {
		return Path{}, fmt.Errorf("path data must start with a moveto")
	}
	return p, nil
}

func isCommand(ch byte) bool { return strings.IndexByte("MmLlHhVvQqTtCcSsAaZz", ch) >= 0 }

func isAny(ch byte, set string) bool { return ch != 0 && strings.IndexByte(set, ch) >= 0 }

type pathScanner struct {
	s string
	i int
}

func (sc *pathScanner) done() bool { return sc.i >= len(sc.s) }

func (sc *pathScanner) skipSep() {
	for !sc.done() {
		switch sc.s[sc.i] {
		case ' ', ',', '\t', '\n', '\r':
			sc.i++
		default:
			return
		}
	}
}

// number scans one float. Numbers may abut ("10-5" and "1.5.5" are two values each).
func (sc *pathScanner) number() (float64, error) {
	sc.skipSep()
	startAt := sc.i
	if !sc.done() && (sc.s[sc.i] == '-' || sc.s[sc.i] == '+') {
		sc.i++
	}
	digits, dot := 0, false
	for ; !sc.done(); sc.i++ {
		ch := sc.s[sc.i]
		if ch >= '0' && ch <= '9' {
			digits++
		} else if ch == '.' && !dot {
			dot = true
		} else {
			break
		}
	}
	if digits > 0 && !sc.done() && (sc.s[sc.i] == 'e' || sc.s[sc.i] == 'E') {
		j := sc.i + 1
		if j < len(sc.s) && (sc.s[j] == '-' || sc.s[j] == '+') {
			j++
		}
		if j < len(sc.s) && sc.s[j] >= '0' && sc.s[j] <= '9' {
			for j < len(sc.s) && sc.s[j] >= '0' && sc.s[j] <= '9' {
				j++
			}
			sc.i = j
		}
	}
	if digits == 0 {
		return 0, fmt.Errorf("path data: expected number at %d", startAt)
	}
	return strconv.ParseFloat(sc.s[startAt:sc.i], 64)
}

func (sc *pathScanner) flag() (bool, error) {
	sc.skipSep()
	if sc.done() || (sc.s[sc.i] != '0' && sc.s[sc.i] != '1') {
		return false, fmt.Errorf("path data: expected arc flag at %d", sc.i)
	}
	v := sc.s[sc.i] == '1'
	sc.i++
	return v, nil
}
