/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"balloonstudio/internal/coords"
	"balloonstudio/internal/domain"
	"balloonstudio/internal/textlayout"
	"balloonstudio/internal/vector"
)

// SVGOptions controls the page overlay.
type SVGOptions struct {
	// Width and Height are the output size in pixels. Zero uses the page
	// dimensions, and 1000 when those are unknown too.
	Width, Height int
	// ImageHref, when set, is drawn underneath as the page bitmap.
	ImageHref  string
	ShowPanels bool
	ShowMasks  bool
	// Fonts measures text for wrapping; nil uses the built-in face.
	Fonts textlayout.Provider
}

// WriteSVG draws every balloon outline with its lettering, and optionally
// the panel frames, as one SVG document. Geometry is emitted in normalized
// space under a scale transform; text is laid out in output pixels so glyphs
// are never stretched.
func WriteSVG(w io.Writer, page domain.Page, opt SVGOptions) error {
	pw, ph := outputSize(page, opt)
	sx, sy := float64(pw)/domain.NormSpace, float64(ph)/domain.NormSpace

	bw := bufio.NewWriter(w)
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(bw, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" xmlns:xlink=\"http://www.w3.org/1999/xlink\" version=\"1.1\" width=\"%d\" height=\"%d\" viewBox=\"0 0 %d %d\">\n", pw, ph, pw, ph)
	if opt.ImageHref != "" {
		wf("  <image x=\"0\" y=\"0\" width=\"%d\" height=\"%d\" preserveAspectRatio=\"none\" xlink:href=\"%s\"/>\n", pw, ph, escAttr(opt.ImageHref))
	}

	wf("  <g id=\"shapes\" transform=\"scale(%s %s)\">\n", num(sx), num(sy))
	if opt.ShowPanels {
		for _, p := range page.Panels {
			wf("    %s\n", panelElement(p, page.Width, page.Height))
		}
	}
	for _, b := range page.Balloons {
		if b.Kind == domain.KindMask && !opt.ShowMasks {
			continue
		}
		if !b.Box.Valid() {
			continue
		}
		writeBalloon(wf, b)
	}
	wf("  </g>\n")

	wf("  <g id=\"lettering\">\n")
	for _, b := range page.Balloons {
		if b.Kind == domain.KindMask || strings.TrimSpace(b.Text) == "" || !b.Box.Valid() {
			continue
		}
		writeText(wf, b, sx, sy, opt.Fonts)
	}
	wf("  </g>\n")
	wf("</svg>\n")

	if werr != nil {
		return fmt.Errorf("write svg: %w", werr)
	}
	return bw.Flush()
}

func outputSize(page domain.Page, opt SVGOptions) (int, int) {
	w, h := opt.Width, opt.Height
	if w <= 0 || h <= 0 {
		w, h = page.Width, page.Height
	}
	if w <= 0 || h <= 0 {
		w, h = int(domain.NormSpace), int(domain.NormSpace)
	}
	return w, h
}

func writeBalloon(wf func(string, ...any), b domain.Balloon) {
	out := vector.BuildOutline(b)
	opacity := b.Opacity
	if opacity <= 0 {
		opacity = 1
	}
	stroke := fmt.Sprintf("stroke=\"%s\" stroke-opacity=\"%s\" stroke-width=\"%s\" vector-effect=\"non-scaling-stroke\"",
		svgColor(b.BorderColor), num(alpha(b.BorderColor)), num(b.BorderWidth))
	if b.Style == domain.StyleWhisper {
		stroke += " stroke-dasharray=\"6 4\""
	}
	fill := fmt.Sprintf("fill=\"%s\" fill-opacity=\"%s\"", svgColor(b.Fill), num(alpha(b.Fill)))

	wf("    <g id=\"%s\" class=\"%s\" opacity=\"%s\">\n", escAttr(b.ID), b.Kind, num(opacity))
	wf("      <path d=\"%s\" %s %s/>\n", out.Path.SVG(), fill, stroke)
	for _, c := range out.Circles {
		wf("      <circle cx=\"%s\" cy=\"%s\" r=\"%s\" %s %s/>\n", num(c.C.X), num(c.C.Y), num(c.R), fill, stroke)
	}
	wf("    </g>\n")
}

func panelElement(p domain.Panel, w, h int) string {
	const style = `fill="none" stroke="#0080ff" stroke-width="2" vector-effect="non-scaling-stroke"`
	box := p.Box
	if p.Live != nil {
		if lb, err := coords.LiveToNormalized(*p.Live, w, h); err == nil {
			box = lb
		}
	} else if len(p.Points) >= 3 {
		pts := make([]string, len(p.Points))
		for i, pt := range p.Points {
			pts[i] = num(pt.X) + "," + num(pt.Y)
		}
		return fmt.Sprintf(`<polygon id="%s" points="%s" %s/>`, escAttr(p.ID), strings.Join(pts, " "), style)
	}
	return fmt.Sprintf(`<rect id="%s" x="%s" y="%s" width="%s" height="%s" %s/>`,
		escAttr(p.ID), num(box.XMin), num(box.YMin), num(box.Width()), num(box.Height()), style)
}

// writeText centers the wrapped lines inside the balloon box.
func writeText(wf func(string, ...any), b domain.Balloon, sx, sy float64, fonts textlayout.Provider) {
	st := textlayout.ForBalloon(b)
	x, y := b.Box.XMin*sx, b.Box.YMin*sy
	bw, bh := b.Box.Width()*sx, b.Box.Height()*sy
	tb := textlayout.Wrap(fonts, st.Font, b.Text, bw-2*st.Padding, st.Leading)

	cx := x + bw/2
	top := y + (bh-tb.Height)/2
	weight := st.Font.Weight
	if weight <= 0 {
		weight = 400
	}
	slant := "normal"
	if st.Font.Italic {
		slant = "italic"
	}
	wf("    <text x=\"%s\" font-family=\"%s, sans-serif\" font-size=\"%s\" font-weight=\"%d\" font-style=\"%s\" text-anchor=\"middle\" fill=\"#000000\">\n",
		num(cx), escAttr(st.Font.Family), num(st.Font.Size), weight, slant)
	for i, ln := range tb.Lines {
		baseline := top + tb.Ascent + float64(i)*tb.LineHeight
		wf("      <tspan x=\"%s\" y=\"%s\">%s</tspan>\n", num(cx), num(baseline), escText(ln.Text))
	}
	wf("    </text>\n")
}

func svgColor(c domain.Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func alpha(c domain.Color) float64 { return vector.FloatRound(float64(c.A)/255, 3) }

func num(v float64) string { return strconv.FormatFloat(vector.FloatRound(v, 3), 'f', -1, 64) }

var (
	attrEscaper = strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", "\n", " ", "\r", "")
	textEscaper = strings.NewReplacer(`&`, "&amp;", `<`, "&lt;", `>`, "&gt;")
)

func escAttr(s string) string { return attrEscaper.Replace(s) }
func escText(s string) string { return textEscaper.Replace(s) }
