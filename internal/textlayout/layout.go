/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout measures and wraps balloon text and picks font sizes.
// All measurement sits behind a Provider so tests run on the fixed-width
// basicfont face and exports can use real OpenType fonts.
package textlayout

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// FontSpec describes a requested font.
type FontSpec struct {
	Family string
	Size   float64 // px
	Weight int     // 100..900
	Italic bool
}

// Metrics are line metrics in pixels at the requested size.
type Metrics struct {
	Ascent, Descent, LineGap float64
}

// LineHeight is ascent plus descent plus gap.
func (m Metrics) LineHeight() float64 { return m.Ascent + m.Descent + m.LineGap }

// Face is a resolved font. Scale converts the face's native advances to the
// requested size for providers that only have one bitmap size.
type Face struct {
	font.Face
	Metrics Metrics
	Scale   float64
}

// Advance measures s in pixels.
func (f Face) Advance(s string) float64 {
	d := &font.Drawer{Face: f.Face}
	return fixedToFloat(d.MeasureString(s)) * f.Scale
}

// Provider maps a FontSpec to a concrete face.
type Provider interface {
	Resolve(FontSpec) Face
}

// BasicProvider uses x/image/basicfont Face7x13 scaled to the requested size.
// It is deterministic and needs no font files.
type BasicProvider struct{}

const basicNativeSize = 13.0

func (BasicProvider) Resolve(spec FontSpec) Face {
	f := basicfont.Face7x13
	scale := 1.0
	if spec.Size > 0 {
		scale = spec.Size / basicNativeSize
	}
	m := f.Metrics()
	asc, desc := float64(m.Ascent.Round()), float64(m.Descent.Round())
	return Face{
		Face:  f,
		Scale: scale,
		Metrics: Metrics{
			Ascent:  asc * scale,
			Descent: desc * scale,
			LineGap: (float64(m.Height.Round()) - asc - desc) * scale,
		},
	}
}

// Line is one wrapped line.
type Line struct {
	Text  string
	Width float64
}

// TextBox is the result of wrapping text into a width.
type TextBox struct {
	Lines      []Line
	Width      float64
	Height     float64
	LineHeight float64
	Ascent     float64
}

// Wrap breaks text on spaces and newlines so no line exceeds maxWidth unless
// a single word is wider. maxWidth <= 0 disables wrapping. Leading adds extra
// space between lines.
func Wrap(p Provider, spec FontSpec, text string, maxWidth, leading float64) TextBox {
	if p == nil {
		p = BasicProvider{}
	}
	face := p.Resolve(spec)
	lh := face.Metrics.LineHeight() + leading
	box := TextBox{LineHeight: lh, Ascent: face.Metrics.Ascent}
	space := face.Advance(" ")

	add := func(words []string, width float64) {
		box.Lines = append(box.Lines, Line{Text: strings.Join(words, " "), Width: width})
		box.Width = max(box.Width, width)
	}
	for _, para := range strings.Split(text, "\n") {
		var (
			cur   []string
			width float64
		)
		for _, w := range strings.Fields(para) {
			ww := face.Advance(w)
			if len(cur) > 0 && maxWidth > 0 && width+space+ww > maxWidth {
				add(cur, width)
				cur, width = nil, 0
			}
			if len(cur) > 0 {
				width += space
			}
			cur = append(cur, w)
			width += ww
		}
		add(cur, width)
	}
	box.Height = float64(len(box.Lines)) * lh
	return box
}

// Measure returns the single-line width and line height of text.
func Measure(p Provider, spec FontSpec, text string) (w, h float64) {
	if p == nil {
		p = BasicProvider{}
	}
	face := p.Resolve(spec)
	return face.Advance(text), face.Metrics.Ascent + face.Metrics.Descent
}

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }
