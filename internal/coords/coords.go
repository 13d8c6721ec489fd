/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package coords converts detector boxes between pixel, fractional and the
// normalized 0..1000 space used by every stored shape.
package coords

import (
	"fmt"
	"image"
	"math"

	"balloonstudio/internal/domain"
)

const (
	// DefaultPanelInset shrinks detected panels on every side, in pixels.
	DefaultPanelInset = 5.0
	// MinCommitSize is the smallest width or height a resize may commit.
	MinCommitSize = 20.0
)

// PixelBox is a rectangle in image pixels.
type PixelBox struct {
	X, Y, W, H float64
}

// Rect rounds the box to integer pixel bounds.
func (p PixelBox) Rect() image.Rectangle {
	x0, y0 := int(math.Round(p.X)), int(math.Round(p.Y))
	return image.Rect(x0, y0, int(math.Round(p.X+p.W)), int(math.Round(p.Y+p.H)))
}

// IsFractional reports whether a raw [ymin,xmin,ymax,xmax] box uses the
// 0..1 convention. It is decided per box, never per batch.
func IsFractional(raw [4]float64) bool {
	for _, v := range raw {
		if v >= 1 {
			return false
		}
	}
	return true
}

func checkDims(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: got %dx%d", domain.ErrMissingImageDimensions, w, h)
	}
	return nil
}

// ToNormalized converts a raw detector box to 1000-space. Fractional boxes
// scale directly; anything else is taken as pixels of a w x h image.
func ToNormalized(raw [4]float64, w, h int) (domain.Box, error) {
	if err := checkDims(w, h); err != nil {
		return domain.Box{}, err
	}
	if IsFractional(raw) {
		return order(domain.Box{
			YMin: raw[0] * domain.NormSpace,
			XMin: raw[1] * domain.NormSpace,
			YMax: raw[2] * domain.NormSpace,
			XMax: raw[3] * domain.NormSpace,
		}), nil
	}
	fw, fh := float64(w), float64(h)
	return order(domain.Box{
		YMin: raw[0] / fh * domain.NormSpace,
		XMin: raw[1] / fw * domain.NormSpace,
		YMax: raw[2] / fh * domain.NormSpace,
		XMax: raw[3] / fw * domain.NormSpace,
	}), nil
}

// PolygonToNormalized converts detector contour points given as [x, y]
// pairs. The convention follows the owning box, since a contour of a
// fractional box may still contain a coordinate of exactly 1.
func PolygonToNormalized(poly [][2]float64, fractional bool, w, h int) ([]domain.Point, error) {
	if err := checkDims(w, h); err != nil {
		return nil, err
	}
	sx, sy := domain.NormSpace, domain.NormSpace
	if !fractional {
		sx, sy = domain.NormSpace/float64(w), domain.NormSpace/float64(h)
	}
	out := make([]domain.Point, len(poly))
	for i, p := range poly {
		out[i] = domain.Point{X: p[0] * sx, Y: p[1] * sy}
	}
	return out, nil
}

// ToPixels converts a normalized box to pixels of a w x h image.
func ToPixels(b domain.Box, w, h int) (PixelBox, error) {
	if err := checkDims(w, h); err != nil {
		return PixelBox{}, err
	}
	sx, sy := float64(w)/domain.NormSpace, float64(h)/domain.NormSpace
	return PixelBox{X: b.XMin * sx, Y: b.YMin * sy, W: b.Width() * sx, H: b.Height() * sy}, nil
}

// FromPixels is the inverse of ToPixels.
func FromPixels(p PixelBox, w, h int) (domain.Box, error) {
	if err := checkDims(w, h); err != nil {
		return domain.Box{}, err
	}
	sx, sy := domain.NormSpace/float64(w), domain.NormSpace/float64(h)
	return domain.Box{
		YMin: p.Y * sy,
		XMin: p.X * sx,
		YMax: (p.Y + p.H) * sy,
		XMax: (p.X + p.W) * sx,
	}, nil
}

// PanelBox normalizes a detected panel after shrinking it by inset pixels on
// every side. The result keeps x,y >= 0 and w,h >= 1 and stays on the image.
func PanelBox(raw [4]float64, w, h int, inset float64) (domain.Box, error) {
	if err := checkDims(w, h); err != nil {
		return domain.Box{}, err
	}
	fw, fh := float64(w), float64(h)
	if IsFractional(raw) {
		raw = [4]float64{raw[0] * fh, raw[1] * fw, raw[2] * fh, raw[3] * fw}
	}
	px := PixelBox{X: raw[1], Y: raw[0], W: raw[3] - raw[1], H: raw[2] - raw[0]}
	if px.W <= 0 || px.H <= 0 {
		return domain.Box{}, fmt.Errorf("%w: panel %v", domain.ErrDegenerateGeometry, raw)
	}

	px.X, px.Y = px.X+inset, px.Y+inset
	px.W, px.H = px.W-2*inset, px.H-2*inset

	px.X = math.Min(math.Max(px.X, 0), fw-1)
	px.Y = math.Min(math.Max(px.Y, 0), fh-1)
	px.W = math.Min(math.Max(px.W, 1), fw-px.X)
	px.H = math.Min(math.Max(px.H, 1), fh-px.Y)
	return FromPixels(px, w, h)
}

// LiveToNormalized converts interactive pixel geometry, including its scale,
// to integer 1000-space. This is the shape of an inpainting region.
func LiveToNormalized(l domain.Live, w, h int) (domain.Box, error) {
	if err := checkDims(w, h); err != nil {
		return domain.Box{}, err
	}
	lw, lh := l.EffectiveSize()
	sx, sy := domain.NormSpace/float64(w), domain.NormSpace/float64(h)
	return domain.Box{
		YMin: math.Round(l.Y * sy),
		XMin: math.Round(l.X * sx),
		YMax: math.Round((l.Y + lh) * sy),
		XMax: math.Round((l.X + lw) * sx),
	}, nil
}

// RoundBox rounds every coordinate to an integer.
func RoundBox(b domain.Box) domain.Box {
	return domain.Box{
		YMin: math.Round(b.YMin),
		XMin: math.Round(b.XMin),
		YMax: math.Round(b.YMax),
		XMax: math.Round(b.XMax),
	}
}

// ClampCommit enforces MinCommitSize and keeps the box inside 1000-space,
// shifting rather than shrinking where possible.
func ClampCommit(b domain.Box) domain.Box {
	b = order(b)
	if b.Width() < MinCommitSize {
		b.XMax = b.XMin + MinCommitSize
	}
	if b.Height() < MinCommitSize {
		b.YMax = b.YMin + MinCommitSize
	}
	b.XMin, b.XMax = shiftInto(b.XMin, b.XMax)
	b.YMin, b.YMax = shiftInto(b.YMin, b.YMax)
	return b
}

func shiftInto(lo, hi float64) (float64, float64) {
	if span := hi - lo; span >= domain.NormSpace {
		return 0, domain.NormSpace
	}
	if lo < 0 {
		hi -= lo
		lo = 0
	}
	if hi > domain.NormSpace {
		lo -= hi - domain.NormSpace
		hi = domain.NormSpace
	}
	return lo, hi
}

func order(b domain.Box) domain.Box {
	if b.YMin > b.YMax {
		b.YMin, b.YMax = b.YMax, b.YMin
	}
	if b.XMin > b.XMax {
		b.XMin, b.XMax = b.XMax, b.XMin
	}
	return b
}
