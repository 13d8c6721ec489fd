/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crop cuts panel regions out of page bitmaps for export.
package crop

import (
	"context"
	"image"
	"image/color"
	"io"
	"log/slog"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"balloonstudio/internal/coords"
	"balloonstudio/internal/domain"
	applog "balloonstudio/internal/log"
)

// JPEGQuality is used for every exported crop.
const JPEGQuality = 95

// Crop is one exported panel image.
type Crop struct {
	PanelID string
	Order   int
	Image   *image.NRGBA
}

// ResolveRect returns the pixel rectangle a panel currently covers on a
// w x h image. Interactive live geometry wins over the stored box. The second
// result is false when the rectangle has no area.
func ResolveRect(p domain.Panel, w, h int) (image.Rectangle, bool) {
	if p.Live != nil {
		lw, lh := p.Live.EffectiveSize()
		x, y := int(math.Round(p.Live.X)), int(math.Round(p.Live.Y))
		r := image.Rect(x, y, x+int(math.Round(lw)), y+int(math.Round(lh)))
		return r, lw > 0 && lh > 0 && !r.Empty()
	}
	pb, err := coords.ToPixels(p.Box, w, h)
	if err != nil || pb.W <= 0 || pb.H <= 0 {
		return image.Rectangle{}, false
	}
	r := pb.Rect()
	return r, !r.Empty()
}

// SelectSource prefers the cleaned bitmap. Call it once per batch so every
// panel of one export comes from the same image.
func SelectSource(clean, original image.Image) image.Image {
	if clean != nil {
		return clean
	}
	return original
}

// CropPanels copies each panel's rectangle out of src into its own w x h
// image anchored at the origin. Pixels are copied, never resampled. Panels
// with no area are skipped and logged; the rest of the batch continues.
// Results keep the input panel order.
func CropPanels(ctx context.Context, src image.Image, panels []domain.Panel) ([]Crop, error) {
	l := applog.WithOperation(applog.WithComponent("crop"), "crop_panels")
	b := src.Bounds()
	slots := make([]*Crop, len(panels))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, p := range panels {
		r, ok := ResolveRect(p, b.Dx(), b.Dy())
		if !ok {
			l.Warn("skipping panel", slog.String("panel", p.ID), slog.Any("err", domain.ErrDegenerateGeometry))
			continue
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			slots[i] = &Crop{PanelID: p.ID, Order: p.Order, Image: copyRegion(src, r)}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make([]Crop, 0, len(panels))
	for _, c := range slots {
		if c != nil {
			out = append(out, *c)
		}
	}
	l.Debug("cropped panels", slog.Int("requested", len(panels)), slog.Int("produced", len(out)))
	return out, nil
}

// copyRegion copies r (relative to the image origin) into a new buffer of
// exactly r's size. Parts of r outside the source stay transparent.
func copyRegion(src image.Image, r image.Rectangle) *image.NRGBA {
	abs := r.Add(src.Bounds().Min)
	cut := imaging.Crop(src, abs)
	if cut.Bounds().Dx() == r.Dx() && cut.Bounds().Dy() == r.Dy() {
		return cut
	}
	dst := imaging.New(r.Dx(), r.Dy(), color.Transparent)
	off := abs.Intersect(src.Bounds()).Min.Sub(abs.Min)
	return imaging.Paste(dst, cut, off)
}

// Encode writes img as JPEG at JPEGQuality.
func Encode(w io.Writer, img image.Image) error { return EncodeQuality(w, img, JPEGQuality) }

// EncodeQuality writes img as JPEG; quality outside 1..100 means JPEGQuality.
func EncodeQuality(w io.Writer, img image.Image, quality int) error {
	if quality < 1 || quality > 100 {
		quality = JPEGQuality
	}
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
}
