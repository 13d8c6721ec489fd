/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

// Commit helpers for pointer interactions. The caller previews a drag however
// it likes and calls one of these on pointer-up; each records one entry.

import (
	"fmt"
	"log/slog"

	"balloonstudio/internal/coords"
	"balloonstudio/internal/domain"
	"balloonstudio/internal/vector"
)

// MoveBalloon translates a balloon by dx, dy in normalized units. With
// snapping enabled the box aligns to nearby panels and balloons; the guides
// that fired are returned for display. The tail keeps pointing at its target.
func (e *Editor) MoveBalloon(id string, dx, dy float64) ([]vector.Guide, error) {
	var guides []vector.Guide
	err := e.updateBalloon("Move Balloon", id, id, func(b *domain.Balloon, p *domain.Page) error {
		moved := b.Box.Translate(dx, dy)
		if e.snap > 0 {
			var r vector.Rect
			r, guides = vector.SnapRect(vector.RectFromBox(moved), anchors(p, id), e.snap)
			moved = r.Box()
		}
		b.Box = coords.ClampCommit(moved)
		b.Live = nil
		return nil
	})
	return guides, err
}

// ResizeBalloon commits a new box, enforcing the minimum commit size.
func (e *Editor) ResizeBalloon(id string, box domain.Box) error {
	return e.updateBalloon("Resize Balloon", id, id, func(b *domain.Balloon, _ *domain.Page) error {
		b.Box = coords.ClampCommit(box)
		b.Live = nil
		return nil
	})
}

// AdjustTail moves the tail tip. A nil target removes the tail together with
// its control point.
func (e *Editor) AdjustTail(id string, target *domain.Point) error {
	return e.updateBalloon("Adjust Tail", id, id, func(b *domain.Balloon, _ *domain.Page) error {
		if target == nil {
			b.TailTarget, b.TailControl = nil, nil
			return nil
		}
		t := *target
		b.TailTarget = &t
		if b.TailWidth <= 0 {
			b.TailWidth = domain.DefaultTailWidth
		}
		return nil
	})
}

// CurveTail sets the tail's bezier control point. A nil control restores the
// default midpoint curve.
func (e *Editor) CurveTail(id string, control *domain.Point) error {
	return e.updateBalloon("Curve Tail", id, id, func(b *domain.Balloon, _ *domain.Page) error {
		if b.TailTarget == nil {
			return fmt.Errorf("curve tail %q: %w", id, ErrNoTail)
		}
		if control == nil {
			b.TailControl = nil
			return nil
		}
		c := *control
		b.TailControl = &c
		return nil
	})
}

// AddTailToSelected attaches a default tail below the selected balloon.
func (e *Editor) AddTailToSelected() error {
	id := e.Selected()
	b, ok := e.Balloon(id)
	if !ok {
		return fmt.Errorf("add tail: %w", domain.ErrNotFound)
	}
	c := b.Box.Center()
	return e.updateBalloon("Add Tail", id, "", func(b *domain.Balloon, _ *domain.Page) error {
		b.TailTarget = &domain.Point{X: c.X + 50, Y: b.Box.YMax + 100}
		b.TailControl = nil
		if b.TailWidth <= 0 {
			b.TailWidth = domain.DefaultTailWidth
		}
		return nil
	})
}

// MovePanel translates a panel and its polygon in normalized units. Any live
// pixel transform is shifted by the same amount so crops follow the move.
func (e *Editor) MovePanel(id string, dx, dy float64) ([]vector.Guide, error) {
	var guides []vector.Guide
	err := e.updatePanel("Move Panel", id, id, func(pn *domain.Panel, p *domain.Page) error {
		moved := pn.Box.Translate(dx, dy)
		if e.snap > 0 {
			var r vector.Rect
			r, guides = vector.SnapRect(vector.RectFromBox(moved), anchors(p, id), e.snap)
			moved = r.Box()
		}
		moved = coords.ClampCommit(moved)
		ddx, ddy := moved.XMin-pn.Box.XMin, moved.YMin-pn.Box.YMin
		pn.Box = moved
		for i := range pn.Points {
			pn.Points[i].X += ddx
			pn.Points[i].Y += ddy
		}
		if pn.Live != nil && p.Width > 0 && p.Height > 0 {
			pn.Live.X += ddx * float64(p.Width) / domain.NormSpace
			pn.Live.Y += ddy * float64(p.Height) / domain.NormSpace
		}
		return nil
	})
	return guides, err
}

// ResizePanel commits an interactive pixel transform. The stored box follows
// the transform when the page dimensions are known; crops always prefer live.
func (e *Editor) ResizePanel(id string, live domain.Live) error {
	if w, h := live.EffectiveSize(); w <= 0 || h <= 0 {
		return fmt.Errorf("resize panel %q: %w", id, domain.ErrDegenerateGeometry)
	}
	return e.updatePanel("Resize Panel", id, id, func(pn *domain.Panel, p *domain.Page) error {
		l := live
		pn.Live = &l
		box, err := coords.LiveToNormalized(l, p.Width, p.Height)
		if err != nil {
			// Dimensions not known yet; the live transform alone drives crops.
			e.log.Debug("panel box left unchanged", slog.String("panel", id), slog.Any("err", err))
			return nil
		}
		pn.Box = box
		pn.Points = box.Corners()
		return nil
	})
}

// anchors collects every other shape's rect for snapping.
func anchors(p *domain.Page, skip string) []vector.Rect {
	out := make([]vector.Rect, 0, len(p.Panels)+len(p.Balloons))
	for _, pn := range p.Panels {
		if pn.ID != skip {
			out = append(out, vector.RectFromBox(pn.Box))
		}
	}
	for _, b := range p.Balloons {
		if b.ID != skip && b.Kind != domain.KindMask {
			out = append(out, vector.RectFromBox(b.Box))
		}
	}
	return out
}
