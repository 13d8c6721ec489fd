/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"balloonstudio/internal/coords"
	"balloonstudio/internal/domain"
	"balloonstudio/internal/editor"
	applog "balloonstudio/internal/log"
)

func trimID(s string) string { return strings.TrimSpace(s) }

// hasConverted reports whether some mask has its generated balloon.
func (e *Engine) hasConverted() bool {
	for _, m := range e.ed.Balloons() {
		if m.Kind != domain.KindMask {
			continue
		}
		if _, ok := e.ed.Balloon(editor.BalloonIDFor(m.ID)); ok {
			return true
		}
	}
	return false
}

// RunMaskDetection replaces the page's masks with a fresh detector batch and
// moves to the mask state. Non-mask shapes are kept. An empty batch leaves
// everything unchanged and returns ErrEmptyDetectionResult.
func (e *Engine) RunMaskDetection(ctx context.Context) (int, error) {
	const op = "detect masks"
	l := applog.WithOperation(e.log, "detect_masks")
	r, err := e.begin(op, true)
	if err != nil {
		return 0, err
	}
	dets, err := e.svc.DetectBalloons(ctx, r.imageRef)
	if err != nil {
		l.ErrorContext(ctx, "detector failed", slog.Any("err", err))
		return 0, serviceErr(op, err)
	}

	stamp := e.now().UnixMilli()
	var masks []domain.Balloon
	for i, d := range dets {
		box, err := coords.ToNormalized(d.Box, r.w, r.h)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		if !box.Valid() {
			l.WarnContext(ctx, "skipping detection", slog.Int("index", i), slog.Any("err", domain.ErrDegenerateGeometry))
			continue
		}
		var contour []domain.Point
		if len(d.Polygon) > 0 {
			contour, _ = coords.PolygonToNormalized(d.Polygon, coords.IsFractional(d.Box), r.w, r.h)
		}
		id := fmt.Sprintf("mask-%d-%d", stamp, i)
		masks = append(masks, editor.NewMask(id, box, d.Text, contour))
	}
	if len(masks) == 0 {
		l.InfoContext(ctx, "detector found nothing", slog.Int("raw", len(dets)))
		return 0, fmt.Errorf("%s: %w", op, domain.ErrEmptyDetectionResult)
	}

	err = e.apply(op, r, func() error {
		list := make([]domain.Balloon, 0, len(masks))
		for _, b := range e.ed.Balloons() {
			if b.Kind != domain.KindMask {
				list = append(list, b)
			}
		}
		list = append(list, masks...)
		if err := e.ed.SetBalloons(LabelDetectMasks, list); err != nil {
			return err
		}
		e.setState(domain.StateMask)
		e.ed.SetMasksVisible(true)
		return e.ed.Select(masks[0].ID)
	})
	if err != nil {
		return 0, err
	}
	l.InfoContext(ctx, "masks detected", slog.Int("count", len(masks)))
	return len(masks), nil
}

// ConfirmMasks is a local transition to confirmed. It needs at least one mask
// already converted to its balloon, so run ConvertMasksToBalloons first. It
// clears the selection.
func (e *Engine) ConfirmMasks() error {
	if !e.HasMasks() {
		return fmt.Errorf("confirm masks: no masks: %w", domain.ErrInvalidTransition)
	}
	e.applyMu.Lock()
	defer e.applyMu.Unlock()
	if e.isLoading() {
		return fmt.Errorf("confirm masks: page still loading: %w", domain.ErrInvalidTransition)
	}
	if !e.hasConverted() {
		return fmt.Errorf("confirm masks: no converted balloons: %w", domain.ErrInvalidTransition)
	}
	e.setState(domain.StateConfirmed)
	return e.ed.Select("")
}

// ConvertMasksToBalloons adds a balloon next to every mask that has none yet.
// Masks stay in the list for inpainting. It returns how many were created.
func (e *Engine) ConvertMasksToBalloons() (int, error) {
	const op = "convert masks"
	if !e.HasMasks() {
		return 0, fmt.Errorf("%s: no masks: %w", op, domain.ErrInvalidTransition)
	}
	e.applyMu.Lock()
	defer e.applyMu.Unlock()
	if e.isLoading() {
		return 0, fmt.Errorf("%s: page still loading: %w", op, domain.ErrInvalidTransition)
	}

	cur := e.ed.Balloons()
	have := make(map[string]bool, len(cur))
	for _, b := range cur {
		have[trimID(b.ID)] = true
	}
	list := make([]domain.Balloon, 0, 2*len(cur))
	n := 0
	for _, b := range cur {
		list = append(list, b)
		if b.Kind != domain.KindMask {
			continue
		}
		id := editor.BalloonIDFor(b.ID)
		if have[id] {
			e.log.Debug("mask already converted", slog.String("mask", b.ID))
			continue
		}
		list = append(list, editor.ConvertMask(b))
		have[id] = true
		n++
	}
	if n == 0 {
		return 0, nil
	}
	if err := e.ed.SetBalloons(LabelConvertMasks, list); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	e.log.Info("masks converted", slog.Int("count", n))
	return n, nil
}

// RunTextRecognition sends every balloon-kind shape to OCR and applies the
// returned text by trimmed id. Shapes without a match keep their text. It
// returns the number of balloons updated.
func (e *Engine) RunTextRecognition(ctx context.Context) (int, error) {
	const op = "recognize text"
	l := applog.WithOperation(e.log, "recognize_text")
	r, err := e.begin(op, true)
	if err != nil {
		return 0, err
	}
	var items []TextRequest
	for _, b := range e.ed.Balloons() {
		if b.Kind != domain.KindBalloon {
			continue
		}
		px, err := coords.ToPixels(b.Box, r.w, r.h)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		items = append(items, TextRequest{ID: trimID(b.ID), Box: px})
	}
	if len(items) == 0 {
		return 0, fmt.Errorf("%s: no balloons, convert masks first: %w", op, domain.ErrInvalidTransition)
	}

	results, err := e.svc.RecognizeText(ctx, r.imageRef, items)
	if err != nil {
		l.ErrorContext(ctx, "ocr failed", slog.Any("err", err))
		return 0, serviceErr(op, err)
	}
	texts := make(map[string]string, len(results))
	for _, res := range results {
		texts[trimID(res.ID)] = res.Text
	}

	matched := 0
	err = e.apply(op, r, func() error {
		list := e.ed.Balloons()
		used := make(map[string]bool, len(texts))
		for i := range list {
			b := &list[i]
			if b.Kind != domain.KindBalloon {
				continue
			}
			id := trimID(b.ID)
			text, ok := texts[id]
			if !ok {
				l.WarnContext(ctx, "balloon left unchanged", slog.String("id", b.ID), slog.Any("err", domain.ErrUnmatchedCorrelationID))
				continue
			}
			used[id] = true
			b.Text = text
			matched++
		}
		for id := range texts {
			if !used[id] {
				l.WarnContext(ctx, "result matches no balloon", slog.String("id", id), slog.Any("err", domain.ErrUnmatchedCorrelationID))
			}
		}
		if matched == 0 {
			return nil
		}
		return e.ed.SetBalloons(LabelRecognizeText, list)
	})
	if err != nil {
		return 0, err
	}
	l.InfoContext(ctx, "text recognized", slog.Int("matched", matched), slog.Int("sent", len(items)))
	return matched, nil
}

// RunInpainting erases every current shape from the page image. On success
// the page points at the returned clean image and the view shows it; on
// failure nothing changes.
func (e *Engine) RunInpainting(ctx context.Context) (string, error) {
	const op = "inpaint"
	l := applog.WithOperation(e.log, "inpaint")
	r, err := e.begin(op, true)
	if err != nil {
		return "", err
	}
	var regions []EraseRegion
	for _, b := range e.ed.Balloons() {
		box, err := EraseBox(b, r.w, r.h)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		if !box.Valid() {
			l.WarnContext(ctx, "skipping region", slog.String("id", b.ID), slog.Any("err", domain.ErrDegenerateGeometry))
			continue
		}
		regions = append(regions, EraseRegion{ID: b.ID, Box: box})
	}
	if len(regions) == 0 {
		return "", fmt.Errorf("%s: nothing to erase: %w", op, domain.ErrInvalidTransition)
	}

	ref, err := e.svc.Inpaint(ctx, r.imageRef, regions)
	if err == nil && trimID(ref) == "" {
		err = errors.New("empty clean image reference")
	}
	if err != nil {
		l.ErrorContext(ctx, "inpainting failed", slog.Any("err", err))
		return "", serviceErr(op, err)
	}
	err = e.apply(op, r, func() error {
		e.ed.SetCleanImage(ref)
		return nil
	})
	if err != nil {
		return "", err
	}
	l.InfoContext(ctx, "page cleaned", slog.Int("regions", len(regions)), slog.String("ref", ref))
	return ref, nil
}

// EraseBox is the 1000-space region sent for b: the live transform with its
// scale when present, the stored box otherwise, rounded to integers.
func EraseBox(b domain.Balloon, w, h int) (domain.Box, error) {
	if b.Live != nil {
		return coords.LiveToNormalized(*b.Live, w, h)
	}
	return coords.RoundBox(b.Box), nil
}

// RunPanelDetection replaces the whole panel list with inset-adjusted
// detections. It does not touch the balloon pipeline state.
func (e *Engine) RunPanelDetection(ctx context.Context) (int, error) {
	const op = "detect panels"
	l := applog.WithOperation(e.log, "detect_panels")
	r, err := e.begin(op, true)
	if err != nil {
		return 0, err
	}
	dets, err := e.svc.DetectPanels(ctx, r.imageRef)
	if err != nil {
		l.ErrorContext(ctx, "panel detector failed", slog.Any("err", err))
		return 0, serviceErr(op, err)
	}

	stamp := e.now().UnixMilli()
	var panels []domain.Panel
	for i, d := range dets {
		box, err := coords.PanelBox(d.Box, r.w, r.h, e.inset)
		if errors.Is(err, domain.ErrDegenerateGeometry) {
			l.WarnContext(ctx, "skipping panel", slog.Int("index", i), slog.Any("err", err))
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		panels = append(panels, domain.Panel{
			ID:     fmt.Sprintf("panel-%d-%d", stamp, i),
			Order:  len(panels) + 1,
			Box:    box,
			Points: box.Corners(),
		})
	}
	if len(panels) == 0 {
		return 0, fmt.Errorf("%s: %w", op, domain.ErrEmptyDetectionResult)
	}
	err = e.apply(op, r, func() error {
		return e.ed.SetPanels(LabelDetectPanels, panels)
	})
	if err != nil {
		return 0, err
	}
	l.InfoContext(ctx, "panels detected", slog.Int("count", len(panels)))
	return len(panels), nil
}
