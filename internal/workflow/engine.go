/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package workflow sequences the per-page pipeline: mask detection, mask
// confirmation, balloon conversion, text recognition, inpainting and panel
// detection. Responses are applied through the editor only while the page
// that issued the request is still active.
package workflow

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"balloonstudio/internal/coords"
	"balloonstudio/internal/domain"
	"balloonstudio/internal/editor"
	applog "balloonstudio/internal/log"
)

// History labels for pipeline bulk replacements.
const (
	LabelDetectMasks   = "Detect Masks"
	LabelConvertMasks  = "Convert Masks"
	LabelRecognizeText = "Recognize Text"
	LabelDetectPanels  = "Detect Panels"
)

// Options tune an Engine.
type Options struct {
	// PanelInset shrinks detected panels in pixels. Zero selects
	// coords.DefaultPanelInset; a negative value disables the inset.
	PanelInset float64
	Now        func() time.Time
}

// Engine is the idle -> mask -> confirmed state machine of the active page.
type Engine struct {
	svc AIService
	ed  *editor.Editor

	// applyMu serializes response application against page switches. mu
	// guards the fields below and is never held while calling the editor.
	applyMu sync.Mutex
	mu      sync.Mutex
	state   domain.WorkflowState
	active  string
	loading bool
	// gen counts page loads; a response only applies to the load it started under.
	gen uint64

	inset float64
	now   func() time.Time
	log   *slog.Logger
}

func New(svc AIService, ed *editor.Editor, opts Options) *Engine {
	inset := opts.PanelInset
	switch {
	case inset == 0:
		inset = coords.DefaultPanelInset
	case inset < 0:
		inset = 0
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		svc:   svc,
		ed:    ed,
		state: domain.StateIdle,
		inset: inset,
		now:   now,
		log:   applog.WithComponent("workflow"),
	}
}

// BeginPageLoad switches the active page. The state drops to idle at once and
// stays there until CompletePageLoad, so in-flight responses for the previous
// page are discarded and stale shapes cannot advance the state.
func (e *Engine) BeginPageLoad(pageID string) {
	e.applyMu.Lock()
	defer e.applyMu.Unlock()
	e.mu.Lock()
	prev := e.active
	e.active, e.state, e.loading = pageID, domain.StateIdle, true
	e.gen++
	e.mu.Unlock()
	e.log.Info("page switch", slog.String("from", prev), slog.String("to", pageID))
}

// CompletePageLoad hands the fetched page to the editor and derives the
// state from its shapes. A page that is no longer active is ignored.
func (e *Engine) CompletePageLoad(page domain.Page) error {
	e.applyMu.Lock()
	defer e.applyMu.Unlock()
	if !e.isActive(page.ID) {
		e.log.Info("discarding late page load", slog.String("page", page.ID))
		return fmt.Errorf("load page %q: %w", page.ID, domain.ErrStaleResponse)
	}
	e.ed.Load(page)
	st := deriveState(page.Balloons)
	e.mu.Lock()
	e.loading, e.state = false, st
	e.mu.Unlock()
	e.log.Debug("page ready", slog.String("page", page.ID), slog.String("state", string(st)))
	return nil
}

// deriveState picks the furthest state the loaded shapes justify.
func deriveState(list []domain.Balloon) domain.WorkflowState {
	st := domain.StateIdle
	for _, b := range list {
		switch b.Kind {
		case domain.KindBalloon:
			return domain.StateConfirmed
		case domain.KindMask:
			st = domain.StateMask
		}
	}
	return st
}

func (e *Engine) State() domain.WorkflowState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// ActivePage returns the active page id and whether it is still loading.
func (e *Engine) ActivePage() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active, e.loading
}

func (e *Engine) HasMasks() bool    { return e.any(func(b domain.Balloon) bool { return b.Kind == domain.KindMask }) }
func (e *Engine) HasBalloons() bool { return e.any(func(b domain.Balloon) bool { return b.Kind == domain.KindBalloon }) }

// HasRecognizedText reports whether any balloon carries non-blank text.
func (e *Engine) HasRecognizedText() bool {
	return e.any(func(b domain.Balloon) bool { return b.Kind == domain.KindBalloon && strings.TrimSpace(b.Text) != "" })
}

func (e *Engine) HasPanels() bool { return len(e.ed.Panels()) > 0 }

func (e *Engine) any(pred func(domain.Balloon) bool) bool {
	for _, b := range e.ed.Balloons() {
		if pred(b) {
			return true
		}
	}
	return false
}

func (e *Engine) setState(s domain.WorkflowState) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) isActive(pageID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active == pageID
}

func (e *Engine) isLoading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}

// current reports whether r still belongs to the finished load of the page
// the editor holds.
func (e *Engine) current(r request) bool {
	e.mu.Lock()
	ok := e.gen == r.gen && !e.loading && e.active == r.pageID
	e.mu.Unlock()
	return ok && e.ed.PageID() == r.pageID
}

// request captures what an external call needs before it suspends.
type request struct {
	pageID   string
	gen      uint64
	imageRef string
	w, h     int
}

// begin snapshots the active page for an external call. needDims rejects
// the call up front when the image size is still unknown.
func (e *Engine) begin(op string, needDims bool) (request, error) {
	e.mu.Lock()
	pageID, gen, loading := e.active, e.gen, e.loading
	e.mu.Unlock()
	if loading {
		return request{}, fmt.Errorf("%s: page %q still loading: %w", op, pageID, domain.ErrInvalidTransition)
	}
	page := e.ed.Page()
	r := request{pageID: pageID, gen: gen, imageRef: page.ImageRef, w: page.Width, h: page.Height}
	if needDims && (r.w <= 0 || r.h <= 0) {
		return request{}, fmt.Errorf("%s: %w", op, domain.ErrMissingImageDimensions)
	}
	return r, nil
}

// apply runs fn only if the load r started under is still current and
// finished, serialized against page switches. Returning to the same page id
// starts a new load, so an older response is discarded too.
func (e *Engine) apply(op string, r request, fn func() error) error {
	e.applyMu.Lock()
	defer e.applyMu.Unlock()
	if !e.current(r) {
		e.log.Info("discarding stale response", slog.String("op", op), slog.String("page", r.pageID))
		return fmt.Errorf("%s: %w", op, domain.ErrStaleResponse)
	}
	return fn()
}

func serviceErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrExternalService, err)
}
