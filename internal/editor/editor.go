/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor owns the active page document and is the single mutation
// entry point for its balloon and panel lists. Every committed change goes
// through the bounded undo history as exactly one entry.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"balloonstudio/internal/domain"
	applog "balloonstudio/internal/log"
	"balloonstudio/internal/undo"
)

var (
	ErrDuplicateID = errors.New("duplicate shape id")
	ErrNoTail      = errors.New("balloon has no tail")
)

// Document is the editable state of the active page plus its view toggles.
type Document struct {
	Page domain.Page
	// ShowOriginal displays the original bitmap instead of the cleaned one.
	ShowOriginal bool
	MasksVisible bool
	Selected     string
}

func (d Document) clone() Document {
	c := d
	c.Page = d.Page.Clone()
	return c
}

// ChangeKind tells subscribers what happened.
type ChangeKind string

const (
	ChangeLoad   ChangeKind = "load"
	ChangeEdit   ChangeKind = "edit"
	ChangeUndo   ChangeKind = "undo"
	ChangeRedo   ChangeKind = "redo"
	ChangeView   ChangeKind = "view"
	ChangeSelect ChangeKind = "select"
)

// Change is delivered after the editor lock has been released, so handlers
// may read from the editor.
type Change struct {
	Kind  ChangeKind
	Label string
}

// Options configure an Editor.
type Options struct {
	History undo.Config
	// SnapThreshold enables edge and center snapping for MoveBalloon and
	// MovePanel, in normalized units. Zero disables snapping.
	SnapThreshold float64
	Now           func() time.Time
}

type Editor struct {
	mu      sync.Mutex
	doc     Document
	dirty   bool
	history *undo.Manager
	snap    float64
	now     func() time.Time
	log     *slog.Logger

	subMu  sync.Mutex
	subs   map[int]func(Change)
	nextID int
}

func New(opts Options) *Editor {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if opts.History.Now == nil {
		opts.History.Now = now
	}
	return &Editor{
		doc:     Document{MasksVisible: true},
		history: undo.NewManager(opts.History),
		snap:    opts.SnapThreshold,
		now:     now,
		log:     applog.WithComponent("editor"),
		subs:    make(map[int]func(Change)),
	}
}

// Load replaces the document with page and drops history and selection.
func (e *Editor) Load(page domain.Page) {
	e.mu.Lock()
	e.doc = Document{Page: page.Clone(), MasksVisible: true}
	e.dirty = false
	e.history.Clear()
	e.mu.Unlock()
	e.log.Debug("page loaded", slog.String("page", page.ID), slog.Int("balloons", len(page.Balloons)), slog.Int("panels", len(page.Panels)))
	e.emit(Change{Kind: ChangeLoad, Label: page.ID})
}

// Document returns a deep copy of the current state.
func (e *Editor) Document() Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.clone()
}

// Page returns a deep copy of the active page.
func (e *Editor) Page() domain.Page {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Page.Clone()
}

func (e *Editor) PageID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Page.ID
}

// Dimensions returns the natural pixel size of the page image.
func (e *Editor) Dimensions() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Page.Width, e.doc.Page.Height
}

// SetDimensions records the natural image size once the bitmap is decoded.
func (e *Editor) SetDimensions(w, h int) {
	e.mu.Lock()
	e.doc.Page.Width, e.doc.Page.Height = w, h
	e.mu.Unlock()
	e.emit(Change{Kind: ChangeView, Label: "Dimensions"})
}

// Dirty reports unsaved shape changes since the last Load or MarkSaved.
func (e *Editor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

func (e *Editor) MarkSaved() {
	e.mu.Lock()
	e.dirty = false
	e.mu.Unlock()
}

// Select marks a shape as selected. An empty id clears the selection.
func (e *Editor) Select(id string) error {
	e.mu.Lock()
	if id != "" && !e.hasShapeLocked(id) {
		e.mu.Unlock()
		return fmt.Errorf("select %q: %w", id, domain.ErrNotFound)
	}
	e.doc.Selected = id
	e.mu.Unlock()
	e.emit(Change{Kind: ChangeSelect, Label: id})
	return nil
}

func (e *Editor) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Selected
}

func (e *Editor) SetMasksVisible(v bool) {
	e.mu.Lock()
	e.doc.MasksVisible = v
	e.mu.Unlock()
	e.emit(Change{Kind: ChangeView, Label: "Mask Layer"})
}

func (e *Editor) MasksVisible() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.MasksVisible
}

func (e *Editor) SetShowOriginal(v bool) {
	e.mu.Lock()
	e.doc.ShowOriginal = v
	e.mu.Unlock()
	e.emit(Change{Kind: ChangeView, Label: "Show Original"})
}

func (e *Editor) ShowOriginal() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.ShowOriginal
}

// SetCleanImage points the page at a cleaned bitmap and switches the view
// back to it in one step.
func (e *Editor) SetCleanImage(ref string) {
	e.mu.Lock()
	e.doc.Page.CleanImageRef = ref
	e.doc.ShowOriginal = false
	e.dirty = true
	e.mu.Unlock()
	e.emit(Change{Kind: ChangeView, Label: "Clean Image"})
}

func (e *Editor) Undo() bool {
	e.mu.Lock()
	ok := e.history.Undo()
	e.dirty = e.dirty || ok
	e.mu.Unlock()
	if ok {
		e.emit(Change{Kind: ChangeUndo})
	}
	return ok
}

func (e *Editor) Redo() bool {
	e.mu.Lock()
	ok := e.history.Redo()
	e.dirty = e.dirty || ok
	e.mu.Unlock()
	if ok {
		e.emit(Change{Kind: ChangeRedo})
	}
	return ok
}

func (e *Editor) CanUndo() bool { return e.history.CanUndo() }
func (e *Editor) CanRedo() bool { return e.history.CanRedo() }

// History lists the undo log oldest first.
func (e *Editor) History() []undo.Entry { return e.history.History() }

// JumpTo moves through history so that entries [0, index] are applied.
func (e *Editor) JumpTo(index int) error {
	e.mu.Lock()
	err := e.history.JumpTo(index)
	e.dirty = e.dirty || err == nil
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.emit(Change{Kind: ChangeUndo, Label: "Jump"})
	return nil
}

// Subscribe registers fn for change notifications and returns its cancel func.
func (e *Editor) Subscribe(fn func(Change)) func() {
	e.subMu.Lock()
	id := e.nextID
	e.nextID++
	e.subs[id] = fn
	e.subMu.Unlock()
	return func() {
		e.subMu.Lock()
		delete(e.subs, id)
		e.subMu.Unlock()
	}
}

func (e *Editor) emit(c Change) {
	e.subMu.Lock()
	fns := make([]func(Change), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.subMu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

func (e *Editor) hasShapeLocked(id string) bool {
	for _, b := range e.doc.Page.Balloons {
		if b.ID == id {
			return true
		}
	}
	for _, p := range e.doc.Page.Panels {
		if p.ID == id {
			return true
		}
	}
	return false
}
