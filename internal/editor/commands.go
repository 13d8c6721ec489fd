/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"balloonstudio/internal/domain"
)

// shapes is a frozen copy of both shape lists.
type shapes struct {
	balloons []domain.Balloon
	panels   []domain.Panel
}

func capture(p domain.Page) shapes {
	return shapes{balloons: domain.CloneBalloons(p.Balloons), panels: domain.ClonePanels(p.Panels)}
}

// snapshotCmd swaps whole shape lists. Commands run with the editor lock
// already held by the caller.
type snapshotCmd struct {
	ed            *Editor
	label, target string
	before, after shapes
}

func (c *snapshotCmd) Do()            { c.ed.applyLocked(c.after) }
func (c *snapshotCmd) Undo()          { c.ed.applyLocked(c.before) }
func (c *snapshotCmd) Label() string  { return c.label }
func (c *snapshotCmd) Target() string { return c.target }

func (e *Editor) applyLocked(s shapes) {
	e.doc.Page.Balloons = domain.CloneBalloons(s.balloons)
	e.doc.Page.Panels = domain.ClonePanels(s.panels)
	if e.doc.Selected != "" && !e.hasShapeLocked(e.doc.Selected) {
		e.doc.Selected = ""
	}
}

// commit runs mutate against a copy of the page and records the result as one
// history entry. A failing mutate leaves the document untouched.
func (e *Editor) commit(label, target string, mutate func(p *domain.Page) error) error {
	e.mu.Lock()
	work := e.doc.Page.Clone()
	if err := mutate(&work); err != nil {
		e.mu.Unlock()
		return err
	}
	cmd := &snapshotCmd{ed: e, label: label, target: target, before: capture(e.doc.Page), after: capture(work)}
	e.history.Execute(cmd)
	e.dirty = true
	e.mu.Unlock()
	e.emit(Change{Kind: ChangeEdit, Label: label})
	return nil
}
