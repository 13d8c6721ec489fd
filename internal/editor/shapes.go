/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"fmt"
	"strconv"

	"balloonstudio/internal/domain"
)

// Balloons returns a deep copy of the balloon list, masks included.
func (e *Editor) Balloons() []domain.Balloon {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.CloneBalloons(e.doc.Page.Balloons)
}

// Balloon looks up one shape by id.
func (e *Editor) Balloon(id string) (domain.Balloon, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := balloonIndex(e.doc.Page.Balloons, id); i >= 0 {
		return e.doc.Page.Balloons[i].Clone(), true
	}
	return domain.Balloon{}, false
}

// SetBalloons replaces the whole list as a single history entry.
func (e *Editor) SetBalloons(label string, list []domain.Balloon) error {
	if err := uniqueBalloonIDs(list); err != nil {
		return err
	}
	return e.commit(label, "", func(p *domain.Page) error {
		p.Balloons = domain.CloneBalloons(list)
		return nil
	})
}

// AddBalloon appends b. An empty id gets a "manual-<unix millis>" id.
func (e *Editor) AddBalloon(b domain.Balloon) (string, error) {
	if b.ID == "" {
		b.ID = "manual-" + strconv.FormatInt(e.now().UnixMilli(), 10)
	}
	err := e.commit("Add Balloon", "", func(p *domain.Page) error {
		if balloonIndex(p.Balloons, b.ID) >= 0 {
			return fmt.Errorf("add balloon %q: %w", b.ID, ErrDuplicateID)
		}
		p.Balloons = append(p.Balloons, b.Clone())
		return nil
	})
	return b.ID, err
}

// UpdateBalloon applies fn to the balloon with id. The id itself cannot change.
func (e *Editor) UpdateBalloon(id string, fn func(*domain.Balloon)) error {
	return e.updateBalloon("Update Balloon", id, "", func(b *domain.Balloon, _ *domain.Page) error {
		fn(b)
		b.ID = id
		return nil
	})
}

func (e *Editor) RemoveBalloon(id string) error {
	return e.commit("Delete Balloon", "", func(p *domain.Page) error {
		i := balloonIndex(p.Balloons, id)
		if i < 0 {
			return fmt.Errorf("remove balloon %q: %w", id, domain.ErrNotFound)
		}
		p.Balloons = append(p.Balloons[:i], p.Balloons[i+1:]...)
		return nil
	})
}

// RemoveSelected deletes the selected balloon or panel.
func (e *Editor) RemoveSelected() error {
	id := e.Selected()
	if id == "" {
		return fmt.Errorf("remove selection: %w", domain.ErrNotFound)
	}
	if _, ok := e.Balloon(id); ok {
		return e.RemoveBalloon(id)
	}
	return e.RemovePanel(id)
}

func (e *Editor) Panels() []domain.Panel {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.ClonePanels(e.doc.Page.Panels)
}

func (e *Editor) Panel(id string) (domain.Panel, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := panelIndex(e.doc.Page.Panels, id); i >= 0 {
		return e.doc.Page.Panels[i].Clone(), true
	}
	return domain.Panel{}, false
}

// SetPanels replaces the whole panel list as a single history entry.
func (e *Editor) SetPanels(label string, list []domain.Panel) error {
	seen := make(map[string]bool, len(list))
	for _, p := range list {
		if seen[p.ID] {
			return fmt.Errorf("set panels %q: %w", p.ID, ErrDuplicateID)
		}
		seen[p.ID] = true
	}
	return e.commit(label, "", func(p *domain.Page) error {
		p.Panels = domain.ClonePanels(list)
		return nil
	})
}

// AddPanel appends p with the next reading order when p.Order is zero.
func (e *Editor) AddPanel(pn domain.Panel) (string, error) {
	if pn.ID == "" {
		pn.ID = "panel-" + strconv.FormatInt(e.now().UnixMilli(), 10)
	}
	if len(pn.Points) == 0 {
		pn.Points = pn.Box.Corners()
	}
	err := e.commit("Add Panel", "", func(p *domain.Page) error {
		if panelIndex(p.Panels, pn.ID) >= 0 {
			return fmt.Errorf("add panel %q: %w", pn.ID, ErrDuplicateID)
		}
		if pn.Order == 0 {
			pn.Order = len(p.Panels) + 1
		}
		p.Panels = append(p.Panels, pn.Clone())
		return nil
	})
	return pn.ID, err
}

func (e *Editor) UpdatePanel(id string, fn func(*domain.Panel)) error {
	return e.updatePanel("Update Panel", id, "", func(pn *domain.Panel, _ *domain.Page) error {
		fn(pn)
		pn.ID = id
		return nil
	})
}

func (e *Editor) RemovePanel(id string) error {
	return e.commit("Delete Panel", "", func(p *domain.Page) error {
		i := panelIndex(p.Panels, id)
		if i < 0 {
			return fmt.Errorf("remove panel %q: %w", id, domain.ErrNotFound)
		}
		p.Panels = append(p.Panels[:i], p.Panels[i+1:]...)
		return nil
	})
}

func (e *Editor) updateBalloon(label, id, target string, fn func(*domain.Balloon, *domain.Page) error) error {
	return e.commit(label, target, func(p *domain.Page) error {
		i := balloonIndex(p.Balloons, id)
		if i < 0 {
			return fmt.Errorf("%s %q: %w", label, id, domain.ErrNotFound)
		}
		return fn(&p.Balloons[i], p)
	})
}

func (e *Editor) updatePanel(label, id, target string, fn func(*domain.Panel, *domain.Page) error) error {
	return e.commit(label, target, func(p *domain.Page) error {
		i := panelIndex(p.Panels, id)
		if i < 0 {
			return fmt.Errorf("%s %q: %w", label, id, domain.ErrNotFound)
		}
		return fn(&p.Panels[i], p)
	})
}

func balloonIndex(list []domain.Balloon, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func panelIndex(list []domain.Panel, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func uniqueBalloonIDs(list []domain.Balloon) error {
	seen := make(map[string]bool, len(list))
	for _, b := range list {
		if seen[b.ID] {
			return fmt.Errorf("balloon %q: %w", b.ID, ErrDuplicateID)
		}
		seen[b.ID] = true
	}
	return nil
}
