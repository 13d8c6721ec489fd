/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"fmt"
	"sync"
	"time"
)

// DefaultMaxEntries caps the history depth.
const DefaultMaxEntries = 50

// Command is one committed, reversible mutation.
type Command interface {
	Do()
	Undo()
	Label() string
}

// Coalescer is implemented by commands that may fold into the previous entry,
// e.g. repeated nudges of the same balloon. Target identifies the edited shape.
type Coalescer interface {
	Command
	Target() string
}

// Config controls depth caps and coalescing behavior.
type Config struct {
	// MaxEntries bounds the undo stack; the oldest entry is evicted beyond it.
	MaxEntries int
	// MinInterval merges a Coalescer into the previous entry when label and
	// target match and it arrives within the interval. Zero disables merging.
	MinInterval time.Duration
	// Now is the clock used for coalescing; time.Now when nil.
	Now func() time.Time
}

// Entry describes one history step for display.
type Entry struct {
	Label   string
	At      time.Time
	Applied bool
}

// EventKind tells subscribers what changed.
type EventKind string

const (
	EventPush  EventKind = "push"
	EventUndo  EventKind = "undo"
	EventRedo  EventKind = "redo"
	EventClear EventKind = "clear"
)

// Event is delivered to subscribers after every history change.
type Event struct {
	Kind  EventKind
	Label string
}

type record struct {
	label  string
	at     time.Time
	target string
	cmds   []Command
}

func (r *record) undo() {
	for i := len(r.cmds) - 1; i >= 0; i-- {
		r.cmds[i].Undo()
	}
}

func (r *record) redo() {
	for _, c := range r.cmds {
		c.Do()
	}
}

// Manager is a linear undo/redo log. It is safe for concurrent use; commands
// run while the manager lock is held, subscribers are called after it is
// released.
type Manager struct {
	cfg  Config
	mu   sync.Mutex
	undo []*record
	redo []*record // top of stack is the last element

	subMu  sync.Mutex
	subs   map[int]func(Event)
	nextID int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{cfg: cfg, subs: make(map[int]func(Event))}
}

// Execute applies cmd and records it.
func (m *Manager) Execute(cmd Command) {
	m.mu.Lock()
	cmd.Do()
	m.pushLocked(cmd)
	m.mu.Unlock()
	m.notify(Event{Kind: EventPush, Label: cmd.Label()})
}

// Push records a command whose effect is already applied, e.g. the final
// frame of a drag.
func (m *Manager) Push(cmd Command) {
	m.mu.Lock()
	m.pushLocked(cmd)
	m.mu.Unlock()
	m.notify(Event{Kind: EventPush, Label: cmd.Label()})
}

func (m *Manager) pushLocked(cmd Command) {
	now := m.cfg.Now()
	target := ""
	if c, ok := cmd.(Coalescer); ok {
		target = c.Target()
	}
	// Any new change invalidates redo.
	m.redo = nil
	if n := len(m.undo); n > 0 && target != "" && m.cfg.MinInterval > 0 {
		last := m.undo[n-1]
		if last.target == target && last.label == cmd.Label() && now.Sub(last.at) < m.cfg.MinInterval {
			last.cmds = append(last.cmds, cmd)
			last.at = now
			return
		}
	}
	m.undo = append(m.undo, &record{label: cmd.Label(), at: now, target: target, cmds: []Command{cmd}})
	if over := len(m.undo) - m.cfg.MaxEntries; over > 0 {
		m.undo = append([]*record(nil), m.undo[over:]...)
	}
}

// Undo reverts the latest entry.
func (m *Manager) Undo() bool {
	m.mu.Lock()
	r, ok := m.undoLocked()
	m.mu.Unlock()
	if ok {
		m.notify(Event{Kind: EventUndo, Label: r.label})
	}
	return ok
}

// Redo re-applies the most recently undone entry.
func (m *Manager) Redo() bool {
	m.mu.Lock()
	r, ok := m.redoLocked()
	m.mu.Unlock()
	if ok {
		m.notify(Event{Kind: EventRedo, Label: r.label})
	}
	return ok
}

func (m *Manager) undoLocked() (*record, bool) {
	n := len(m.undo)
	if n == 0 {
		return nil, false
	}
	r := m.undo[n-1]
	m.undo = m.undo[:n-1]
	r.undo()
	m.redo = append(m.redo, r)
	return r, true
}

func (m *Manager) redoLocked() (*record, bool) {
	n := len(m.redo)
	if n == 0 {
		return nil, false
	}
	r := m.redo[n-1]
	m.redo = m.redo[:n-1]
	r.redo()
	m.undo = append(m.undo, r)
	return r, true
}

func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo) > 0
}

func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo) > 0
}

// Clear drops all history without touching the current state.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.undo, m.redo = nil, nil
	m.mu.Unlock()
	m.notify(Event{Kind: EventClear})
}

// History lists entries oldest first: applied ones, then undone ones in the
// order redo would replay them.
func (m *Manager) History() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.undo)+len(m.redo))
	for _, r := range m.undo {
		out = append(out, Entry{Label: r.label, At: r.at, Applied: true})
	}
	for i := len(m.redo) - 1; i >= 0; i-- {
		out = append(out, Entry{Label: m.redo[i].label, At: m.redo[i].at})
	}
	return out
}

// JumpTo undoes or redoes until exactly the first index+1 History entries are
// applied. Index -1 reverts everything.
func (m *Manager) JumpTo(index int) error {
	m.mu.Lock()
	total := len(m.undo) + len(m.redo)
	if index < -1 || index >= total {
		m.mu.Unlock()
		return fmt.Errorf("history index %d out of range [-1,%d)", index, total)
	}
	var events []Event
	for len(m.undo) > index+1 {
		r, _ := m.undoLocked()
		events = append(events, Event{Kind: EventUndo, Label: r.label})
	}
	for len(m.undo) < index+1 {
		r, _ := m.redoLocked()
		events = append(events, Event{Kind: EventRedo, Label: r.label})
	}
	m.mu.Unlock()
	for _, e := range events {
		m.notify(e)
	}
	return nil
}

// Subscribe registers fn for history events and returns its cancel func.
func (m *Manager) Subscribe(fn func(Event)) func() {
	m.subMu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.subMu.Unlock()
	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

func (m *Manager) notify(e Event) {
	m.subMu.Lock()
	fns := make([]func(Event), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()
	for _, fn := range fns {
		fn(e)
	}
}

// Stats returns stack depths for diagnostics.
func (m *Manager) Stats() (undoDepth, redoDepth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo), len(m.redo)
}
