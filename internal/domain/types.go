/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the page data model shared by the geometry, workflow and
// persistence packages. All stored geometry lives in the canonical 1000x1000
// normalized space; pixel values only appear in Live transforms.

// NormSpace is the extent of the canonical normalized coordinate system.
const NormSpace = 1000.0

// DefaultTailWidth is the width of a tail's base opening in normalized units.
const DefaultTailWidth = 40.0

// Point is a position in normalized space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is an axis-aligned region stored as [ymin, xmin, ymax, xmax].
type Box struct {
	YMin float64 `json:"ymin"`
	XMin float64 `json:"xmin"`
	YMax float64 `json:"ymax"`
	XMax float64 `json:"xmax"`
}

func (b Box) Width() float64  { return b.XMax - b.XMin }
func (b Box) Height() float64 { return b.YMax - b.YMin }

func (b Box) Center() Point {
	return Point{X: (b.XMin + b.XMax) / 2, Y: (b.YMin + b.YMax) / 2}
}

// Valid reports whether the box has positive extent on both axes.
func (b Box) Valid() bool { return b.XMax > b.XMin && b.YMax > b.YMin }

// Corners returns the four corners clockwise from top-left.
func (b Box) Corners() []Point {
	return []Point{
		{X: b.XMin, Y: b.YMin},
		{X: b.XMax, Y: b.YMin},
		{X: b.XMax, Y: b.YMax},
		{X: b.XMin, Y: b.YMax},
	}
}

// Array returns the box in detector order.
func (b Box) Array() [4]float64 { return [4]float64{b.YMin, b.XMin, b.YMax, b.XMax} }

// Contains reports whether o lies inside b (edges inclusive).
func (b Box) Contains(o Box) bool {
	return o.XMin >= b.XMin && o.YMin >= b.YMin && o.XMax <= b.XMax && o.YMax <= b.YMax
}

// Translate moves the box by dx, dy.
func (b Box) Translate(dx, dy float64) Box {
	return Box{YMin: b.YMin + dy, XMin: b.XMin + dx, YMax: b.YMax + dy, XMax: b.XMax + dx}
}

// Kind separates detection masks from editable balloons and free text.
type Kind string

const (
	KindMask    Kind = "mask"
	KindBalloon Kind = "balloon"
	KindText    Kind = "text"
)

// Shape selects the outline family.
type Shape string

const (
	ShapeRectangle Shape = "rectangle"
	ShapeEllipse   Shape = "ellipse"
	ShapeCloud     Shape = "cloud"
	ShapeScream    Shape = "scream"
	ShapeCustom    Shape = "custom"
)

// Style selects how the tail is rendered.
type Style string

const (
	StyleSpeech  Style = "speech"
	StyleThought Style = "thought"
	StyleWhisper Style = "whisper"
)

// Live holds the on-screen position, size and scale of a shape after it was
// manipulated interactively. Values are page pixels.
type Live struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	ScaleX float64 `json:"scaleX,omitempty"`
	ScaleY float64 `json:"scaleY,omitempty"`
}

// EffectiveSize returns width and height with scale applied. A zero scale counts as 1.
func (l Live) EffectiveSize() (float64, float64) {
	sx, sy := l.ScaleX, l.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	return l.Width * sx, l.Height * sy
}

// Vertex is one node of a custom outline with optional bezier handles.
type Vertex struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	HandleIn  *Point  `json:"handleIn,omitempty"`
	HandleOut *Point  `json:"handleOut,omitempty"`
}

// CustomOutline is an imported or hand-drawn outline expressed in its own viewBox.
type CustomOutline struct {
	ViewBox  [4]float64 `json:"viewBox"` // minX, minY, width, height
	Vertices []Vertex   `json:"vertices"`
}

// Color is RGBA.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

var (
	White = Color{R: 255, G: 255, B: 255, A: 255}
	Black = Color{A: 255}
	// MaskRed is the translucent overlay used for detection masks.
	MaskRed = Color{R: 255, A: 102}
)

// Balloon is a speech, thought or shout region, or a detection mask.
type Balloon struct {
	ID           string         `json:"id"`
	Kind         Kind           `json:"kind"`
	Shape        Shape          `json:"shape"`
	Style        Style          `json:"style"`
	Box          Box            `json:"box"`
	TailTarget   *Point         `json:"tailTarget,omitempty"`
	TailControl  *Point         `json:"tailControl,omitempty"`
	TailWidth    float64        `json:"tailWidth,omitempty"`
	Text         string         `json:"text"`
	Fill         Color          `json:"fill"`
	BorderColor  Color          `json:"borderColor"`
	BorderWidth  float64        `json:"borderWidth"`
	Opacity      float64        `json:"opacity"`
	CornerRadius float64        `json:"cornerRadius"`
	Roughness    float64        `json:"roughness,omitempty"`
	FontSize     float64        `json:"fontSize,omitempty"`
	Font         string         `json:"font,omitempty"`
	Outline      *CustomOutline `json:"outline,omitempty"`
	Live         *Live          `json:"live,omitempty"`
	// Contour is the traced mask outline in normalized space, when detection supplied one.
	Contour      []Point        `json:"contour,omitempty"`
}

// Clone returns a deep copy so history entries never alias live shapes.
func (b Balloon) Clone() Balloon {
	c := b
	if b.TailTarget != nil {
		p := *b.TailTarget
		c.TailTarget = &p
	}
	if b.TailControl != nil {
		p := *b.TailControl
		c.TailControl = &p
	}
	if b.Live != nil {
		l := *b.Live
		c.Live = &l
	}
	if b.Outline != nil {
		o := *b.Outline
		o.Vertices = make([]Vertex, len(b.Outline.Vertices))
		for i, v := range b.Outline.Vertices {
			nv := v
			if v.HandleIn != nil {
				h := *v.HandleIn
				nv.HandleIn = &h
			}
			if v.HandleOut != nil {
				h := *v.HandleOut
				nv.HandleOut = &h
			}
			o.Vertices[i] = nv
		}
		c.Outline = &o
	}
	if b.Contour != nil {
		c.Contour = append([]Point(nil), b.Contour...)
	}
	return c
}

// Panel is a frame boundary used for reading order separation.
type Panel struct {
	ID     string  `json:"id"`
	Order  int     `json:"order"`
	Box    Box     `json:"box"`
	Points []Point `json:"points,omitempty"`
	Live   *Live   `json:"live,omitempty"`
}

func (p Panel) Clone() Panel {
	c := p
	c.Points = append([]Point(nil), p.Points...)
	if p.Live != nil {
		l := *p.Live
		c.Live = &l
	}
	return c
}

// CloneBalloons deep-copies a balloon list.
func CloneBalloons(in []Balloon) []Balloon {
	if in == nil {
		return nil
	}
	out := make([]Balloon, len(in))
	for i, b := range in {
		out[i] = b.Clone()
	}
	return out
}

// ClonePanels deep-copies a panel list.
func ClonePanels(in []Panel) []Panel {
	if in == nil {
		return nil
	}
	out := make([]Panel, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

// WorkflowState is the per-page pipeline position. It is never persisted.
type WorkflowState string

const (
	StateIdle      WorkflowState = "idle"
	StateMask      WorkflowState = "mask"
	StateConfirmed WorkflowState = "confirmed"
)

// Page is the persisted document for one comic page image.
type Page struct {
	ID            string    `json:"id"`
	ImageRef      string    `json:"imageRef"`
	CleanImageRef string    `json:"cleanImageRef,omitempty"`
	Width         int       `json:"width"`
	Height        int       `json:"height"`
	Balloons      []Balloon `json:"balloons"`
	Panels        []Panel   `json:"panels"`
}

// Clone deep-copies the page.
func (p Page) Clone() Page {
	c := p
	c.Balloons = CloneBalloons(p.Balloons)
	c.Panels = ClonePanels(p.Panels)
	return c
}
