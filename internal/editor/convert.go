/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"strings"

	"balloonstudio/internal/domain"
	"balloonstudio/internal/textlayout"
	"balloonstudio/internal/vector"
)

// BalloonPrefix derives a converted balloon's id from its mask id.
const BalloonPrefix = "balloon-"

// BalloonIDFor returns the id of the balloon converted from maskID.
func BalloonIDFor(maskID string) string { return BalloonPrefix + strings.TrimSpace(maskID) }

// NewMask builds a detection mask shape.
func NewMask(id string, box domain.Box, text string, contour []domain.Point) domain.Balloon {
	return domain.Balloon{
		ID:           id,
		Kind:         domain.KindMask,
		Shape:        domain.ShapeRectangle,
		Style:        domain.StyleSpeech,
		Box:          box,
		Text:         text,
		Fill:         domain.MaskRed,
		BorderColor:  domain.Color{R: 255, A: 255},
		BorderWidth:  2,
		Opacity:      1,
		CornerRadius: 4,
		Contour:      contour,
	}
}

// ConvertMask synthesizes the editable balloon for a mask. The corner radius
// follows how boxy the traced contour is and the font size is fitted to the
// box. The mask itself is not modified.
func ConvertMask(mask domain.Balloon) domain.Balloon {
	w, h := mask.Box.Width(), mask.Box.Height()
	poly := make([]vector.Pt, len(mask.Contour))
	for i, p := range mask.Contour {
		poly[i] = vector.P(p)
	}
	b := mask.Clone()
	b.ID = BalloonIDFor(mask.ID)
	b.Kind = domain.KindBalloon
	b.Shape = domain.ShapeRectangle
	b.Style = domain.StyleSpeech
	b.Fill = domain.White
	b.BorderColor = domain.Black
	b.BorderWidth = 2
	b.Opacity = 1
	b.Roughness = 0
	b.CornerRadius = vector.DynamicCornerRadius(poly, w, h)
	b.Font = textlayout.DefaultFamily
	b.FontSize = textlayout.FitText(w, h, b.Text)
	return b
}

// NewManualBalloon is the default balloon placed by an explicit add: a
// 200x200 speech rectangle in the middle of the page.
func NewManualBalloon() domain.Balloon {
	return domain.Balloon{
		Kind:         domain.KindBalloon,
		Shape:        domain.ShapeRectangle,
		Style:        domain.StyleSpeech,
		Box:          domain.Box{YMin: 400, XMin: 400, YMax: 600, XMax: 600},
		Fill:         domain.White,
		BorderColor:  domain.Black,
		BorderWidth:  1,
		Opacity:      1,
		CornerRadius: 20,
		TailWidth:    domain.DefaultTailWidth,
		Roughness:    1,
		FontSize:     13,
		Font:         textlayout.DefaultFamily,
	}
}
