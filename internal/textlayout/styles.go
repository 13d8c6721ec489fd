/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import "balloonstudio/internal/domain"

// DefaultFamily is the lettering face used when a balloon names none.
const DefaultFamily = "Comic Neue"

// TextStyle is a lettering preset. Leading is extra pixels between lines;
// Padding is the inset from the balloon box to the text block.
type TextStyle struct {
	Name    string
	Font    FontSpec
	Leading float64
	Padding float64
}

var builtinStyles = map[domain.Style]TextStyle{
	domain.StyleSpeech: {
		Name:    "Speech",
		Font:    FontSpec{Family: DefaultFamily, Weight: 400},
		Leading: 2,
		Padding: 8,
	},
	domain.StyleThought: {
		Name:    "Thought",
		Font:    FontSpec{Family: DefaultFamily, Weight: 400, Italic: true},
		Leading: 2,
		Padding: 12,
	},
	domain.StyleWhisper: {
		Name:    "Whisper",
		Font:    FontSpec{Family: DefaultFamily, Weight: 300, Italic: true},
		Leading: 1.5,
		Padding: 8,
	},
}

// StyleFor returns the preset for a balloon style; unknown styles get speech.
func StyleFor(s domain.Style) TextStyle {
	if st, ok := builtinStyles[s]; ok {
		return st
	}
	return builtinStyles[domain.StyleSpeech]
}

// ForBalloon resolves the lettering of b: its style preset with the
// balloon's own family and size applied. A zero font size is fitted to
// the box.
func ForBalloon(b domain.Balloon) TextStyle {
	st := StyleFor(b.Style)
	if b.Font != "" {
		st.Font.Family = b.Font
	}
	st.Font.Size = b.FontSize
	if st.Font.Size <= 0 {
		st.Font.Size = FitText(b.Box.Width(), b.Box.Height(), b.Text)
	}
	return st
}

// Styles lists the presets in stable order.
func Styles() []domain.Style {
	return []domain.Style{domain.StyleSpeech, domain.StyleThought, domain.StyleWhisper}
}
