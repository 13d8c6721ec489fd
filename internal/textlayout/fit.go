/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"math"
	"unicode/utf8"
)

const (
	MinFontSize     = 6.0
	MaxFontSize     = 12.0
	DefaultFontSize = 10.0
)

// FitFontSize picks a font size for text of textLen characters in a w x h
// balloon. It starts from the square root of a hundredth of the area, shrinks
// for dense text, caps long text and clamps to
// [MinFontSize, MaxFontSize]. Empty text gets DefaultFontSize.
func FitFontSize(w, h float64, textLen int) float64 {
	if textLen <= 0 {
		return DefaultFontSize
	}
	area := w * h
	if area <= 0 {
		return MinFontSize
	}
	size := math.Sqrt(area / 100)

	switch density := float64(textLen) / area; {
	case density > 0.02:
		size *= 0.6
	case density > 0.01:
		size *= 0.75
	case density > 0.005:
		size *= 0.9
	}

	switch {
	case textLen > 150:
		size = math.Min(size, 7)
	case textLen > 100:
		size = math.Min(size, 8)
	case textLen > 50:
		size = math.Min(size, 10)
	}
	return math.Min(math.Max(math.Floor(size), MinFontSize), MaxFontSize)
}

// FitText is FitFontSize over the rune count of text.
func FitText(w, h float64, text string) float64 {
	return FitFontSize(w, h, utf8.RuneCountInString(text))
}
