/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package textlayout

// TextStyle is a reusable text preset for generated cards. Size is in pixels,
// LineHeight a multiple of it.
type TextStyle struct {
	Name       string
	Font       FontSpec
	LineHeight float64
	Color      string
	Align      string // left, center, right
}

// Builtin style names.
const (
	StyleHeadline = "Headline"
	StyleBody     = "Body"
	StyleUsername = "Username"
	StyleHandle   = "Handle"
	StyleCaption  = "Caption"
)

var builtinStyles = map[string]TextStyle{
	StyleHeadline: {
		Name:       StyleHeadline,
		Font:       FontSpec{Family: "Arial", Size: 52, Weight: 800},
		LineHeight: 1.16,
		Color:      "#ffffff",
		Align:      "left",
	},
	StyleBody: {
		Name:       StyleBody,
		Font:       FontSpec{Family: "Arial", Size: 42, Weight: 400},
		LineHeight: 1.3,
		Color:      "#ffffff",
		Align:      "left",
	},
	StyleUsername: {
		Name:       StyleUsername,
		Font:       FontSpec{Family: "Arial", Size: 28, Weight: 700},
		LineHeight: 1.16,
		Color:      "#ffffff",
		Align:      "left",
	},
	StyleHandle: {
		Name:       StyleHandle,
		Font:       FontSpec{Family: "Arial", Size: 24, Weight: 400},
		LineHeight: 1.16,
		Color:      "#8899a6",
		Align:      "left",
	},
	StyleCaption: {
		Name:       StyleCaption,
		Font:       FontSpec{Family: "Arial", Size: 20, Weight: 400, Italic: true},
		LineHeight: 1.2,
		Color:      "#cccccc",
		Align:      "left",
	},
}

// GetStyle returns a builtin style preset by name. The second return value is false if
// the style is not found.
func GetStyle(name string) (TextStyle, bool) {
	s, ok := builtinStyles[name]
	return s, ok
}

// ListStyles lists the names of the builtin styles in stable order.
func ListStyles() []string {
	return []string{StyleHeadline, StyleBody, StyleUsername, StyleHandle, StyleCaption}
}
