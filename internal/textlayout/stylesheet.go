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

// StyleSheet resolves TextStyle presets across three scopes:
//   - Global: app defaults or builtins
//   - Template: styles a card template defines
//   - Card: overrides for a single generated card
//
// Resolution precedence is Card > Template > Global > Builtin.
type StyleSheet struct {
	Global   map[string]TextStyle
	Template map[string]TextStyle
	Card     map[string]TextStyle
}

// NewStyleSheet creates a stylesheet with the builtin styles copied into Global.
func NewStyleSheet() *StyleSheet {
	ss := &StyleSheet{
		Global:   map[string]TextStyle{},
		Template: map[string]TextStyle{},
		Card:     map[string]TextStyle{},
	}
	for _, name := range ListStyles() {
		if st, ok := GetStyle(name); ok {
			ss.Global[name] = st
		}
	}
	return ss
}

// WithTemplate returns a copy with the template-level overrides merged.
func (s *StyleSheet) WithTemplate(over map[string]TextStyle) *StyleSheet {
	cp := s.clone()
	for k, v := range over {
		cp.Template[k] = v
	}
	return cp
}

// WithCard returns a copy with the card-level overrides merged.
func (s *StyleSheet) WithCard(over map[string]TextStyle) *StyleSheet {
	cp := s.clone()
	for k, v := range over {
		cp.Card[k] = v
	}
	return cp
}

// Resolve returns the effective TextStyle by name. The second return value is
// false if the name cannot be resolved at any level.
func (s *StyleSheet) Resolve(name string) (TextStyle, bool) {
	if s == nil {
		return GetStyle(name)
	}
	for _, scope := range []map[string]TextStyle{s.Card, s.Template, s.Global} {
		if st, ok := scope[name]; ok {
			return st, true
		}
	}
	return GetStyle(name)
}

// MustResolve is Resolve for names known to be builtin; unknown names yield
// the Body style.
func (s *StyleSheet) MustResolve(name string) TextStyle {
	if st, ok := s.Resolve(name); ok {
		return st
	}
	st, _ := GetStyle(StyleBody)
	return st
}

func (s *StyleSheet) clone() *StyleSheet {
	cp := &StyleSheet{Global: map[string]TextStyle{}, Template: map[string]TextStyle{}, Card: map[string]TextStyle{}}
	if s == nil {
		return cp
	}
	for k, v := range s.Global {
		cp.Global[k] = v
	}
	for k, v := range s.Template {
		cp.Template[k] = v
	}
	for k, v := range s.Card {
		cp.Card[k] = v
	}
	return cp
}
