/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package segment splits long card copy into one text fragment per card.
package segment

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Strategy names the rule that produced the fragments.
type Strategy string

const (
	StrategyMarkers   Strategy = "markers"
	StrategyNumbered  Strategy = "numbered"
	StrategyBullets   Strategy = "bullets"
	StrategyParagraph Strategy = "paragraphs"
	StrategySentences Strategy = "sentences"
	StrategyEmpty     Strategy = "empty"
)

const (
	// DefaultMaxCards caps the fragment count unless Unlimited is set.
	DefaultMaxCards = 15
	// DefaultPlaceholder is the single fragment emitted when nothing survives.
	DefaultPlaceholder = "Adicione aqui o conteúdo deste card."

	minFragmentRunes = 15
	longSentence     = 200
	mergeUnder       = 180
)

// Options tune Segment.
type Options struct {
	MaxCards    int // includes the headline; 0 means DefaultMaxCards
	Unlimited   bool
	Placeholder string
}

// Input is the copy of one carousel.
type Input struct {
	Headline string
	Body     string
}

// Result lists the fragments in card order.
type Result struct {
	Fragments []string
	Strategy  Strategy
	// Capped counts fragments removed to respect MaxCards.
	Capped int
}

var (
	markerRe   = regexp.MustCompile(`(?i)\btexto\s*\d+\s*[-–—]\s*`)
	numberedRe = regexp.MustCompile(`(?m)^[ \t]*\d{1,3}[.)][ \t]+`)
	bulletRe   = regexp.MustCompile(`(?m)^[ \t]*[-–—•*][ \t]+`)
	blankRe    = regexp.MustCompile(`\n[ \t\r\f\v]*\n\s*`)
	prefixRe   = regexp.MustCompile(`^(?:[-–—•*]|\d{1,3}[.)])\s+`)
	spaceRe    = regexp.MustCompile(`\s+`)
	clauseRe   = regexp.MustCompile(`[^,;]+[,;]?`)
)

// Segment turns in into card fragments. The headline, when present, is always
// the first fragment; the body is split by the first strategy that applies.
// The result is never empty.
func Segment(in Input, opts Options) Result {
	if opts.MaxCards <= 0 {
		opts.MaxCards = DefaultMaxCards
	}
	if opts.Placeholder == "" {
		opts.Placeholder = DefaultPlaceholder
	}
	raw, strategy := split(in.Body)
	frags := clean(raw)

	headline := collapse(strings.TrimSpace(in.Headline))
	res := Result{Strategy: strategy}
	if headline == "" && len(frags) == 0 {
		res.Fragments = []string{opts.Placeholder}
		return res
	}
	limit := opts.MaxCards
	if headline != "" {
		limit--
	}
	if !opts.Unlimited && len(frags) > limit {
		kept := Rank(frags, limit)
		res.Capped = len(frags) - len(kept)
		frags = kept
	}
	if headline != "" {
		res.Fragments = append([]string{headline}, frags...)
	} else {
		res.Fragments = frags
	}
	return res
}

// piece is a raw fragment; explicit marks author-delimited cards, which skip
// the minimum length filter.
type piece struct {
	text     string
	explicit bool
}

// split applies the first matching strategy to body.
func split(body string) ([]piece, Strategy) {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	if strings.TrimSpace(body) == "" {
		return nil, StrategyEmpty
	}
	if locs := markerRe.FindAllStringIndex(body, -1); len(locs) > 0 {
		return splitAt(body, locs, true), StrategyMarkers
	}
	if locs := numberedRe.FindAllStringIndex(body, -1); len(locs) > 1 {
		return splitAt(body, locs, false), StrategyNumbered
	}
	if locs := bulletRe.FindAllStringIndex(body, -1); len(locs) > 1 {
		return splitAt(body, locs, false), StrategyBullets
	}
	if paras := blankRe.Split(strings.TrimSpace(body), -1); len(paras) > 1 {
		out := make([]piece, 0, len(paras))
		for _, p := range paras {
			out = append(out, piece{text: p})
		}
		return out, StrategyParagraph
	}
	var out []piece
	for _, s := range sentences(body) {
		if runes(s) <= longSentence {
			out = append(out, piece{text: s})
			continue
		}
		for _, c := range clauses(s) {
			out = append(out, piece{text: c})
		}
	}
	return out, StrategySentences
}

// splitAt cuts body at each marker and drops the marker itself. Text before
// the first marker becomes a regular fragment.
func splitAt(body string, locs [][]int, explicit bool) []piece {
	var out []piece
	if lead := body[:locs[0][0]]; strings.TrimSpace(lead) != "" {
		out = append(out, piece{text: lead})
	}
	for i, loc := range locs {
		end := len(body)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		out = append(out, piece{text: body[loc[1]:end], explicit: explicit})
	}
	return out
}

// sentences splits after . ! or ? when whitespace and an uppercase letter follow.
func sentences(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		j := i
		for j < len(s) {
			ws, wsz := utf8.DecodeRuneInString(s[j:])
			if !unicode.IsSpace(ws) {
				break
			}
			j += wsz
		}
		if j == i || j >= len(s) {
			continue
		}
		if next, _ := utf8.DecodeRuneInString(s[j:]); unicode.IsUpper(next) {
			out = append(out, s[start:i])
			start = j
			i = j
		}
	}
	if rest := s[start:]; strings.TrimSpace(rest) != "" {
		out = append(out, rest)
	}
	return out
}

// clauses splits a long sentence on commas and semicolons, then re-joins
// neighbours while the joined text stays under mergeUnder runes.
func clauses(s string) []string {
	parts := clauseRe.FindAllString(s, -1)
	var (
		out []string
		cur string
	)
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		switch {
		case cur == "":
			cur = p
		case runes(cur)+1+runes(p) < mergeUnder:
			cur += " " + p
		default:
			out = append(out, cur)
			cur = p
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

// clean trims, strips leftover list prefixes, collapses whitespace and drops
// short fragments.
func clean(in []piece) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		t := strings.TrimSpace(p.text)
		for {
			stripped := prefixRe.ReplaceAllString(t, "")
			if stripped == t {
				break
			}
			t = strings.TrimSpace(stripped)
		}
		t = collapse(t)
		if t == "" {
			continue
		}
		if !p.explicit && runes(t) <= minFragmentRunes {
			continue
		}
		out = append(out, t)
	}
	return out
}

func collapse(s string) string { return spaceRe.ReplaceAllString(s, " ") }

func runes(s string) int { return utf8.RuneCountInString(s) }
