/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package segment

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	interrogatives = []string{
		"como", "qual", "quais", "quando", "onde", "quem", "quanto", "quantos", "quantas",
		"por que", "porque", "o que", "what", "why", "how", "when", "where", "who", "which",
	}
	valueWords = []string{
		"dica", "dicas", "segredo", "segredos", "método", "metodo", "passo", "estratégia",
		"estrategia", "erro", "erros", "importante", "tip", "tips", "secret", "method",
	}
	stopwords = toSet(
		"a", "o", "as", "os", "um", "uma", "uns", "umas", "de", "da", "do", "das", "dos",
		"e", "é", "em", "no", "na", "nos", "nas", "para", "pra", "por", "com", "sem",
		"que", "se", "seu", "sua", "seus", "suas", "ao", "aos", "à", "às", "mais", "mas",
		"ou", "como", "isso", "isto", "esse", "essa", "este", "esta", "você", "voce", "eu",
		"the", "an", "of", "to", "in", "on", "and", "or", "is", "are", "for", "with", "it",
		"this", "that", "you", "your", "be", "at", "by",
	)
)

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// Score rates how well a fragment works as a card; position is its index in
// the original order.
func Score(fragment string, position int) int {
	n := runes(fragment)
	score := 0
	switch {
	case n >= 50 && n <= 300:
		score += 10
	case n >= 30 && n <= 400:
		score += 7
	case n < 30:
		score += 2
	default:
		score += 5
	}
	switch {
	case position < 3:
		score += 5
	case position < 6:
		score += 3
	default:
		score++
	}

	lower := cases.Lower(language.BrazilianPortuguese).String(fragment)
	if strings.ContainsAny(fragment, "?!") {
		score += 2
	}
	words := tokens(lower)
	joined := " " + strings.Join(words, " ") + " "
	if containsAny(joined, interrogatives) {
		score += 3
	}
	if containsAny(joined, valueWords) {
		score += 2
	}
	if len(words) > 0 {
		unique := map[string]struct{}{}
		for _, w := range words {
			if _, stop := stopwords[w]; !stop {
				unique[w] = struct{}{}
			}
		}
		score += 5 * len(unique) / len(words)
	}
	return score
}

func tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
}

// containsAny matches whole words or phrases against a space-padded token string.
func containsAny(padded string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

// Rank keeps the n best scoring fragments in their original relative order.
// Ties favour the earlier fragment.
func Rank(frags []string, n int) []string {
	if n <= 0 {
		return nil
	}
	if len(frags) <= n {
		return append([]string(nil), frags...)
	}
	idx := make([]int, len(frags))
	scores := make([]int, len(frags))
	for i, f := range frags {
		idx[i] = i
		scores[i] = Score(f, i)
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })
	keep := idx[:n]
	sort.Ints(keep)
	out := make([]string, n)
	for i, k := range keep {
		out[i] = frags[k]
	}
	return out
}
