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
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplicitMarkers(t *testing.T) {
	res := Segment(Input{Body: "texto 1 - A. texto 2 - B. texto 3 - C."}, Options{})
	assert.Equal(t, StrategyMarkers, res.Strategy)
	assert.Equal(t, []string{"A.", "B.", "C."}, res.Fragments)

	res = Segment(Input{Headline: "  Três  ideias ", Body: "TEXTO 1 – primeira ideia aqui\nTexto 2 — segunda ideia aqui"}, Options{})
	assert.Equal(t, []string{"Três ideias", "primeira ideia aqui", "segunda ideia aqui"}, res.Fragments)
}

func TestNumberedList(t *testing.T) {
	body := "Intro que explica o assunto inteiro\n1. Primeiro passo importante do processo\n2) Segundo passo que também importa\n3. ok"
	res := Segment(Input{Body: body}, Options{})
	assert.Equal(t, StrategyNumbered, res.Strategy)
	assert.Equal(t, []string{
		"Intro que explica o assunto inteiro",
		"Primeiro passo importante do processo",
		"Segundo passo que também importa",
	}, res.Fragments, "short fragments are dropped")
}

func TestBullets(t *testing.T) {
	body := "- Use cores contrastantes no fundo\n• Escreva títulos curtos e diretos\n* Termine com uma chamada para ação"
	res := Segment(Input{Body: body}, Options{})
	assert.Equal(t, StrategyBullets, res.Strategy)
	require.Len(t, res.Fragments, 3)
	assert.Equal(t, "Termine com uma chamada para ação", res.Fragments[2])
}

func TestParagraphs(t *testing.T) {
	body := "Primeiro parágrafo com bastante texto.\n   \n\nSegundo parágrafo,\n  quebrado em linhas."
	res := Segment(Input{Body: body}, Options{})
	assert.Equal(t, StrategyParagraph, res.Strategy)
	assert.Equal(t, []string{"Primeiro parágrafo com bastante texto.", "Segundo parágrafo, quebrado em linhas."}, res.Fragments)
}

func TestSentenceFallback(t *testing.T) {
	body := "Este é o primeiro pensamento completo. Aqui vem o segundo pensamento! E o terceiro termina com pergunta? não divide aqui."
	res := Segment(Input{Body: body}, Options{})
	assert.Equal(t, StrategySentences, res.Strategy)
	assert.Equal(t, []string{
		"Este é o primeiro pensamento completo.",
		"Aqui vem o segundo pensamento!",
		"E o terceiro termina com pergunta? não divide aqui.",
	}, res.Fragments)
}

func TestLongSentenceSplitsOnClauses(t *testing.T) {
	clause := strings.Repeat("palavra ", 12) // 96 runes
	body := strings.TrimSpace(clause + ", " + clause + "; " + clause + ", fim do texto longo")
	require.Greater(t, utf8.RuneCountInString(body), longSentence)
	res := Segment(Input{Body: body}, Options{})
	require.Greater(t, len(res.Fragments), 1)
	for _, f := range res.Fragments {
		assert.Less(t, utf8.RuneCountInString(f), mergeUnder+100, f)
	}
	assert.Contains(t, res.Fragments[len(res.Fragments)-1], "fim do texto longo")
}

func TestUnsplittableTextStillYieldsAFragment(t *testing.T) {
	body := strings.Repeat("x", 300)
	res := Segment(Input{Body: body}, Options{})
	require.Len(t, res.Fragments, 1)
	assert.Equal(t, body, res.Fragments[0])
}

func TestNothingSurvivesGivesPlaceholder(t *testing.T) {
	for _, body := range []string{"", "   ", "curto.", "- a\n- b"} {
		res := Segment(Input{Body: body}, Options{})
		assert.Equal(t, []string{DefaultPlaceholder}, res.Fragments, "%q", body)
	}
	res := Segment(Input{Body: "curto"}, Options{Placeholder: "vazio"})
	assert.Equal(t, []string{"vazio"}, res.Fragments)
}

func TestCapKeepsBestInOriginalOrder(t *testing.T) {
	var lines []string
	for i := 1; i <= 20; i++ {
		lines = append(lines, fmt.Sprintf("%d. Item número %d com texto suficiente para contar", i, i))
	}
	lines[11] = "12. Qual é o segredo do método que ninguém conta? Veja a dica!"
	res := Segment(Input{Headline: "Vinte itens", Body: strings.Join(lines, "\n")}, Options{MaxCards: 6})
	require.Len(t, res.Fragments, 6)
	assert.Equal(t, 15, res.Capped)
	assert.Equal(t, "Vinte itens", res.Fragments[0])
	assert.Contains(t, res.Fragments, "Qual é o segredo do método que ninguém conta? Veja a dica!")
	// first three carry the position bonus
	assert.Equal(t, "Item número 1 com texto suficiente para contar", res.Fragments[1])

	all := Segment(Input{Body: strings.Join(lines, "\n")}, Options{MaxCards: 6, Unlimited: true})
	assert.Len(t, all.Fragments, 20)
}

func TestScore(t *testing.T) {
	plain := "Texto comum sem nada especial aqui dentro ok"
	assert.Equal(t, Score(plain, 0)-4, Score(plain, 6), "position bands 5 vs 1")
	assert.Equal(t, Score(plain, 3), Score(plain, 5))

	q := "Como aplicar esta dica no seu dia a dia?"
	base := "Aplicar esta coisa no seu dia a dia agora"
	assert.Greater(t, Score(q, 10), Score(base, 10))

	assert.Equal(t, 2+5+5, Score("Curta frase única", 0), "length<30, first position, all distinct")
}

func TestRankStableOrder(t *testing.T) {
	frags := []string{"a", "b", "c", "d"}
	assert.Equal(t, []string{"a", "b"}, Rank(frags, 2))
	assert.Nil(t, Rank(frags, 0))
	assert.Equal(t, frags, Rank(frags, 10))
}
