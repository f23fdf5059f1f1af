package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain full name", input: "Иванов Иван Иванович", want: "иванов иван иванович"},
		{name: "dotted initials", input: "Иванов.А.Б.", want: "иванов а б"},
		{name: "already normalized", input: "иванов а б", want: "иванов а б"},
		{name: "initials first reorder", input: "И.И. Иванов", want: "иванов и и"},
		{name: "latin lookalike o", input: "Петрoва Мария", want: "петрова мария"},
		{name: "latin lookalike c", input: "Cидоров Петр", want: "сидоров петр"},
		{name: "truncated first name", input: "Иванов Дмитр.", want: "иванов дмитрий"},
		{name: "adjacent truncated names", input: "Иванов Дмитр. Дмитр.", want: "иванов дмитрий дмитрий"},
		{name: "truncated alone", input: "Екатер.", want: "екатерина"},
		{name: "extra whitespace", input: "  Иванов   Иван  ", want: "иванов иван"},
		{name: "empty", input: "", want: ""},
		{name: "punctuation only", input: "...", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeName(tc.input))
		})
	}
}

func TestNormalizeNameIdempotent(t *testing.T) {
	inputs := []string{
		"Иванов Иван Иванович",
		"И.И. Иванов",
		"Петрoва Мария",
		"Иванов Дмитр.",
		"Иванов Дмитр. Дмитр.",
		"А.Б. Cидоров-Петров",
	}
	for _, in := range inputs {
		once := NormalizeName(in)
		assert.Equal(t, once, NormalizeName(once), "input %q", in)
	}
}

func TestNormalizeNameWithDisabledTranslit(t *testing.T) {
	got := NormalizeNameWith(nil, "Ivanov Petrov")
	assert.Equal(t, "ivanov petrov", got)
}

func TestShortFormDetection(t *testing.T) {
	assert.True(t, IsShortForm("иванов и и"))
	assert.True(t, IsShortForm("иванов и"))
	assert.False(t, IsShortForm("иванов иван иванович"))
	assert.False(t, IsShortForm("иванов"))
	assert.False(t, IsShortForm("и и"))

	assert.True(t, IsInitialsOnly("и и"))
	assert.False(t, IsInitialsOnly("иванов и"))
	assert.False(t, IsInitialsOnly("и"))

	assert.Equal(t, "ии", InitialsOf([]string{"иван", "иванович"}))
}

func TestNameSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, NameSimilarity("Иванова Мария", "иванова мария"))
	assert.GreaterOrEqual(t, NameSimilarity("Иванова Мария", "Иванова Марья"), 0.70)
	assert.Less(t, NameSimilarity("Иванова Мария", "Кузнецов Степан"), 0.70)
	assert.Equal(t, 0.0, NameSimilarity("", "Иванова Мария"))
}
