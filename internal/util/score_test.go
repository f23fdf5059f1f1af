package util

import (
	"testing"
	"time"

	"github.com/BeliaevDmitry/VSOKO-sub001/internal"
)

func TestParseMaxScores(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  internal.ScoreMap
	}{
		{name: "plain pairs", input: "1=2, 2=2, 3=3", want: internal.ScoreMap{1: 2, 2: 2, 3: 3}},
		{name: "no spaces", input: "1=5,2=1", want: internal.ScoreMap{1: 5, 2: 1}},
		{name: "sentinel", input: "нет баллов", want: internal.ScoreMap{}},
		{name: "sentinel mixed case", input: "Нет Баллов", want: internal.ScoreMap{}},
		{name: "empty", input: "", want: internal.ScoreMap{}},
		{name: "malformed pairs dropped", input: "1=2, x=3, 2, 3=y", want: internal.ScoreMap{1: 2}},
		{name: "zero task dropped", input: "0=5, 1=2", want: internal.ScoreMap{1: 2}},
		{name: "negative score dropped", input: "1=-3, 2=4", want: internal.ScoreMap{2: 4}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseMaxScores(tc.input)
			if len(got) != len(tc.want) {
				t.Fatalf("got %v want %v", got, tc.want)
			}
			for task, score := range tc.want {
				if got[task] != score {
					t.Fatalf("task %d: got %d want %d", task, got[task], score)
				}
			}
		})
	}
}

func TestParseReportDate(t *testing.T) {
	d, ok := ParseReportDate("15.09.2025")
	if !ok || d.Format("2006-01-02") != "2025-09-15" {
		t.Fatalf("dd.mm.yyyy: got %v ok=%v", d, ok)
	}

	d, ok = ParseReportDate("2025-09-15")
	if !ok || d.Format("2006-01-02") != "2025-09-15" {
		t.Fatalf("iso: got %v ok=%v", d, ok)
	}

	d, ok = ParseReportDate("когда-то осенью")
	if ok {
		t.Fatalf("garbage parsed as real date")
	}
	if time.Since(d) > time.Minute {
		t.Fatalf("fallback is not today: %v", d)
	}

	_, ok = ParseReportDate("")
	if ok {
		t.Fatalf("empty input parsed as real date")
	}
}

func TestClampScore(t *testing.T) {
	if got := ClampScore(5, 3); got != 3 {
		t.Fatalf("got %d want 3", got)
	}
	if got := ClampScore(2, 3); got != 2 {
		t.Fatalf("got %d want 2", got)
	}
	// unknown maximum leaves the score alone
	if got := ClampScore(99, 0); got != 99 {
		t.Fatalf("got %d want 99", got)
	}
}

func TestParseCellInt(t *testing.T) {
	cases := []struct {
		input string
		want  int
		ok    bool
	}{
		{input: "3", want: 3, ok: true},
		{input: " 12 ", want: 12, ok: true},
		{input: "3,0", want: 3, ok: true},
		{input: "3.0", want: 3, ok: true},
		{input: "", ok: false},
		{input: "н", ok: false},
	}
	for _, tc := range cases {
		got, ok := ParseCellInt(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("%q: got %d ok=%v", tc.input, got, ok)
		}
	}
}
