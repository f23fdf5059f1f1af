package pipeline

import (
	"testing"

	"go.uber.org/zap"

	"github.com/BeliaevDmitry/VSOKO-sub001/internal"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/registry"
)

func TestMatcherLayers(t *testing.T) {
	m := NewMatcher(zap.NewNop().Sugar())
	ivanov := internal.TeacherRecord{ID: 1, FullName: "Иванов Иван Иванович"}

	cases := []struct {
		name    string
		query   string
		matched bool
		layer   internal.MatchLayer
	}{
		{name: "exact", query: "Иванов Иван Иванович", matched: true, layer: internal.LayerExact},
		{name: "exact after normalization", query: "  ИВАНОВ Иван  Иванович. ", matched: true, layer: internal.LayerExact},
		{name: "surname only", query: "Иванов", matched: true, layer: internal.LayerSurname},
		{name: "initials short form", query: "Иванов И.И.", matched: true, layer: internal.LayerInitials},
		{name: "initials first", query: "И.И. Иванов", matched: true, layer: internal.LayerInitials},
		{name: "token overlap", query: "Иванов Иван", matched: true, layer: internal.LayerTokens},
		{name: "wrong surname", query: "Петров И.И.", matched: false, layer: internal.LayerNone},
		{name: "wrong initials", query: "Иванов П.С.", matched: false, layer: internal.LayerNone},
		{name: "empty", query: "", matched: false, layer: internal.LayerNone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			matched, layer := m.Match(tc.query, ivanov)
			if matched != tc.matched || layer != tc.layer {
				t.Fatalf("got matched=%v layer=%s, want matched=%v layer=%s", matched, layer, tc.matched, tc.layer)
			}
		})
	}
}

func TestFindBest(t *testing.T) {
	m := NewMatcher(zap.NewNop().Sugar())
	teachers := []internal.TeacherRecord{
		{ID: 1, FullName: "Иванов Иван Иванович"},
		{ID: 2, FullName: "Иванов Петр Сергеевич"},
		{ID: 3, FullName: "Кузнецова Мария Павловна"},
	}
	idx := registry.BuildIndex(teachers)

	// Initials disambiguate between same-surname candidates.
	res := m.FindBest("Иванов П.С.", idx)
	if !res.Matched || res.Teacher.ID != 2 || res.Layer != internal.LayerInitials {
		t.Fatalf("unexpected result: %+v", res)
	}

	// Exact normalized equality resolves through the index key.
	res = m.FindBest("кузнецова мария павловна", idx)
	if !res.Matched || res.Teacher.ID != 3 || res.Layer != internal.LayerExact {
		t.Fatalf("unexpected result: %+v", res)
	}

	// Unique surname resolves directly.
	res = m.FindBest("Кузнецова", idx)
	if !res.Matched || res.Teacher.ID != 3 || res.Layer != internal.LayerSurname {
		t.Fatalf("unexpected result: %+v", res)
	}

	// Unknown surname matches nothing.
	res = m.FindBest("Смирнова А.А.", idx)
	if res.Matched || res.Layer != internal.LayerNone {
		t.Fatalf("unexpected result: %+v", res)
	}

	res = m.FindBest("", idx)
	if res.Matched {
		t.Fatalf("empty query matched: %+v", res)
	}
}

func TestFindBestFallbackTieBreak(t *testing.T) {
	m := NewMatcher(zap.NewNop().Sugar())
	teachers := []internal.TeacherRecord{
		{ID: 7, FullName: "Иванов Иван Иванович"},
		{ID: 9, FullName: "Иванов Иван Петрович"},
	}

	// "Иванов Х.Х." shares the surname with both candidates but matches
	// neither one's initials; the first candidate in list order wins and
	// the fallback layer marks the weak decision.
	res := m.FindBest("Иванов С.С.", registry.BuildIndex(teachers))
	if !res.Matched || res.Layer != internal.LayerFallback {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Teacher.ID != 7 {
		t.Fatalf("tie-break picked id=%d, want first candidate", res.Teacher.ID)
	}

	// Same list reversed picks the other record: deterministic, order-driven.
	reversed := []internal.TeacherRecord{teachers[1], teachers[0]}
	res = m.FindBest("Иванов С.С.", registry.BuildIndex(reversed))
	if !res.Matched || res.Teacher.ID != 9 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestFindBestSingleSurnameFallback(t *testing.T) {
	m := NewMatcher(zap.NewNop().Sugar())
	teachers := []internal.TeacherRecord{
		{ID: 1, FullName: "Иванов Иван Иванович"},
		{ID: 2, FullName: "Кузнецова Мария Павловна"},
	}

	// No layer fires for mismatched initials, but a single same-surname
	// candidate is still accepted through the fallback.
	res := m.FindBest("Иванов А.Б.", registry.BuildIndex(teachers))
	if !res.Matched || res.Teacher.ID != 1 || res.Layer != internal.LayerFallback {
		t.Fatalf("unexpected result: %+v", res)
	}
}
