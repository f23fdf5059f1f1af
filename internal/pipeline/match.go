package pipeline

import (
	"go.uber.org/zap"

	"github.com/BeliaevDmitry/VSOKO-sub001/internal"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/registry"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/util"
)

// Matcher resolves noisy teacher names against an indexed registry
// snapshot. The snapshot is treated as immutable for the duration of every
// call; snapshot order matters because the documented last-resort
// tie-break is "first candidate in snapshot order".
type Matcher struct {
	log *zap.SugaredLogger
}

func NewMatcher(log *zap.SugaredLogger) *Matcher {
	return &Matcher{log: log}
}

// Match decides query-vs-candidate identity through layered rules, first
// success wins. Exact normalized equality goes first; the remaining layers
// (surname-only queries, "Фамилия И.О." initials, non-surname token
// overlap) apply only when the surnames agree.
func (m *Matcher) Match(query string, candidate internal.TeacherRecord) (bool, internal.MatchLayer) {
	return m.matchNormalized(util.NormalizeName(query), candidate)
}

func (m *Matcher) matchNormalized(query string, candidate internal.TeacherRecord) (bool, internal.MatchLayer) {
	cand := normalizedCandidate(candidate)
	if query == "" || cand == "" {
		return false, internal.LayerNone
	}
	if query == cand {
		return true, internal.LayerExact
	}

	qt := util.NameTokens(query)
	ct := util.NameTokens(cand)
	if qt[0] != ct[0] {
		// Surname disagreement short-circuits every remaining layer.
		return false, internal.LayerNone
	}
	if len(qt) == 1 {
		return true, internal.LayerSurname
	}

	if util.IsShortForm(query) {
		if util.InitialsOf(qt[1:]) == candidateInitials(candidate, ct) {
			return true, internal.LayerInitials
		}
	}

	candRest := map[string]struct{}{}
	for _, t := range ct[1:] {
		candRest[t] = struct{}{}
	}
	for _, t := range qt[1:] {
		if _, ok := candRest[t]; ok {
			return true, internal.LayerTokens
		}
	}

	return false, internal.LayerNone
}

// FindBest resolves a query against a snapshot index. Exact normalized
// equality is an index lookup; every other layer is tried against the
// query's surname bucket in snapshot order. When no layer fires, a fuzzy
// fallback narrows the same bucket by initials. When several candidates
// stay ambiguous the first one in snapshot order wins; callers can detect
// that weak tie-break through LayerFallback.
func (m *Matcher) FindBest(query string, idx *registry.Index) internal.TeacherMatch {
	normalized := util.NormalizeName(query)
	if normalized == "" {
		return internal.TeacherMatch{Layer: internal.LayerNone}
	}

	if rec, ok := idx.FindByNormalizedName(normalized); ok {
		return internal.TeacherMatch{Matched: true, Layer: internal.LayerExact, Teacher: &rec}
	}

	qt := util.NameTokens(normalized)
	bucket := idx.BySurname[qt[0]]
	for i := range bucket {
		if ok, layer := m.matchNormalized(normalized, bucket[i]); ok {
			return internal.TeacherMatch{Matched: true, Layer: layer, Teacher: &bucket[i]}
		}
	}

	switch {
	case len(bucket) == 0:
		return internal.TeacherMatch{Layer: internal.LayerNone}
	case len(bucket) == 1:
		return internal.TeacherMatch{Matched: true, Layer: internal.LayerFallback, Teacher: &bucket[0]}
	}

	if len(qt) >= 2 {
		initials := util.InitialsOf(qt[1:])
		for i := range bucket {
			ct := util.NameTokens(normalizedCandidate(bucket[i]))
			if candidateInitials(bucket[i], ct) == initials {
				return internal.TeacherMatch{Matched: true, Layer: internal.LayerFallback, Teacher: &bucket[i]}
			}
		}
	}

	m.log.Warnw("ambiguous teacher match, taking first candidate",
		"query", query, "candidates", len(bucket))
	return internal.TeacherMatch{Matched: true, Layer: internal.LayerFallback, Teacher: &bucket[0]}
}

// normalizedCandidate prefers the stored normalized form, recomputing it
// for records that bypassed registry sync.
func normalizedCandidate(t internal.TeacherRecord) string {
	if t.NormalizedFullName != "" {
		return t.NormalizedFullName
	}
	return util.NormalizeName(t.FullName)
}

// candidateInitials derives initials from the split name fields, falling
// back to the normalized tokens past the surname for records that were
// never split.
func candidateInitials(t internal.TeacherRecord, ct []string) string {
	if in := t.Initials(); in != "" {
		return in
	}
	if len(ct) < 2 {
		return ""
	}
	return util.InitialsOf(ct[1:])
}
