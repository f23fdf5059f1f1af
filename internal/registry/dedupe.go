package registry

import (
	"github.com/BeliaevDmitry/VSOKO-sub001/internal"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/util"
)

// DuplicatePair is two registry entries whose names are probably the same
// person, found by the edit-distance probe rather than the layered matcher.
type DuplicatePair struct {
	A          internal.TeacherRecord
	B          internal.TeacherRecord
	Similarity float64
}

// FindDuplicates compares every pair of records and reports those whose
// name similarity reaches the threshold. Quadratic, but a school registry
// holds at most a few hundred entries.
func FindDuplicates(teachers []internal.TeacherRecord, threshold float64) []DuplicatePair {
	out := []DuplicatePair{}
	for i := 0; i < len(teachers); i++ {
		for j := i + 1; j < len(teachers); j++ {
			if teachers[i].ID == teachers[j].ID {
				continue
			}
			sim := util.NameSimilarity(teachers[i].FullName, teachers[j].FullName)
			if sim >= threshold {
				out = append(out, DuplicatePair{A: teachers[i], B: teachers[j], Similarity: sim})
			}
		}
	}
	return out
}

// SimilarTo returns registry entries whose name similarity to the query
// reaches the threshold, in snapshot order.
func SimilarTo(query string, teachers []internal.TeacherRecord, threshold float64) []internal.TeacherRecord {
	out := []internal.TeacherRecord{}
	for _, t := range teachers {
		if util.NameSimilarity(query, t.FullName) >= threshold {
			out = append(out, t)
		}
	}
	return out
}
