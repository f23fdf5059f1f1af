package registry

import (
	"github.com/BeliaevDmitry/VSOKO-sub001/internal"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/util"
)

// Index is a read-only lookup structure over one registry snapshot.
type Index struct {
	ByNormalizedName map[string][]internal.TeacherRecord
	BySurname        map[string][]internal.TeacherRecord
	Ordered          []internal.TeacherRecord
}

func BuildIndex(teachers []internal.TeacherRecord) *Index {
	idx := &Index{
		ByNormalizedName: map[string][]internal.TeacherRecord{},
		BySurname:        map[string][]internal.TeacherRecord{},
		Ordered:          teachers,
	}

	for _, t := range teachers {
		norm := t.NormalizedFullName
		if norm == "" {
			norm = util.NormalizeName(t.FullName)
		}
		idx.ByNormalizedName[norm] = append(idx.ByNormalizedName[norm], t)
		if tokens := util.NameTokens(norm); len(tokens) > 0 {
			idx.BySurname[tokens[0]] = append(idx.BySurname[tokens[0]], t)
		}
	}

	return idx
}

// FindByNormalizedName returns the first registry entry stored under the
// normalized key, preserving snapshot order among duplicates.
func (idx *Index) FindByNormalizedName(key string) (internal.TeacherRecord, bool) {
	if hits := idx.ByNormalizedName[key]; len(hits) > 0 {
		return hits[0], true
	}
	return internal.TeacherRecord{}, false
}
