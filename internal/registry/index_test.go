package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BeliaevDmitry/VSOKO-sub001/internal"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/util"
)

func TestBuildIndex(t *testing.T) {
	teachers := []internal.TeacherRecord{
		{ID: 1, FullName: "Иванова Мария Петровна"},
		{ID: 2, FullName: "Иванова Мария Петровна"},
		{ID: 3, FullName: "Кузнецов Олег Сергеевич"},
	}
	idx := BuildIndex(teachers)

	hit, ok := idx.FindByNormalizedName(util.NormalizeName("Иванова Мария Петровна"))
	assert.True(t, ok)
	// duplicates keep snapshot order, the earliest record wins
	assert.Equal(t, 1, hit.ID)

	_, ok = idx.FindByNormalizedName("петров петр петрович")
	assert.False(t, ok)

	assert.Len(t, idx.BySurname["иванова"], 2)
	assert.Len(t, idx.BySurname["кузнецов"], 1)
	assert.Len(t, idx.Ordered, 3)
}

func TestFindDuplicates(t *testing.T) {
	teachers := []internal.TeacherRecord{
		{ID: 1, FullName: "Иванова Мария Петровна"},
		{ID: 2, FullName: "Иванова Марья Петровна"},
		{ID: 3, FullName: "Кузнецов Олег Сергеевич"},
	}

	pairs := FindDuplicates(teachers, 0.70)
	assert.Len(t, pairs, 1)
	assert.Equal(t, 1, pairs[0].A.ID)
	assert.Equal(t, 2, pairs[0].B.ID)
	assert.GreaterOrEqual(t, pairs[0].Similarity, 0.70)
}

func TestSimilarTo(t *testing.T) {
	teachers := []internal.TeacherRecord{
		{ID: 1, FullName: "Иванова Мария Петровна"},
		{ID: 2, FullName: "Кузнецов Олег Сергеевич"},
	}

	hits := SimilarTo("Иванова Мария", teachers, 0.55)
	assert.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].ID)
}
