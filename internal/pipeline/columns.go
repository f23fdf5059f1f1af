package pipeline

import (
	"strconv"
	"strings"

	"github.com/BeliaevDmitry/VSOKO-sub001/internal"
)

// Section headers that look numeric-adjacent but are not task numbers.
var taskDecoys = []string{"баллы", "задания", "ответы", "задание"}

// DetectColumns infers the task/total column layout of a protocol header
// row. fixedColumns is the count of leading service columns (№, name,
// presence, variant) to skip before looking for the first task number.
// expectedTasks <= 0 disables the drift check. An invalid structure means
// the caller must not parse any student rows from that sheet.
func DetectColumns(header []string, expectedTasks, fixedColumns, maxDrift int) (internal.ColumnStructure, bool) {
	var cs internal.ColumnStructure

	total := -1
	lastPopulated := -1
	for i, cell := range header {
		norm := strings.ToLower(strings.TrimSpace(cell))
		if norm != "" {
			lastPopulated = i
		}
		if total < 0 && (norm == "итог" || norm == "итого") {
			total = i
		}
	}
	if total < 0 {
		if lastPopulated < 0 {
			return cs, false
		}
		total = lastPopulated
		cs.TotalFallback = true
	}
	cs.TotalCol = total

	first := -1
	for i := fixedColumns; i < total && i < len(header); i++ {
		if isTaskNumberCell(header[i]) {
			first = i
			break
		}
	}
	if first < 0 {
		return cs, false
	}

	cs.FirstTaskCol = first
	cs.LastTaskCol = total - 1
	cs.TaskCount = cs.LastTaskCol - cs.FirstTaskCol + 1

	if expectedTasks > 0 && cs.TaskCount != expectedTasks {
		cs.Drift = cs.TaskCount - expectedTasks
		drift := cs.Drift
		if drift < 0 {
			drift = -drift
		}
		if drift > maxDrift {
			cs.LikelyCorrupt = true
		}
	}

	return cs, cs.Valid()
}

// isTaskNumberCell accepts cells holding a bare task number, tolerating a
// single trailing period ("5." style headers), and rejects section-header
// decoys and out-of-range values.
func isTaskNumberCell(cell string) bool {
	norm := strings.ToLower(strings.TrimSpace(cell))
	if norm == "" {
		return false
	}
	for _, decoy := range taskDecoys {
		if strings.Contains(norm, decoy) {
			return false
		}
	}
	norm = strings.TrimSuffix(norm, ".")
	value, err := strconv.ParseFloat(norm, 64)
	if err != nil {
		return false
	}
	return value > 0 && value <= 100
}
