package util

import (
	"strconv"
	"strings"
	"time"

	"github.com/BeliaevDmitry/VSOKO-sub001/internal"
)

// noScoresSentinel marks protocols that carry no per-task maximums.
const noScoresSentinel = "нет баллов"

// ParseMaxScores parses comma-separated "taskNumber=maxScore" pairs, e.g.
// "1=2, 2=2, 3=3". Pairs that fail integer parsing on either side are
// dropped silently; empty input or the "нет баллов" sentinel yields an
// empty map.
func ParseMaxScores(text string) internal.ScoreMap {
	out := internal.ScoreMap{}
	t := strings.TrimSpace(text)
	if t == "" || strings.EqualFold(t, noScoresSentinel) {
		return out
	}

	for _, segment := range strings.Split(t, ",") {
		kv := strings.SplitN(segment, "=", 2)
		if len(kv) != 2 {
			continue
		}
		task, err := strconv.Atoi(strings.TrimSpace(kv[0]))
		if err != nil || task <= 0 {
			continue
		}
		score, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil || score < 0 {
			continue
		}
		out[task] = score
	}
	return out
}

// ParseReportDate accepts dd.mm.yyyy, falling back to ISO 8601 when the
// input has no dot separator. Unparseable or empty input yields today's
// date with ok=false; callers must treat that as a soft default, not a
// verified value.
func ParseReportDate(text string) (time.Time, bool) {
	t := strings.TrimSpace(text)
	if t != "" {
		layout := "2006-01-02"
		if strings.Contains(t, ".") {
			layout = "02.01.2006"
		}
		if parsed, err := time.Parse(layout, t); err == nil {
			return parsed, true
		}
	}
	return time.Now(), false
}

// ClampScore caps a task score at the task's known maximum. A maximum of
// zero means "unknown" and leaves the score untouched.
func ClampScore(score, max int) int {
	if max > 0 && score > max {
		return max
	}
	return score
}

// ParseCellInt reads an integer out of a loosely formatted spreadsheet cell.
// Missing or unparseable content reports ok=false; the caller defaults to 0.
func ParseCellInt(cell string) (int, bool) {
	t := strings.TrimSpace(cell)
	if t == "" {
		return 0, false
	}
	if v, err := strconv.Atoi(t); err == nil {
		return v, true
	}
	// Some protocols carry "3.0" style values from formula cells.
	if f, err := strconv.ParseFloat(strings.ReplaceAll(t, ",", "."), 64); err == nil {
		return int(f), true
	}
	return 0, false
}
