package pipeline

import "testing"

func TestDetectColumns(t *testing.T) {
	header := []string{"№", "ФИО", "Присутствие", "Вариант", "1", "2", "3", "Итог"}

	cs, ok := DetectColumns(header, 3, 3, 5)
	if !ok {
		t.Fatalf("structure not detected: %+v", cs)
	}
	if cs.FirstTaskCol != 4 || cs.LastTaskCol != 6 || cs.TotalCol != 7 || cs.TaskCount != 3 {
		t.Fatalf("unexpected layout: %+v", cs)
	}
	if cs.TotalFallback || cs.Drift != 0 || cs.LikelyCorrupt {
		t.Fatalf("unexpected flags: %+v", cs)
	}
}

func TestDetectColumnsTotalFallback(t *testing.T) {
	// No "итог" header; the last populated cell stands in for the total.
	header := []string{"№", "ФИО", "Вариант", "1", "2", "Сумма"}

	cs, ok := DetectColumns(header, 2, 3, 5)
	if !ok {
		t.Fatalf("structure not detected: %+v", cs)
	}
	if !cs.TotalFallback {
		t.Fatalf("expected total fallback: %+v", cs)
	}
	if cs.FirstTaskCol != 3 || cs.LastTaskCol != 4 || cs.TotalCol != 5 {
		t.Fatalf("unexpected layout: %+v", cs)
	}
}

func TestDetectColumnsDecoys(t *testing.T) {
	// "Баллы за задания" holds digits but is a section header, not a task.
	header := []string{"№", "ФИО", "Вариант", "Баллы за задания 1-5", "1", "2", "Итог"}

	cs, ok := DetectColumns(header, 2, 3, 5)
	if !ok {
		t.Fatalf("structure not detected: %+v", cs)
	}
	if cs.FirstTaskCol != 4 {
		t.Fatalf("decoy picked as first task: %+v", cs)
	}
}

func TestDetectColumnsTrailingDot(t *testing.T) {
	header := []string{"№", "ФИО", "Вариант", "1.", "2.", "Итог"}
	cs, ok := DetectColumns(header, 2, 3, 5)
	if !ok || cs.FirstTaskCol != 3 {
		t.Fatalf("dotted task headers rejected: %+v ok=%v", cs, ok)
	}
}

func TestDetectColumnsDrift(t *testing.T) {
	header := []string{"№", "ФИО", "Вариант", "1", "2", "3", "4", "5", "Итог"}

	// Small drift is tolerated but recorded.
	cs, ok := DetectColumns(header, 3, 3, 5)
	if !ok {
		t.Fatalf("structure not detected: %+v", cs)
	}
	if cs.Drift != 2 || cs.LikelyCorrupt {
		t.Fatalf("unexpected drift flags: %+v", cs)
	}

	// Past the tolerance the sheet is flagged but still parseable.
	cs, ok = DetectColumns(header, 3, 3, 1)
	if !ok {
		t.Fatalf("structure not detected: %+v", cs)
	}
	if !cs.LikelyCorrupt {
		t.Fatalf("expected corruption flag: %+v", cs)
	}
}

func TestDetectColumnsInvalid(t *testing.T) {
	cases := []struct {
		name   string
		header []string
	}{
		{name: "empty header", header: nil},
		{name: "no task numbers", header: []string{"№", "ФИО", "Вариант", "Итог"}},
		{name: "blank cells only", header: []string{"", "", ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := DetectColumns(tc.header, 3, 3, 5); ok {
				t.Fatalf("invalid header accepted")
			}
		})
	}
}

func TestIsTaskNumberCell(t *testing.T) {
	valid := []string{"1", "12", " 3 ", "5.", "2.0"}
	for _, c := range valid {
		if !isTaskNumberCell(c) {
			t.Fatalf("%q rejected", c)
		}
	}
	invalid := []string{"", "0", "101", "-1", "Баллы", "задание 1", "ФИО"}
	for _, c := range invalid {
		if isTaskNumberCell(c) {
			t.Fatalf("%q accepted", c)
		}
	}
}
