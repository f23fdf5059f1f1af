package pipeline

import "testing"

func TestParseResultLines(t *testing.T) {
	text := "Добрый день!\nРезультаты по математике:\nИванов Петр — 18\nСидорова Анна - 21 баллов\nКузнецов О. 15\nС уважением, классный руководитель\n"

	results := parseResultLines(text)
	if len(results) != 3 {
		t.Fatalf("results=%d: %+v", len(results), results)
	}
	if results[0].StudentName != "Иванов Петр" || results[0].Total != 18 {
		t.Fatalf("first: %+v", results[0])
	}
	if results[1].StudentName != "Сидорова Анна" || results[1].Total != 21 {
		t.Fatalf("second: %+v", results[1])
	}
	if results[2].StudentName != "Кузнецов О." || results[2].Total != 15 {
		t.Fatalf("third: %+v", results[2])
	}
}

func TestParseResultLinesNoMatches(t *testing.T) {
	if results := parseResultLines("Отправляю протокол во вложении.\nСпасибо!"); len(results) != 0 {
		t.Fatalf("results=%d", len(results))
	}
}

func TestLooksLikePersonLine(t *testing.T) {
	valid := []string{"Иванов Петр", "Иванова Анна Сергеевна", "Петрова-Сидорова Мария"}
	for _, line := range valid {
		if !looksLikePersonLine(line) {
			t.Fatalf("%q rejected", line)
		}
	}
	invalid := []string{"Список участников", "иванов петр", "Иванов", "1. Иванов Петр", "Математика 9А"}
	for _, line := range invalid {
		if looksLikePersonLine(line) {
			t.Fatalf("%q accepted", line)
		}
	}
}
