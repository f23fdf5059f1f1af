package pipeline

import "testing"

func TestExtractSubject(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		text     string
		want     string
	}{
		{name: "from filename", filename: "протокол_математика_9а.pdf", text: "Список участников", want: "Математика"},
		{name: "from header line", filename: "scan0001.pdf", text: "Диагностическая работа\nПредмет: Физика\n9 класс", want: "Физика"},
		{name: "header wins over keyword", filename: "scan.pdf", text: "Предмет: Химия\nматематика 9 класс", want: "Химия"},
		{name: "header value canonicalized", filename: "scan.pdf", text: "Предмет: русский язык, 9А", want: "Русский язык"},
		{name: "keyword anywhere", filename: "scan.pdf", text: "Результаты по биологии за сентябрь", want: "Биология"},
		{name: "two stems keep list order", filename: "scan.pdf", text: "Срез по математике и физике", want: "Математика"},
		{name: "nothing found", filename: "scan0001.pdf", text: "Список участников\n1. Иванов", want: SubjectNotSpecified},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractSubject(tc.filename, tc.text); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestExtractClassLabel(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		text     string
		want     string
	}{
		{name: "from filename", filename: "протокол_9а.pdf", text: "", want: "9А"},
		{name: "class line preferred", filename: "scan.pdf", text: "Работа от 15.09.2025\nКласс: 5 «Б»\n7В корпус", want: "5Б"},
		{name: "dashed label", filename: "scan.pdf", text: "10-А класс", want: "10А"},
		{name: "bare label anywhere", filename: "scan.pdf", text: "Протокол 8В", want: "8В"},
		{name: "year digits ignored", filename: "scan.pdf", text: "Протокол за 2024г", want: ""},
		{name: "nothing found", filename: "scan.pdf", text: "Список участников", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractClassLabel(tc.filename, tc.text); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestExtractDateText(t *testing.T) {
	if got := ExtractDateText("работа от 15.09.2025 г."); got != "15.09.2025" {
		t.Fatalf("got %q", got)
	}
	if got := ExtractDateText("дата не указана"); got != "" {
		t.Fatalf("got %q", got)
	}
}
