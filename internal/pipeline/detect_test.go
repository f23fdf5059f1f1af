package pipeline

import "testing"

func TestDetectReportSubmission(t *testing.T) {
	cases := []struct {
		name        string
		subject     string
		text        string
		attachments []string
		want        bool
	}{
		{
			name:        "keyword subject with workbook",
			subject:     "Протокол диагностики 9А",
			attachments: []string{"протокол_9а.xlsx"},
			want:        true,
		},
		{
			name:    "keyword text with class mention",
			subject: "Fwd: результаты",
			text:    "Отправляю результаты среза по 5Б классу",
			want:    true,
		},
		{
			name:    "plain correspondence",
			subject: "Re: расписание на пятницу",
			text:    "Добрый день! Подтверждаю встречу.",
			want:    false,
		},
		{
			name:        "attachment alone is not enough",
			subject:     "Документы",
			attachments: []string{"scan.pdf"},
			want:        false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DetectReportSubmission(tc.subject, tc.text, tc.attachments)
			if got.IsReport != tc.want {
				t.Fatalf("score=%.2f isReport=%v want %v", got.Score, got.IsReport, tc.want)
			}
		})
	}
}
