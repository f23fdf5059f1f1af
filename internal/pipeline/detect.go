package pipeline

import "strings"

type DetectResult struct {
	IsReport bool
	Score    float64
	Reason   string
}

var reportKeywords = []string{"протокол", "ведомост", "результат", "диагностик", "срез", "мониторинг", "впр", "кдр"}

// DetectReportSubmission decides whether an email is a test-report
// submission using cheap keyword and attachment rules.
func DetectReportSubmission(subject, text string, attachmentNames []string) DetectResult {
	subject = strings.ToLower(subject)
	text = strings.ToLower(text)

	score := 0.0
	for _, kw := range reportKeywords {
		if strings.Contains(subject, kw) {
			score += 0.25
		}
		if strings.Contains(text, kw) {
			score += 0.1
		}
	}

	for _, name := range attachmentNames {
		ln := strings.ToLower(name)
		if strings.HasSuffix(ln, ".xlsx") || strings.HasSuffix(ln, ".xls") || strings.HasSuffix(ln, ".pdf") {
			score += 0.3
			break
		}
	}

	if strings.Contains(text, "класс") || strings.Contains(subject, "класс") {
		score += 0.15
	}
	if score > 1 {
		score = 1
	}

	isReport := score >= 0.45
	reason := "rules_negative"
	if isReport {
		reason = "rules_positive"
	}

	return DetectResult{IsReport: isReport, Score: score, Reason: reason}
}
