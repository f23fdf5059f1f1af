package pipeline

import (
	"regexp"
	"strings"
)

// SubjectNotSpecified is stored when every extraction strategy fails.
const SubjectNotSpecified = "Предмет не указан"

// subjectKeywords lists lowercase stems found in filenames and free text
// with their canonical subject names. Order matters: when a text mentions
// several subjects the first stem in the list wins.
var subjectKeywords = []struct {
	stem      string
	canonical string
}{
	{"математик", "Математика"},
	{"русск", "Русский язык"},
	{"литератур", "Литература"},
	{"физик", "Физика"},
	{"хими", "Химия"},
	{"биолог", "Биология"},
	{"географ", "География"},
	{"истор", "История"},
	{"обществозн", "Обществознание"},
	{"информатик", "Информатика"},
	{"англ", "Английский язык"},
}

// Extractor is one strategy of a prioritized extraction chain.
type Extractor interface {
	TryExtract(text string) (string, bool)
}

// ExtractorFunc adapts a plain function to the Extractor interface.
type ExtractorFunc func(text string) (string, bool)

func (f ExtractorFunc) TryExtract(text string) (string, bool) { return f(text) }

// runChain tries extractors in priority order, first success wins.
func runChain(text string, chain []Extractor) (string, bool) {
	for _, e := range chain {
		if v, ok := e.TryExtract(text); ok {
			return v, true
		}
	}
	return "", false
}

// ExtractSubject finds the test subject, trying the source filename first,
// then lines near a recognized section header, then keyword stems anywhere
// in the text. Failure yields the "Предмет не указан" placeholder.
func ExtractSubject(filename, text string) string {
	chain := []Extractor{
		ExtractorFunc(func(string) (string, bool) { return subjectByKeyword(filename) }),
		ExtractorFunc(subjectNearHeader),
		ExtractorFunc(subjectByKeyword),
	}
	if v, ok := runChain(text, chain); ok {
		return v
	}
	return SubjectNotSpecified
}

var reSubjectHeader = regexp.MustCompile(`(?i)предмет[:\s]+([^\n,;]+)`)

func subjectNearHeader(text string) (string, bool) {
	m := reSubjectHeader.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	value := strings.TrimSpace(m[1])
	if value == "" {
		return "", false
	}
	// Prefer the canonical name when the header value carries a known stem.
	if canonical, ok := subjectByKeyword(value); ok {
		return canonical, true
	}
	return value, true
}

func subjectByKeyword(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range subjectKeywords {
		if strings.Contains(lower, kw.stem) {
			return kw.canonical, true
		}
	}
	return "", false
}

var (
	// \b does not understand Cyrillic, so the letter boundary is spelled out.
	reClassLabel = regexp.MustCompile(`(?i)(?:^|[^\d.])(\d{1,2})\s*[-–]?\s*[«"']?([а-яё])(?:[^а-яё]|$)`)
	reClassWord  = regexp.MustCompile(`(?i)класс`)
)

// ExtractClassLabel finds a "9А" style class label, trying the filename
// first and then lines mentioning "класс". Empty string when nothing fits.
func ExtractClassLabel(filename, text string) string {
	chain := []Extractor{
		ExtractorFunc(func(string) (string, bool) { return classLabelIn(filename) }),
		ExtractorFunc(func(t string) (string, bool) {
			for _, line := range strings.Split(t, "\n") {
				if !reClassWord.MatchString(line) {
					continue
				}
				if label, ok := classLabelIn(line); ok {
					return label, true
				}
			}
			return "", false
		}),
		ExtractorFunc(classLabelIn),
	}
	if v, ok := runChain(text, chain); ok {
		return v
	}
	return ""
}

func classLabelIn(s string) (string, bool) {
	m := reClassLabel.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1] + strings.ToUpper(m[2]), true
}

var reListDate = regexp.MustCompile(`\b(\d{2}\.\d{2}\.\d{4})\b`)

// ExtractDateText finds the first dd.mm.yyyy date in the text; the empty
// string means the caller should fall back to ParseReportDate defaulting.
func ExtractDateText(text string) string {
	if m := reListDate.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}
