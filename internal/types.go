package internal

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

type ResultSource string

const (
	SourceEmailText      ResultSource = "email_text"
	SourceEmailHTMLTable ResultSource = "email_html_table"
	SourceXLSX           ResultSource = "xlsx"
	SourcePDF            ResultSource = "pdf"
)

// TeacherRecord is one entry of the staff registry. The pipeline only ever
// reads snapshots of these; the registry sync service is the single writer.
type TeacherRecord struct {
	ID                 int
	FullName           string
	NormalizedFullName string
	LastName           string
	FirstName          string
	MiddleName         string
	Active             bool
}

// Initials returns the lowercase first letters of the stored first and
// middle names, e.g. "ии" for Иван Иванович.
func (t TeacherRecord) Initials() string {
	out := ""
	for _, part := range []string{t.FirstName, t.MiddleName} {
		for _, r := range part {
			out += string(unicode.ToLower(r))
			break
		}
	}
	return out
}

type MatchLayer string

const (
	LayerExact    MatchLayer = "EXACT"
	LayerSurname  MatchLayer = "SURNAME"
	LayerInitials MatchLayer = "INITIALS"
	LayerTokens   MatchLayer = "TOKENS"
	LayerFallback MatchLayer = "FALLBACK"
	LayerNone     MatchLayer = "NONE"
)

// TeacherMatch reports the outcome of identity resolution together with the
// layer that decided it, so callers can apply their own confidence gate
// (LayerFallback is a best-effort guess, everything else is rule-backed).
type TeacherMatch struct {
	Matched bool
	Layer   MatchLayer
	Teacher *TeacherRecord
}

// ColumnStructure maps a protocol header row onto task and total columns.
// Column indices are zero-based positions in the header row.
type ColumnStructure struct {
	FirstTaskCol  int
	LastTaskCol   int
	TotalCol      int
	TaskCount     int
	TotalFallback bool // no "Итог" header found, last populated column used
	Drift         int  // detected minus expected task count, 0 when they agree
	LikelyCorrupt bool // |Drift| exceeded the configured tolerance
}

// Valid reports whether the structure anchors are usable. An invalid
// structure means no student rows may be parsed from that sheet.
func (c ColumnStructure) Valid() bool {
	return c.FirstTaskCol > 0 &&
		c.LastTaskCol >= c.FirstTaskCol &&
		c.TotalCol > c.LastTaskCol &&
		c.TaskCount > 0
}

// ScoreMap maps 1-based task numbers to integer scores.
type ScoreMap map[int]int

func (m ScoreMap) Total() int {
	sum := 0
	for _, v := range m {
		sum += v
	}
	return sum
}

// Display renders the map as "1=2, 2=3, ..." ordered by task number.
func (m ScoreMap) Display() string {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%d=%d", k, m[k]))
	}
	return strings.Join(parts, ", ")
}

// StudentResult is one parsed row of a protocol sheet or result table.
type StudentResult struct {
	RowNo         int
	StudentName   string
	ClassLabel    string
	Present       bool
	Variant       string
	Scores        ScoreMap
	Total         int
	TotalMismatch int // explicit total minus sum of task scores, 0 when consistent
}

// ReportMeta holds the per-sheet metadata block of a protocol.
type ReportMeta struct {
	Subject    string
	ClassLabel string
	TeacherRaw string
	TestDate   string // ISO yyyy-mm-dd
	DateIsReal bool   // false when the date defaulted to "today"
	MaxScores  ScoreMap
}

// ParsedProtocol is the outcome of parsing one sheet, table or list.
type ParsedProtocol struct {
	Source     ResultSource
	Sheet      string
	Meta       ReportMeta
	Structure  ColumnStructure
	Results    []StudentResult
	Skipped    bool
	SkipReason string
}

// ParticipantList is the outcome of parsing a PDF participant/result list.
type ParticipantList struct {
	Subject      string
	ClassLabel   string
	TestDate     string
	Participants []string
}

type ReportRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

type ResultExportRow struct {
	RowNo           int
	Source          string
	Sheet           string
	StudentName     string
	ClassLabel      string
	Subject         string
	TestDate        string
	Scores          string
	Total           int
	TotalMismatch   int
	TeacherRaw      string
	MatchLayer      string
	TeacherID       *int
	TeacherFullName *string
}
