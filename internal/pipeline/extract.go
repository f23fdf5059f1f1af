package pipeline

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/BeliaevDmitry/VSOKO-sub001/internal"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/config"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/util"
)

// SheetReader is the narrow read surface the protocol parser needs from a
// spreadsheet. A cell formatted as a date must already be surfaced as a
// dd.mm.yyyy or ISO string by the implementation.
type SheetReader interface {
	CellText(row, col int) (string, bool)
	CellInt(row, col int) (int, bool)
	RowCount() int
	RowLen(row int) int
}

type gridReader struct {
	rows [][]string
}

func (g gridReader) CellText(row, col int) (string, bool) {
	if row < 0 || row >= len(g.rows) || col < 0 || col >= len(g.rows[row]) {
		return "", false
	}
	v := strings.TrimSpace(g.rows[row][col])
	if v == "" {
		return "", false
	}
	return v, true
}

func (g gridReader) CellInt(row, col int) (int, bool) {
	text, ok := g.CellText(row, col)
	if !ok {
		return 0, false
	}
	return util.ParseCellInt(text)
}

func (g gridReader) RowCount() int { return len(g.rows) }

func (g gridReader) RowLen(row int) int {
	if row < 0 || row >= len(g.rows) {
		return 0
	}
	return len(g.rows[row])
}

// ProtocolParser turns raw report payloads into parsed protocols.
type ProtocolParser struct {
	cfg config.Config
	log *zap.SugaredLogger
}

func NewProtocolParser(cfg config.Config, log *zap.SugaredLogger) *ProtocolParser {
	return &ProtocolParser{cfg: cfg, log: log}
}

// EmailExtraction is everything pulled out of one report email.
type EmailExtraction struct {
	Protocols       []internal.ParsedProtocol
	Subject         string
	Text            string
	AttachmentNames []string
}

func (p *ProtocolParser) ExtractFromEmailRaw(raw []byte) (EmailExtraction, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return EmailExtraction{}, err
	}

	out := EmailExtraction{Subject: env.GetHeader("Subject"), Text: env.Text}
	if env.Text != "" {
		if results := parseResultLines(env.Text); len(results) > 0 {
			out.Protocols = append(out.Protocols, internal.ParsedProtocol{
				Source:  internal.SourceEmailText,
				Results: results,
			})
		}
	}
	if env.HTML != "" {
		out.Protocols = append(out.Protocols, parseHTMLResultTables(env.HTML)...)
	}

	for _, att := range env.Attachments {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" {
			filename = "attachment"
		}
		out.AttachmentNames = append(out.AttachmentNames, filename)
		lower := strings.ToLower(filename)

		switch {
		case strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls"):
			protocols, err := p.ParseWorkbook(att.Content)
			if err != nil {
				p.log.Warnw("workbook attachment unreadable", "attachment", filename, "error", err)
				continue
			}
			out.Protocols = append(out.Protocols, protocols...)
		case strings.HasSuffix(lower, ".pdf"):
			list, err := p.ParsePDFList(att.Content, filename)
			if err != nil {
				p.log.Warnw("pdf attachment unreadable", "attachment", filename, "error", err)
				continue
			}
			out.Protocols = append(out.Protocols, listToProtocol(list))
		}
	}

	return out, nil
}

// ParseWorkbook parses every sheet of a protocol workbook. Sheets whose
// column structure cannot be detected are reported as skipped with zero
// results rather than failing the whole workbook.
func (p *ProtocolParser) ParseWorkbook(content []byte) ([]internal.ParsedProtocol, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make([]internal.ParsedProtocol, 0)
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		out = append(out, p.ParseProtocolSheet(sheet, gridReader{rows: rows}))
	}
	return out, nil
}

// ParseProtocolSheet parses one protocol sheet: the metadata block on top,
// then the header row, then student rows anchored by the detected column
// structure.
func (p *ProtocolParser) ParseProtocolSheet(sheet string, reader SheetReader) internal.ParsedProtocol {
	protocol := internal.ParsedProtocol{Source: internal.SourceXLSX, Sheet: sheet}

	headerRow := findHeaderRow(reader)
	protocol.Meta = p.scanMeta(reader, headerRow)

	if headerRow < 0 {
		protocol.Skipped = true
		protocol.SkipReason = "header row not found"
		p.log.Warnw("protocol sheet skipped", "sheet", sheet, "reason", protocol.SkipReason)
		return protocol
	}

	expected := len(protocol.Meta.MaxScores)
	if expected == 0 {
		expected = p.cfg.DefaultTaskCount
	}

	header := rowCells(reader, headerRow)
	structure, valid := DetectColumns(header, expected, p.cfg.FixedColumns, p.cfg.MaxTaskDrift)
	protocol.Structure = structure
	if structure.TotalFallback {
		p.log.Warnw("no total column header, using last populated column", "sheet", sheet, "col", structure.TotalCol)
	}
	if structure.Drift != 0 {
		p.log.Warnw("task count drift", "sheet", sheet,
			"detected", structure.TaskCount, "expected", expected, "likelyCorrupt", structure.LikelyCorrupt)
	}
	if !valid {
		protocol.Skipped = true
		protocol.SkipReason = "column structure not detected"
		p.log.Warnw("protocol sheet skipped", "sheet", sheet, "reason", protocol.SkipReason)
		return protocol
	}

	nameCol, presenceCol, variantCol := serviceColumns(header)
	if nameCol < 0 {
		nameCol = 1
	}

	for row := headerRow + 1; row < reader.RowCount(); row++ {
		name, ok := reader.CellText(row, nameCol)
		if !ok {
			continue
		}
		result := p.parseStudentRow(sheet, reader, row, nameCol, presenceCol, variantCol, structure, protocol.Meta.MaxScores)
		result.RowNo = len(protocol.Results) + 1
		result.StudentName = name
		result.ClassLabel = protocol.Meta.ClassLabel
		protocol.Results = append(protocol.Results, result)
	}

	return protocol
}

func (p *ProtocolParser) parseStudentRow(
	sheet string, reader SheetReader, row, nameCol, presenceCol, variantCol int,
	structure internal.ColumnStructure, maxScores internal.ScoreMap,
) internal.StudentResult {
	result := internal.StudentResult{Present: true, Scores: internal.ScoreMap{}}

	if presenceCol >= 0 {
		if v, ok := reader.CellText(row, presenceCol); ok {
			result.Present = isPresentMark(v)
		}
	}
	if variantCol >= 0 {
		if v, ok := reader.CellText(row, variantCol); ok {
			result.Variant = v
		}
	}

	for col := structure.FirstTaskCol; col <= structure.LastTaskCol; col++ {
		task := col - structure.FirstTaskCol + 1
		score, ok := reader.CellInt(row, col)
		if !ok {
			score = 0
		}
		if max, known := maxScores[task]; known && score > max {
			p.log.Debugw("score above task maximum, clamping",
				"sheet", sheet, "row", row+1, "task", task, "score", score, "max", max)
			score = max
		}
		result.Scores[task] = score
	}

	sum := result.Scores.Total()
	if explicit, ok := reader.CellInt(row, structure.TotalCol); ok {
		// The explicit value wins; the discrepancy is only recorded.
		result.Total = explicit
		result.TotalMismatch = explicit - sum
		if result.TotalMismatch != 0 {
			p.log.Warnw("total does not match task sum",
				"sheet", sheet, "row", row+1, "explicit", explicit, "sum", sum)
		}
	} else {
		result.Total = sum
	}

	return result
}

// scanMeta reads the labeled metadata block above the header row.
func (p *ProtocolParser) scanMeta(reader SheetReader, headerRow int) internal.ReportMeta {
	meta := internal.ReportMeta{MaxScores: internal.ScoreMap{}}
	limit := reader.RowCount()
	if headerRow >= 0 {
		limit = headerRow
	}

	dateRaw := ""
	for row := 0; row < limit; row++ {
		for col := 0; col < reader.RowLen(row); col++ {
			label, ok := reader.CellText(row, col)
			if !ok {
				continue
			}
			value := metaValue(reader, row, col, label)
			switch key := strings.ToLower(label); {
			case strings.HasPrefix(key, "предмет"):
				meta.Subject = value
			case strings.HasPrefix(key, "класс"):
				meta.ClassLabel = value
			case strings.HasPrefix(key, "учитель") || strings.HasPrefix(key, "преподават"):
				meta.TeacherRaw = value
			case strings.HasPrefix(key, "дата"):
				dateRaw = value
			case strings.HasPrefix(key, "макс"):
				meta.MaxScores = util.ParseMaxScores(value)
			}
		}
	}

	date, real := util.ParseReportDate(dateRaw)
	if !real {
		p.log.Infow("report date missing or unparseable, defaulting to today", "raw", dateRaw)
	}
	meta.TestDate = date.Format("2006-01-02")
	meta.DateIsReal = real
	return meta
}

// metaValue takes the part after ":" in the label cell, or the next
// populated cell to the right.
func metaValue(reader SheetReader, row, col int, label string) string {
	if idx := strings.Index(label, ":"); idx >= 0 {
		if v := strings.TrimSpace(label[idx+1:]); v != "" {
			return v
		}
	}
	for c := col + 1; c < reader.RowLen(row); c++ {
		if v, ok := reader.CellText(row, c); ok {
			return v
		}
	}
	return ""
}

func findHeaderRow(reader SheetReader) int {
	for row := 0; row < reader.RowCount(); row++ {
		for col := 0; col < reader.RowLen(row); col++ {
			cell, ok := reader.CellText(row, col)
			if !ok {
				continue
			}
			lower := strings.ToLower(cell)
			if strings.Contains(lower, "фио") || strings.Contains(lower, "фамилия") {
				return row
			}
		}
	}
	return -1
}

func rowCells(reader SheetReader, row int) []string {
	out := make([]string, reader.RowLen(row))
	for col := range out {
		if v, ok := reader.CellText(row, col); ok {
			out[col] = v
		}
	}
	return out
}

func serviceColumns(header []string) (nameCol, presenceCol, variantCol int) {
	nameCol, presenceCol, variantCol = -1, -1, -1
	for i, h := range header {
		lower := strings.ToLower(h)
		switch {
		case nameCol < 0 && (strings.Contains(lower, "фио") || strings.Contains(lower, "фамилия")):
			nameCol = i
		case presenceCol < 0 && strings.Contains(lower, "присутств"):
			presenceCol = i
		case variantCol < 0 && strings.Contains(lower, "вариант"):
			variantCol = i
		}
	}
	return
}

func isPresentMark(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "-", "–", "0", "нет", "н", "отсутствовал", "отсутствовала":
		return false
	}
	return true
}

// ParsePDFList extracts a participant/result list from PDF bytes. The PDF
// library is only a raw text supplier; all structure comes from the
// extractor chain and line heuristics.
func (p *ProtocolParser) ParsePDFList(content []byte, filename string) (internal.ParticipantList, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return internal.ParticipantList{}, err
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	text := sb.String()

	list := internal.ParticipantList{
		Subject:    ExtractSubject(filename, text),
		ClassLabel: ExtractClassLabel(filename, text),
	}
	date, real := util.ParseReportDate(ExtractDateText(text))
	if !real {
		p.log.Infow("pdf list date missing, defaulting to today", "file", filename)
	}
	list.TestDate = date.Format("2006-01-02")

	for _, line := range splitLines(text) {
		if looksLikePersonLine(line) {
			list.Participants = append(list.Participants, line)
		}
	}
	return list, nil
}

func listToProtocol(list internal.ParticipantList) internal.ParsedProtocol {
	protocol := internal.ParsedProtocol{
		Source: internal.SourcePDF,
		Meta: internal.ReportMeta{
			Subject:    list.Subject,
			ClassLabel: list.ClassLabel,
			TestDate:   list.TestDate,
			MaxScores:  internal.ScoreMap{},
		},
	}
	for i, name := range list.Participants {
		protocol.Results = append(protocol.Results, internal.StudentResult{
			RowNo:       i + 1,
			StudentName: name,
			ClassLabel:  list.ClassLabel,
			Present:     true,
			Scores:      internal.ScoreMap{},
		})
	}
	return protocol
}

// Double-barreled surnames keep a capital after the hyphen, so the surname
// class is wider than the given-name one.
var rePersonLine = regexp.MustCompile(`^[А-ЯЁ][а-яё]+(?:-[А-ЯЁ][а-яё]+)?(\s+[А-ЯЁ][а-яё-]+){1,2}$`)

func looksLikePersonLine(line string) bool {
	return rePersonLine.MatchString(strings.TrimSpace(line))
}

// parseHTMLResultTables reads result tables pasted into an email body.
func parseHTMLResultTables(html string) []internal.ParsedProtocol {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	out := []internal.ParsedProtocol{}
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return
		}

		headers := []string{}
		rows.First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, strings.ToLower(normalizeSpaces(cell.Text())))
		})

		nameIdx := findHeaderIndex(headers, []string{"фио", "фамилия", "ученик", "обучающ"})
		classIdx := findHeaderIndex(headers, []string{"класс"})
		totalIdx := findHeaderIndex(headers, []string{"итог", "балл", "результат"})
		if nameIdx < 0 {
			return
		}

		protocol := internal.ParsedProtocol{Source: internal.SourceEmailHTMLTable}
		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			cells := []string{}
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, normalizeSpaces(cell.Text()))
			})
			name := pickCell(cells, nameIdx, -1)
			if name == "" {
				return
			}

			result := internal.StudentResult{
				RowNo:       len(protocol.Results) + 1,
				StudentName: name,
				ClassLabel:  pickCell(cells, classIdx, -1),
				Present:     true,
				Scores:      internal.ScoreMap{},
			}
			if total, ok := util.ParseCellInt(pickCell(cells, totalIdx, -1)); ok {
				result.Total = total
			}
			protocol.Results = append(protocol.Results, result)
		})

		if len(protocol.Results) > 0 {
			out = append(out, protocol)
		}
	})

	return out
}

// \w is ASCII in Go regexp, so the "баллов" suffix spells out its letters.
var reResultLine = regexp.MustCompile(`^([А-ЯЁ][а-яё]+(?:-[А-ЯЁ][а-яё]+)?(?:\s+[А-ЯЁа-яё][а-яё.-]*){1,2})\s*[—–-]?\s*(\d{1,3})\s*(?:балл[а-яё]*)?$`)

// parseResultLines reads "Фамилия Имя — 25" style lines out of a plain
// text email body.
func parseResultLines(text string) []internal.StudentResult {
	out := []internal.StudentResult{}
	for _, line := range splitLines(text) {
		m := reResultLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		total, ok := util.ParseCellInt(m[2])
		if !ok {
			continue
		}
		out = append(out, internal.StudentResult{
			RowNo:       len(out) + 1,
			StudentName: strings.TrimSpace(m[1]),
			Present:     true,
			Scores:      internal.ScoreMap{},
			Total:       total,
		})
	}
	return out
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

var reCollapseSpaces = regexp.MustCompile(`\s+`)

func normalizeSpaces(input string) string {
	return strings.TrimSpace(reCollapseSpaces.ReplaceAllString(input, " "))
}

func findHeaderIndex(headers []string, probes []string) int {
	for i, h := range headers {
		for _, probe := range probes {
			if strings.Contains(h, probe) {
				return i
			}
		}
	}
	return -1
}

func pickCell(cells []string, idx int, fallback int) string {
	if idx >= 0 && idx < len(cells) {
		return strings.TrimSpace(cells[idx])
	}
	if fallback >= 0 && fallback < len(cells) {
		return strings.TrimSpace(cells[fallback])
	}
	return ""
}
