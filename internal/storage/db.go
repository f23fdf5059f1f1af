package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/BeliaevDmitry/VSOKO-sub001/internal"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/util"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS teachers (
  id INTEGER PRIMARY KEY,
  fullName TEXT NOT NULL,
  normalizedFullName TEXT NOT NULL,
  lastName TEXT,
  firstName TEXT,
  middleName TEXT,
  active INTEGER NOT NULL DEFAULT 1,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_teachers_normalized ON teachers(normalizedFullName);
CREATE INDEX IF NOT EXISTS idx_teachers_lastName ON teachers(lastName);

CREATE TABLE IF NOT EXISTS reports (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS results (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  reportId INTEGER NOT NULL,
  source TEXT NOT NULL,
  sheet TEXT,
  rowNo INTEGER NOT NULL,
  studentName TEXT NOT NULL,
  classLabel TEXT,
  subject TEXT,
  testDate TEXT,
  scoresJson TEXT NOT NULL,
  total INTEGER NOT NULL,
  totalMismatch INTEGER NOT NULL DEFAULT 0,
  teacherRaw TEXT,
  matchLayer TEXT NOT NULL,
  teacherId INTEGER,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(reportId) REFERENCES reports(id),
  FOREIGN KEY(teacherId) REFERENCES teachers(id)
);
CREATE INDEX IF NOT EXISTS idx_results_reportId ON results(reportId);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  reportId INTEGER NOT NULL,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertTeachers(teachers []internal.TeacherRecord) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO teachers (id, fullName, normalizedFullName, lastName, firstName, middleName, active, lastSeenAt)
VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET
  fullName=excluded.fullName,
  normalizedFullName=excluded.normalizedFullName,
  lastName=excluded.lastName,
  firstName=excluded.firstName,
  middleName=excluded.middleName,
  active=excluded.active,
  lastSeenAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range teachers {
		if _, err := stmt.Exec(t.ID, t.FullName, t.NormalizedFullName, t.LastName, t.FirstName, t.MiddleName, boolToInt(t.Active)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListActiveTeachers returns the matching snapshot. Ordering by id is load
// bearing: the fuzzy matcher's documented tie-break is "first candidate in
// input order".
func (d *DB) ListActiveTeachers() ([]internal.TeacherRecord, error) {
	rows, err := d.conn.Query(`
SELECT id, fullName, normalizedFullName, lastName, firstName, middleName, active
FROM teachers WHERE active = 1 ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.TeacherRecord
	for rows.Next() {
		var t internal.TeacherRecord
		var active int
		if err := rows.Scan(&t.ID, &t.FullName, &t.NormalizedFullName, &t.LastName, &t.FirstName, &t.MiddleName, &active); err != nil {
			return nil, err
		}
		t.Active = active != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

func (d *DB) FindTeacherByNormalizedName(key string) (*internal.TeacherRecord, error) {
	var t internal.TeacherRecord
	var active int
	err := d.conn.QueryRow(`
SELECT id, fullName, normalizedFullName, lastName, firstName, middleName, active
FROM teachers WHERE normalizedFullName = ? ORDER BY id ASC LIMIT 1`, key).Scan(
		&t.ID, &t.FullName, &t.NormalizedFullName, &t.LastName, &t.FirstName, &t.MiddleName, &active,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.Active = active != 0
	return &t, nil
}

func (d *DB) UpsertReport(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.ReportRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO reports (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.ReportRow{}, err
	}

	row, err := d.GetReportByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.ReportRow{}, err
	}
	if row == nil {
		return internal.ReportRow{}, errors.New("failed to upsert report")
	}
	return *row, nil
}

func (d *DB) GetReportByProviderMessageID(provider, messageID string) (*internal.ReportRow, error) {
	var row internal.ReportRow
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM reports WHERE provider = ? AND messageId = ?
`, provider, messageID).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) MustReportByProviderMessageID(provider, messageID string) (internal.ReportRow, error) {
	row, err := d.GetReportByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.ReportRow{}, err
	}
	if row == nil {
		return internal.ReportRow{}, fmt.Errorf("report not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}

func (d *DB) ListReportsByStatus(status string, limit int) ([]internal.ReportRow, error) {
	rows, err := d.conn.Query(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM reports WHERE status = ? ORDER BY receivedAt ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ReportRow
	for rows.Next() {
		var row internal.ReportRow
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateReportStatus(reportID int, status string) error {
	_, err := d.conn.Exec(`UPDATE reports SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, reportID)
	return err
}

func (d *DB) ClearReportResults(reportID int) error {
	_, err := d.conn.Exec(`DELETE FROM results WHERE reportId = ?`, reportID)
	return err
}

func (d *DB) InsertResult(reportID int, protocol internal.ParsedProtocol, result internal.StudentResult, match internal.TeacherMatch) error {
	scoresJSON, _ := json.Marshal(result.Scores)
	var teacherID *int
	if match.Matched && match.Teacher != nil {
		teacherID = &match.Teacher.ID
	}

	classLabel := result.ClassLabel
	if classLabel == "" {
		classLabel = protocol.Meta.ClassLabel
	}

	_, err := d.conn.Exec(`
INSERT INTO results (reportId, source, sheet, rowNo, studentName, classLabel, subject, testDate, scoresJson, total, totalMismatch, teacherRaw, matchLayer, teacherId)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, reportID, string(protocol.Source), protocol.Sheet, result.RowNo, result.StudentName, classLabel,
		protocol.Meta.Subject, protocol.Meta.TestDate, string(scoresJSON), result.Total, result.TotalMismatch,
		protocol.Meta.TeacherRaw, string(match.Layer), teacherID)
	return err
}

func (d *DB) InsertRun(traceID string, reportID int, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, reportId, timingsJson, countsJson) VALUES (?, ?, ?, ?)`, traceID, reportID, string(timingsJSON), string(countsJSON))
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

// GetExportRows joins results with resolved teachers, resolved rows first.
func (d *DB) GetExportRows(reportID int) ([]internal.ResultExportRow, error) {
	rows, err := d.conn.Query(`
SELECT
  r.rowNo,
  r.source,
  r.sheet,
  r.studentName,
  r.classLabel,
  r.subject,
  r.testDate,
  r.scoresJson,
  r.total,
  r.totalMismatch,
  r.teacherRaw,
  r.matchLayer,
  t.id,
  t.fullName
FROM results r
LEFT JOIN teachers t ON t.id = r.teacherId
WHERE r.reportId = ?
ORDER BY
  CASE WHEN r.matchLayer = 'NONE' THEN 2 WHEN r.matchLayer = 'FALLBACK' THEN 1 ELSE 0 END,
  r.sheet ASC,
  r.rowNo ASC
`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ResultExportRow
	for rows.Next() {
		var row internal.ResultExportRow
		var scoresJSON string
		if err := rows.Scan(
			&row.RowNo,
			&row.Source,
			&row.Sheet,
			&row.StudentName,
			&row.ClassLabel,
			&row.Subject,
			&row.TestDate,
			&scoresJSON,
			&row.Total,
			&row.TotalMismatch,
			&row.TeacherRaw,
			&row.MatchLayer,
			&row.TeacherID,
			&row.TeacherFullName,
		); err != nil {
			return nil, err
		}

		var scores internal.ScoreMap
		_ = json.Unmarshal([]byte(scoresJSON), &scores)
		row.Scores = scores.Display()
		out = append(out, row)
	}

	return out, rows.Err()
}

// NormalizeForStorage fills the derived name fields of a registry record.
// Full names from the school IS come in "Фамилия Имя Отчество" order.
func NormalizeForStorage(t *internal.TeacherRecord) {
	t.NormalizedFullName = util.NormalizeName(t.FullName)
	if t.LastName != "" {
		return
	}
	fields := strings.Fields(t.FullName)
	if len(fields) > 0 {
		t.LastName = fields[0]
	}
	if len(fields) > 1 {
		t.FirstName = fields[1]
	}
	if len(fields) > 2 {
		t.MiddleName = fields[2]
	}
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
