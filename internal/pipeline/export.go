package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/BeliaevDmitry/VSOKO-sub001/internal"
)

// ExportRowsToXLSX writes parsed results into a plain unstyled workbook.
func ExportRowsToXLSX(rows []internal.ResultExportRow, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"row_no", "source", "sheet", "student_name", "class", "subject", "test_date",
		"scores", "total", "total_mismatch",
		"teacher_raw", "match_layer", "teacher_id", "teacher_full_name",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.RowNo)
		set(2, row.Source)
		set(3, row.Sheet)
		set(4, row.StudentName)
		set(5, row.ClassLabel)
		set(6, row.Subject)
		set(7, row.TestDate)
		set(8, row.Scores)
		set(9, row.Total)
		set(10, row.TotalMismatch)
		set(11, row.TeacherRaw)
		set(12, row.MatchLayer)
		set(13, derefInt(row.TeacherID))
		set(14, derefString(row.TeacherFullName))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}
