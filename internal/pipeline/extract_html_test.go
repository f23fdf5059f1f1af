package pipeline

import (
	"testing"

	"github.com/BeliaevDmitry/VSOKO-sub001/internal"
)

func TestParseHTMLResultTables(t *testing.T) {
	html := `<table>
		<tr><th>№</th><th>ФИО ученика</th><th>Класс</th><th>Итоговый балл</th></tr>
		<tr><td>1</td><td>Иванов Петр</td><td>9А</td><td>18</td></tr>
		<tr><td>2</td><td>Сидорова Анна</td><td>9А</td><td>21</td></tr>
		<tr><td>3</td><td></td><td></td><td></td></tr>
	</table>`

	protocols := parseHTMLResultTables(html)
	if len(protocols) != 1 {
		t.Fatalf("protocols=%d", len(protocols))
	}
	p := protocols[0]
	if p.Source != internal.SourceEmailHTMLTable {
		t.Fatalf("source=%s", p.Source)
	}
	if len(p.Results) != 2 {
		t.Fatalf("results=%d", len(p.Results))
	}
	if p.Results[0].StudentName != "Иванов Петр" || p.Results[0].ClassLabel != "9А" || p.Results[0].Total != 18 {
		t.Fatalf("first row: %+v", p.Results[0])
	}
	if p.Results[1].Total != 21 {
		t.Fatalf("second row: %+v", p.Results[1])
	}
}

func TestParseHTMLResultTablesIgnoresNonResultTables(t *testing.T) {
	// A layout table without a name column must not produce a protocol.
	html := `<table><tr><th>Дата</th><th>Кабинет</th></tr><tr><td>15.09</td><td>204</td></tr></table>`
	if protocols := parseHTMLResultTables(html); len(protocols) != 0 {
		t.Fatalf("protocols=%d", len(protocols))
	}
}
