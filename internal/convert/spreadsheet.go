package convert

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet is the cell text of one worksheet, row-major.
type Sheet struct {
	Name string
	Rows [][]string
}

// ReadWorkbook loads every worksheet of an .xlsx file with cached formula
// values.
func ReadWorkbook(path string) ([]Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		sheets = append(sheets, Sheet{Name: name, Rows: rows})
	}
	return sheets, nil
}

// RenderWorkbook formats sheets as Markdown tables. The first row of each
// sheet is the header; data rows whose cells are all empty are dropped and
// short rows are padded to the widest row.
func RenderWorkbook(title string, sheets []Sheet) string {
	var b strings.Builder
	writePreamble(&b, title, "Excel")

	for _, sheet := range sheets {
		fmt.Fprintf(&b, "## %s\n\n", sheet.Name)
		if !anyCell(sheet.Rows) {
			b.WriteString("*Empty sheet*\n\n")
			continue
		}

		width := 0
		for _, row := range sheet.Rows {
			width = max(width, len(row))
		}

		writeRow(&b, sheet.Rows[0], width)
		b.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
		for _, row := range sheet.Rows[1:] {
			if rowEmpty(row) {
				continue
			}
			writeRow(&b, row, width)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeRow(b *strings.Builder, row []string, width int) {
	cells := make([]string, width)
	for i := range cells {
		if i < len(row) {
			cells[i] = escapeCell(row[i])
		}
	}
	b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")

func escapeCell(value string) string {
	return cellEscaper.Replace(value)
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func anyCell(rows [][]string) bool {
	for _, row := range rows {
		if !rowEmpty(row) {
			return true
		}
	}
	return false
}
