package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/atlas-bms/atlas-bms/internal/shared"
)

// XLSX renders a table as a single-sheet workbook with fixed column widths
// and a styled header row.
func XLSX(t Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetName(sheet, t.Name); err != nil {
		return nil, shared.Remote("rename sheet", err)
	}
	sheet = t.Name

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E5E7EB"}},
	})
	if err != nil {
		return nil, shared.Remote("create header style", err)
	}

	for col, header := range t.Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, shared.Remote("resolve cell", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, shared.Remote("write header", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, shared.Remote("resolve column", err)
		}
		width := 14.0
		if col < len(t.Widths) {
			width = t.Widths[col]
		}
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return nil, shared.Remote("set column width", err)
		}
	}
	lastCol, err := excelize.ColumnNumberToName(len(t.Headers))
	if err != nil {
		return nil, shared.Remote("resolve column", err)
	}
	if err := f.SetCellStyle(sheet, "A1", fmt.Sprintf("%s1", lastCol), headerStyle); err != nil {
		return nil, shared.Remote("style header", err)
	}

	for rowIdx, row := range t.Rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				return nil, shared.Remote("resolve cell", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, shared.Remote("write cell", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, shared.Remote("write workbook", err)
	}
	return buf.Bytes(), nil
}
