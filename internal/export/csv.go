package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// utf8BOM makes spreadsheet applications detect UTF-8 for Vietnamese text.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes the table, header first, prefixed with a UTF-8 BOM. Cells
// that look like formulas are escaped with SafeCell.
func WriteCSV(w io.Writer, t Table) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.Rows {
		if len(row) != t.Width() {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), t.Width())
		}
		cells := make([]string, len(row))
		for j, c := range row {
			cells[j] = SafeCell(c)
		}
		if err := cw.Write(cells); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
