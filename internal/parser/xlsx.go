// Package parser turns uploaded spreadsheet bytes into tabular data
// ready for charting: an ordered header row plus data rows keyed by
// header label.
package parser

import (
	"bytes"
	"fmt"

	"excel-analyzer-go/internal/models"

	"github.com/xuri/excelize/v2"
)

// Parse decodes the first worksheet of an Excel document. It returns
// the header labels from the physical first row (blanks and duplicates
// kept as found) and one Row per data row, with missing cells defaulted
// to "" rather than omitted. Cells past the header width are dropped.
//
// A sheet with no rows parses to empty columns and no data rows; that
// is a success, not an error. Unparseable bytes are an error.
func Parse(data []byte) ([]string, []models.Row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return []string{}, []models.Row{}, nil
	}

	// Only the first worksheet counts; the rest are ignored.
	sheetRows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	if len(sheetRows) == 0 {
		return []string{}, []models.Row{}, nil
	}

	columns := sheetRows[0]
	if columns == nil {
		columns = []string{}
	}

	rows := make([]models.Row, 0, len(sheetRows)-1)
	for _, cells := range sheetRows[1:] {
		row := models.NewRow()
		for i, label := range columns {
			value := ""
			if i < len(cells) {
				value = cells[i]
			}
			row.Set(label, value)
		}
		rows = append(rows, row)
	}

	return columns, rows, nil
}
