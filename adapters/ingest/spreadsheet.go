package ingest

import (
	"bytes"
	"fmt"
	"log"
	"strings"
	"time"

	"datastory/domain/dataset"
	apperrors "datastory/internal/errors"

	"github.com/xuri/excelize/v2"
)

// ParseSpreadsheet reads the first sheet of a workbook. The first row is the
// header; every other sheet is ignored. Cells keep their native type: numeric
// cells become numbers unless their display text is a date, in which case the
// display text is kept.
func ParseSpreadsheet(data []byte) (dataset.RowSet, error) {
	start := time.Now()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return dataset.RowSet{}, apperrors.WithCode(apperrors.CodeInvalidInput, fmt.Errorf("open workbook: %w", err))
	}
	defer f.Close()
	log.Printf("[SpreadsheetParser] Workbook opened in %.2fms", float64(time.Since(start).Nanoseconds())/1e6)

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return dataset.RowSet{}, apperrors.NoSheets()
	}
	sheet := sheets[0]

	readStart := time.Now()
	formatted, err := f.GetRows(sheet)
	if err != nil {
		return dataset.RowSet{}, apperrors.WithCode(apperrors.CodeInvalidInput, fmt.Errorf("read sheet %q: %w", sheet, err))
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return dataset.RowSet{}, apperrors.WithCode(apperrors.CodeInvalidInput, fmt.Errorf("read sheet %q: %w", sheet, err))
	}
	log.Printf("[SpreadsheetParser] Sheet %q read in %.2fms (%d rows)",
		sheet, float64(time.Since(readStart).Nanoseconds())/1e6, len(formatted))

	if len(formatted) == 0 {
		return dataset.RowSet{}, apperrors.EmptySheet(sheet)
	}
	columns := headerNames(formatted[0])
	if len(columns) == 0 {
		return dataset.RowSet{}, apperrors.EmptySheet(sheet)
	}

	var rows []dataset.Row
	for i := 1; i < len(formatted); i++ {
		if blankRecord(formatted[i]) {
			continue
		}
		var rawRow []string
		if i < len(raw) {
			rawRow = raw[i]
		}
		row := make(dataset.Row, len(columns))
		for j, name := range columns {
			row[name] = spreadsheetCell(cellAt(formatted[i], j), cellAt(rawRow, j))
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return dataset.RowSet{}, apperrors.EmptySheet(sheet)
	}

	log.Printf("[SpreadsheetParser] Sheet %q processed (%d columns, %d rows)", sheet, len(columns), len(rows))
	return dataset.RowSet{Columns: columns, Rows: rows}, nil
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// spreadsheetCell chooses a scalar from a cell's display text and its stored
// value.
func spreadsheetCell(display, stored string) dataset.Scalar {
	if strings.TrimSpace(display) == "" && strings.TrimSpace(stored) == "" {
		return dataset.Null()
	}
	switch strings.ToUpper(strings.TrimSpace(display)) {
	case "TRUE":
		return dataset.Bool(true)
	case "FALSE":
		return dataset.Bool(false)
	}
	if n, ok := dataset.ParseNumber(stored); ok {
		if display != stored {
			if _, isDate := dataset.ParseDate(display); isDate {
				return dataset.Text(display)
			}
		}
		return dataset.Number(n)
	}
	if display == "" {
		return dataset.Text(stored)
	}
	return dataset.Text(display)
}
