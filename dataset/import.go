package dataset

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// FromCSV reads a table from CSV data. The first record is the header;
// subsequent records become rows keyed by header name. Short records leave
// the trailing cells absent rather than empty.
func FromCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // tolerate ragged rows

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv contains no header row")
	}

	return fromRecords(records)
}

// FromXLSX reads a table from the first sheet of an xlsx workbook. The first
// row is the header. Cell values arrive as formatted strings; numeric
// interpretation is left to the evaluation layer.
func FromXLSX(r io.Reader) (*Table, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook contains no sheets")
	}

	records, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sheet %q contains no header row", sheets[0])
	}

	return fromRecords(records)
}

func fromRecords(records [][]string) (*Table, error) {
	header := records[0]
	if len(header) == 0 {
		return nil, fmt.Errorf("header row is empty")
	}

	columns := make([]string, len(header))
	copy(columns, header)

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(Row, len(columns))
		for i, col := range columns {
			if i >= len(record) || record[i] == "" {
				continue
			}
			row[col] = record[i]
		}
		rows = append(rows, row)
	}

	return &Table{
		Columns: columns,
		Rows:    rows,
	}, nil
}
