package formats

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/datasweeper/internal/core"
	"github.com/JonMunkholm/datasweeper/internal/frame"
)

// SheetName is the worksheet exported tables are written to.
const SheetName = "Sheet1"

func init() {
	core.RegisterFormat(core.FormatDefinition{
		Key:   "xlsx",
		Ext:   ".xlsx",
		MIME:  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Label: "Excel",
		Read:  ReadXLSX,
		Write: WriteXLSX,
	})
}

// ReadXLSX parses the first worksheet of a workbook. The first row is the
// header; cells are read as their raw stored values so numbers are not
// affected by display formats.
func ReadXLSX(data []byte) (*frame.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.ErrEmptyFile
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("invalid spreadsheet: read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, core.ErrEmptyFile
	}

	// rows are ragged: widen the header to the longest row so every cell
	// has a column
	header := rows[0]
	width := len(header)
	for _, row := range rows[1:] {
		width = max(width, len(row))
	}
	for len(header) < width {
		header = append(header, "")
	}

	return frame.FromRecords(header, rows[1:])
}

// WriteXLSX writes the table to a new workbook with a single sheet. Number
// cells are written as numbers, missing cells are left empty.
func WriteXLSX(w io.Writer, t *frame.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}

	header := make([]interface{}, len(t.Columns))
	for i, name := range t.Names() {
		header[i] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}

	for r := 0; r < t.Rows(); r++ {
		cells := make([]interface{}, len(t.Columns))
		for j, c := range t.Columns {
			cells[j] = xlsxCell(c, r)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", r+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func xlsxCell(c *frame.Column, r int) interface{} {
	v := c.Values[r]
	if !v.Valid {
		return nil
	}
	if c.Kind == frame.KindNumber {
		// spreadsheets have no infinity; keep the CSV spelling
		if math.IsInf(v.Num, 0) {
			return c.Format(r)
		}
		return v.Num
	}
	return v.Str
}
