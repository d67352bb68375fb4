package formats

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/JonMunkholm/datasweeper/internal/core"
	"github.com/JonMunkholm/datasweeper/internal/frame"
)

func init() {
	core.RegisterFormat(core.FormatDefinition{
		Key:   "csv",
		Ext:   ".csv",
		MIME:  "text/csv",
		Label: "CSV",
		Read:  ReadCSV,
		Write: WriteCSV,
	})
}

// ReadCSV parses comma-separated data. The first record is the header.
func ReadCSV(data []byte) (*frame.Table, error) {
	text, err := core.DecodeText(data)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, core.ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}

	return frame.FromRecords(header, records)
}

// WriteCSV writes the header and every row without an index column.
func WriteCSV(w io.Writer, t *frame.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
