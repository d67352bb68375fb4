package core

// convert.go serializes working tables for download.
//
// Exports always use the projected table: the columns the user selected, in
// the order they selected them. The output file keeps the upload's base name
// with its extension swapped for the target format's.

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/datasweeper/internal/frame"
)

// ErrUnknownFormat is returned when an export names an unregistered format.
var ErrUnknownFormat = errors.New("unknown format")

// ExportFileName replaces the extension of name with ext.
//
//	ExportFileName("sales.xlsx", ".csv") == "sales.csv"
//	ExportFileName("archive.tar.gz", ".csv") == "archive.tar.csv"
func ExportFileName(name, ext string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}

// Export serializes the file's projected table in the named format.
func (s *Service) Export(sessionID, fileID, formatKey string) (*Export, error) {
	def, ok := FormatByKey(formatKey)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, formatKey)
	}

	start := time.Now()
	defer func() { s.recorder.Operation("export_"+def.Key, time.Since(start)) }()

	var (
		t    *frame.Table
		name string
	)
	err := s.withFile(sessionID, fileID, func(_ *Session, f *sessionFile) error {
		var err error
		t, err = f.projected()
		name = f.name
		return err
	})
	if err != nil {
		return nil, err
	}

	return encode(def, t, ExportFileName(name, def.Ext))
}

// encode writes t with the format's writer.
func encode(def FormatDefinition, t *frame.Table, fileName string) (*Export, error) {
	var buf bytes.Buffer
	if err := def.Write(&buf, t); err != nil {
		return nil, fmt.Errorf("write %s: %w", def.Key, err)
	}
	return &Export{
		FileName: fileName,
		MIME:     def.MIME,
		Data:     buf.Bytes(),
	}, nil
}
