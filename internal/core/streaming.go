package core

// streaming.go provides the readers that turn an uploaded body into bytes a
// format parser can consume.
//
//   - LimitedReader: Fails with ErrFileTooLarge once a size limit is passed
//   - DecodeText: Removes the UTF-8 BOM (0xEF 0xBB 0xBF) added by Windows
//     programs and falls back to Windows-1252 for input that is not UTF-8
//
// Use ReadUpload to apply the size limit and buffer the whole file; spreadsheet
// parsing needs random access so uploads are held in memory.

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrFileTooLarge is returned when an upload exceeds the configured size.
	ErrFileTooLarge = errors.New("file too large")

	// ErrEmptyFile is returned when an upload has no header row.
	ErrEmptyFile = errors.New("empty file")
)

// LimitedReader wraps an io.Reader and fails once more than Max bytes have
// been read. Unlike io.LimitReader it reports the overflow instead of
// silently truncating.
type LimitedReader struct {
	reader    io.Reader
	Max       int64
	BytesRead int64
}

// NewLimitedReader creates a reader that allows at most limit bytes.
func NewLimitedReader(r io.Reader, limit int64) *LimitedReader {
	return &LimitedReader{reader: r, Max: limit}
}

// Read implements io.Reader.
func (r *LimitedReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	if r.Max > 0 && r.BytesRead > r.Max {
		return n, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, r.Max)
	}
	return n, err
}

// ReadUpload reads the whole upload, enforcing limit (0 means unlimited).
func ReadUpload(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(NewLimitedReader(r, limit))
	if err != nil {
		return nil, err
	}
	return data, nil
}

// utf8BOM is the byte order mark some editors prepend to UTF-8 text.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeText returns data as UTF-8 text. A leading BOM is removed; input
// that is not valid UTF-8 is decoded as Windows-1252, the encoding Excel
// uses for "CSV" exports on Western-locale Windows.
func DecodeText(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode windows-1252: %w", err)
	}
	return decoded, nil
}
