package core

import (
	"io"
	"time"

	"github.com/JonMunkholm/datasweeper/internal/frame"
)

// Cleaning operations accepted by Service.Clean.
type CleanOperation string

const (
	OpDropDuplicates CleanOperation = "drop_duplicates"
	OpFillMissing    CleanOperation = "fill_missing"
	OpNormalizeText  CleanOperation = "normalize_text"
)

// CleanOperations lists the supported operations in display order.
var CleanOperations = []CleanOperation{OpDropDuplicates, OpFillMissing, OpNormalizeText}

// Confirmation messages shown after each cleaning operation.
var cleanMessages = map[CleanOperation]string{
	OpDropDuplicates: "Duplicates Removed!",
	OpFillMissing:    "Missing Values have been Filled!",
	OpNormalizeText:  "Text Columns Standardized!",
}

// Message returns the confirmation shown after the operation has run.
func (op CleanOperation) Message() string {
	return cleanMessages[op]
}

// Label returns the button label for an operation.
func (op CleanOperation) Label() string {
	switch op {
	case OpDropDuplicates:
		return "Remove Duplicates"
	case OpFillMissing:
		return "Fill Missing Values"
	case OpNormalizeText:
		return "Standardize Text Columns"
	}
	return string(op)
}

// ColumnInfo describes one column of a working table.
type ColumnInfo struct {
	Name    string     `json:"name"`
	Kind    frame.Kind `json:"kind"`
	Missing int        `json:"missing"`
}

// FileInfo describes an uploaded file and the current shape of its table.
type FileInfo struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Size       int64        `json:"size"`
	SizeKB     string       `json:"sizeKb"`
	Extension  string       `json:"extension"`
	Format     string       `json:"format"`
	Rows       int          `json:"rows"`
	Columns    []ColumnInfo `json:"columns"`
	Selected   []string     `json:"selected"`
	MergeKey   string       `json:"mergeKey,omitempty"`
	UploadedAt time.Time    `json:"uploadedAt"`
}

// SessionInfo describes a session and its files in upload order.
type SessionInfo struct {
	ID         string     `json:"id"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastAccess time.Time  `json:"lastAccess"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	Files      []FileInfo `json:"files"`
	CanMerge   bool       `json:"canMerge"`
}

// UploadInput is one file of a multi-file upload.
type UploadInput struct {
	Name   string
	Size   int64
	Reader io.Reader
}

// FileError reports a file that was skipped during an upload.
type FileError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

// UploadResult contains the outcome of an upload: loaded files and the
// files that were skipped.
type UploadResult struct {
	SessionID string        `json:"sessionId"`
	Files     []FileInfo    `json:"files"`
	Errors    []FileError   `json:"errors"`
	Duration  time.Duration `json:"-"`
}

// Processed returns the names of the files that loaded successfully.
func (r *UploadResult) Processed() []string {
	names := make([]string, len(r.Files))
	for i, f := range r.Files {
		names[i] = f.Name
	}
	return names
}

// Preview is the head of a table.
type Preview struct {
	Columns   []ColumnInfo `json:"columns"`
	Rows      [][]any      `json:"rows"`
	TotalRows int          `json:"totalRows"`
}

// CorrelationResult is either a correlation matrix or, when no column can
// be correlated, an informational message.
type CorrelationResult struct {
	*frame.Correlation
	Message string `json:"message,omitempty"`
}

// CleanResult reports what a cleaning operation changed.
type CleanResult struct {
	Operation    CleanOperation `json:"operation"`
	Message      string         `json:"message"`
	RowsBefore   int            `json:"rowsBefore"`
	RowsAfter    int            `json:"rowsAfter"`
	CellsChanged int            `json:"cellsChanged"`
}

// Export is a serialized table ready for download.
type Export struct {
	FileName string
	MIME     string
	Data     []byte
}
