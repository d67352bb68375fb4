package core

import (
	"errors"
	"time"

	"github.com/JonMunkholm/datasweeper/internal/frame"
)

// NoCorrelationMessage is shown when a table has nothing to correlate.
const NoCorrelationMessage = "No numerical columns available for correlation analysis even after conversion."

// Preview returns the first n rows of the file's working table. n <= 0
// selects the configured default; n is capped at the configured maximum.
func (s *Service) Preview(sessionID, fileID string, n int) (*Preview, error) {
	start := time.Now()
	defer func() { s.recorder.Operation("preview", time.Since(start)) }()

	var p *Preview
	err := s.withFile(sessionID, fileID, func(_ *Session, f *sessionFile) error {
		p = previewOf(f.table, s.previewRows(n))
		return nil
	})
	return p, err
}

func (s *Service) previewRows(n int) int {
	if n <= 0 {
		return s.opts.PreviewRows
	}
	return min(n, s.opts.MaxPreviewRows)
}

func previewOf(t *frame.Table, n int) *Preview {
	head := t.Head(n)
	p := &Preview{
		Columns:   columnInfos(t),
		Rows:      make([][]any, head.Rows()),
		TotalRows: t.Rows(),
	}
	for i := range p.Rows {
		p.Rows[i] = head.Row(i)
	}
	return p
}

func columnInfos(t *frame.Table) []ColumnInfo {
	cols := make([]ColumnInfo, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = ColumnInfo{Name: c.Name, Kind: c.Kind, Missing: c.Missing()}
	}
	return cols
}

// Summary returns descriptive statistics for every column of the file.
func (s *Service) Summary(sessionID, fileID string) ([]frame.ColumnStats, error) {
	start := time.Now()
	defer func() { s.recorder.Operation("summary", time.Since(start)) }()

	var stats []frame.ColumnStats
	err := s.withFile(sessionID, fileID, func(_ *Session, f *sessionFile) error {
		stats = f.table.Describe()
		return nil
	})
	return stats, err
}

// Correlation returns the correlation matrix of the file's working table.
// A table with no column to correlate yields a result carrying only
// NoCorrelationMessage, not an error.
func (s *Service) Correlation(sessionID, fileID string) (*CorrelationResult, error) {
	start := time.Now()
	defer func() { s.recorder.Operation("correlation", time.Since(start)) }()

	var res *CorrelationResult
	err := s.withFile(sessionID, fileID, func(_ *Session, f *sessionFile) error {
		corr, err := f.table.Correlate()
		if errors.Is(err, frame.ErrNoNumericColumns) {
			res = &CorrelationResult{Message: NoCorrelationMessage}
			return nil
		}
		if err != nil {
			return err
		}
		res = &CorrelationResult{Correlation: corr}
		return nil
	})
	return res, err
}

// Projected returns a copy of the file's table restricted to its selected
// columns, as used by charts, export and merge.
func (s *Service) Projected(sessionID, fileID string) (*frame.Table, error) {
	var t *frame.Table
	err := s.withFile(sessionID, fileID, func(_ *Session, f *sessionFile) error {
		var err error
		t, err = f.projected()
		return err
	})
	return t, err
}
