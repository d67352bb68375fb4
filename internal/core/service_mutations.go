package core

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/JonMunkholm/datasweeper/internal/frame"
)

// ErrUnknownOperation is returned for clean operations that do not exist.
var ErrUnknownOperation = errors.New("unknown clean operation")

// ParseCleanOperation validates an operation name.
func ParseCleanOperation(name string) (CleanOperation, error) {
	op := CleanOperation(name)
	if slices.Contains(CleanOperations, op) {
		return op, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOperation, name)
}

// Clean applies a cleaning operation to the file's working table in place.
func (s *Service) Clean(sessionID, fileID string, op CleanOperation) (*CleanResult, error) {
	if _, err := ParseCleanOperation(string(op)); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { s.recorder.Operation(string(op), time.Since(start)) }()

	var res *CleanResult
	err := s.withFile(sessionID, fileID, func(_ *Session, f *sessionFile) error {
		res = &CleanResult{
			Operation:  op,
			Message:    op.Message(),
			RowsBefore: f.table.Rows(),
		}

		switch op {
		case OpDropDuplicates:
			f.table.DropDuplicates()
		case OpFillMissing:
			res.CellsChanged = f.table.FillMissingMode()
		case OpNormalizeText:
			res.CellsChanged = f.table.NormalizeText(frame.NormalizeOptions{
				FoldAccents: s.opts.FoldAccents,
			})
		}

		res.RowsAfter = f.table.Rows()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// SelectColumns sets the file's projection to the given columns, in order.
// An empty list resets the projection to all columns. A merge key that is
// no longer selected falls back to the first selected column.
func (s *Service) SelectColumns(sessionID, fileID string, columns []string) (*FileInfo, error) {
	var info FileInfo
	err := s.withFile(sessionID, fileID, func(_ *Session, f *sessionFile) error {
		if len(columns) == 0 {
			f.selected = nil
			info = f.info()
			return nil
		}

		// Select checks every name and drops repeats.
		projected, err := f.table.Select(columns)
		if err != nil {
			return err
		}
		f.selected = projected.Names()
		if f.mergeKey != "" && !slices.Contains(f.selected, f.mergeKey) {
			f.mergeKey = ""
		}
		info = f.info()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// SetMergeKey sets the column this file is joined on when merging. The
// column must be part of the file's projection. An empty name restores the
// default of the first projected column.
func (s *Service) SetMergeKey(sessionID, fileID, column string) (*FileInfo, error) {
	var info FileInfo
	err := s.withFile(sessionID, fileID, func(_ *Session, f *sessionFile) error {
		if column != "" && !slices.Contains(f.selection(), column) {
			return fmt.Errorf("%w: %q", frame.ErrUnknownColumn, column)
		}
		f.mergeKey = column
		info = f.info()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}
