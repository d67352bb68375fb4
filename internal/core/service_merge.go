package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/datasweeper/internal/frame"
)

// MergedFileName is the download name of a merged table.
const MergedFileName = "merged_data.csv"

// ErrMergeNeedsFiles is returned when a session holds fewer than two files.
var ErrMergeNeedsFiles = errors.New("merge requires at least two files")

// Merge outer-joins the projected tables of the session's files. The first
// file seeds the result; each later file, in upload order, is joined on its
// own merge key.
func (s *Service) Merge(sessionID string) (*frame.Table, error) {
	start := time.Now()
	defer func() { s.recorder.Operation("merge", time.Since(start)) }()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if len(sess.files) < 2 {
		return nil, fmt.Errorf("%w: session has %d", ErrMergeNeedsFiles, len(sess.files))
	}

	merged, err := sess.files[0].projected()
	if err != nil {
		return nil, err
	}
	for _, f := range sess.files[1:] {
		right, err := f.projected()
		if err != nil {
			return nil, err
		}
		merged, err = frame.OuterMerge(merged, right, f.effectiveMergeKey())
		if err != nil {
			return nil, fmt.Errorf("merge %s: %w", f.name, err)
		}
	}
	return merged, nil
}

// MergedPreview returns the first n rows of the merged table.
func (s *Service) MergedPreview(sessionID string, n int) (*Preview, error) {
	merged, err := s.Merge(sessionID)
	if err != nil {
		return nil, err
	}
	return previewOf(merged, s.previewRows(n)), nil
}

// ExportMerged serializes the merged table as CSV.
func (s *Service) ExportMerged(sessionID string) (*Export, error) {
	def, ok := FormatByKey("csv")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, "csv")
	}

	merged, err := s.Merge(sessionID)
	if err != nil {
		return nil, err
	}
	return encode(def, merged, MergedFileName)
}
