package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/datasweeper/internal/frame"
	"github.com/JonMunkholm/datasweeper/internal/logging"
)

// ErrNoFiles is returned when an upload carries no files at all.
var ErrNoFiles = errors.New("no file provided")

// Upload loads every file of a multi-file upload into the session.
//
// Files are processed in order. A file that cannot be loaded (unsupported
// extension, parse failure, size limit, session full) is reported in the
// result's Errors and skipped; the remaining files are still processed.
// The returned error is non-nil only when the session does not exist, no
// files were given, or the context ends.
func (s *Service) Upload(ctx context.Context, sessionID string, inputs []UploadInput) (*UploadResult, error) {
	start := time.Now()
	defer func() { s.recorder.Operation("upload", time.Since(start)) }()

	if len(inputs) == 0 {
		return nil, ErrNoFiles
	}

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	log := logging.WithFields(ctx, "session_id", sess.ID)
	if ip := ClientIPFromContext(ctx); ip != "" {
		log = log.With("client_ip", ip)
	}
	result := &UploadResult{
		SessionID: sess.ID,
		Files:     []FileInfo{},
		Errors:    []FileError{},
	}

	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := s.loadFile(ctx, sess, in)
		if err != nil {
			msg := MapError(err)
			log.Warn("file skipped",
				"file", in.Name,
				"code", msg.Code,
				"error", err,
			)
			s.recorder.FileRejected(msg.Code)
			result.Errors = append(result.Errors, FileError{
				Name:    in.Name,
				Message: msg.Message,
				Action:  msg.Action,
				Code:    msg.Code,
			})
			continue
		}

		log.Info("file loaded",
			"file", info.Name,
			"file_id", info.ID,
			"rows", info.Rows,
			"columns", len(info.Columns),
		)
		result.Files = append(result.Files, *info)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// loadFile parses one upload and appends it to the session.
func (s *Service) loadFile(ctx context.Context, sess *Session, in UploadInput) (*FileInfo, error) {
	if in.Reader == nil {
		return nil, ErrNoFiles
	}

	def, err := FormatForFile(in.Name)
	if err != nil {
		return nil, err
	}

	// Checked before parsing so a full session does not pay for the parse.
	if err := s.checkCapacity(sess); err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	data, table, err := func() ([]byte, *frame.Table, error) {
		defer s.limiter.Release()
		data, err := ReadUpload(in.Reader, s.opts.MaxFileSize)
		if err != nil {
			return nil, nil, err
		}
		if len(data) == 0 {
			return nil, nil, ErrEmptyFile
		}
		t, err := def.Read(data)
		if err != nil {
			return nil, nil, err
		}
		return data, t, nil
	}()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", in.Name, err)
	}

	f := &sessionFile{
		id:         uuid.NewString(),
		name:       filepath.Base(in.Name),
		size:       int64(len(data)),
		ext:        strings.ToLower(filepath.Ext(in.Name)),
		format:     def.Key,
		uploadedAt: time.Now(),
		table:      table,
	}
	if len(f.table.Columns) == 0 {
		return nil, fmt.Errorf("load %s: %w", in.Name, ErrEmptyFile)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if len(sess.files) >= s.opts.MaxFiles {
		return nil, fmt.Errorf("%w (%d)", ErrSessionFull, s.opts.MaxFiles)
	}
	sess.files = append(sess.files, f)

	s.recorder.FileLoaded(def.Key, f.table.Rows())
	info := f.info()
	return &info, nil
}

func (s *Service) checkCapacity(sess *Session) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if len(sess.files) >= s.opts.MaxFiles {
		return fmt.Errorf("%w (%d)", ErrSessionFull, s.opts.MaxFiles)
	}
	return nil
}

// UploadReader is a convenience for loading a single file from a reader.
func (s *Service) UploadReader(ctx context.Context, sessionID, name string, r io.Reader) (*UploadResult, error) {
	return s.Upload(ctx, sessionID, []UploadInput{{Name: name, Reader: r}})
}
