package core

import (
	"time"
)

// Defaults applied by NewService when an option is left at its zero value.
const (
	DefaultPreviewRows    = 5
	DefaultMaxPreviewRows = 500
	DefaultSessionTTL     = 2 * time.Hour
	DefaultMaxFiles       = 20
)

// Options configures a Service.
type Options struct {
	MaxFileSize    int64         // Maximum bytes per uploaded file; 0 means unlimited
	PreviewRows    int           // Rows returned by a preview when n is not given
	MaxPreviewRows int           // Upper bound on the n of a preview
	SessionTTL     time.Duration // Idle time after which a session expires
	MaxFiles       int           // Maximum files held by one session
	FoldAccents    bool          // Fold diacritics during text normalization
}

// Recorder receives operational events for metrics. Implementations must be
// safe for concurrent use.
type Recorder interface {
	FileLoaded(format string, rows int)
	FileRejected(code string)
	Operation(name string, d time.Duration)
	SessionsActive(n int)
}

type nopRecorder struct{}

func (nopRecorder) FileLoaded(string, int) {}
func (nopRecorder) FileRejected(string) {}
func (nopRecorder) Operation(string, time.Duration) {}
func (nopRecorder) SessionsActive(int) {}

// Service provides the data sweeper operations over session-scoped tables.
type Service struct {
	opts     Options
	sessions *SessionStore
	limiter  *UploadLimiter
	recorder Recorder
}

// NewService creates a new Service instance. limiter bounds concurrent file
// parsing; rec may be nil.
func NewService(opts Options, limiter *UploadLimiter, rec Recorder) *Service {
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = DefaultPreviewRows
	}
	if opts.MaxPreviewRows < opts.PreviewRows {
		opts.MaxPreviewRows = max(DefaultMaxPreviewRows, opts.PreviewRows)
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = DefaultMaxFiles
	}
	if limiter == nil {
		limiter = NewUploadLimiter(0, 0)
	}
	if rec == nil {
		rec = nopRecorder{}
	}

	return &Service{
		opts:     opts,
		sessions: NewSessionStore(opts.SessionTTL, opts.MaxFiles),
		limiter:  limiter,
		recorder: rec,
	}
}

// Limiter returns the upload limiter, for shutdown draining and status.
func (s *Service) Limiter() *UploadLimiter {
	return s.limiter
}

// Options returns the effective service options.
func (s *Service) Options() Options {
	return s.opts
}

// CreateSession starts a new empty session.
func (s *Service) CreateSession() SessionInfo {
	sess := s.sessions.Create()
	s.recorder.SessionsActive(s.sessions.Len())

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.sessionInfo(sess)
}

// GetSession returns a session and its files.
func (s *Service) GetSession(sessionID string) (*SessionInfo, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	info := s.sessionInfo(sess)
	return &info, nil
}

// DeleteSession removes a session and all of its files.
func (s *Service) DeleteSession(sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	s.recorder.SessionsActive(s.sessions.Len())
	return nil
}

// SessionCount returns the number of sessions held in memory.
func (s *Service) SessionCount() int {
	return s.sessions.Len()
}

// ReapSessions removes expired sessions and returns how many were removed.
func (s *Service) ReapSessions() int {
	n := s.sessions.Reap()
	s.recorder.SessionsActive(s.sessions.Len())
	return n
}

// sessionInfo snapshots a session. Caller must hold sess.mu.
func (s *Service) sessionInfo(sess *Session) SessionInfo {
	files := make([]FileInfo, len(sess.files))
	for i, f := range sess.files {
		files[i] = f.info()
	}
	return SessionInfo{
		ID:         sess.ID,
		CreatedAt:  sess.CreatedAt,
		LastAccess: sess.lastAccess,
		ExpiresAt:  s.sessions.expiresAt(sess),
		Files:      files,
		CanMerge:   len(sess.files) > 1,
	}
}

// withFile runs fn with the session locked and the file resolved.
func (s *Service) withFile(sessionID, fileID string, fn func(sess *Session, f *sessionFile) error) error {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	f, err := sess.file(fileID)
	if err != nil {
		return err
	}
	return fn(sess, f)
}

// GetFile returns information about one file of a session.
func (s *Service) GetFile(sessionID, fileID string) (*FileInfo, error) {
	var info FileInfo
	err := s.withFile(sessionID, fileID, func(_ *Session, f *sessionFile) error {
		info = f.info()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// DeleteFile removes a file from its session.
func (s *Service) DeleteFile(sessionID, fileID string) error {
	return s.withFile(sessionID, fileID, func(sess *Session, f *sessionFile) error {
		for i, cand := range sess.files {
			if cand == f {
				sess.files = append(sess.files[:i], sess.files[i+1:]...)
				break
			}
		}
		return nil
	})
}
