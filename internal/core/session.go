package core

// session.go holds the session-scoped table store. Each session owns the
// working tables of the files uploaded into it, in upload order, together
// with each file's column projection and merge key. Sessions live in memory
// and are removed when deleted or after sitting idle longer than the TTL.

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/datasweeper/internal/frame"
)

var (
	// ErrSessionNotFound is returned for unknown or expired session IDs.
	ErrSessionNotFound = errors.New("session not found")

	// ErrFileNotFound is returned for file IDs not held by the session.
	ErrFileNotFound = errors.New("file not found")

	// ErrSessionFull is returned when a session already holds MaxFiles files.
	ErrSessionFull = errors.New("session file limit reached")
)

// sessionFile is an uploaded file and its working table.
type sessionFile struct {
	id         string
	name       string
	size       int64
	ext        string
	format     string
	uploadedAt time.Time

	table    *frame.Table
	selected []string // nil means all columns
	mergeKey string   // "" means the first projected column
}

// projected returns the file's table restricted to its selected columns.
func (f *sessionFile) projected() (*frame.Table, error) {
	if f.selected == nil {
		return f.table.Clone(), nil
	}
	return f.table.Select(f.selected)
}

// selection returns the selected column names, defaulting to all columns.
func (f *sessionFile) selection() []string {
	if f.selected == nil {
		return f.table.Names()
	}
	return append([]string(nil), f.selected...)
}

// effectiveMergeKey returns the column this file is joined on.
func (f *sessionFile) effectiveMergeKey() string {
	if f.mergeKey != "" {
		return f.mergeKey
	}
	if sel := f.selection(); len(sel) > 0 {
		return sel[0]
	}
	return ""
}

// info snapshots the file for API responses.
func (f *sessionFile) info() FileInfo {
	cols := make([]ColumnInfo, len(f.table.Columns))
	for i, c := range f.table.Columns {
		cols[i] = ColumnInfo{Name: c.Name, Kind: c.Kind, Missing: c.Missing()}
	}
	return FileInfo{
		ID:         f.id,
		Name:       f.name,
		Size:       f.size,
		SizeKB:     fmt.Sprintf("%.2f", float64(f.size)/1024),
		Extension:  f.ext,
		Format:     f.format,
		Rows:       f.table.Rows(),
		Columns:    cols,
		Selected:   f.selection(),
		MergeKey:   f.effectiveMergeKey(),
		UploadedAt: f.uploadedAt,
	}
}

// Session is one user's set of uploaded files. All access to the files goes
// through the session mutex, so requests against the same session run one
// at a time.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	lastAccess time.Time
	files      []*sessionFile
}

// file returns the file with the given ID. Caller must hold s.mu.
func (s *Session) file(id string) (*sessionFile, error) {
	for _, f := range s.files {
		if f.id == id {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
}

// SessionStore keeps sessions in memory, keyed by ID.
type SessionStore struct {
	ttl      time.Duration
	maxFiles int
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates a store whose sessions expire after ttl of
// inactivity and hold at most maxFiles files each.
func NewSessionStore(ttl time.Duration, maxFiles int) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		maxFiles: maxFiles,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new empty session.
func (st *SessionStore) Create() *Session {
	now := st.now()
	s := &Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		lastAccess: now,
	}

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()

	return s
}

// Get returns a live session and marks it as accessed.
func (st *SessionStore) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[strings.TrimSpace(id)]
	st.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	now := st.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.ttl > 0 && now.Sub(s.lastAccess) > st.ttl {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.lastAccess = now
	return s, nil
}

// Delete removes a session.
func (st *SessionStore) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(st.sessions, id)
	return nil
}

// Len returns the number of sessions held, including expired ones not yet
// reaped.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// expiresAt returns when the session expires if left idle.
// Caller must hold s.mu.
func (st *SessionStore) expiresAt(s *Session) time.Time {
	return s.lastAccess.Add(st.ttl)
}

// Reap removes sessions idle for longer than the TTL and returns how many
// were removed.
func (st *SessionStore) Reap() int {
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, s := range st.sessions {
		s.mu.Lock()
		idle := now.Sub(s.lastAccess)
		s.mu.Unlock()
		if st.ttl > 0 && idle > st.ttl {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}
