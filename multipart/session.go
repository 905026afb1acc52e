package multipart

import (
	"sync"

	"github.com/pithecene-io/hoist/storage"
)

type sessionState int

const (
	sessionOpen sessionState = iota
	sessionCompleted
	sessionAborted
)

func (s sessionState) String() string {
	switch s {
	case sessionOpen:
		return "open"
	case sessionCompleted:
		return "completed"
	case sessionAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Session is an open multipart upload on the backend.
// It is consumed by exactly one Finalize or Abort.
type Session struct {
	UploadID string         `json:"upload_id"`
	Object   storage.Object `json:"object"`

	mu    sync.Mutex
	state sessionState
}

// NewSession wraps an upload ID obtained outside the driver, for example
// one supplied on the command line to abort an abandoned upload.
func NewSession(obj storage.Object, uploadID string) *Session {
	return &Session{UploadID: uploadID, Object: obj}
}

// State returns "open", "completed" or "aborted".
func (s *Session) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.String()
}

// Open reports whether the session can still be finalized or aborted.
func (s *Session) Open() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == sessionOpen
}

// close runs fn while holding the session and moves to next if fn succeeds.
// Returns ErrSessionClosed without calling fn when the session is not open.
func (s *Session) close(next sessionState, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != sessionOpen {
		return ErrSessionClosed
	}
	if err := fn(); err != nil {
		return err
	}
	s.state = next
	return nil
}
