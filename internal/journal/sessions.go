package journal

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Session is one live follow stream, usually bound to a websocket client.
type Session struct {
	ID      string
	Entries <-chan Entry

	cancel context.CancelFunc
}

// Sessions tracks live follow sessions and caps how many may run at once,
// since each one holds a journalctl process.
type Sessions struct {
	reader *Reader
	max    int

	mu     sync.Mutex
	active map[string]*Session
}

// NewSessions creates a session registry over reader allowing up to max
// concurrent follows.
func NewSessions(reader *Reader, max int) *Sessions {
	return &Sessions{
		reader: reader,
		max:    max,
		active: make(map[string]*Session),
	}
}

// Open starts a new follow session. The session ends when Close is called
// with its ID, when CloseAll runs, or when ctx is cancelled.
func (s *Sessions) Open(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.active) >= s.max {
		return nil, fmt.Errorf("maximum follow sessions reached (%d)", s.max)
	}

	ctx, cancel := context.WithCancel(ctx)
	entries, err := s.reader.Follow(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	session := &Session{
		ID:      uuid.NewString(),
		Entries: entries,
		cancel:  cancel,
	}
	s.active[session.ID] = session
	return session, nil
}

// Close ends the identified session. Closing an unknown ID is a no-op.
func (s *Sessions) Close(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.active[id]; ok {
		session.cancel()
		delete(s.active, id)
	}
}

// CloseAll ends every live session.
func (s *Sessions) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, session := range s.active {
		session.cancel()
		delete(s.active, id)
	}
}

// Count returns the number of live sessions.
func (s *Sessions) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}
