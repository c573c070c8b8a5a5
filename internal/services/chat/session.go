// Package chat manages streaming chat sessions and feeds their
// accumulated text through the visualization extraction engine.
package chat

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/4rankng/paper-trading-sub001/internal/models"
	"github.com/4rankng/paper-trading-sub001/internal/viz"
)

// Session owns one streaming response: the growing text buffer and the
// latest extraction result. On every appended chunk the entire buffer is
// re-scanned from the start; no parser state survives between chunks, so
// a span that looked complete is never poisoned by stale increments.
type Session struct {
	ID string

	mu        sync.Mutex
	buf       strings.Builder
	maxBuffer int
	closed    bool
	result    *models.ExtractResult
	createdAt time.Time
	updatedAt time.Time
}

func newSession(id string, maxBuffer int) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		maxBuffer: maxBuffer,
		createdAt: now,
		updatedAt: now,
	}
}

// Append adds one streamed chunk and re-extracts over the whole buffer.
func (s *Session) Append(chunk string) (*models.ExtractResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("session '%s' is closed", s.ID)
	}
	if s.maxBuffer > 0 && s.buf.Len()+len(chunk) > s.maxBuffer {
		return nil, fmt.Errorf("session '%s' buffer limit (%d bytes) exceeded", s.ID, s.maxBuffer)
	}

	s.buf.WriteString(chunk)
	s.result = viz.ExtractCommands(s.buf.String(), false)
	s.updatedAt = time.Now()
	return s.result, nil
}

// Close finalizes the session. Markers still unterminated at this point
// are salvaged where possible and otherwise become per-command errors.
// Closing twice returns the same final result.
func (s *Session) Close() *models.ExtractResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.result
	}
	s.closed = true
	s.result = viz.ExtractCommands(s.buf.String(), true)
	s.updatedAt = time.Now()
	return s.result
}

// Closed reports whether the session has been finalized.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Snapshot returns a read-only view of the session.
func (s *Session) Snapshot() *models.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &models.SessionSnapshot{
		ID:        s.ID,
		Closed:    s.closed,
		Text:      s.buf.String(),
		Result:    s.result,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
}
