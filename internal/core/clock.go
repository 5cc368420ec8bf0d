package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clock supplies scan timestamps
type Clock interface {
	Now() time.Time
}

// MonotonicClock returns UTC timestamps that never go backwards within a process
type MonotonicClock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewMonotonicClock creates a clock backed by time.Now
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{now: time.Now}
}

// NewMonotonicClockFrom creates a clock backed by the given time source
func NewMonotonicClockFrom(now func() time.Time) *MonotonicClock {
	return &MonotonicClock{now: now}
}

// Now returns the current time, or the previous timestamp if the wall clock stepped back
func (c *MonotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC()
	if t.Before(c.last) {
		return c.last
	}
	c.last = t
	return t
}

// Session holds the default session identifier for this process
type Session struct {
	id string
}

// NewProcessSession returns a session using the configured id, or a freshly generated one
func NewProcessSession(configured string) (*Session, error) {
	if configured != "" {
		return &Session{id: configured}, nil
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}
	return &Session{id: id.String()}, nil
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Resolve returns sessionID when set, otherwise the process session
func (s *Session) Resolve(sessionID string) string {
	if sessionID != "" {
		return sessionID
	}
	return s.id
}
