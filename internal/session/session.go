package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	kerrors "github.com/PolarWolf314/keyclave/internal/errors"
)

// State is the lock state of a Session.
type State int

const (
	Locked State = iota
	Unlocked
)

func (s State) String() string {
	if s == Unlocked {
		return "unlocked"
	}
	return "locked"
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithLockHook registers fn to run after the session locks itself because
// it was idle. fn must not call back into the Session.
func WithLockHook(fn func()) Option {
	return func(s *Session) { s.onIdleLock = fn }
}

// Session owns the derived key while the vault is unlocked.
type Session struct {
	// mu guards key. Key users hold the read lock for the duration of their
	// callback so the key is never zeroed underneath them.
	mu  sync.RWMutex
	key []byte

	timeout      atomic.Int64 // nanoseconds, 0 disables auto-lock
	lastActivity atomic.Int64 // unix nanoseconds
	suspended    atomic.Int32

	now        func() time.Time
	onIdleLock func()
}

// New returns a Locked session with the given idle timeout.
func New(timeout time.Duration, opts ...Option) *Session {
	s := &Session{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.timeout.Store(int64(timeout))
	return s
}

// Unlock stores key and moves the session to Unlocked. The session takes
// ownership of key and will zero it. Any previously held key is zeroed.
func (s *Session) Unlock(key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	Wipe(s.key)
	s.key = key
	s.Touch()
}

// Lock zeroes the key and moves the session to Locked. It waits for any
// in-flight WithKey callbacks to return.
func (s *Session) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	Wipe(s.key)
	s.key = nil
}

// State reports the current lock state. An idle session past its timeout is
// reported as Locked.
func (s *Session) State() State {
	if s.expire() {
		return Locked
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key == nil {
		return Locked
	}
	return Unlocked
}

// WithKey runs fn with the live key. It fails with ErrLocked when the
// session is locked or has been idle past its timeout, and refreshes the
// activity timestamp otherwise. fn must not retain key.
func (s *Session) WithKey(fn func(key []byte) error) error {
	if s.expire() {
		return kerrors.ErrLocked
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key == nil {
		return kerrors.ErrLocked
	}
	s.Touch()
	return fn(s.key)
}

// ReplaceKey swaps in newKey after a rotation commit and zeroes the old key.
func (s *Session) ReplaceKey(newKey []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key == nil {
		Wipe(newKey)
		return kerrors.ErrLocked
	}
	Wipe(s.key)
	s.key = newKey
	s.Touch()
	return nil
}

// Touch records activity now.
func (s *Session) Touch() {
	s.lastActivity.Store(s.now().UnixNano())
}

// LastActivity returns the time of the most recent access.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// Timeout returns the idle timeout. Zero means auto-lock is disabled.
func (s *Session) Timeout() time.Duration {
	return time.Duration(s.timeout.Load())
}

// SetTimeout changes the idle timeout.
func (s *Session) SetTimeout(d time.Duration) {
	s.timeout.Store(int64(d))
}

// Suspend stops the idle timeout from being enforced. Calls nest.
func (s *Session) Suspend() {
	s.suspended.Add(1)
}

// Resume undoes one Suspend and counts as activity.
func (s *Session) Resume() {
	if s.suspended.Add(-1) < 0 {
		s.suspended.Store(0)
	}
	s.Touch()
}

// Suspended reports whether auto-lock is currently suspended.
func (s *Session) Suspended() bool {
	return s.suspended.Load() > 0
}

// Idle reports whether the session has been inactive for at least the
// timeout while auto-lock is enforced.
func (s *Session) Idle() bool {
	timeout := s.Timeout()
	if timeout <= 0 || s.Suspended() {
		return false
	}
	return s.now().Sub(s.LastActivity()) >= timeout
}

// expire locks an idle, unlocked session and reports whether it is locked
// because of the idle timeout.
func (s *Session) expire() bool {
	if !s.Idle() {
		return false
	}

	s.mu.Lock()
	// Re-check under the lock; a concurrent access may have refreshed it.
	if !s.Idle() {
		s.mu.Unlock()
		return false
	}
	wasUnlocked := s.key != nil
	Wipe(s.key)
	s.key = nil
	s.mu.Unlock()

	if wasUnlocked && s.onIdleLock != nil {
		s.onIdleLock()
	}
	return true
}

// Run enforces the idle timeout every interval until ctx is done.
func (s *Session) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.expire()
		}
	}
}

// Wipe overwrites b with zeros.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
