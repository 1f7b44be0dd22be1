package session

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	kerrors "github.com/PolarWolf314/keyclave/internal/errors"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testKey() []byte {
	return bytes.Repeat([]byte{0xAB}, 32)
}

func TestSession_StartsLocked(t *testing.T) {
	s := New(time.Minute)
	if s.State() != Locked {
		t.Errorf("Expected new session to be locked, got %s", s.State())
	}
	err := s.WithKey(func([]byte) error { return nil })
	if !errors.Is(err, kerrors.ErrLocked) {
		t.Errorf("Expected ErrLocked, got %v", err)
	}
}

func TestSession_UnlockAndLockZeroesKey(t *testing.T) {
	s := New(time.Minute)
	key := testKey()
	s.Unlock(key)

	if s.State() != Unlocked {
		t.Fatalf("Expected unlocked, got %s", s.State())
	}
	var seen []byte
	if err := s.WithKey(func(k []byte) error {
		seen = append(seen, k...)
		return nil
	}); err != nil {
		t.Fatalf("WithKey failed: %v", err)
	}
	if !bytes.Equal(seen, testKey()) {
		t.Error("Expected callback to receive the unlocked key")
	}

	s.Lock()
	if s.State() != Locked {
		t.Errorf("Expected locked after Lock, got %s", s.State())
	}
	if !bytes.Equal(key, make([]byte, 32)) {
		t.Error("Expected key buffer to be zeroed on lock")
	}
}

func TestSession_AutoLockAfterIdle(t *testing.T) {
	clock := newFakeClock()
	s := New(1*time.Second, WithClock(clock.Now))
	key := testKey()
	s.Unlock(key)

	clock.Advance(2 * time.Second)

	err := s.WithKey(func([]byte) error {
		t.Error("Expected callback not to run on an idle session")
		return nil
	})
	if !errors.Is(err, kerrors.ErrLocked) {
		t.Fatalf("Expected ErrLocked after idle timeout, got %v", err)
	}
	if !bytes.Equal(key, make([]byte, 32)) {
		t.Error("Expected key to be zeroed by auto-lock")
	}
}

func TestSession_ActivityExtendsTimeout(t *testing.T) {
	clock := newFakeClock()
	s := New(2*time.Second, WithClock(clock.Now))
	s.Unlock(testKey())

	for i := 0; i < 5; i++ {
		clock.Advance(1500 * time.Millisecond)
		if err := s.WithKey(func([]byte) error { return nil }); err != nil {
			t.Fatalf("Access %d: expected session to stay unlocked, got %v", i, err)
		}
	}
}

func TestSession_SuspendDisablesAutoLock(t *testing.T) {
	clock := newFakeClock()
	s := New(time.Second, WithClock(clock.Now))
	s.Unlock(testKey())

	s.Suspend()
	clock.Advance(10 * time.Second)
	if s.State() != Unlocked {
		t.Fatal("Expected suspended session to stay unlocked")
	}

	s.Resume()
	if s.State() != Unlocked {
		t.Fatal("Expected Resume to count as activity")
	}
	clock.Advance(2 * time.Second)
	if s.State() != Locked {
		t.Error("Expected auto-lock to apply again after Resume")
	}
}

func TestSession_ZeroTimeoutNeverLocks(t *testing.T) {
	clock := newFakeClock()
	s := New(0, WithClock(clock.Now))
	s.Unlock(testKey())
	clock.Advance(24 * time.Hour)
	if s.State() != Unlocked {
		t.Error("Expected zero timeout to disable auto-lock")
	}
}

func TestSession_ReplaceKey(t *testing.T) {
	s := New(time.Minute)
	if err := s.ReplaceKey(testKey()); !errors.Is(err, kerrors.ErrLocked) {
		t.Errorf("Expected ErrLocked replacing key on locked session, got %v", err)
	}

	old := testKey()
	s.Unlock(old)
	next := bytes.Repeat([]byte{0x01}, 32)
	if err := s.ReplaceKey(next); err != nil {
		t.Fatalf("ReplaceKey failed: %v", err)
	}
	if !bytes.Equal(old, make([]byte, 32)) {
		t.Error("Expected old key to be zeroed")
	}
	_ = s.WithKey(func(k []byte) error {
		if k[0] != 0x01 {
			t.Error("Expected new key to be live")
		}
		return nil
	})
}

func TestSession_RunLocksInBackground(t *testing.T) {
	clock := newFakeClock()
	locked := make(chan struct{})
	s := New(time.Second, WithClock(clock.Now), WithLockHook(func() { close(locked) }))
	s.Unlock(testKey())
	clock.Advance(3 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx, 5*time.Millisecond)

	select {
	case <-locked:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected background loop to lock the idle session")
	}
	if s.State() != Locked {
		t.Error("Expected session to be locked")
	}
}

func TestSession_LockWaitsForInFlightAccess(t *testing.T) {
	s := New(time.Minute)
	s.Unlock(testKey())

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.WithKey(func(k []byte) error {
			close(entered)
			<-release
			if k[0] != 0xAB {
				t.Error("Expected key to stay intact during the callback")
			}
			return nil
		})
		close(done)
	}()

	<-entered
	lockDone := make(chan struct{})
	go func() {
		s.Lock()
		close(lockDone)
	}()

	select {
	case <-lockDone:
		t.Fatal("Expected Lock to wait for the in-flight callback")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	<-done
	<-lockDone
}

func TestWipe(t *testing.T) {
	b := []byte{1, 2, 3}
	Wipe(b)
	if !bytes.Equal(b, []byte{0, 0, 0}) {
		t.Errorf("Expected zeroed slice, got %v", b)
	}
	Wipe(nil)
}
