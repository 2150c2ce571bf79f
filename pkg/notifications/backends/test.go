package backends

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp-forge/recipebox/pkg/notifications"
)

// TestBackend records every event it handles and can inject failures.
type TestBackend struct {
	name   string
	mu     sync.RWMutex
	config TestBackendConfig
	events []TestBackendEvent
}

// TestBackendConfig configures the test backend behavior
type TestBackendConfig struct {
	// FailureMode determines how the backend should fail
	FailureMode FailureMode

	// FailFirstN is the number of events to fail in FailureModeFirstNFail
	FailFirstN int

	// FailureMessage is the error message to return
	FailureMessage string
}

// FailureMode defines how the test backend should behave
type FailureMode string

const (
	// FailureModeNone processes all events successfully
	FailureModeNone FailureMode = "none"

	// FailureModeAlways always fails with a retryable error
	FailureModeAlways FailureMode = "always"

	// FailureModePermanent always fails with a permanent error
	FailureModePermanent FailureMode = "permanent"

	// FailureModeFirstNFail fails the first N events, then succeeds
	FailureModeFirstNFail FailureMode = "first_n_fail"
)

// TestBackendEvent records a handled event for verification
type TestBackendEvent struct {
	Event     *notifications.ChangeEvent
	Timestamp time.Time
	Success   bool
	Error     error
}

// NewTestBackend creates a new test backend
func NewTestBackend(config TestBackendConfig) *TestBackend {
	if config.FailureMode == "" {
		config.FailureMode = FailureModeNone
	}
	return &TestBackend{
		name:   "test",
		config: config,
	}
}

// Name returns the backend name
func (b *TestBackend) Name() string {
	return b.name
}

// Handle records the event according to the configured failure mode
func (b *TestBackend) Handle(ctx context.Context, event *notifications.ChangeEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var err error
	select {
	case <-ctx.Done():
		err = NewBackendError(b.name, "handle", true, ctx.Err())
	default:
		err = b.failureLocked()
	}

	b.events = append(b.events, TestBackendEvent{
		Event:     event,
		Timestamp: time.Now(),
		Success:   err == nil,
		Error:     err,
	})
	return err
}

func (b *TestBackend) failureLocked() error {
	msg := b.config.FailureMessage
	switch b.config.FailureMode {
	case FailureModeNone:
		return nil
	case FailureModeAlways:
		if msg == "" {
			msg = "simulated retryable failure"
		}
		return NewBackendError(b.name, "handle", true, errors.New(msg))
	case FailureModePermanent:
		if msg == "" {
			msg = "simulated permanent failure"
		}
		return NewBackendError(b.name, "handle", false, errors.New(msg))
	case FailureModeFirstNFail:
		if len(b.events) < b.config.FailFirstN {
			return NewBackendError(b.name, "handle", true,
				fmt.Errorf("simulated failure %d/%d", len(b.events)+1, b.config.FailFirstN))
		}
		return nil
	default:
		return NewBackendError(b.name, "handle", false,
			fmt.Errorf("unknown failure mode: %s", b.config.FailureMode))
	}
}

// Close is a no-op.
func (b *TestBackend) Close() error {
	return nil
}

// GetEvents returns a copy of all recorded events
func (b *TestBackend) GetEvents() []TestBackendEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := make([]TestBackendEvent, len(b.events))
	copy(events, b.events)
	return events
}

// GetEventCount returns the number of handled events
func (b *TestBackend) GetEventCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.events)
}

// GetSuccessCount returns the number of successfully handled events
func (b *TestBackend) GetSuccessCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, e := range b.events {
		if e.Success {
			count++
		}
	}
	return count
}

// Reset clears all recorded events
func (b *TestBackend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}

// SetFailureMode dynamically changes the failure mode
func (b *TestBackend) SetFailureMode(mode FailureMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.config.FailureMode = mode
}
