package axis

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotConnected indicates an operation was issued before Connect.
	ErrNotConnected = errors.New("not connected")
	// ErrReadTimeout indicates no full reply frame arrived within the
	// configured read timeout.
	ErrReadTimeout = errors.New("reply read timeout")
)

// ConnectError reports a failure to open or probe the transport of an
// axis. It is fatal for that axis and never retried internally.
type ConnectError struct {
	Motor int
	Port  string
	Err   error
}

// Error implements error.
func (e *ConnectError) Error() string {
	return fmt.Sprintf("motor %d: failed to connect on port %s: %v", e.Motor, e.Port, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ConnectError) Unwrap() error {
	return e.Err
}

// RangeError reports a requested microstep position outside the
// configured travel limits. The move is rejected before any hardware
// write; the caller may retry with a valid target.
type RangeError struct {
	Motor int
	Steps int64
	Max   int64
}

// Error implements error.
func (e *RangeError) Error() string {
	if e.Steps < 0 {
		return fmt.Sprintf("motor %d: requested position step %d is negative", e.Motor, e.Steps)
	}
	return fmt.Sprintf("motor %d: requested position step %d larger than maximum allowed %d",
		e.Motor, e.Steps, e.Max)
}

// StallError reports that a commanded motion made no measurable
// progress for longer than the freeze timeout while the target was
// still unreached. The axis position is unknown afterwards and the
// axis should be re-homed before further moves.
type StallError struct {
	Motor    int
	Position int64
	Timeout  time.Duration
}

// Error implements error.
func (e *StallError) Error() string {
	return fmt.Sprintf("motor %d: cannot move from position %d over %v", e.Motor, e.Position, e.Timeout)
}
