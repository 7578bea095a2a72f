package tmcl

import (
	"errors"
	"fmt"
)

// ErrShortReply indicates a reply shorter than one full frame.
var ErrShortReply = errors.New("short reply")

// UnknownStatusError reports a reply status byte outside the defined
// code set.
type UnknownStatusError struct {
	Code byte
}

// Error implements error.
func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown status code %d", e.Code)
}
