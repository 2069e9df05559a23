package feed

import (
	"errors"
	"fmt"
)

var (
	ErrHostRequired     = errors.New("feed: host required")
	ErrInvalidPort      = errors.New("feed: port must be in 1..65535")
	ErrSequenceMismatch = errors.New("feed: resend answered with a different sequence")
)

// ConnectionError reports that a channel could not be opened or a request could not be sent.
type ConnectionError struct {
	Addr string
	Op   string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("feed: %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolError reports a violated frame boundary or an undecodable response.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("feed: protocol error during %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ResendError is the isolated failure of one missing-sequence resend. Last is
// set past Sequence when one error covers a whole run that was never dialed.
type ResendError struct {
	Sequence int32
	Last     int32
	Err      error
}

func (e *ResendError) Error() string {
	if e.Last > e.Sequence {
		return fmt.Sprintf("feed: resend sequences %d-%d: %v", e.Sequence, e.Last, e.Err)
	}
	return fmt.Sprintf("feed: resend sequence %d: %v", e.Sequence, e.Err)
}

func (e *ResendError) Unwrap() error { return e.Err }
