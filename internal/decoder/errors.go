package decoder

import (
	"errors"
	"fmt"
)

// ErrUnsupportedEvent is returned for event names the decoder does not handle.
var ErrUnsupportedEvent = errors.New("unsupported event")

// Error is a decode failure with enough context to replay the log later.
type Error struct {
	Event    string
	Block    uint64
	TxHash   string
	LogIndex uint
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("decode %s at block %d tx %s log %d: %v", e.Event, e.Block, e.TxHash, e.LogIndex, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
