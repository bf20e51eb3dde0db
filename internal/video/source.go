package video

import (
	"errors"
	"fmt"
)

var (
	// ErrResourceUnavailable is returned when a source cannot be opened.
	ErrResourceUnavailable = errors.New("video resource unavailable")

	// ErrEndOfStream marks the end of frame acquisition. Sources map every
	// decode or I/O failure to it, so callers treat broken and finished input
	// the same way.
	ErrEndOfStream = errors.New("end of stream")
)

// Source yields frames strictly in order. Read blocks until a frame is
// decoded. The only way to rewind is Close followed by a fresh Open.
type Source interface {
	Info() Info
	Read() (*Frame, error)
	Close() error
}

// Opener opens a fresh Source positioned at the first frame. It is called
// once for training and once more for live processing.
type Opener func() (Source, error)

// Unavailable wraps err so that errors.Is(err, ErrResourceUnavailable) holds.
func Unavailable(identifier string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrResourceUnavailable, identifier)
	}
	return fmt.Errorf("%w: %s: %v", ErrResourceUnavailable, identifier, err)
}

// Sink receives output frames in order.
type Sink interface {
	Write(*Frame) error
	Close() error
}
