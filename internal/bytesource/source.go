// Package bytesource provides the byte sources the Ogg demuxer reads from:
// a random-access file backend and an incrementally fed push buffer.
package bytesource

import (
	"errors"
	"io"
)

var (
	// ErrNeedMoreData is returned by incremental sources that are momentarily
	// exhausted but may receive more bytes.
	ErrNeedMoreData = errors.New("bytesource: need more data")

	// ErrOutsideWindow is returned when seeking a push source outside the
	// bytes it still retains.
	ErrOutsideWindow = errors.New("bytesource: offset outside retained window")

	errNegativeSkip = errors.New("bytesource: negative skip")
)

// Source is the byte-level contract the demuxer depends on.
type Source interface {
	// ReadByte returns the next byte or an error at end of input.
	ReadByte() (byte, error)

	// ReadExact returns exactly n bytes. A short read is an error.
	ReadExact(n int) ([]byte, error)

	// Skip advances the position by n bytes without returning them.
	Skip(n int64) error

	// Seek moves to an absolute offset.
	Seek(offset int64) error

	// Position returns the absolute offset of the next byte.
	Position() int64

	// Incremental reports whether the source is fed over time.
	Incremental() bool
}

// Sizer is implemented by sources whose total length is known.
type Sizer interface {
	Size() (int64, error)
}

// Compactor is implemented by sources that can release bytes behind the
// current position.
type Compactor interface {
	Compact()
}

// Verify implementations at compile time.
var (
	_ Source    = (*File)(nil)
	_ Sizer     = (*File)(nil)
	_ Source    = (*Push)(nil)
	_ Compactor = (*Push)(nil)
	_ io.Reader = (*File)(nil)
)
