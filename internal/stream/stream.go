// Package stream provides the seekable byte sources the archive parsers
// operate on: a single file, a concatenation of ordered volumes, a buffered
// forward-only reader and an HTTP byte-range backend.
package stream

import "errors"

// SizeUnknown is returned by Size when the backend cannot report a length.
const SizeUnknown = int64(-1)

var (
	// ErrBackwardSeek is returned by forward-only streams when a caller
	// attempts to seek behind the current position.
	ErrBackwardSeek = errors.New("stream: backward seek not supported")
	// ErrInvalidWhence is returned for an unrecognized whence value.
	ErrInvalidWhence = errors.New("stream: invalid whence")
	// ErrNegativeSeek is returned when the target position is negative.
	ErrNegativeSeek = errors.New("stream: negative seek position")
)

// Stream is a random-access byte source. Reads are sequential from the
// current position; Seek repositions it. Size may be SizeUnknown for
// unbounded backends. All calls may block on the underlying I/O.
type Stream interface {
	Read(p []byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
	Size() int64
	Close() error
}
