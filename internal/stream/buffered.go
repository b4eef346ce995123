package stream

import (
	"bufio"
	"io"
)

// BufferedStream wraps a forward-only reader with buffering. Forward seeks
// discard bytes; a backward seek fails with ErrBackwardSeek. Parsers that
// need true random access (the 7z metadata block lives at the end of the
// archive) must not be fed one of these.
type BufferedStream struct {
	br   *bufio.Reader
	rc   io.ReadCloser
	size int64
	pos  int64
}

// NewBuffered wraps r. size may be SizeUnknown.
func NewBuffered(r io.ReadCloser, size int64) *BufferedStream {
	return &BufferedStream{br: bufio.NewReaderSize(r, 64*1024), rc: r, size: size}
}

func (s *BufferedStream) Read(p []byte) (int, error) {
	n, err := s.br.Read(p)
	s.pos += int64(n)
	return n, err
}

func (s *BufferedStream) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = s.pos + offset
	case io.SeekEnd:
		if s.size < 0 {
			return 0, ErrBackwardSeek
		}
		target = s.size + offset
	default:
		return 0, ErrInvalidWhence
	}
	if target < 0 {
		return 0, ErrNegativeSeek
	}
	if target < s.pos {
		return s.pos, ErrBackwardSeek
	}
	for target > s.pos {
		skip := target - s.pos
		const chunk = 1 << 20
		if skip > chunk {
			skip = chunk
		}
		n, err := s.br.Discard(int(skip))
		s.pos += int64(n)
		if err != nil {
			return s.pos, err
		}
	}
	return s.pos, nil
}

func (s *BufferedStream) Size() int64 { return s.size }

func (s *BufferedStream) Close() error { return s.rc.Close() }

var _ Stream = (*BufferedStream)(nil)
