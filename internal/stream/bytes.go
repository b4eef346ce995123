package stream

import "bytes"

// BytesStream is an in-memory Stream, mostly useful for tests and for
// parsing metadata blocks that were already read into memory.
type BytesStream struct {
	r    *bytes.Reader
	size int64
}

// NewBytes returns a Stream over b.
func NewBytes(b []byte) *BytesStream {
	return &BytesStream{r: bytes.NewReader(b), size: int64(len(b))}
}

func (s *BytesStream) Read(p []byte) (int, error) { return s.r.Read(p) }

func (s *BytesStream) Seek(offset int64, whence int) (int64, error) {
	return s.r.Seek(offset, whence)
}

func (s *BytesStream) Size() int64 { return s.size }

func (s *BytesStream) Close() error { return nil }

var _ Stream = (*BytesStream)(nil)
