package stream

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// FileStream is a file-backed Stream. Seeking past the end is allowed; a
// subsequent read reports EOF.
type FileStream struct {
	f    afero.File
	size int64
}

// OpenFile opens path on fs and returns a Stream positioned at 0.
func OpenFile(fs afero.Fs, path string) (*FileStream, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return &FileStream{f: f, size: st.Size()}, nil
}

func (s *FileStream) Read(p []byte) (int, error) {
	n, err := s.f.Read(p)
	if n == 0 && err == io.ErrUnexpectedEOF {
		// In-memory afero files report a read past the end this way.
		return 0, io.EOF
	}
	return n, err
}

func (s *FileStream) Seek(offset int64, whence int) (int64, error) {
	pos, err := s.f.Seek(offset, whence)
	if err != nil {
		return pos, err
	}
	if pos < 0 {
		return pos, ErrNegativeSeek
	}
	return pos, nil
}

func (s *FileStream) Size() int64 { return s.size }

func (s *FileStream) Close() error { return s.f.Close() }

var _ Stream = (*FileStream)(nil)
var _ io.ReadSeekCloser = (*FileStream)(nil)
