package stream

import (
	"fmt"
	"io"
)

// ConcatStream presents a list of ordered sub-streams as one contiguous
// byte source. Volume archives are parsed through this view so that block
// chains crossing a volume boundary read as a single run of bytes.
type ConcatStream struct {
	parts   []Stream
	sizes   []int64
	offsets []int64 // cumulative start of each part
	total   int64
	pos     int64
}

// NewConcat builds a ConcatStream over parts. Every part must report a
// known size.
func NewConcat(parts []Stream) (*ConcatStream, error) {
	c := &ConcatStream{parts: parts}
	for i, p := range parts {
		sz := p.Size()
		if sz < 0 {
			return nil, fmt.Errorf("concat: part %d has unknown size", i)
		}
		c.offsets = append(c.offsets, c.total)
		c.sizes = append(c.sizes, sz)
		c.total += sz
	}
	return c, nil
}

func (c *ConcatStream) Read(p []byte) (int, error) {
	if c.pos >= c.total {
		return 0, io.EOF
	}
	total := 0
	for total < len(p) && c.pos < c.total {
		idx := c.partAt(c.pos)
		local := c.pos - c.offsets[idx]
		avail := c.sizes[idx] - local
		want := int64(len(p) - total)
		if want > avail {
			want = avail
		}
		if _, err := c.parts[idx].Seek(local, io.SeekStart); err != nil {
			return total, err
		}
		n, err := io.ReadFull(c.parts[idx], p[total:total+int(want)])
		total += n
		c.pos += int64(n)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return total, err
		}
		if int64(n) < want {
			return total, io.ErrUnexpectedEOF
		}
	}
	return total, nil
}

func (c *ConcatStream) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = c.pos + offset
	case io.SeekEnd:
		target = c.total + offset
	default:
		return 0, ErrInvalidWhence
	}
	if target < 0 {
		return 0, ErrNegativeSeek
	}
	c.pos = target
	return target, nil
}

func (c *ConcatStream) Size() int64 { return c.total }

// VolumeSizes returns the size of each underlying part in order.
func (c *ConcatStream) VolumeSizes() []int64 {
	out := make([]int64, len(c.sizes))
	copy(out, c.sizes)
	return out
}

func (c *ConcatStream) Close() error {
	var firstErr error
	for _, p := range c.parts {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *ConcatStream) partAt(pos int64) int {
	for i := len(c.offsets) - 1; i > 0; i-- {
		if pos >= c.offsets[i] {
			return i
		}
	}
	return 0
}

var _ Stream = (*ConcatStream)(nil)
