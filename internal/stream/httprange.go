package stream

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	httpBlockSize  = 64 * 1024
	httpCacheSlots = 64
	httpMaxRetries = 3
)

// ErrRangeNotSupported describes a remote server that ignores Range
// requests. HTTPRangeStream does not return it: a 200 response is served
// by slicing the requested block out of the full body.
var ErrRangeNotSupported = errors.New("stream: server does not support range requests")

// HTTPRangeStream reads a remote resource through HTTP range requests.
// Reads go through a small LRU block cache so header walks that touch the
// same region repeatedly do not re-fetch it.
type HTTPRangeStream struct {
	url    string
	client *http.Client
	log    *slog.Logger
	size   int64
	pos    int64
	blocks *lru.Cache[int64, []byte]
}

// OpenHTTP probes url with a HEAD request and returns a Stream over it.
func OpenHTTP(client *http.Client, url string) (*HTTPRangeStream, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	s := &HTTPRangeStream{
		url:    url,
		client: client,
		log:    slog.Default().With("component", "http-stream"),
		size:   SizeUnknown,
	}
	blocks, err := lru.New[int64, []byte](httpCacheSlots)
	if err != nil {
		return nil, err
	}
	s.blocks = blocks
	if err := s.probe(); err != nil {
		return nil, err
	}
	s.log.Debug("opened http range stream", "url", url, "size", s.size)
	return s, nil
}

func (s *HTTPRangeStream) probe() error {
	return retry.Do(func() error {
		resp, err := s.client.Head(s.url)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("head %s: unexpected status %d", s.url, resp.StatusCode)
		}
		cl := resp.Header.Get("Content-Length")
		if cl != "" {
			if size, err := strconv.ParseInt(cl, 10, 64); err == nil {
				s.size = size
			}
		}
		return nil
	}, retry.Attempts(httpMaxRetries), retry.DelayType(retry.BackOffDelay))
}

func (s *HTTPRangeStream) Read(p []byte) (int, error) {
	if s.size >= 0 && s.pos >= s.size {
		return 0, io.EOF
	}
	total := 0
	for total < len(p) {
		if s.size >= 0 && s.pos >= s.size {
			break
		}
		block, base, err := s.block(s.pos)
		if err != nil {
			if total > 0 && err == io.EOF {
				break
			}
			return total, err
		}
		off := int(s.pos - base)
		if off >= len(block) {
			break
		}
		n := copy(p[total:], block[off:])
		total += n
		s.pos += int64(n)
	}
	if total == 0 {
		return 0, io.EOF
	}
	return total, nil
}

// block returns the cached block containing pos, fetching it if needed.
func (s *HTTPRangeStream) block(pos int64) ([]byte, int64, error) {
	base := pos - pos%httpBlockSize
	if b, ok := s.blocks.Get(base); ok {
		return b, base, nil
	}
	end := base + httpBlockSize - 1
	if s.size >= 0 && end >= s.size {
		end = s.size - 1
	}
	if end < base {
		return nil, base, io.EOF
	}
	var body []byte
	err := retry.Do(func() error {
		req, err := http.NewRequest(http.MethodGet, s.url, nil)
		if err != nil {
			return retry.Unrecoverable(err)
		}
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", base, end))
		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusPartialContent:
			body, err = io.ReadAll(resp.Body)
			return err
		case http.StatusOK:
			// Server ignored the range and returned everything.
			full, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			if int64(len(full)) <= base {
				return retry.Unrecoverable(io.EOF)
			}
			hi := end + 1
			if int64(len(full)) < hi {
				hi = int64(len(full))
			}
			body = full[base:hi]
			return nil
		case http.StatusRequestedRangeNotSatisfiable:
			return retry.Unrecoverable(io.EOF)
		default:
			return fmt.Errorf("get %s: unexpected status %d", s.url, resp.StatusCode)
		}
	}, retry.Attempts(httpMaxRetries), retry.DelayType(retry.BackOffDelay))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, base, io.EOF
		}
		return nil, base, err
	}
	s.blocks.Add(base, body)
	return body, base, nil
}

func (s *HTTPRangeStream) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = s.pos + offset
	case io.SeekEnd:
		if s.size < 0 {
			return 0, fmt.Errorf("stream: size unknown, cannot seek from end")
		}
		target = s.size + offset
	default:
		return 0, ErrInvalidWhence
	}
	if target < 0 {
		return 0, ErrNegativeSeek
	}
	s.pos = target
	return target, nil
}

func (s *HTTPRangeStream) Size() int64 { return s.size }

func (s *HTTPRangeStream) Close() error {
	s.blocks.Purge()
	return nil
}

var _ Stream = (*HTTPRangeStream)(nil)
