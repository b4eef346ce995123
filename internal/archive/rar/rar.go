package rar

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/javi11/archivelist/internal/stream"
)

// List walks a RAR archive presented as the concatenation of its volumes
// and returns one entry per file. totalSize may be negative when unknown.
// volumeSizes enables split-position inference for stored files: when the
// sizes of all volumes are known, the data coordinates of a split file in
// the middle volumes are computed instead of read, and the intermediate
// volumes are skipped entirely.
func List(s stream.Stream, totalSize int64, volumeSizes []int64) ([]*FileEntry, error) {
	var sig [8]byte
	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	n, err := io.ReadFull(s, sig[:])
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}
	p := newParser(s, totalSize, volumeSizes)
	switch {
	case n >= len(SignatureV5) && bytes.Equal(sig[:len(SignatureV5)], SignatureV5):
		p.pos = int64(len(SignatureV5))
		err = p.walkV5()
	case n >= len(SignatureV4) && bytes.Equal(sig[:len(SignatureV4)], SignatureV4):
		p.pos = int64(len(SignatureV4))
		if _, serr := s.Seek(p.pos, io.SeekStart); serr != nil {
			return nil, serr
		}
		err = p.walkV4()
	default:
		return nil, ErrInvalidSignature
	}
	if err != nil {
		return nil, err
	}
	return p.finalize(), nil
}

// DetectVersion classifies the first bytes of a volume.
func DetectVersion(b []byte) Version {
	if len(b) >= len(SignatureV5) && bytes.Equal(b[:len(SignatureV5)], SignatureV5) {
		return Version5
	}
	if len(b) >= len(SignatureV4) && bytes.Equal(b[:len(SignatureV4)], SignatureV4) {
		return Version4
	}
	return VersionUnknown
}

type parser struct {
	s   stream.Stream
	log *slog.Logger

	totalSize int64
	volSizes  []int64
	volStarts []int64

	pos       int64
	volIndex  int
	justEnded bool

	// mainBlockSize5 is the full size of the RAR5 main header block of the
	// first volume, needed to size continuation preambles.
	mainBlockSize5 int64

	entries []*FileEntry
	byPath  map[string]*FileEntry
}

func newParser(s stream.Stream, totalSize int64, volumeSizes []int64) *parser {
	p := &parser{
		s:         s,
		log:       slog.Default().With("component", "rar-parser"),
		totalSize: totalSize,
		volSizes:  volumeSizes,
		byPath:    make(map[string]*FileEntry),
	}
	if len(volumeSizes) > 0 {
		var cum int64
		for _, sz := range volumeSizes {
			p.volStarts = append(p.volStarts, cum)
			cum += sz
		}
		if p.totalSize < 0 {
			p.totalSize = cum
		}
	}
	return p
}

func (p *parser) atEnd() bool {
	return p.totalSize >= 0 && p.pos >= p.totalSize
}

// readFull reads exactly n bytes from the current position. A clean EOF at
// the start is reported as io.EOF; running dry mid-read is truncation.
func (p *parser) readFull(n int64) ([]byte, error) {
	buf := make([]byte, n)
	got, err := io.ReadFull(p.s, buf)
	p.pos += int64(got)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err == io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("%w: %d of %d bytes at %d", ErrTruncatedInput, got, n, p.pos-int64(got))
	}
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *parser) seekTo(pos int64) error {
	if _, err := p.s.Seek(pos, io.SeekStart); err != nil {
		return err
	}
	p.pos = pos
	return nil
}

// scanNextVolume is called after an end-of-archive marker. It reads
// signature-sized windows, tolerating zero padding at the end of a volume,
// and reports whether another volume follows at the current position.
func (p *parser) scanNextVolume(sig []byte) (bool, error) {
	n := int64(len(sig))
	for {
		if p.atEnd() {
			return false, nil
		}
		win, err := p.readFull(n)
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			// A ragged tail shorter than a signature is trailing padding.
			return false, nil //nolint:nilerr
		}
		if bytes.Equal(win, sig) {
			return true, nil
		}
		if isZero(win) {
			continue
		}
		// Zero alignment may shift the signature inside the window: accept
		// a strict prefix of the signature preceded by at least one zero.
		i := 0
		for i < len(win) && win[i] == 0 {
			i++
		}
		if i > 0 && bytes.Equal(win[i:], sig[:int(n)-i]) {
			rest, err := p.readFull(int64(i))
			if err != nil {
				return false, nil //nolint:nilerr
			}
			if bytes.Equal(rest, sig[int(n)-i:]) {
				return true, nil
			}
		}
		return false, nil
	}
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// occurrence is one file header as encountered in one volume.
type occurrence struct {
	path        string
	headerPos   int64
	dataPos     int64
	packSize    int64
	unpackSize  int64
	method      int
	isDir       bool
	splitAfter  bool
	crc32       uint32
	hasCRC      bool
	contHdrSize int64 // continuation preamble size if this file spills over
}

// onFileOccurrence folds a header occurrence into the entry list. Headers
// of a split file repeat in every volume the file occupies; the first one
// is canonical and later ones only contribute their split part. Returns
// true when inference consumed the remaining parts and repositioned the
// stream.
func (p *parser) onFileOccurrence(o occurrence) (bool, error) {
	part := SplitPart{VolumeIndex: p.volIndex, DataStart: o.dataPos, DataSize: o.packSize}
	if existing, ok := p.byPath[o.path]; ok {
		existing.SplitParts = append(existing.SplitParts, part)
		return false, nil
	}

	entry := &FileEntry{
		Path:              o.path,
		UnpackedSize:      o.unpackSize,
		PackedSize:        o.packSize,
		HeaderPos:         o.headerPos,
		DataPos:           o.dataPos,
		IsDirectory:       o.isDir,
		VolumeIndex:       p.volIndex,
		CompressionMethod: o.method,
		SplitParts:        []SplitPart{part},
		CRC32:             o.crc32,
		HasCRC:            o.hasCRC,
	}
	if o.isDir {
		entry.PackedSize = 0
	}
	p.byPath[o.path] = entry
	p.entries = append(p.entries, entry)

	if o.splitAfter && o.method == 0 && !o.isDir && len(p.volSizes) > 0 {
		return p.inferSplitParts(entry, o.contHdrSize)
	}
	return false, nil
}

// inferSplitParts computes the data coordinates of a stored split file in
// every volume after its first from the volume sizes alone, then seeks the
// stream past the last inferred part. The layout of the first volume gives
// the length of the trailing end-of-archive area, which every volume of a
// set repeats.
func (p *parser) inferSplitParts(e *FileEntry, contHdrSize int64) (bool, error) {
	if contHdrSize <= 0 || e.VolumeIndex >= len(p.volSizes) {
		return false, nil
	}
	first := e.SplitParts[0]
	firstVol := e.VolumeIndex
	endOfArchiveSize := p.volSizes[firstVol] - (first.DataStart - p.volStarts[firstVol]) - first.DataSize
	if endOfArchiveSize < 0 {
		return false, nil
	}
	remaining := e.UnpackedSize - first.DataSize
	for v := firstVol + 1; v < len(p.volSizes) && remaining > 0; v++ {
		available := p.volSizes[v] - contHdrSize - endOfArchiveSize
		if available <= 0 {
			continue
		}
		partSize := remaining
		if partSize > available {
			partSize = available
		}
		e.SplitParts = append(e.SplitParts, SplitPart{
			VolumeIndex: v,
			DataStart:   p.volStarts[v] + contHdrSize,
			DataSize:    partSize,
		})
		remaining -= partSize
	}
	if len(e.SplitParts) == 1 {
		return false, nil
	}
	last := e.SplitParts[len(e.SplitParts)-1]
	if err := p.seekTo(last.DataStart + last.DataSize); err != nil {
		return false, err
	}
	p.volIndex = last.VolumeIndex
	p.justEnded = false
	p.log.Debug("inferred split parts",
		"path", e.Path,
		"parts", len(e.SplitParts),
		"resume_pos", p.pos,
		"volume", p.volIndex)
	return true, nil
}

// finalize clears the part list of files that never crossed a volume
// boundary and returns the entries in encounter order.
func (p *parser) finalize() []*FileEntry {
	for _, e := range p.entries {
		if len(e.SplitParts) <= 1 {
			e.SplitParts = nil
		}
	}
	return p.entries
}
