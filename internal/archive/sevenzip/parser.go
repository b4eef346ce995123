package sevenzip

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/javi11/archivelist/internal/stream"
)

// List parses the signature header and the end-of-stream metadata block of
// a 7z archive and returns one entry per file with derived data offsets.
// The metadata is read into memory first; the walk itself never touches
// the stream, so s must only support the two seeks involved.
func List(s stream.Stream) ([]*FileEntry, error) {
	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	var sig [signatureHeaderSize]byte
	if _, err := io.ReadFull(s, sig[:]); err != nil {
		return nil, fmt.Errorf("%w: signature header: %s", ErrTruncatedInput, err)
	}
	if !bytes.Equal(sig[:6], Signature) {
		return nil, ErrInvalidSignature
	}
	nextHeaderOffset := int64(binary.LittleEndian.Uint64(sig[12:20]))
	nextHeaderSize := int64(binary.LittleEndian.Uint64(sig[20:28]))
	if nextHeaderOffset < 0 || nextHeaderSize < 0 || nextHeaderSize > maxMetadataSize {
		return nil, fmt.Errorf("%w: next header offset=%d size=%d", ErrMalformedFrame, nextHeaderOffset, nextHeaderSize)
	}
	if total := s.Size(); total >= 0 && signatureHeaderSize+nextHeaderOffset+nextHeaderSize > total {
		return nil, fmt.Errorf("%w: metadata block overruns archive", ErrMalformedFrame)
	}
	if nextHeaderSize == 0 {
		return nil, nil
	}
	if _, err := s.Seek(signatureHeaderSize+nextHeaderOffset, io.SeekStart); err != nil {
		return nil, err
	}
	meta := make([]byte, nextHeaderSize)
	if _, err := io.ReadFull(s, meta); err != nil {
		return nil, fmt.Errorf("%w: metadata block: %s", ErrTruncatedInput, err)
	}
	return parseMetadata(meta)
}

const maxMetadataSize = 64 << 20

type header struct {
	packPos       int64
	packSizes     []int64
	folderSizes   []int64
	folderCRCs    []uint32
	folderCRCDef  []bool
	numFiles      int
	names         []string
	emptyStream   []bool
	attributes    []uint32
	attributesDef []bool

	// substream overrides, when present
	subSizes  []int64
	subCRCs   []uint32
	subCRCDef []bool
	haveSubs  bool
}

func parseMetadata(meta []byte) ([]*FileEntry, error) {
	r := &propReader{buf: meta}
	switch id, err := r.id(); {
	case err != nil:
		return nil, err
	case id == idEncodedHeader:
		return nil, fmt.Errorf("%w: compressed headers unsupported", ErrUnsupportedFeature)
	case id != idHeader:
		return nil, fmt.Errorf("%w: unexpected top-level tag 0x%02x", ErrMalformedFrame, id)
	}

	h := &header{}
	for {
		id, err := r.id()
		if err != nil {
			return nil, err
		}
		switch id {
		case idEnd:
			return h.entries()
		case idMainStreamsInfo:
			if err := h.parseStreamsInfo(r); err != nil {
				return nil, err
			}
		case idFilesInfo:
			if err := h.parseFilesInfo(r); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: unexpected header tag 0x%02x", ErrMalformedFrame, id)
		}
	}
}

func (h *header) parseStreamsInfo(r *propReader) error {
	for {
		id, err := r.id()
		if err != nil {
			return err
		}
		switch id {
		case idEnd:
			return nil
		case idPackInfo:
			if err := h.parsePackInfo(r); err != nil {
				return err
			}
		case idUnpackInfo:
			if err := h.parseUnpackInfo(r); err != nil {
				return err
			}
		case idSubStreamsInfo:
			if err := h.parseSubStreamsInfo(r); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unexpected streams tag 0x%02x", ErrMalformedFrame, id)
		}
	}
}

// packInfo: packPos | numPackStreams | [0x09 sizes] | [0x0A crcs] | 0x00
func (h *header) parsePackInfo(r *propReader) error {
	packPos, err := r.number()
	if err != nil {
		return err
	}
	h.packPos = int64(packPos)
	count, err := r.count()
	if err != nil {
		return err
	}
	for {
		id, err := r.id()
		if err != nil {
			return err
		}
		switch id {
		case idEnd:
			return nil
		case idSize:
			h.packSizes = make([]int64, count)
			for i := range h.packSizes {
				v, err := r.number()
				if err != nil {
					return err
				}
				h.packSizes[i] = int64(v)
			}
		case idCRC:
			if _, _, err := r.digests(count); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unexpected pack tag 0x%02x", ErrMalformedFrame, id)
		}
	}
}

// unpackInfo: 0x0B folders | 0x0C unpackSizes | [0x0A crcs] | 0x00
func (h *header) parseUnpackInfo(r *propReader) error {
	id, err := r.id()
	if err != nil {
		return err
	}
	if id != idFolder {
		return fmt.Errorf("%w: expected folder tag, got 0x%02x", ErrMalformedFrame, id)
	}
	numFolders, err := r.count()
	if err != nil {
		return err
	}
	external, err := r.byte()
	if err != nil {
		return err
	}
	if external != 0 {
		return fmt.Errorf("%w: external folder data", ErrUnsupportedFeature)
	}
	for i := 0; i < numFolders; i++ {
		if err := r.folder(); err != nil {
			return err
		}
	}
	id, err = r.id()
	if err != nil {
		return err
	}
	if id != idCodersUnpackSize {
		return fmt.Errorf("%w: expected unpack sizes tag, got 0x%02x", ErrMalformedFrame, id)
	}
	h.folderSizes = make([]int64, numFolders)
	for i := range h.folderSizes {
		v, err := r.number()
		if err != nil {
			return err
		}
		h.folderSizes[i] = int64(v)
	}
	for {
		id, err := r.id()
		if err != nil {
			return err
		}
		switch id {
		case idEnd:
			return nil
		case idCRC:
			h.folderCRCs, h.folderCRCDef, err = r.digests(numFolders)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unexpected unpack tag 0x%02x", ErrMalformedFrame, id)
		}
	}
}

// subStreamsInfo: [0x0D counts] | [0x09 sizes] | [0x0A crcs] | 0x00
func (h *header) parseSubStreamsInfo(r *propReader) error {
	counts := make([]int, len(h.folderSizes))
	for i := range counts {
		counts[i] = 1
	}
	for {
		id, err := r.id()
		if err != nil {
			return err
		}
		switch id {
		case idEnd:
			return nil
		case idNumUnpackStream:
			for i := range counts {
				v, err := r.count()
				if err != nil {
					return err
				}
				counts[i] = v
			}
		case idSize:
			// Per folder, all substream sizes but the last, which is the
			// remainder of the folder.
			h.subSizes = h.subSizes[:0]
			for f, c := range counts {
				var consumed int64
				for i := 0; i < c-1; i++ {
					v, err := r.number()
					if err != nil {
						return err
					}
					h.subSizes = append(h.subSizes, int64(v))
					consumed += int64(v)
				}
				if c > 0 {
					h.subSizes = append(h.subSizes, h.folderSizes[f]-consumed)
				}
			}
			h.haveSubs = true
		case idCRC:
			total := 0
			for _, c := range counts {
				total += c
			}
			h.subCRCs, h.subCRCDef, err = r.digests(total)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unexpected substreams tag 0x%02x", ErrMalformedFrame, id)
		}
	}
}

// parseFilesInfo walks the per-file properties. Every property is prefixed
// with its byte length and the cursor always advances to start+length, so
// unknown or partially read properties never derail the walk.
func (h *header) parseFilesInfo(r *propReader) error {
	numFiles, err := r.count()
	if err != nil {
		return err
	}
	h.numFiles = numFiles
	for {
		id, err := r.id()
		if err != nil {
			return err
		}
		if id == idEnd {
			return nil
		}
		size, err := r.number()
		if err != nil {
			return err
		}
		end := r.pos + int(size)
		if end > len(r.buf) || end < r.pos {
			return fmt.Errorf("%w: property 0x%02x size %d", ErrMalformedFrame, id, size)
		}
		switch id {
		case idEmptyStream:
			h.emptyStream, err = r.bitVector(numFiles)
		case idEmptyFile, idMTime, idDummy:
			// Skipped; the size prefix carries the cursor past them.
		case idName:
			err = h.parseNames(r, end)
		case idWinAttributes:
			err = h.parseAttributes(r, numFiles)
		}
		if err != nil {
			return err
		}
		r.pos = end
	}
}

// names: external(1) | UTF-16LE strings, each null-terminated.
func (h *header) parseNames(r *propReader, end int) error {
	external, err := r.byte()
	if err != nil {
		return err
	}
	if external != 0 {
		return fmt.Errorf("%w: external names", ErrUnsupportedFeature)
	}
	decoder := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	for r.pos+1 < end {
		start := r.pos
		for r.pos+1 < end && !(r.buf[r.pos] == 0 && r.buf[r.pos+1] == 0) {
			r.pos += 2
		}
		raw := r.buf[start:r.pos]
		r.pos += 2 // terminator
		name, _, err := transform.Bytes(decoder, raw)
		if err != nil {
			return fmt.Errorf("%w: name encoding: %s", ErrMalformedFrame, err)
		}
		h.names = append(h.names, strings.ReplaceAll(string(name), "\\", "/"))
	}
	return nil
}

// attributes: allDefined(1) [bitvector] | external(1) | u32 per defined.
func (h *header) parseAttributes(r *propReader, numFiles int) error {
	defined, err := r.boolVector(numFiles)
	if err != nil {
		return err
	}
	if _, err := r.byte(); err != nil { // external
		return err
	}
	h.attributes = make([]uint32, numFiles)
	h.attributesDef = defined
	for i := 0; i < numFiles; i++ {
		if !defined[i] {
			continue
		}
		v, err := r.uint32()
		if err != nil {
			return err
		}
		h.attributes[i] = v
	}
	return nil
}

// entries lists the files in kFilesInfo order and assigns data offsets by
// walking the Copy-coded pack area from 32+packPos.
func (h *header) entries() ([]*FileEntry, error) {
	if h.numFiles == 0 {
		return nil, nil
	}
	if len(h.names) != h.numFiles {
		return nil, fmt.Errorf("%w: %d names for %d files", ErrMalformedFrame, len(h.names), h.numFiles)
	}
	sizes := h.folderSizes
	crcs, crcDef := h.folderCRCs, h.folderCRCDef
	if h.haveSubs {
		sizes = h.subSizes
		if len(h.subCRCs) > 0 {
			crcs, crcDef = h.subCRCs, h.subCRCDef
		}
	}

	entries := make([]*FileEntry, 0, h.numFiles)
	currentOffset := int64(signatureHeaderSize) + h.packPos
	streamIdx := 0
	for i := 0; i < h.numFiles; i++ {
		e := &FileEntry{Path: h.names[i]}
		empty := i < len(h.emptyStream) && h.emptyStream[i]
		if empty {
			attrs := uint32(0)
			if i < len(h.attributes) {
				attrs = h.attributes[i]
			}
			e.IsDirectory = attrs&attrDirectory != 0 || strings.HasSuffix(e.Path, "/")
			entries = append(entries, e)
			continue
		}
		if streamIdx >= len(sizes) {
			return nil, fmt.Errorf("%w: file %q has no unpack stream", ErrMalformedFrame, e.Path)
		}
		e.Size = sizes[streamIdx]
		e.PackedSize = e.Size
		e.Method = MethodCopy
		if streamIdx < len(crcs) && crcDef[streamIdx] {
			e.CRC32 = crcs[streamIdx]
			e.HasCRC = true
		}
		if e.Size > 0 {
			e.DataOffset = currentOffset
			currentOffset += e.Size
		}
		streamIdx++
		entries = append(entries, e)
	}
	return entries, nil
}
