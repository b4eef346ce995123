package rar

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// RAR5 block frame: crc32(4) | headerSize(vint) | headerType(vint) |
// headerFlags(vint) | [extraSize(vint)] | [dataSize(vint)] | body.
// headerSize counts everything after its own vint up to the end of the
// body; the data area declared by dataSize follows the block.

const maxHeaderSize5 = 2 << 20

func (p *parser) walkV5() error {
	for {
		if p.atEnd() {
			return nil
		}
		if p.justEnded {
			ok, err := p.scanNextVolume(SignatureV5)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			p.volIndex++
			p.justEnded = false
			continue
		}

		blockStart := p.pos
		if _, err := p.readFull(4); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		headerSize, headerSizeLen, err := p.readVintStream()
		if err != nil {
			return err
		}
		if headerSize == 0 {
			// Padding or a stray end marker; nothing more to walk.
			return nil
		}
		if headerSize > maxHeaderSize5 {
			return fmt.Errorf("%w: header size %d at %d", ErrMalformedFrame, headerSize, blockStart)
		}
		head, err := p.readFull(int64(headerSize))
		if err == io.EOF {
			return fmt.Errorf("%w: header at %d", ErrTruncatedInput, blockStart)
		}
		if err != nil {
			return err
		}
		blockSize := 4 + int64(headerSizeLen) + int64(headerSize)

		cur := 0
		next := func() (uint64, error) {
			v, n, err := ReadVint(head[cur:])
			if err != nil {
				return 0, fmt.Errorf("%w: vint at %d", ErrMalformedFrame, blockStart+int64(cur))
			}
			cur += n
			return v, nil
		}
		headerType, err := next()
		if err != nil {
			return err
		}
		headerFlags, err := next()
		if err != nil {
			return err
		}
		var extraSize, dataSize uint64
		if headerFlags&headerFlagExtra5 != 0 {
			if extraSize, err = next(); err != nil {
				return err
			}
		}
		if headerFlags&headerFlagData5 != 0 {
			if dataSize, err = next(); err != nil {
				return err
			}
		}
		bodyEnd := len(head)
		if extraSize > 0 {
			if extraSize > uint64(bodyEnd-cur) {
				return fmt.Errorf("%w: extra area %d overruns header at %d", ErrMalformedFrame, extraSize, blockStart)
			}
			bodyEnd -= int(extraSize)
		}

		switch headerType {
		case headerTypeMain5:
			if p.volIndex == 0 && p.mainBlockSize5 == 0 {
				p.mainBlockSize5 = blockSize
			}
		case headerTypeFile5:
			inferred, err := p.parseFileBlock5(blockStart, blockSize, head[cur:bodyEnd], int64(dataSize))
			if err != nil {
				return err
			}
			if inferred {
				continue
			}
		case headerTypeEnd5:
			p.justEnded = true
		}
		if err := p.seekTo(blockStart + blockSize + int64(dataSize)); err != nil {
			return err
		}
	}
}

// File header body: fileFlags(vint) unpackedSize(vint) attributes(vint)
// [mtime(4)] [crc32(4)] compressionInfo(vint) hostOS(vint)
// nameLength(vint) name.
func (p *parser) parseFileBlock5(blockStart, blockSize int64, body []byte, dataSize int64) (bool, error) {
	cur := 0
	next := func() (uint64, error) {
		v, n, err := ReadVint(body[cur:])
		if err != nil {
			return 0, fmt.Errorf("%w: file header vint at %d", ErrMalformedFrame, blockStart)
		}
		cur += n
		return v, nil
	}
	fileFlags, err := next()
	if err != nil {
		return false, err
	}
	unpackedSize, err := next()
	if err != nil {
		return false, err
	}
	if _, err = next(); err != nil { // attributes
		return false, err
	}
	if fileFlags&fileFlagMTime5 != 0 {
		if len(body)-cur < 4 {
			return false, fmt.Errorf("%w: mtime truncated at %d", ErrMalformedFrame, blockStart)
		}
		cur += 4
	}
	var fileCRC uint32
	hasCRC := false
	if fileFlags&fileFlagCRC5 != 0 {
		if len(body)-cur < 4 {
			return false, fmt.Errorf("%w: crc32 truncated at %d", ErrMalformedFrame, blockStart)
		}
		fileCRC = binary.LittleEndian.Uint32(body[cur : cur+4])
		hasCRC = true
		cur += 4
	}
	compressionInfo, err := next()
	if err != nil {
		return false, err
	}
	if _, err = next(); err != nil { // host OS
		return false, err
	}
	nameLen, err := next()
	if err != nil {
		return false, err
	}
	if nameLen == 0 || nameLen > uint64(len(body)-cur) {
		return false, fmt.Errorf("%w: name length %d at %d", ErrMalformedFrame, nameLen, blockStart)
	}
	name := strings.ReplaceAll(string(body[cur:cur+int(nameLen)]), "\\", "/")

	isDir := fileFlags&fileFlagDir5 != 0
	method := int(compressionInfo & 0x7F)
	// A stored file is split whenever this volume holds less than the whole
	// file, whether or not the writer set the split flag.
	splitAfter := fileFlags&fileFlagSplitAfter5 != 0 ||
		(method == 0 && !isDir && dataSize < int64(unpackedSize))

	var contHdrSize int64
	if p.mainBlockSize5 > 0 {
		contHdrSize = int64(len(SignatureV5)) + p.mainBlockSize5 + blockSize
	}
	o := occurrence{
		path:        name,
		headerPos:   blockStart,
		dataPos:     blockStart + blockSize,
		packSize:    dataSize,
		unpackSize:  int64(unpackedSize),
		method:      method,
		isDir:       isDir,
		splitAfter:  splitAfter,
		crc32:       fileCRC,
		hasCRC:      hasCRC,
		contHdrSize: contHdrSize,
	}
	return p.onFileOccurrence(o)
}

// readVintStream decodes a vint byte-by-byte from the stream.
func (p *parser) readVintStream() (uint64, int, error) {
	var val uint64
	var one [1]byte
	for i := 0; i < maxVintLen; i++ {
		if _, err := io.ReadFull(p.s, one[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return 0, 0, fmt.Errorf("%w: vint at %d", ErrTruncatedInput, p.pos)
			}
			return 0, 0, err
		}
		p.pos++
		val |= uint64(one[0]&0x7F) << (7 * i)
		if one[0]&0x80 == 0 {
			return val, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: vint at %d", ErrMalformedFrame, p.pos)
}
