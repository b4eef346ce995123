package rar

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// RAR4 block frame: crc16(2) | type(1) | flags(2) | size(2), little-endian.
// size covers the whole block including the frame; file blocks are followed
// by a data area of packSize bytes that the frame size does not include.
const frameSize4 = 7

type blockHeader4 struct {
	crc   uint16
	typ   byte
	flags uint16
	size  uint16
}

func (p *parser) walkV4() error {
	for {
		if p.atEnd() {
			return nil
		}
		if p.justEnded {
			ok, err := p.scanNextVolume(SignatureV4)
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
		raw, err := p.readFull(frameSize4)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		h := blockHeader4{
			crc:   binary.LittleEndian.Uint16(raw[0:2]),
			typ:   raw[2],
			flags: binary.LittleEndian.Uint16(raw[3:5]),
			size:  binary.LittleEndian.Uint16(raw[5:7]),
		}
		if h.size < frameSize4 {
			return fmt.Errorf("%w: block size %d at %d", ErrMalformedFrame, h.size, blockStart)
		}

		switch h.typ {
		case blockTypeFile4:
			if err := p.parseFileBlock4(blockStart, h); err != nil {
				return err
			}
		case blockTypeEnd4:
			p.justEnded = true
			if err := p.seekTo(blockStart + int64(h.size)); err != nil {
				return err
			}
		default:
			if err := p.seekTo(blockStart + int64(h.size)); err != nil {
				return err
			}
		}
	}
}

// File header body: packSize(4) unpackSize(4) hostOS(1) fileCRC(4)
// ftime(4) unpackVersion(1) method(1) nameLength(2) attributes(4),
// then optional 64-bit size extensions and the name bytes.
func (p *parser) parseFileBlock4(blockStart int64, h blockHeader4) error {
	body, err := p.readFull(int64(h.size) - frameSize4)
	if err == io.EOF {
		return fmt.Errorf("%w: file header at %d", ErrTruncatedInput, blockStart)
	}
	if err != nil {
		return err
	}
	if len(body) < 25 {
		return fmt.Errorf("%w: file header body %d bytes at %d", ErrMalformedFrame, len(body), blockStart)
	}

	packSize := int64(binary.LittleEndian.Uint32(body[0:4]))
	unpackSize := int64(binary.LittleEndian.Uint32(body[4:8]))
	fileCRC := binary.LittleEndian.Uint32(body[9:13])
	method := body[18]
	nameLen := int(binary.LittleEndian.Uint16(body[19:21]))
	cur := 25
	if h.flags&fileFlagLargeFile4 != 0 {
		if len(body) < cur+8 {
			return fmt.Errorf("%w: missing 64-bit sizes at %d", ErrMalformedFrame, blockStart)
		}
		packSize |= int64(binary.LittleEndian.Uint32(body[cur:cur+4])) << 32
		unpackSize |= int64(binary.LittleEndian.Uint32(body[cur+4:cur+8])) << 32
		cur += 8
	}
	if len(body) < cur+nameLen {
		return fmt.Errorf("%w: name length %d overruns header at %d", ErrMalformedFrame, nameLen, blockStart)
	}
	name := strings.ReplaceAll(string(body[cur:cur+nameLen]), "\\", "/")

	compression := 0
	if method != 0x30 {
		compression = int(method) - 0x30
	}

	dataPos := blockStart + int64(h.size)
	o := occurrence{
		path:        name,
		headerPos:   blockStart + frameSize4,
		dataPos:     dataPos,
		packSize:    packSize,
		unpackSize:  unpackSize,
		method:      compression,
		isDir:       h.flags&fileFlagDirMask4 == fileFlagDirMask4,
		splitAfter:  h.flags&fileFlagSplitAfter4 != 0,
		crc32:       fileCRC,
		hasCRC:      true,
		contHdrSize: int64(len(SignatureV4)) + mainHeaderSize4 + int64(h.size),
	}
	inferred, err := p.onFileOccurrence(o)
	if err != nil || inferred {
		return err
	}
	return p.seekTo(dataPos + packSize)
}
