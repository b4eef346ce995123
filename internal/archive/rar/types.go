// Package rar lists the contents of RAR 4.x and RAR 5.x archives without
// decompressing them. It walks the block chain over a stream that is the
// concatenation of all volumes and reports, for every file, the exact byte
// coordinates of its data in that stream.
package rar

import "errors"

// Version of the RAR container format.
type Version int

const (
	VersionUnknown Version = 0
	Version4       Version = 4
	Version5       Version = 5
)

var (
	// ErrInvalidSignature indicates the stream does not start with a RAR
	// marker.
	ErrInvalidSignature = errors.New("rar: signature not found")
	// ErrTruncatedInput indicates the stream ended while a block frame was
	// expected.
	ErrTruncatedInput = errors.New("rar: truncated input")
	// ErrMalformedFrame indicates a block declared sizes that are
	// inconsistent or impossible.
	ErrMalformedFrame = errors.New("rar: malformed block frame")
)

// Signatures. RAR5 shares the first 6 bytes with RAR4 and differs in the
// version byte that follows, so neither signature is a prefix of the other.
var (
	SignatureV4 = []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x00}
	SignatureV5 = []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x01, 0x00}
)

// RAR4 block types and flags.
const (
	blockTypeMain4 = 0x73
	blockTypeFile4 = 0x74
	blockTypeEnd4  = 0x7B

	fileFlagSplitBefore4 = 0x0001
	fileFlagSplitAfter4  = 0x0002
	fileFlagLargeFile4   = 0x0100
	fileFlagDirMask4     = 0x00E0

	mainHeaderSize4 = 13 // frame (7) + reserved body (6)
)

// RAR5 header types and flags.
const (
	headerTypeMain5 = 1
	headerTypeFile5 = 2
	headerTypeSrv5  = 3
	headerTypeEnd5  = 5

	headerFlagExtra5 = 0x01
	headerFlagData5  = 0x02

	fileFlagDir5         = 0x01
	fileFlagMTime5       = 0x02
	fileFlagCRC5         = 0x04
	fileFlagSplitBefore5 = 0x08
	fileFlagSplitAfter5  = 0x10
)

// SplitPart is the portion of one file residing in one volume.
// DataStart is absolute in the concatenated volume stream.
type SplitPart struct {
	VolumeIndex int   `json:"volume_index"`
	DataStart   int64 `json:"data_start"`
	DataSize    int64 `json:"data_size"`
}

// FileEntry describes one file of the archive. For files spanning several
// volumes SplitParts holds one part per volume in stream order; it is empty
// for files contained in a single volume.
type FileEntry struct {
	Path              string      `json:"path"`
	UnpackedSize      int64       `json:"unpacked_size"`
	PackedSize        int64       `json:"packed_size"`
	HeaderPos         int64       `json:"header_pos"`
	DataPos           int64       `json:"data_pos"`
	IsDirectory       bool        `json:"is_directory,omitempty"`
	VolumeIndex       int         `json:"volume_index"`
	CompressionMethod int         `json:"compression_method"`
	SplitParts        []SplitPart `json:"split_parts,omitempty"`
	CRC32             uint32      `json:"crc32,omitempty"`
	HasCRC            bool        `json:"-"`
}

// Stored reports whether the file data is stored without compression.
func (e *FileEntry) Stored() bool { return e.CompressionMethod == 0 }

// TotalDataSize returns the number of payload bytes the entry occupies in
// the stream, summed over its split parts.
func (e *FileEntry) TotalDataSize() int64 {
	if len(e.SplitParts) == 0 {
		return e.PackedSize
	}
	var total int64
	for _, p := range e.SplitParts {
		total += p.DataSize
	}
	return total
}

// ContinuationHeaderSize returns the number of preamble bytes at the start
// of every non-first RAR4 volume of a multi-volume set: signature, archive
// header and the repeated file header for the continued file.
func ContinuationHeaderSize(nameLen int, largeFile bool) int64 {
	size := int64(52 + nameLen)
	if largeFile {
		size += 8
	}
	return size
}
