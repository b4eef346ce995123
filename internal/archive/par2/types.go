// Package par2 extracts file descriptions from PAR2 recovery sets. Its
// only consumer here is filename recovery: the FileDesc packet maps the
// MD5 of a file's first 16KB back to its original name.
package par2

import "errors"

// ErrParse indicates a missing or corrupt packet.
var ErrParse = errors.New("par2: parse error")

// MagicBytes is the PAR2 packet signature "PAR2\0PKT".
var MagicBytes = [8]byte{'P', 'A', 'R', '2', 0, 'P', 'K', 'T'}

// PacketTypeFileDesc is the file description packet type "PAR 2.0\0FileDesc".
var PacketTypeFileDesc = [16]byte{'P', 'A', 'R', ' ', '2', '.', '0', 0, 'F', 'i', 'l', 'e', 'D', 'e', 's', 'c'}

const (
	// PacketHeaderSize is the size of the common packet header.
	PacketHeaderSize = 64

	// fileDescFixedSize covers FileID, FileMD5, Hash16k and Length.
	fileDescFixedSize = 56

	// maxInterPacketPadding is the number of stray bytes tolerated between
	// packets; some writers align packets with a few zeros.
	maxInterPacketPadding = 3
)

// PacketHeader is the 64-byte header every PAR2 packet starts with.
type PacketHeader struct {
	Magic      [8]byte  // "PAR2\0PKT"
	Length     uint64   // total packet length including this header
	MD5Hash    [16]byte // MD5 of the packet from RecoveryID onward
	RecoveryID [16]byte // recovery set id, shared by all packets of a set
	Type       [16]byte // packet type identifier
}

// FileDescriptor is the body of a FileDesc packet.
type FileDescriptor struct {
	FileID  [16]byte // MD5 of (Hash16k, Length, Name)
	FileMD5 [16]byte // MD5 of the whole file
	Hash16k [16]byte // MD5 of the first 16KB, used for matching
	Length  uint64
	Name    string
}

// Info is the result of scanning a PAR2 stream.
type Info struct {
	RecoveryID      [16]byte
	FileDescriptors []FileDescriptor
}

// DescriptorByHash16k indexes the file descriptors by their first-16KB MD5.
func (i *Info) DescriptorByHash16k() map[[16]byte]*FileDescriptor {
	out := make(map[[16]byte]*FileDescriptor, len(i.FileDescriptors))
	for idx := range i.FileDescriptors {
		d := &i.FileDescriptors[idx]
		out[d.Hash16k] = d
	}
	return out
}

// HasMagicBytes reports whether data starts with the PAR2 packet signature.
func HasMagicBytes(data []byte) bool {
	if len(data) < len(MagicBytes) {
		return false
	}
	for i := range MagicBytes {
		if data[i] != MagicBytes[i] {
			return false
		}
	}
	return true
}
