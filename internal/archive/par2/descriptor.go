package par2

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
)

// Parse scans data for PAR2 packets and collects the file descriptions.
// The recovery set id is taken from the first packet; an invalid magic or
// a truncated header fails the whole scan.
func Parse(data []byte) (*Info, error) {
	if !HasMagicBytes(data) {
		return nil, fmt.Errorf("%w: missing PAR2 signature", ErrParse)
	}
	log := slog.Default().With("component", "par2-parser")
	pr := NewPacketReader(bytes.NewReader(data))

	info := &Info{}
	first := true
	for {
		header, err := pr.ReadHeader()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if first {
			info.RecoveryID = header.RecoveryID
			first = false
		}
		if header.Type == PacketTypeFileDesc {
			desc, err := pr.ReadFileDescriptor(header)
			if err != nil {
				return nil, err
			}
			info.FileDescriptors = append(info.FileDescriptors, *desc)
			continue
		}
		if err := pr.SkipPacketBody(header); err != nil {
			return nil, err
		}
	}
	log.Debug("parsed PAR2 stream", "file_descriptors", len(info.FileDescriptors))
	return info, nil
}
