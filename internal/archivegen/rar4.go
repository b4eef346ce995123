package archivegen

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"

	"github.com/javi11/archivelist/internal/archive/rar"
)

const (
	rar4MainFirstVolume = 0x0100
	rar4MainVolume      = 0x0001
	rar4FileLongBlock   = 0x8000
	rar4FileSplitBefore = 0x0001
	rar4FileSplitAfter  = 0x0002
	rar4FileDirFlags    = 0x00E0

	rar4FTime     = 0x5a000000
	rar4UnpackVer = 29
	rar4HostOS    = 2
)

// GenerateRar4 writes a store-mode multi-volume RAR 4.x set. volumeCaps is
// the number of payload bytes each volume may hold; headers do not count
// against it. Files are laid out sequentially and split wherever a volume
// runs out of capacity, with the header repetition and split flags a real
// archiver would produce.
func GenerateRar4(files []File, volumeCaps []int64) ([][]byte, error) {
	if len(volumeCaps) == 0 {
		return nil, errors.New("archivegen: no volume capacities")
	}
	w := &rar4Writer{caps: volumeCaps}
	w.openVolume()
	for _, f := range files {
		if f.Dir {
			w.writeFileHeader(f, 0, rar4FileDirFlags)
			continue
		}
		data := f.Data
		first := true
		for {
			if w.capRemaining == 0 && len(data) > 0 {
				if err := w.nextVolume(); err != nil {
					return nil, err
				}
			}
			part := int64(len(data))
			if part > w.capRemaining {
				part = w.capRemaining
			}
			flags := uint16(0)
			if !first {
				flags |= rar4FileSplitBefore
			}
			if part < int64(len(data)) {
				flags |= rar4FileSplitAfter
			}
			w.writeFileHeader(f, part, flags)
			w.cur.Write(data[:part])
			w.capRemaining -= part
			data = data[part:]
			first = false
			if len(data) == 0 {
				break
			}
			if err := w.nextVolume(); err != nil {
				return nil, err
			}
		}
	}
	w.closeVolume()
	return w.volumes, nil
}

type rar4Writer struct {
	caps         []int64
	volumes      [][]byte
	cur          *bytes.Buffer
	capRemaining int64
}

func (w *rar4Writer) openVolume() {
	w.cur = &bytes.Buffer{}
	w.capRemaining = w.caps[len(w.volumes)]
	w.cur.Write(rar.SignatureV4)
	flags := uint16(rar4MainVolume)
	if len(w.volumes) == 0 {
		flags |= rar4MainFirstVolume
	}
	w.writeBlock(0x73, flags, make([]byte, 6))
}

func (w *rar4Writer) nextVolume() error {
	w.closeVolume()
	if len(w.volumes) >= len(w.caps) {
		return errors.New("archivegen: data does not fit the volume capacities")
	}
	w.openVolume()
	return nil
}

func (w *rar4Writer) closeVolume() {
	w.writeBlock(0x7B, 0, nil)
	w.volumes = append(w.volumes, w.cur.Bytes())
	w.cur = nil
}

// writeBlock writes a generic block: frame plus body, size covering both.
func (w *rar4Writer) writeBlock(typ byte, flags uint16, body []byte) {
	frame := make([]byte, 7, 7+len(body))
	frame[2] = typ
	binary.LittleEndian.PutUint16(frame[3:5], flags)
	binary.LittleEndian.PutUint16(frame[5:7], uint16(7+len(body)))
	frame = append(frame, body...)
	binary.LittleEndian.PutUint16(frame[0:2], headCRC16(frame[2:]))
	w.cur.Write(frame)
}

func (w *rar4Writer) writeFileHeader(f File, packSize int64, extraFlags uint16) {
	name := []byte(f.Name)
	body := make([]byte, 25, 25+len(name))
	binary.LittleEndian.PutUint32(body[0:4], uint32(packSize))
	binary.LittleEndian.PutUint32(body[4:8], uint32(len(f.Data)))
	body[8] = rar4HostOS
	binary.LittleEndian.PutUint32(body[9:13], crc32.ChecksumIEEE(f.Data))
	binary.LittleEndian.PutUint32(body[13:17], rar4FTime)
	body[17] = rar4UnpackVer
	body[18] = 0x30 // store
	binary.LittleEndian.PutUint16(body[19:21], uint16(len(name)))
	binary.LittleEndian.PutUint32(body[21:25], 0x20)
	body = append(body, name...)
	w.writeBlock(0x74, rar4FileLongBlock|extraFlags, body)
}

// headCRC16 is the low half of CRC32 over the header past the crc field.
func headCRC16(b []byte) uint16 {
	return uint16(crc32.ChecksumIEEE(b) & 0xFFFF)
}
