package archivegen

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"

	"github.com/javi11/archivelist/internal/archive/rar"
)

const (
	rar5HeaderMain = 1
	rar5HeaderFile = 2
	rar5HeaderEnd  = 5

	rar5FlagData = 0x02

	rar5FileDir         = 0x01
	rar5FileHasCRC      = 0x04
	rar5FileSplitBefore = 0x08
	rar5FileSplitAfter  = 0x10
)

// GenerateRar5 writes a store-mode multi-volume RAR 5.x set with the same
// capacity-driven layout as GenerateRar4.
func GenerateRar5(files []File, volumeCaps []int64) ([][]byte, error) {
	if len(volumeCaps) == 0 {
		return nil, errors.New("archivegen: no volume capacities")
	}
	w := &rar5Writer{caps: volumeCaps}
	w.openVolume()
	for _, f := range files {
		if f.Dir {
			w.writeFileHeader(f, 0, rar5FileDir)
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
			flags := uint64(0)
			if !first {
				flags |= rar5FileSplitBefore
			}
			if part < int64(len(data)) {
				flags |= rar5FileSplitAfter
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

type rar5Writer struct {
	caps         []int64
	volumes      [][]byte
	cur          *bytes.Buffer
	capRemaining int64
}

func (w *rar5Writer) openVolume() {
	w.cur = &bytes.Buffer{}
	w.capRemaining = w.caps[len(w.volumes)]
	w.cur.Write(rar.SignatureV5)
	// Main header: type, flags, archive flags. Identical in every volume so
	// continuation preambles keep a fixed size.
	body := rar.AppendVint(nil, rar5HeaderMain)
	body = rar.AppendVint(body, 0)
	body = rar.AppendVint(body, 0)
	w.writeBlock(body)
}

func (w *rar5Writer) nextVolume() error {
	w.closeVolume()
	if len(w.volumes) >= len(w.caps) {
		return errors.New("archivegen: data does not fit the volume capacities")
	}
	w.openVolume()
	return nil
}

func (w *rar5Writer) closeVolume() {
	body := rar.AppendVint(nil, rar5HeaderEnd)
	body = rar.AppendVint(body, 0)
	body = rar.AppendVint(body, 0) // end-of-archive flags
	w.writeBlock(body)
	w.volumes = append(w.volumes, w.cur.Bytes())
	w.cur = nil
}

// writeBlock frames body as crc32 | headerSize vint | body.
func (w *rar5Writer) writeBlock(body []byte) {
	sized := rar.AppendVint(nil, uint64(len(body)))
	sized = append(sized, body...)
	var crc [4]byte
	binary.LittleEndian.PutUint32(crc[:], crc32.ChecksumIEEE(sized))
	w.cur.Write(crc[:])
	w.cur.Write(sized)
}

func (w *rar5Writer) writeFileHeader(f File, packSize int64, fileFlags uint64) {
	name := []byte(f.Name)
	body := rar.AppendVint(nil, rar5HeaderFile)
	if f.Dir {
		body = rar.AppendVint(body, 0) // no data area
	} else {
		body = rar.AppendVint(body, rar5FlagData)
		body = rar.AppendVint(body, uint64(packSize))
	}
	if !f.Dir {
		fileFlags |= rar5FileHasCRC
	}
	body = rar.AppendVint(body, fileFlags)
	body = rar.AppendVint(body, uint64(len(f.Data)))
	body = rar.AppendVint(body, 0x20) // attributes
	if !f.Dir {
		var crc [4]byte
		binary.LittleEndian.PutUint32(crc[:], crc32.ChecksumIEEE(f.Data))
		body = append(body, crc[:]...)
	}
	body = rar.AppendVint(body, 0) // compression info: store
	body = rar.AppendVint(body, 1) // host OS: unix
	body = rar.AppendVint(body, uint64(len(name)))
	body = append(body, name...)
	w.writeBlock(body)
}
