package archivegen

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"strings"
	"unicode/utf16"

	"github.com/javi11/archivelist/internal/archive/sevenzip"
)

// GenerateSevenZip writes a single-volume 7z archive with every file
// stored through the Copy codec, one folder per non-empty file. The
// metadata block sits after the pack data, exactly where the signature
// header points.
func GenerateSevenZip(files []File) []byte {
	var packed []File
	for _, f := range files {
		if !f.Dir && len(f.Data) > 0 {
			packed = append(packed, f)
		}
	}

	var data bytes.Buffer
	for _, f := range packed {
		data.Write(f.Data)
	}

	meta := buildSevenZipMetadata(files, packed)

	out := &bytes.Buffer{}
	out.Write(sevenzip.Signature)
	out.WriteByte(0) // version major
	out.WriteByte(4) // version minor
	// start header: nextHeaderOffset | nextHeaderSize | nextHeaderCRC
	hdr := make([]byte, 20)
	binary.LittleEndian.PutUint64(hdr[0:8], uint64(data.Len()))
	binary.LittleEndian.PutUint64(hdr[8:16], uint64(len(meta)))
	binary.LittleEndian.PutUint32(hdr[16:20], crc32.ChecksumIEEE(meta))
	var startCRC [4]byte
	binary.LittleEndian.PutUint32(startCRC[:], crc32.ChecksumIEEE(hdr))
	out.Write(startCRC[:])
	out.Write(hdr)
	out.Write(data.Bytes())
	out.Write(meta)
	return out.Bytes()
}

func buildSevenZipMetadata(files, packed []File) []byte {
	meta := []byte{0x01} // kHeader

	if len(packed) > 0 {
		meta = append(meta, 0x04) // kMainStreamsInfo
		meta = append(meta, buildStreamsInfo(packed)...)
		meta = append(meta, 0x00) // end of streams info
	}

	meta = append(meta, buildFilesInfo(files, packed)...)
	meta = append(meta, 0x00) // end of header
	return meta
}

func buildStreamsInfo(packed []File) []byte {
	var b []byte

	// kPackInfo: packPos 0, one pack stream per file, then sizes.
	b = append(b, 0x06)
	b = sevenzip.AppendNumber(b, 0)
	b = sevenzip.AppendNumber(b, uint64(len(packed)))
	b = append(b, 0x09) // kSize
	for _, f := range packed {
		b = sevenzip.AppendNumber(b, uint64(len(f.Data)))
	}
	b = append(b, 0x00)

	// kUnpackInfo: one single-coder Copy folder per file.
	b = append(b, 0x07)
	b = append(b, 0x0B) // kFolder
	b = sevenzip.AppendNumber(b, uint64(len(packed)))
	b = append(b, 0x00) // not external
	for range packed {
		b = sevenzip.AppendNumber(b, 1) // one coder
		b = append(b, 0x01)             // id size 1, simple, no attributes
		b = append(b, 0x00)             // Copy codec id
	}
	b = append(b, 0x0C) // kCodersUnpackSize
	for _, f := range packed {
		b = sevenzip.AppendNumber(b, uint64(len(f.Data)))
	}
	b = append(b, 0x0A) // kCRC
	b = append(b, 0x01) // all defined
	for _, f := range packed {
		var crc [4]byte
		binary.LittleEndian.PutUint32(crc[:], crc32.ChecksumIEEE(f.Data))
		b = append(b, crc[:]...)
	}
	b = append(b, 0x00) // end of unpack info
	return b
}

func buildFilesInfo(files, packed []File) []byte {
	b := []byte{0x05}
	b = sevenzip.AppendNumber(b, uint64(len(files)))

	if len(packed) < len(files) {
		// kEmptyStream bit vector, MSB first.
		bits := make([]byte, (len(files)+7)/8)
		for i, f := range files {
			if f.Dir || len(f.Data) == 0 {
				bits[i/8] |= 0x80 >> (i % 8)
			}
		}
		b = append(b, 0x0E)
		b = sevenzip.AppendNumber(b, uint64(len(bits)))
		b = append(b, bits...)
	}

	// kName: external byte plus null-terminated UTF-16LE names.
	names := []byte{0x00}
	for _, f := range files {
		name := f.Name
		if f.Dir && !strings.HasSuffix(name, "/") {
			name += "/"
		}
		for _, u := range utf16.Encode([]rune(name)) {
			var pair [2]byte
			binary.LittleEndian.PutUint16(pair[:], u)
			names = append(names, pair[:]...)
		}
		names = append(names, 0x00, 0x00)
	}
	b = append(b, 0x11)
	b = sevenzip.AppendNumber(b, uint64(len(names)))
	b = append(b, names...)

	// kWinAttributes: all defined, directory bit for directories.
	attrs := []byte{0x01, 0x00} // all defined, not external
	for _, f := range files {
		var a [4]byte
		if f.Dir {
			binary.LittleEndian.PutUint32(a[:], 0x10)
		} else {
			binary.LittleEndian.PutUint32(a[:], 0x20)
		}
		attrs = append(attrs, a[:]...)
	}
	b = append(b, 0x15)
	b = sevenzip.AppendNumber(b, uint64(len(attrs)))
	b = append(b, attrs...)

	b = append(b, 0x00) // end of files info
	return b
}
