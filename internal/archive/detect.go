package archive

import (
	"bytes"
	"encoding/binary"

	"github.com/javi11/archivelist/internal/archive/rar"
	"github.com/javi11/archivelist/internal/archive/sevenzip"
)

// DetectType classifies the first bytes of a volume (32 are enough) and
// reports whether it looks like the first volume of its set. RAR5 is
// tested before RAR4, the longer signature first. For RAR5
// and 7z continuation detection is left to the parsers, so the first-volume
// flag is always true there.
func DetectType(b []byte) (Type, bool) {
	if len(b) >= len(rar.SignatureV5) && bytes.Equal(b[:len(rar.SignatureV5)], rar.SignatureV5) {
		return TypeRar5, true
	}
	if len(b) >= len(rar.SignatureV4) && bytes.Equal(b[:len(rar.SignatureV4)], rar.SignatureV4) {
		return TypeRar4, rar4IsFirstVolume(b[len(rar.SignatureV4):])
	}
	if len(b) >= len(sevenzip.Signature) && bytes.Equal(b[:len(sevenzip.Signature)], sevenzip.Signature) {
		return TypeSevenZip, true
	}
	return TypeUnknown, false
}

// rar4IsFirstVolume inspects the block following the signature. The
// archive header carries a first-volume flag; a file header opening the
// volume with split-before set marks a continuation.
func rar4IsFirstVolume(block []byte) bool {
	if len(block) < 7 {
		return true
	}
	typ := block[2]
	flags := binary.LittleEndian.Uint16(block[3:5])
	switch typ {
	case 0x73:
		return flags&0x0100 != 0
	case 0x74:
		return flags&0x0001 == 0
	default:
		return true
	}
}
