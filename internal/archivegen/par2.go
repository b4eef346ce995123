package archivegen

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"

	"github.com/javi11/archivelist/internal/archive/par2"
)

var par2CreatorType = [16]byte{'P', 'A', 'R', ' ', '2', '.', '0', 0, 'C', 'r', 'e', 'a', 't', 'o', 'r', 0}

// GeneratePar2 writes a minimal PAR2 index: a creator packet plus one
// FileDesc packet per input file, enough for filename recovery by
// first-16KB hash.
func GeneratePar2(files []File) []byte {
	recoveryID := md5.Sum([]byte("archivelist-recovery-set"))

	out := &bytes.Buffer{}
	for _, f := range files {
		out.Write(par2Packet(recoveryID, par2.PacketTypeFileDesc, fileDescBody(f)))
	}
	out.Write(par2Packet(recoveryID, par2CreatorType, pad4([]byte("archivelist"))))
	return out.Bytes()
}

func fileDescBody(f File) []byte {
	head := f.Data
	if len(head) > 16*1024 {
		head = head[:16*1024]
	}
	hash16k := md5.Sum(head)
	fileMD5 := md5.Sum(f.Data)

	var sizeBytes [8]byte
	binary.LittleEndian.PutUint64(sizeBytes[:], uint64(len(f.Data)))
	idInput := append(append(append([]byte{}, hash16k[:]...), sizeBytes[:]...), []byte(f.Name)...)
	fileID := md5.Sum(idInput)

	body := &bytes.Buffer{}
	body.Write(fileID[:])
	body.Write(fileMD5[:])
	body.Write(hash16k[:])
	body.Write(sizeBytes[:])
	body.Write(pad4([]byte(f.Name)))
	return body.Bytes()
}

// par2Packet frames body with the 64-byte packet header, computing the
// packet hash over everything past the first 32 bytes.
func par2Packet(recoveryID [16]byte, typ [16]byte, body []byte) []byte {
	length := uint64(par2.PacketHeaderSize + len(body))

	hashed := &bytes.Buffer{}
	hashed.Write(recoveryID[:])
	hashed.Write(typ[:])
	hashed.Write(body)
	packetHash := md5.Sum(hashed.Bytes())

	out := &bytes.Buffer{}
	out.Write(par2.MagicBytes[:])
	var lenBytes [8]byte
	binary.LittleEndian.PutUint64(lenBytes[:], length)
	out.Write(lenBytes[:])
	out.Write(packetHash[:])
	out.Write(hashed.Bytes())
	return out.Bytes()
}

func pad4(b []byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}
