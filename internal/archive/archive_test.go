package archive_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/javi11/archivelist/internal/archive"
	"github.com/javi11/archivelist/internal/archive/rar"
	"github.com/javi11/archivelist/internal/archive/sevenzip"
	"github.com/javi11/archivelist/internal/archivegen"
	"github.com/javi11/archivelist/internal/stream"
)

func concatStream(t *testing.T, volumes [][]byte) *stream.ConcatStream {
	t.Helper()
	parts := make([]stream.Stream, 0, len(volumes))
	for _, v := range volumes {
		parts = append(parts, stream.NewBytes(v))
	}
	s, err := stream.NewConcat(parts)
	require.NoError(t, err)
	return s
}

func descriptors(names []string, volumes [][]byte) []archive.VolumeDescriptor {
	out := make([]archive.VolumeDescriptor, len(volumes))
	for i, v := range volumes {
		head := v
		if len(head) > 16*1024 {
			head = head[:16*1024]
		}
		out[i] = archive.VolumeDescriptor{Filename: names[i], Size: int64(len(v)), First16K: head}
	}
	return out
}

func TestDetectType(t *testing.T) {
	typ, first := archive.DetectType(rar.SignatureV5)
	require.Equal(t, archive.TypeRar5, typ)
	require.True(t, first)

	typ, first = archive.DetectType(sevenzip.Signature)
	require.Equal(t, archive.TypeSevenZip, typ)
	require.True(t, first)

	typ, first = archive.DetectType([]byte{0x01, 0x02, 0x03})
	require.Equal(t, archive.TypeUnknown, typ)
	require.False(t, first)
}

func TestDetectTypeRar4FirstVolume(t *testing.T) {
	// Archive header with the first-volume flag set.
	block := make([]byte, 7)
	block[2] = 0x73
	binary.LittleEndian.PutUint16(block[3:5], 0x0101)
	typ, first := archive.DetectType(append(append([]byte{}, rar.SignatureV4...), block...))
	require.Equal(t, archive.TypeRar4, typ)
	require.True(t, first)

	// Archive header without it.
	binary.LittleEndian.PutUint16(block[3:5], 0x0001)
	typ, first = archive.DetectType(append(append([]byte{}, rar.SignatureV4...), block...))
	require.Equal(t, archive.TypeRar4, typ)
	require.False(t, first)

	// File header with split-before marks a continuation.
	block[2] = 0x74
	binary.LittleEndian.PutUint16(block[3:5], 0x0001)
	_, first = archive.DetectType(append(append([]byte{}, rar.SignatureV4...), block...))
	require.False(t, first)
}

func TestDetectTypeOnGeneratedVolumes(t *testing.T) {
	volumes, err := archivegen.GenerateRar4([]archivegen.File{
		{Name: "payload.bin", Data: make([]byte, 300)},
	}, []int64{100, 100, 100})
	require.NoError(t, err)

	typ, first := archive.DetectType(volumes[0])
	require.Equal(t, archive.TypeRar4, typ)
	require.True(t, first)

	typ, first = archive.DetectType(volumes[1])
	require.Equal(t, archive.TypeRar4, typ)
	require.False(t, first)
}

func TestHasKnownExtension(t *testing.T) {
	known := []string{"a.rar", "a.part01.rar", "A.PART2.RAR", "a.r00", "a.s99", "a.7z", "a.7z.001"}
	for _, n := range known {
		require.True(t, archive.HasKnownExtension(n), n)
	}
	unknown := []string{"a.001", "a.bin", "a.par2", "a.zip", "a.7z.rar.bak"}
	for _, n := range unknown {
		require.False(t, archive.HasKnownExtension(n), n)
	}
}

func TestListFilesRar(t *testing.T) {
	data := make([]byte, 600)
	for i := range data {
		data[i] = byte(i * 7)
	}
	volumes, err := archivegen.GenerateRar4([]archivegen.File{
		{Name: "payload.bin", Data: data},
	}, []int64{250, 250, 250})
	require.NoError(t, err)

	s := concatStream(t, volumes)
	entries, err := archive.ListFiles(s, descriptors([]string{"x.part1.rar", "x.part2.rar", "x.part3.rar"}, volumes), nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Rar)
	require.Equal(t, "payload.bin", entries[0].Path())
	require.Equal(t, int64(600), entries[0].Size())
	require.Len(t, entries[0].Rar.SplitParts, 3)
}

func TestListFilesSevenZip(t *testing.T) {
	data := bytes.Repeat([]byte{0x5A}, 256)
	sz := archivegen.GenerateSevenZip([]archivegen.File{{Name: "data.bin", Data: data}})
	volumes := archivegen.SplitVolumes(sz, 3)
	require.Len(t, volumes, 3)

	s := concatStream(t, volumes)
	entries, err := archive.ListFiles(s, descriptors([]string{"x.7z.001", "x.7z.002", "x.7z.003"}, volumes), nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].SevenZip)
	require.Equal(t, int64(32), entries[0].SevenZip.DataOffset)
	require.Equal(t, int64(256), entries[0].Size())
}

func TestListFilesUnknownType(t *testing.T) {
	junk := [][]byte{bytes.Repeat([]byte{0x42}, 128)}
	s := concatStream(t, junk)
	_, err := archive.ListFiles(s, descriptors([]string{"mystery.dat"}, junk), nil)
	require.ErrorIs(t, err, archive.ErrTypeUnknown)
}

// PAR2 name recovery: obfuscated descriptors matched by first-16KB MD5 get
// their real names back, then dispatch proceeds normally.
func TestListFilesPar2Resolution(t *testing.T) {
	data := make([]byte, 120)
	for i := range data {
		data[i] = byte(255 - i)
	}
	volumes, err := archivegen.GenerateRar4([]archivegen.File{
		{Name: "payload.bin", Data: data},
	}, []int64{60, 60, 60})
	require.NoError(t, err)

	par2Files := make([]archivegen.File, len(volumes))
	for i, v := range volumes {
		par2Files[i] = archivegen.File{Name: "testfile.part" + string(rune('1'+i)) + ".rar", Data: v}
	}
	par2Data := archivegen.GeneratePar2(par2Files)

	obfuscated := descriptors([]string{"9f31c2ab", "77e0d1b4", "c4a991ee"}, volumes)
	s := concatStream(t, volumes)
	entries, err := archive.ListFiles(s, obfuscated, par2Data)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "payload.bin", entries[0].Path())

	// The caller's descriptors are untouched.
	require.Equal(t, "9f31c2ab", obfuscated[0].Filename)
}

func TestVolumeDescriptorEqual(t *testing.T) {
	a := archive.VolumeDescriptor{Filename: "x.rar", Size: 10, First16K: []byte{1, 2}}
	b := archive.VolumeDescriptor{Filename: "x.rar", Size: 10, First16K: []byte{1, 2}}
	require.True(t, a.Equal(b))
	b.First16K = []byte{1, 3}
	require.False(t, a.Equal(b))
}
