package rar_test

import (
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/javi11/archivelist/internal/archive/rar"
	"github.com/javi11/archivelist/internal/archivegen"
)

func TestRar5SingleVolume(t *testing.T) {
	data := deterministicData(256)
	volumes, err := archivegen.GenerateRar5([]archivegen.File{
		{Name: "single.bin", Data: data},
	}, []int64{1024})
	require.NoError(t, err)
	require.Len(t, volumes, 1)

	s, sizes := concatVolumes(t, volumes)
	entries, err := rar.List(s, -1, sizes)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	require.Equal(t, "single.bin", e.Path)
	require.Equal(t, int64(256), e.UnpackedSize)
	require.Equal(t, int64(256), e.PackedSize)
	require.Equal(t, 0, e.CompressionMethod)
	require.Empty(t, e.SplitParts)
	require.True(t, e.HasCRC)
	require.Equal(t, crc32.ChecksumIEEE(data), e.CRC32)
	require.Equal(t, data, readParts(t, s, e))
}

// The three-part store scenario: 1024 deterministic bytes over three
// volumes reassemble byte-for-byte.
func TestRar5ThreePartStore(t *testing.T) {
	data := deterministicData(1024)
	volumes, err := archivegen.GenerateRar5([]archivegen.File{
		{Name: "payload.bin", Data: data},
	}, []int64{342, 342, 340})
	require.NoError(t, err)
	require.Len(t, volumes, 3)

	s, sizes := concatVolumes(t, volumes)
	entries, err := rar.List(s, -1, sizes)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	require.Len(t, e.SplitParts, 3)
	require.Equal(t, e.SplitParts[0].VolumeIndex, e.VolumeIndex)
	require.Equal(t, data, readParts(t, s, e))
}

func TestRar5MultiFileAfterSplit(t *testing.T) {
	big := deterministicData(600)
	small := []byte("small file contents.")

	volumes, err := archivegen.GenerateRar5([]archivegen.File{
		{Name: "bigfile.bin", Data: big},
		{Name: "small.txt", Data: small},
	}, []int64{200, 200, 260})
	require.NoError(t, err)
	require.Len(t, volumes, 3)

	s, sizes := concatVolumes(t, volumes)
	entries, err := rar.List(s, -1, sizes)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, []int64{200, 200, 200}, partSizes(entries[0]))
	require.Equal(t, big, readParts(t, s, entries[0]))
	require.Equal(t, small, readParts(t, s, entries[1]))
}

func TestRar5InferenceConsistency(t *testing.T) {
	files := []archivegen.File{
		{Name: "bigfile.bin", Data: deterministicData(600)},
		{Name: "small.txt", Data: []byte("small file contents.")},
	}
	volumes, err := archivegen.GenerateRar5(files, []int64{200, 200, 260})
	require.NoError(t, err)

	sInferred, sizes := concatVolumes(t, volumes)
	inferred, err := rar.List(sInferred, -1, sizes)
	require.NoError(t, err)

	sSequential, _ := concatVolumes(t, volumes)
	sequential, err := rar.List(sSequential, -1, nil)
	require.NoError(t, err)

	require.Equal(t, sequential, inferred)
}

func TestRar5BackslashRewrite(t *testing.T) {
	volumes, err := archivegen.GenerateRar5([]archivegen.File{
		{Name: `media\clip.bin`, Data: deterministicData(16)},
	}, []int64{64})
	require.NoError(t, err)

	s, sizes := concatVolumes(t, volumes)
	entries, err := rar.List(s, -1, sizes)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "media/clip.bin", entries[0].Path)
}

func TestRar5Directory(t *testing.T) {
	volumes, err := archivegen.GenerateRar5([]archivegen.File{
		{Name: "media", Dir: true},
		{Name: "media/clip.bin", Data: deterministicData(48)},
	}, []int64{256})
	require.NoError(t, err)

	s, sizes := concatVolumes(t, volumes)
	entries, err := rar.List(s, -1, sizes)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.True(t, entries[0].IsDirectory)
	require.False(t, entries[1].IsDirectory)
}

func TestRar5DetectVersion(t *testing.T) {
	require.Equal(t, rar.Version5, rar.DetectVersion(rar.SignatureV5))
	require.Equal(t, rar.Version4, rar.DetectVersion(rar.SignatureV4))
	require.Equal(t, rar.VersionUnknown, rar.DetectVersion([]byte{0x00, 0x01}))
}
