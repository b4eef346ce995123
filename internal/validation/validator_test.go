package validation

import (
	"hash/crc32"
	"testing"

	"github.com/javi11/rardecode/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/javi11/archivelist/internal/archive/rar"
	"github.com/javi11/archivelist/internal/config"
)

func TestPartsMatchReference(t *testing.T) {
	v := New(afero.NewMemMapFs(), config.ValidateConfig{})
	refs := []volumeRef{
		{path: "x.part1.rar", start: 0, size: 100},
		{path: "x.part2.rar", start: 100, size: 100},
	}
	entry := &rar.FileEntry{
		Path:         "payload.bin",
		UnpackedSize: 120,
		VolumeIndex:  0,
		SplitParts: []rar.SplitPart{
			{VolumeIndex: 0, DataStart: 40, DataSize: 60},
			{VolumeIndex: 1, DataStart: 120, DataSize: 60},
		},
	}
	ref := rardecode.ArchiveFileInfo{
		Name: "payload.bin",
		Parts: []rardecode.FilePartInfo{
			{Path: "x.part1.rar", DataOffset: 40, PackedSize: 60},
			{Path: "x.part2.rar", DataOffset: 20, PackedSize: 60},
		},
	}
	require.True(t, v.partsMatchReference(entry, ref, refs))

	ref.Parts[1].DataOffset = 21
	require.False(t, v.partsMatchReference(entry, ref, refs))
}

func TestHashParts(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "vol1", []byte("xxHELLOyy"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "vol2", []byte("WORLDzz"), 0o644))

	v := New(fs, config.ValidateConfig{})
	refs := []volumeRef{
		{path: "vol1", start: 0, size: 9},
		{path: "vol2", start: 9, size: 7},
	}
	entry := &rar.FileEntry{
		Path:         "greeting.txt",
		UnpackedSize: 10,
		SplitParts: []rar.SplitPart{
			{VolumeIndex: 0, DataStart: 2, DataSize: 5},
			{VolumeIndex: 1, DataStart: 9, DataSize: 5},
		},
	}
	sum, n, err := v.hashParts(entry, refs)
	require.NoError(t, err)
	require.Equal(t, int64(10), n)
	require.Equal(t, crc32.ChecksumIEEE([]byte("HELLOWORLD")), sum)
}
