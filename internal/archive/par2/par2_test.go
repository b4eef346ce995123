package par2_test

import (
	"bytes"
	"crypto/md5"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/javi11/archivelist/internal/archive/par2"
	"github.com/javi11/archivelist/internal/archivegen"
)

func TestParseFileDescriptors(t *testing.T) {
	first := bytes.Repeat([]byte{0x11}, 88)
	second := bytes.Repeat([]byte{0x22}, 44)
	data := archivegen.GeneratePar2([]archivegen.File{
		{Name: "testfile.part1.rar", Data: first},
		{Name: "testfile.part2.rar", Data: second},
	})

	info, err := par2.Parse(data)
	require.NoError(t, err)
	require.Len(t, info.FileDescriptors, 2)

	d0 := info.FileDescriptors[0]
	require.Equal(t, "testfile.part1.rar", d0.Name)
	require.Equal(t, uint64(88), d0.Length)
	require.Equal(t, [16]byte(md5.Sum(first)), d0.Hash16k)

	d1 := info.FileDescriptors[1]
	require.Equal(t, "testfile.part2.rar", d1.Name)
	require.Equal(t, uint64(44), d1.Length)

	byHash := info.DescriptorByHash16k()
	require.Contains(t, byHash, [16]byte(md5.Sum(second)))
}

func TestParseHash16kCoversOnlyPrefix(t *testing.T) {
	big := bytes.Repeat([]byte{0x33}, 20*1024)
	data := archivegen.GeneratePar2([]archivegen.File{{Name: "big.bin", Data: big}})

	info, err := par2.Parse(data)
	require.NoError(t, err)
	require.Len(t, info.FileDescriptors, 1)
	require.Equal(t, [16]byte(md5.Sum(big[:16*1024])), info.FileDescriptors[0].Hash16k)
	require.Equal(t, [16]byte(md5.Sum(big)), info.FileDescriptors[0].FileMD5)
}

func TestParseToleratesPacketPadding(t *testing.T) {
	a := archivegen.GeneratePar2([]archivegen.File{{Name: "a.bin", Data: []byte("aaaa")}})
	b := archivegen.GeneratePar2([]archivegen.File{{Name: "b.bin", Data: []byte("bbbb")}})

	padded := append(append(append([]byte{}, a...), 0, 0, 0), b...)
	info, err := par2.Parse(padded)
	require.NoError(t, err)
	require.Len(t, info.FileDescriptors, 2)
}

func TestParseRejectsExcessPadding(t *testing.T) {
	a := archivegen.GeneratePar2([]archivegen.File{{Name: "a.bin", Data: []byte("aaaa")}})
	padded := append(append(append([]byte{}, a...), 0, 0, 0, 0), a...)
	_, err := par2.Parse(padded)
	require.ErrorIs(t, err, par2.ErrParse)
}

func TestParseInvalidMagic(t *testing.T) {
	_, err := par2.Parse([]byte("not a par2 stream at all"))
	require.ErrorIs(t, err, par2.ErrParse)
}

func TestParseTruncatedHeader(t *testing.T) {
	a := archivegen.GeneratePar2([]archivegen.File{{Name: "a.bin", Data: []byte("aaaa")}})
	_, err := par2.Parse(a[:40])
	require.ErrorIs(t, err, par2.ErrParse)
}

func TestHasMagicBytes(t *testing.T) {
	require.True(t, par2.HasMagicBytes([]byte("PAR2\x00PKT trailing")))
	require.False(t, par2.HasMagicBytes([]byte("PAR2")))
	require.False(t, par2.HasMagicBytes([]byte("RAR2\x00PKT")))
}
