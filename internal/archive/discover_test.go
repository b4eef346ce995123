package archive_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/javi11/archivelist/internal/archive"
)

func writeFiles(t *testing.T, fs afero.Fs, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, afero.WriteFile(fs, n, []byte(n), 0o644))
	}
}

func TestDiscoverVolumesPartStyle(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "data/movie.part01.rar", "data/movie.part02.rar", "data/movie.part03.rar", "data/other.part01.rar")

	vols, err := archive.DiscoverVolumes(fs, "data/movie.part01.rar")
	require.NoError(t, err)
	require.Equal(t, []string{
		"data/movie.part01.rar",
		"data/movie.part02.rar",
		"data/movie.part03.rar",
	}, vols)
}

func TestDiscoverVolumesOldStyle(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "movie.rar", "movie.r00", "movie.r01", "movie.r02")

	vols, err := archive.DiscoverVolumes(fs, "movie.rar")
	require.NoError(t, err)
	require.Equal(t, []string{"movie.rar", "movie.r00", "movie.r01", "movie.r02"}, vols)
}

func TestDiscoverVolumesOldStyleRollover(t *testing.T) {
	fs := afero.NewMemMapFs()
	names := []string{"movie.rar"}
	for i := 0; i < 100; i++ {
		names = append(names, "movie.r"+pad2(i))
	}
	names = append(names, "movie.s00", "movie.s01")
	writeFiles(t, fs, names...)

	vols, err := archive.DiscoverVolumes(fs, "movie.rar")
	require.NoError(t, err)
	require.Len(t, vols, 103)
	require.Equal(t, "movie.s01", vols[102])
}

func TestDiscoverVolumesSevenZip(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "x.7z.001", "x.7z.002")

	vols, err := archive.DiscoverVolumes(fs, "x.7z.001")
	require.NoError(t, err)
	require.Equal(t, []string{"x.7z.001", "x.7z.002"}, vols)
}

func TestDiscoverVolumesSingle(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "alone.7z")

	vols, err := archive.DiscoverVolumes(fs, "alone.7z")
	require.NoError(t, err)
	require.Equal(t, []string{"alone.7z"}, vols)
}

func TestDiscoverVolumesMissing(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := archive.DiscoverVolumes(fs, "nope.part01.rar")
	require.Error(t, err)
}

func TestBuildDescriptors(t *testing.T) {
	fs := afero.NewMemMapFs()
	payload := make([]byte, 20*1024)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, afero.WriteFile(fs, "big.rar", payload, 0o644))
	require.NoError(t, afero.WriteFile(fs, "small.rar", []byte("tiny"), 0o644))

	descs, err := archive.BuildDescriptors(fs, []string{"big.rar", "small.rar"})
	require.NoError(t, err)
	require.Len(t, descs, 2)
	require.Equal(t, "big.rar", descs[0].Filename)
	require.Equal(t, int64(20*1024), descs[0].Size)
	require.Len(t, descs[0].First16K, 16*1024)
	require.Equal(t, int64(4), descs[1].Size)
	require.Equal(t, []byte("tiny"), descs[1].First16K)
}

func pad2(i int) string {
	return string([]byte{byte('0' + i/10), byte('0' + i%10)})
}
