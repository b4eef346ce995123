package archive

import (
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sourcegraph/conc/iter"
	"github.com/spf13/afero"
)

var (
	// filename.part###.rar (e.g. movie.part001.rar, movie.part01.rar)
	partPattern = regexp.MustCompile(`(?i)^(.+)\.part(\d+)\.rar$`)
	// filename.7z.### multi-part 7z
	sevenZipPartPattern = regexp.MustCompile(`(?i)^(.+)\.7z\.(\d+)$`)
)

// DiscoverVolumes finds the ordered volume set that first belongs to.
// Supported conventions: name.partN.rar, name.rar + name.r00.. (rolling
// into .s00.. after .r99), and name.7z.001.. . Old-style volumes sort by
// (letter-'r')*1000 + number.
func DiscoverVolumes(fs afero.Fs, first string) ([]string, error) {
	dir := filepath.Dir(first)
	base := filepath.Base(first)

	exists := func(name string) bool {
		ok, err := afero.Exists(fs, filepath.Join(dir, name))
		return err == nil && ok
	}

	if m := partPattern.FindStringSubmatch(base); m != nil {
		width := len(m[2])
		var vols []string
		for i := 1; ; i++ {
			name := fmt.Sprintf("%s.part%0*d.rar", m[1], width, i)
			if !exists(name) {
				if i == 1 {
					return nil, fmt.Errorf("archive: first volume not found: %s", name)
				}
				break
			}
			vols = append(vols, filepath.Join(dir, name))
		}
		return vols, nil
	}

	if m := sevenZipPartPattern.FindStringSubmatch(base); m != nil {
		width := len(m[2])
		var vols []string
		for i := 1; ; i++ {
			name := fmt.Sprintf("%s.7z.%0*d", m[1], width, i)
			if !exists(name) {
				if i == 1 {
					return nil, fmt.Errorf("archive: first volume not found: %s", name)
				}
				break
			}
			vols = append(vols, filepath.Join(dir, name))
		}
		return vols, nil
	}

	if strings.EqualFold(filepath.Ext(base), ".rar") {
		if !exists(base) {
			return nil, fmt.Errorf("archive: first volume not found: %s", base)
		}
		prefix := strings.TrimSuffix(base, filepath.Ext(base))
		vols := []string{filepath.Join(dir, base)}
		// .r00 .. .r99, then .s00 .. and so on.
		for letter := byte('r'); letter <= 'z'; letter++ {
			found := false
			for i := 0; i < 100; i++ {
				name := fmt.Sprintf("%s.%c%02d", prefix, letter, i)
				if !exists(name) {
					break
				}
				vols = append(vols, filepath.Join(dir, name))
				found = true
			}
			if !found && letter > 'r' {
				break
			}
		}
		return vols, nil
	}

	if exists(base) {
		return []string{first}, nil
	}
	return nil, fmt.Errorf("archive: volume not found: %s", first)
}

// BuildDescriptors stats every volume and reads its first 16KB, handling
// the volumes in parallel. No hash is computed here.
func BuildDescriptors(fs afero.Fs, paths []string) ([]VolumeDescriptor, error) {
	return iter.MapErr(paths, func(p *string) (VolumeDescriptor, error) {
		f, err := fs.Open(*p)
		if err != nil {
			return VolumeDescriptor{}, err
		}
		defer f.Close()
		st, err := f.Stat()
		if err != nil {
			return VolumeDescriptor{}, err
		}
		head := make([]byte, 16*1024)
		n, err := io.ReadFull(f, head)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return VolumeDescriptor{}, err
		}
		return VolumeDescriptor{
			Filename: filepath.Base(*p),
			Size:     st.Size(),
			First16K: head[:n],
		}, nil
	})
}
