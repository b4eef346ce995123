package archive

import (
	"crypto/md5"
	"fmt"
	"io"
	"log/slog"
	"regexp"

	"github.com/jinzhu/copier"

	"github.com/javi11/archivelist/internal/archive/par2"
	"github.com/javi11/archivelist/internal/archive/rar"
	"github.com/javi11/archivelist/internal/archive/sevenzip"
	"github.com/javi11/archivelist/internal/stream"
)

var (
	// Extensions the dispatcher recognizes without PAR2 help. A bare
	// numeric extension like .001 is NOT known; obfuscated sets need the
	// PAR2 index to resolve.
	knownExtensionPattern = regexp.MustCompile(`(?i)\.(part\d+\.rar|rar|r\d{2}|s\d{2}|7z|7z\.\d+)$`)
	rarExtensionPattern   = regexp.MustCompile(`(?i)\.(part\d+\.rar|rar|r\d{2}|s\d{2})$`)
	sevenZipExtPattern    = regexp.MustCompile(`(?i)\.7z(\.\d+)?$`)
)

// HasKnownExtension reports whether filename carries a recognized archive
// extension.
func HasKnownExtension(filename string) bool {
	return knownExtensionPattern.MatchString(filename)
}

// ListFiles is the dispatcher entry point. s must be the concatenation of
// the ordered volumes described by volumes and be positioned anywhere;
// par2Data optionally carries a PAR2 index used to recover obfuscated
// volume names before detection. The caller keeps ownership of s.
func ListFiles(s stream.Stream, volumes []VolumeDescriptor, par2Data []byte) ([]FileEntry, error) {
	log := slog.Default().With("component", "archive-dispatcher")

	volumes, err := resolveVolumeNames(volumes, par2Data)
	if err != nil {
		return nil, err
	}

	typ, err := detectVolumeType(s, volumes)
	if err != nil {
		return nil, err
	}
	log.Debug("detected archive type", "type", typ.String(), "volumes", len(volumes))

	switch typ {
	case TypeRar4, TypeRar5:
		totalSize := int64(-1)
		var volumeSizes []int64
		if len(volumes) > 0 {
			totalSize = 0
			for _, v := range volumes {
				volumeSizes = append(volumeSizes, v.Size)
				totalSize += v.Size
			}
		}
		entries, err := rar.List(s, totalSize, volumeSizes)
		if err != nil {
			return nil, err
		}
		out := make([]FileEntry, 0, len(entries))
		for _, e := range entries {
			out = append(out, FileEntry{Rar: e})
		}
		return out, nil
	case TypeSevenZip:
		entries, err := sevenzip.List(s)
		if err != nil {
			return nil, err
		}
		out := make([]FileEntry, 0, len(entries))
		for _, e := range entries {
			out = append(out, FileEntry{SevenZip: e})
		}
		return out, nil
	default:
		return nil, ErrTypeUnknown
	}
}

// resolveVolumeNames rewrites descriptor filenames whose first-16KB MD5
// matches a PAR2 file description. The input slice is never mutated;
// descriptors are deep-copied before any rename.
func resolveVolumeNames(volumes []VolumeDescriptor, par2Data []byte) ([]VolumeDescriptor, error) {
	if len(par2Data) == 0 {
		return volumes, nil
	}
	needsResolve := false
	for _, v := range volumes {
		if !HasKnownExtension(v.Filename) {
			needsResolve = true
			break
		}
	}
	if !needsResolve {
		return volumes, nil
	}

	info, err := par2.Parse(par2Data)
	if err != nil {
		return nil, err
	}
	byHash := info.DescriptorByHash16k()

	resolved := make([]VolumeDescriptor, 0, len(volumes))
	if err := copier.CopyWithOption(&resolved, &volumes, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("archive: copy descriptors: %w", err)
	}
	renamed := 0
	for i := range resolved {
		if len(resolved[i].First16K) == 0 {
			continue
		}
		if desc, ok := byHash[md5.Sum(resolved[i].First16K)]; ok {
			resolved[i].Filename = desc.Name
			renamed++
		}
	}
	slog.Default().Debug("resolved volume names via PAR2", "renamed", renamed, "volumes", len(resolved))
	return resolved, nil
}

// detectVolumeType resolves the format: filename extension first, then the
// cached 16KB prefix, and as a last resort the first bytes of the stream.
func detectVolumeType(s stream.Stream, volumes []VolumeDescriptor) (Type, error) {
	var first VolumeDescriptor
	if len(volumes) > 0 {
		first = volumes[0]
	}

	if sevenZipExtPattern.MatchString(first.Filename) {
		return TypeSevenZip, nil
	}
	if rarExtensionPattern.MatchString(first.Filename) {
		// The extension only gives the family; the signature picks the
		// version.
		switch rar.DetectVersion(first.First16K) {
		case rar.Version5:
			return TypeRar5, nil
		case rar.Version4:
			return TypeRar4, nil
		}
		if t, err := sniffStream(s); err == nil && (t == TypeRar4 || t == TypeRar5) {
			return t, nil
		}
		return TypeUnknown, ErrTypeUnknown
	}

	if t, _ := DetectType(first.First16K); t != TypeUnknown {
		return t, nil
	}
	t, err := sniffStream(s)
	if err != nil {
		return TypeUnknown, err
	}
	if t == TypeUnknown {
		return TypeUnknown, ErrTypeUnknown
	}
	return t, nil
}

func sniffStream(s stream.Stream) (Type, error) {
	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return TypeUnknown, err
	}
	var head [32]byte
	n, err := io.ReadFull(s, head[:])
	if err != nil && err != io.ErrUnexpectedEOF {
		return TypeUnknown, err
	}
	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return TypeUnknown, err
	}
	t, _ := DetectType(head[:n])
	return t, nil
}
