// Package archive ties the format parsers together: it classifies volumes,
// resolves obfuscated volume names through PAR2 and dispatches to the RAR
// or 7z parser over the concatenated volume stream.
package archive

import (
	"bytes"
	"errors"

	"github.com/javi11/archivelist/internal/archive/rar"
	"github.com/javi11/archivelist/internal/archive/sevenzip"
)

// ErrTypeUnknown is returned when neither filename nor magic bytes
// identify a supported archive format.
var ErrTypeUnknown = errors.New("archive: unknown archive type")

// Type identifies the container format of a volume.
type Type int

const (
	TypeUnknown Type = iota
	TypeRar4
	TypeRar5
	TypeSevenZip
)

func (t Type) String() string {
	switch t {
	case TypeRar4:
		return "rar4"
	case TypeRar5:
		return "rar5"
	case TypeSevenZip:
		return "7z"
	default:
		return "unknown"
	}
}

// VolumeDescriptor describes one volume file of an archive set. First16K
// is optional and used for magic detection and PAR2 name recovery.
type VolumeDescriptor struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	First16K []byte `json:"-"`
}

// Equal compares all fields, the 16KB prefix byte-wise.
func (d VolumeDescriptor) Equal(o VolumeDescriptor) bool {
	return d.Filename == o.Filename && d.Size == o.Size && bytes.Equal(d.First16K, o.First16K)
}

// FileEntry is the tagged result variant of the dispatcher: exactly one of
// Rar or SevenZip is set.
type FileEntry struct {
	Rar      *rar.FileEntry      `json:"rar,omitempty"`
	SevenZip *sevenzip.FileEntry `json:"sevenzip,omitempty"`
}

// Path returns the in-archive path regardless of variant.
func (e FileEntry) Path() string {
	if e.Rar != nil {
		return e.Rar.Path
	}
	if e.SevenZip != nil {
		return e.SevenZip.Path
	}
	return ""
}

// Size returns the uncompressed size regardless of variant.
func (e FileEntry) Size() int64 {
	if e.Rar != nil {
		return e.Rar.UnpackedSize
	}
	if e.SevenZip != nil {
		return e.SevenZip.Size
	}
	return 0
}

// IsDirectory reports whether the entry is a directory.
func (e FileEntry) IsDirectory() bool {
	if e.Rar != nil {
		return e.Rar.IsDirectory
	}
	if e.SevenZip != nil {
		return e.SevenZip.IsDirectory
	}
	return false
}
