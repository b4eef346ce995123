// Package validation cross-checks the extractor against independent RAR
// and 7z implementations and against the archive bytes themselves.
package validation

import (
	"context"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/javi11/rardecode/v2"
	"github.com/javi11/sevenzip"
	concpool "github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"

	"github.com/javi11/archivelist/internal/archive"
	"github.com/javi11/archivelist/internal/config"
	"github.com/javi11/archivelist/internal/stream"
)

// Validator runs the full pipeline for one archive set: discovery,
// extraction, reference listing and byte verification.
type Validator struct {
	log *slog.Logger
	fs  afero.Fs
	cfg config.ValidateConfig
}

// New creates a Validator over fs.
func New(fs afero.Fs, cfg config.ValidateConfig) *Validator {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}
	return &Validator{
		log: slog.Default().With("component", "validator"),
		fs:  fs,
		cfg: cfg,
	}
}

type volumeRef struct {
	path  string
	start int64
	size  int64
}

// Validate checks the archive set starting at firstVolume and returns a
// per-file report.
func (v *Validator) Validate(ctx context.Context, firstVolume string) (*Report, error) {
	volumePaths, err := archive.DiscoverVolumes(v.fs, firstVolume)
	if err != nil {
		return nil, err
	}
	descriptors, err := archive.BuildDescriptors(v.fs, volumePaths)
	if err != nil {
		return nil, err
	}

	parts := make([]stream.Stream, 0, len(volumePaths))
	refs := make([]volumeRef, 0, len(volumePaths))
	var cum int64
	for i, p := range volumePaths {
		fsStream, err := stream.OpenFile(v.fs, p)
		if err != nil {
			return nil, err
		}
		parts = append(parts, fsStream)
		refs = append(refs, volumeRef{path: p, start: cum, size: descriptors[i].Size})
		cum += descriptors[i].Size
	}
	concat, err := stream.NewConcat(parts)
	if err != nil {
		return nil, err
	}
	defer concat.Close()

	entries, err := archive.ListFiles(concat, descriptors, nil)
	if err != nil {
		return nil, err
	}
	v.log.InfoContext(ctx, "extracted archive metadata",
		"first_volume", firstVolume,
		"volumes", len(volumePaths),
		"entries", len(entries))

	if len(entries) > 0 && entries[0].SevenZip != nil {
		return v.validateSevenZip(ctx, firstVolume, entries)
	}
	return v.validateRar(ctx, firstVolume, refs, entries)
}

// validateRar compares against rardecode/v2 and re-hashes stored files
// from their reported coordinates.
func (v *Validator) validateRar(ctx context.Context, firstVolume string, refs []volumeRef, entries []archive.FileEntry) (*Report, error) {
	refFs, refName := iofsView(v.fs, firstVolume)
	refList, err := rardecode.ListArchiveInfo(refName,
		rardecode.FileSystem(afero.NewIOFS(refFs)),
		rardecode.SkipCheck)
	if err != nil {
		return nil, fmt.Errorf("reference rar listing: %w", err)
	}
	refByPath := make(map[string]rardecode.ArchiveFileInfo, len(refList))
	for _, r := range refList {
		refByPath[strings.ReplaceAll(r.Name, "\\", "/")] = r
	}

	pl := concpool.NewWithResults[FileResult]().WithMaxGoroutines(v.cfg.MaxWorkers)
	for i, e := range entries {
		pl.Go(func() FileResult {
			return v.checkRarEntry(ctx, i, e.Rar, refs, refByPath)
		})
	}
	results := pl.Wait()
	sort.Slice(results, func(a, b int) bool { return results[a].index < results[b].index })
	return newReport(results), nil
}

func (v *Validator) checkRarEntry(ctx context.Context, index int, e *rarEntry, refs []volumeRef, refByPath map[string]rardecode.ArchiveFileInfo) FileResult {
	res := FileResult{index: index, Path: e.Path, Status: StatusPass}
	if e.IsDirectory {
		res.Status = StatusSkip
		res.Detail = "directory"
		return res
	}
	if !e.Stored() {
		res.Status = StatusSkip
		res.Detail = fmt.Sprintf("compressed (method %d)", e.CompressionMethod)
		return res
	}

	ref, ok := refByPath[e.Path]
	if !ok {
		res.fail("not reported by reference implementation")
		return res
	}
	if ref.TotalUnpackedSize > 0 && ref.TotalUnpackedSize != e.UnpackedSize {
		res.fail(fmt.Sprintf("size mismatch: got %d, reference %d", e.UnpackedSize, ref.TotalUnpackedSize))
		return res
	}
	if !v.partsMatchReference(e, ref, refs) {
		res.fail("split part coordinates disagree with reference implementation")
		return res
	}

	sum, n, err := v.hashParts(e, refs)
	if err != nil {
		res.fail(fmt.Sprintf("read data: %v", err))
		return res
	}
	if n != e.UnpackedSize {
		res.fail(fmt.Sprintf("data size mismatch: read %d of %d bytes", n, e.UnpackedSize))
		return res
	}
	if e.HasCRC && sum != e.CRC32 {
		res.fail(fmt.Sprintf("crc mismatch: data %08x, header %08x", sum, e.CRC32))
		return res
	}
	v.log.DebugContext(ctx, "validated file", "path", e.Path, "bytes", n)
	return res
}

// partsMatchReference translates the absolute part coordinates back into
// per-volume offsets and compares them with the reference listing.
func (v *Validator) partsMatchReference(e *rarEntry, ref rardecode.ArchiveFileInfo, refs []volumeRef) bool {
	ours := e.SplitParts
	if len(ours) == 0 {
		ours = []splitPart{{VolumeIndex: e.VolumeIndex, DataStart: e.DataPos, DataSize: e.PackedSize}}
	}
	if len(ref.Parts) != len(ours) {
		return false
	}
	for i, part := range ours {
		if part.VolumeIndex >= len(refs) {
			return false
		}
		vol := refs[part.VolumeIndex]
		refPart := ref.Parts[i]
		if filepath.Base(refPart.Path) != filepath.Base(vol.path) {
			return false
		}
		if refPart.DataOffset != part.DataStart-vol.start || refPart.PackedSize != part.DataSize {
			return false
		}
	}
	return true
}

// hashParts CRCs the file data as addressed by the split parts.
func (v *Validator) hashParts(e *rarEntry, refs []volumeRef) (uint32, int64, error) {
	parts := e.SplitParts
	if len(parts) == 0 {
		parts = []splitPart{{VolumeIndex: e.VolumeIndex, DataStart: e.DataPos, DataSize: e.PackedSize}}
	}
	h := crc32.NewIEEE()
	var total int64
	for _, part := range parts {
		vol := refs[part.VolumeIndex]
		f, err := v.fs.Open(vol.path)
		if err != nil {
			return 0, 0, err
		}
		if _, err := f.Seek(part.DataStart-vol.start, io.SeekStart); err != nil {
			_ = f.Close()
			return 0, 0, err
		}
		n, err := io.CopyN(h, f, part.DataSize)
		_ = f.Close()
		total += n
		if err != nil {
			return 0, 0, err
		}
	}
	return h.Sum32(), total, nil
}

// validateSevenZip compares against the sevenzip reference reader.
func (v *Validator) validateSevenZip(ctx context.Context, firstVolume string, entries []archive.FileEntry) (*Report, error) {
	reader, err := sevenzip.OpenReader(firstVolume, v.fs)
	if err != nil {
		return nil, fmt.Errorf("reference 7z listing: %w", err)
	}
	defer reader.Close()
	refInfos, err := reader.ListFilesWithOffsets()
	if err != nil {
		return nil, fmt.Errorf("reference 7z listing: %w", err)
	}
	refByPath := make(map[string]sevenzip.FileInfo, len(refInfos))
	for _, fi := range refInfos {
		refByPath[strings.ReplaceAll(fi.Name, "\\", "/")] = fi
	}

	results := make([]FileResult, 0, len(entries))
	for i, entry := range entries {
		e := entry.SevenZip
		res := FileResult{index: i, Path: e.Path, Status: StatusPass}
		switch {
		case e.IsDirectory:
			res.Status = StatusSkip
			res.Detail = "directory"
		case e.Size == 0:
			res.Status = StatusSkip
			res.Detail = "empty file"
		default:
			ref, ok := refByPath[strings.TrimSuffix(e.Path, "/")]
			if !ok {
				res.fail("not reported by reference implementation")
				break
			}
			if int64(ref.Size) != e.Size {
				res.fail(fmt.Sprintf("size mismatch: got %d, reference %d", e.Size, int64(ref.Size)))
				break
			}
			if int64(ref.Offset) != e.DataOffset {
				res.fail(fmt.Sprintf("offset mismatch: got %d, reference %d", e.DataOffset, int64(ref.Offset)))
				break
			}
			sum, err := v.hashRegion(firstVolume, e.DataOffset, e.Size)
			if err != nil {
				res.fail(fmt.Sprintf("read data: %v", err))
				break
			}
			if e.HasCRC && sum != e.CRC32 {
				res.fail(fmt.Sprintf("crc mismatch: data %08x, header %08x", sum, e.CRC32))
				break
			}
			v.log.DebugContext(ctx, "validated file", "path", e.Path, "bytes", e.Size)
		}
		results = append(results, res)
	}
	return newReport(results), nil
}

func (v *Validator) hashRegion(path string, offset, size int64) (uint32, error) {
	f, err := v.fs.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return 0, err
	}
	h := crc32.NewIEEE()
	if _, err := io.CopyN(h, f, size); err != nil {
		return 0, err
	}
	return h.Sum32(), nil
}

// iofsView adapts an afero path to io/fs conventions: io/fs names carry no
// leading slash, so absolute paths are re-rooted on a base-path view.
func iofsView(fs afero.Fs, p string) (afero.Fs, string) {
	name := filepath.ToSlash(p)
	if !strings.HasPrefix(name, "/") {
		return fs, name
	}
	return afero.NewBasePathFs(fs, "/"), strings.TrimPrefix(name, "/")
}
