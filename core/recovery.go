package core

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/0xRadioAc7iv/bitcaskdb/internal/datafile"
	"github.com/0xRadioAc7iv/bitcaskdb/internal/utils"
)

// fileSource is a datafile to load and the directory holding it. Read-only
// handles may read merge output straight from the staging directory.
type fileSource struct {
	dir string
	id  uint32
}

// indexOp is one KeyDir mutation recovered from a datafile or hint file.
type indexOp struct {
	key       []byte
	entry     KeyDirEntry
	tombstone bool
}

// locateDatafiles works out which datafiles make up the current state.
// Writers finish a committed merge or discard an uncommitted one first;
// read-only handles never touch the directory.
func (bk *Bitcask) locateDatafiles() ([]fileSource, error) {
	mergeDir := filepath.Join(bk.dir, MergeDirName)

	maxMerged, committed, err := readMergeMarker(mergeDir)
	if err != nil {
		return nil, err
	}

	if bk.opts.ReadWrite {
		switch {
		case committed:
			bk.logger.Warn().Str("dir", bk.dir).Uint32("max_merged", maxMerged).Msg("completing interrupted merge")
			if err := completeMerge(bk.dir, maxMerged); err != nil {
				return nil, err
			}
		case utils.PathExists(mergeDir):
			bk.logger.Warn().Str("dir", mergeDir).Msg("discarding uncommitted merge output")
			if err := os.RemoveAll(mergeDir); err != nil {
				return nil, err
			}
		}
	}

	ids, err := datafile.ListIDs(bk.dir)
	if err != nil {
		return nil, err
	}

	if bk.opts.ReadWrite || !committed {
		sources := make([]fileSource, 0, len(ids))
		for _, id := range ids {
			sources = append(sources, fileSource{dir: bk.dir, id: id})
		}
		return sources, nil
	}

	// A committed merge that no writer has completed yet: its outputs
	// replace every datafile up to maxMerged. Outputs already moved into
	// the data directory are picked up from there.
	staged, err := datafile.ListIDs(mergeDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	byID := make(map[uint32]fileSource)
	for _, id := range staged {
		byID[id] = fileSource{dir: mergeDir, id: id}
	}
	for _, id := range ids {
		if id > maxMerged {
			byID[id] = fileSource{dir: bk.dir, id: id}
		}
	}

	sources := make([]fileSource, 0, len(byID))
	for _, src := range byID {
		sources = append(sources, src)
	}
	slices.SortFunc(sources, func(a, b fileSource) int {
		return cmp.Compare(a.id, b.id)
	})

	return sources, nil
}

// loadDatafiles opens every source and rebuilds the KeyDir. Files are
// decoded concurrently; their operations are applied in id order so later
// writes win.
func (bk *Bitcask) loadDatafiles(sources []fileSource) error {
	files := make([]*datafile.Datafile, len(sources))
	ops := make([][]indexOp, len(sources))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, src := range sources {
		newest := i == len(sources)-1

		g.Go(func() error {
			df, err := bk.openSource(src)
			if err != nil {
				return err
			}
			files[i] = df

			ops[i], err = bk.readIndexOps(src, df, newest)
			return err
		})
	}

	err := g.Wait()

	for _, df := range files {
		if df != nil {
			bk.files[df.ID()] = df
		}
	}

	if err != nil {
		return err
	}

	for _, fileOps := range ops {
		for _, op := range fileOps {
			if op.tombstone {
				bk.keyDir.Delete(op.key)
			} else {
				bk.keyDir.Put(op.key, op.entry)
			}
		}
	}

	if len(sources) > 0 {
		bk.nextID = sources[len(sources)-1].id + 1
	}

	return nil
}

func (bk *Bitcask) openSource(src fileSource) (*datafile.Datafile, error) {
	if bk.opts.ReadWrite {
		return datafile.OpenWritable(src.dir, src.id)
	}
	return datafile.OpenReadOnly(src.dir, src.id)
}

// readIndexOps prefers the hint file and falls back to scanning the
// datafile when there is none or it cannot be trusted. Only the newest
// datafile may end in a torn record.
func (bk *Bitcask) readIndexOps(src fileSource, df *datafile.Datafile, newest bool) ([]indexOp, error) {
	hintPath := datafile.HintFilePath(src.dir, src.id)

	if utils.PathExists(hintPath) {
		ops, err := readHintOps(hintPath, df)
		if err == nil {
			return ops, nil
		}

		bk.logger.Warn().Err(err).Str("hint", hintPath).Msg("hint file unusable, scanning datafile")
	}

	return bk.scanOps(df, newest)
}

func readHintOps(hintPath string, df *datafile.Datafile) ([]indexOp, error) {
	hints, err := datafile.ReadHints(hintPath)
	if err != nil {
		return nil, err
	}

	ops := make([]indexOp, 0, len(hints))

	for _, h := range hints {
		offset := int64(h.Offset)
		size := h.RecordSize()
		if offset < 0 || offset+size > df.Size() {
			return nil, fmt.Errorf("entry at offset %d points past the end of %s", h.Offset, df.Path())
		}

		ops = append(ops, indexOp{
			key: h.Key,
			entry: KeyDirEntry{
				FileID:     df.ID(),
				Offset:     offset,
				RecordSize: uint32(size),
				ValueSize:  h.ValueSize,
				Timestamp:  h.Timestamp,
			},
		})
	}

	return ops, nil
}

func (bk *Bitcask) scanOps(df *datafile.Datafile, newest bool) ([]indexOp, error) {
	ops := []indexOp{}

	scanner := df.Scan()
	for scanner.Next() {
		rec := scanner.Record()

		ops = append(ops, indexOp{
			key:       rec.Key,
			tombstone: rec.IsTombstone(),
			entry: KeyDirEntry{
				FileID:     df.ID(),
				Offset:     scanner.Offset(),
				RecordSize: uint32(rec.Size()),
				ValueSize:  rec.ValueSize,
				Timestamp:  rec.Timestamp,
			},
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if scanner.Torn() && !newest {
		// Frozen datafiles were synced before the next one was created.
		return nil, &datafile.CorruptionError{
			Path:   df.Path(),
			Offset: scanner.TornAt(),
			Err:    errors.New("incomplete record at the end of an immutable datafile"),
		}
	}

	if scanner.Torn() {
		bk.logger.Warn().
			Str("datafile", df.Path()).
			Int64("valid_size", scanner.TornAt()).
			Int64("size", df.Size()).
			Msg("dropping torn tail")

		if df.Writable() {
			if err := df.Truncate(scanner.TornAt()); err != nil {
				return nil, err
			}
		}
	}

	return ops, nil
}

// readMergeMarker returns the highest datafile id a committed merge
// replaces. committed is false when there is no marker.
func readMergeMarker(mergeDir string) (maxMerged uint32, committed bool, err error) {
	markerPath := filepath.Join(mergeDir, MergeMarkerName)

	data, err := os.ReadFile(markerPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, false, nil
		}
		return 0, false, err
	}

	n, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return 0, false, &datafile.CorruptionError{Path: markerPath, Err: fmt.Errorf("malformed merge marker: %w", err)}
	}

	return uint32(n), true, nil
}

// completeMerge replaces the merged datafiles with the staged output. Every
// step can be repeated, so a crash at any point is finished by the next
// writer to open the directory.
func completeMerge(dir string, maxMerged uint32) error {
	mergeDir := filepath.Join(dir, MergeDirName)

	ids, err := datafile.ListIDs(dir)
	if err != nil {
		return err
	}

	for _, id := range ids {
		if id > maxMerged {
			continue
		}
		if err := removeIfExists(datafile.HintFilePath(dir, id)); err != nil {
			return err
		}
		if err := removeIfExists(datafile.DataFilePath(dir, id)); err != nil {
			return err
		}
	}

	entries, err := os.ReadDir(mergeDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		ext := filepath.Ext(name)
		if entry.IsDir() || (ext != datafile.DataFileExt && ext != datafile.HintFileExt) {
			continue
		}
		if err := os.Rename(filepath.Join(mergeDir, name), filepath.Join(dir, name)); err != nil {
			return err
		}
	}

	if err := utils.SyncDir(dir); err != nil {
		return err
	}

	if err := os.RemoveAll(mergeDir); err != nil {
		return err
	}

	return utils.SyncDir(dir)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
