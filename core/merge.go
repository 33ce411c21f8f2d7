package core

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/0xRadioAc7iv/bitcaskdb/internal/datafile"
	"github.com/0xRadioAc7iv/bitcaskdb/internal/record"
	"github.com/0xRadioAc7iv/bitcaskdb/internal/utils"
)

// movedKey is a live key whose record was copied into merge output.
type movedKey struct {
	key   []byte
	entry KeyDirEntry
}

// Merge rewrites every datafile, the active one included, into compacted
// datafiles holding only the latest live record of each key, each with a
// hint file. Reads and writes on this handle wait until it returns.
//
// Output is staged in MergeDirName and committed by writing
// MergeMarkerName. A crash before the commit leaves the old datafiles in
// charge; a crash after it is finished by the next read-write Open.
func (bk *Bitcask) Merge() (err error) {
	bk.mu.Lock()
	defer bk.mu.Unlock()

	if err := bk.checkWritable("merge"); err != nil {
		return err
	}
	if bk.mergePending {
		return newError(KindIO, "merge", filepath.Join(bk.dir, MergeDirName), errors.New("previous merge is not completed, reopen the datastore"))
	}

	started := time.Now()

	if err := bk.active.Freeze(); err != nil {
		return wrapError("merge", bk.active.Path(), err)
	}
	bk.active = nil

	// Whatever happens, later writes go to a datafile newer than any input.
	defer func() {
		if bk.active != nil {
			return
		}
		if activeErr := bk.openActive(); activeErr != nil {
			err = errors.Join(err, wrapError("merge", bk.dir, activeErr))
		}
	}()

	inputs := bk.sortedFileIDs()
	maxMerged := inputs[len(inputs)-1]

	var diskBefore int64
	for _, id := range inputs {
		diskBefore += bk.files[id].Size()
	}

	m, err := newMerger(bk.dir, maxMerged+1, bk.opts.MaxDatafileSize)
	if err != nil {
		return wrapError("merge", filepath.Join(bk.dir, MergeDirName), err)
	}

	moved, err := bk.copyLiveRecords(m, inputs)
	if err == nil {
		err = m.commit(maxMerged)
	}
	if err != nil {
		m.abort()
		return wrapError("merge", bk.dir, err)
	}

	// Committed. From here a failure is repaired by the next read-write Open,
	// which moves the outputs in; the active datafile must come after them.
	bk.nextID = m.nextID

	if err := bk.installMergeOutput(m, inputs, maxMerged, moved); err != nil {
		bk.logger.Error().Err(err).Str("dir", bk.dir).Msg("merge committed but not completed, reopen the datastore")
		return wrapError("merge", bk.dir, err)
	}

	var diskAfter int64
	for _, id := range m.outputs {
		diskAfter += bk.files[id].Size()
	}

	bk.logger.Info().
		Int("inputs", len(inputs)).
		Int("outputs", len(m.outputs)).
		Int("keys", len(moved)).
		Int64("bytes_before", diskBefore).
		Int64("bytes_after", diskAfter).
		Dur("took", time.Since(started)).
		Msg("merge completed")

	return nil
}

// copyLiveRecords copies every record the KeyDir still points at into m.
// Superseded records and tombstones are dropped.
func (bk *Bitcask) copyLiveRecords(m *merger, inputs []uint32) ([]movedKey, error) {
	moved := make([]movedKey, 0, bk.keyDir.Len())

	for _, id := range inputs {
		df := bk.files[id]

		scanner := df.Scan()
		for scanner.Next() {
			rec := scanner.Record()
			if rec.IsTombstone() {
				continue
			}

			entry, ok := bk.keyDir.Get(rec.Key)
			if !ok || entry.FileID != id || entry.Offset != scanner.Offset() {
				continue
			}

			newEntry, err := m.write(rec)
			if err != nil {
				return nil, err
			}
			moved = append(moved, movedKey{key: rec.Key, entry: newEntry})
		}

		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	return moved, nil
}

// installMergeOutput swaps the merge output in for the inputs on disk and
// in memory.
func (bk *Bitcask) installMergeOutput(m *merger, inputs []uint32, maxMerged uint32, moved []movedKey) error {
	var closeErrs []error
	for _, id := range inputs {
		if err := bk.files[id].Close(); err != nil {
			closeErrs = append(closeErrs, err)
		}
		delete(bk.files, id)
	}
	if err := errors.Join(closeErrs...); err != nil {
		bk.logger.Warn().Err(err).Msg("closing merged datafiles")
	}

	completeErr := completeMerge(bk.dir, maxMerged)
	if completeErr != nil {
		bk.mergePending = true
	}

	// Outputs not yet moved are served from the staging directory.
	for _, id := range m.outputs {
		df, err := openMergeOutput(bk.dir, id)
		if err != nil {
			return errors.Join(completeErr, err)
		}
		bk.files[id] = df
	}

	for _, mk := range moved {
		bk.keyDir.Put(mk.key, mk.entry)
	}

	return completeErr
}

func openMergeOutput(dir string, id uint32) (*datafile.Datafile, error) {
	df, err := datafile.OpenReadOnly(dir, id)
	if errors.Is(err, fs.ErrNotExist) {
		return datafile.OpenReadOnly(filepath.Join(dir, MergeDirName), id)
	}
	return df, err
}

// merger writes compacted datafiles and their hint files into the staging
// directory.
type merger struct {
	dir     string
	maxSize int64
	nextID  uint32
	out     *datafile.Datafile
	hint    *datafile.HintWriter
	outputs []uint32
}

func newMerger(dataDir string, firstID uint32, maxSize int64) (*merger, error) {
	dir := filepath.Join(dataDir, MergeDirName)

	if err := os.RemoveAll(dir); err != nil {
		return nil, err
	}
	if err := os.Mkdir(dir, 0755); err != nil {
		return nil, err
	}

	return &merger{dir: dir, maxSize: maxSize, nextID: firstID}, nil
}

func (m *merger) write(rec *record.DiskRecord) (KeyDirEntry, error) {
	encoded, err := record.EncodeRecordToBytes(rec)
	if err != nil {
		return KeyDirEntry{}, err
	}

	if m.out == nil || (m.out.Size() > 0 && m.out.Size()+int64(len(encoded)) > m.maxSize) {
		if err := m.rotate(); err != nil {
			return KeyDirEntry{}, err
		}
	}

	offset, err := m.out.Append(encoded)
	if err != nil {
		return KeyDirEntry{}, err
	}

	err = m.hint.Append(&record.HintRecord{
		Timestamp: rec.Timestamp,
		ValueSize: rec.ValueSize,
		Offset:    uint64(offset),
		Key:       rec.Key,
	})
	if err != nil {
		return KeyDirEntry{}, err
	}

	return KeyDirEntry{
		FileID:     m.out.ID(),
		Offset:     offset,
		RecordSize: uint32(len(encoded)),
		ValueSize:  rec.ValueSize,
		Timestamp:  rec.Timestamp,
	}, nil
}

func (m *merger) rotate() error {
	if err := m.closeCurrent(); err != nil {
		return err
	}

	out, err := datafile.Create(m.dir, m.nextID)
	if err != nil {
		return err
	}

	hint, err := datafile.CreateHint(m.dir, m.nextID)
	if err != nil {
		out.Close()
		return err
	}

	m.out = out
	m.hint = hint
	m.outputs = append(m.outputs, m.nextID)
	m.nextID++

	return nil
}

// closeCurrent syncs and closes the output being written, if any.
func (m *merger) closeCurrent() error {
	if m.out == nil {
		return nil
	}

	err := errors.Join(m.out.Close(), m.hint.Close())
	m.out = nil
	m.hint = nil

	return err
}

// commit makes the staged output durable and then writes the marker that
// records maxMerged. The rename of the marker is the commit point.
func (m *merger) commit(maxMerged uint32) error {
	if err := m.closeCurrent(); err != nil {
		return err
	}

	tmp := filepath.Join(m.dir, MergeMarkerName+".tmp")

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(strconv.FormatUint(uint64(maxMerged), 10)); err != nil {
		f.Close()
		return err
	}
	if err := errors.Join(f.Sync(), f.Close()); err != nil {
		return err
	}

	if err := utils.SyncDir(filepath.Dir(m.dir)); err != nil {
		return err
	}
	if err := os.Rename(tmp, filepath.Join(m.dir, MergeMarkerName)); err != nil {
		return err
	}

	return utils.SyncDir(m.dir)
}

// abort discards the staging directory.
func (m *merger) abort() {
	m.closeCurrent()
	os.RemoveAll(m.dir)
}
