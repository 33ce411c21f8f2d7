package core

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/phuslu/log"

	"github.com/0xRadioAc7iv/bitcaskdb/internal/datafile"
	"github.com/0xRadioAc7iv/bitcaskdb/internal/lock"
	"github.com/0xRadioAc7iv/bitcaskdb/internal/record"
	"github.com/0xRadioAc7iv/bitcaskdb/internal/utils"
)

type Bitcask struct {
	lockFile *os.File
	active   *datafile.Datafile
	files    map[uint32]*datafile.Datafile // every open datafile, active included
	nextID   uint32
	keyDir   *KeyDir
	closed   bool

	// Set when a committed merge could not move its output into dir.
	mergePending bool

	// Reads share mu; put, delete, merge, sync and close hold it exclusively.
	mu sync.RWMutex

	dir    string
	opts   Options
	logger log.Logger
}

// Stats describes the current state of an open datastore.
type Stats struct {
	Keys      int   // Live keys in the KeyDir
	Datafiles int   // Datafiles the KeyDir may point into
	DiskSize  int64 // Bytes used by datafiles and hint files
}

// Open opens the datastore in dir for reading. Any number of read-only
// handles may coexist with one writer.
func Open(dir string) (*Bitcask, error) {
	return OpenWithOptions(dir)
}

// OpenWithOptions opens the datastore in dir. With WithReadWrite the
// directory is created when missing and locked against other writers.
func OpenWithOptions(dir string, opts ...Option) (*Bitcask, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if o.MaxDatafileSize <= 0 {
		return nil, newError(KindInvalid, "open", dir, fmt.Errorf("max datafile size must be positive, got %d", o.MaxDatafileSize))
	}

	bk := &Bitcask{
		files:  make(map[uint32]*datafile.Datafile),
		keyDir: NewKeyDir(),
		dir:    dir,
		opts:   o,
		logger: o.Logger,
	}

	if err := bk.start(); err != nil {
		bk.release()
		return nil, err
	}

	return bk, nil
}

func (bk *Bitcask) start() error {
	started := time.Now()

	if bk.opts.ReadWrite {
		// 0 (special bit - ignored), 7 (rwx - owner), 5 (r-x - user group), 5 (r-x - others)
		if err := os.MkdirAll(bk.dir, 0755); err != nil {
			return wrapError("open", bk.dir, err)
		}

		lf, err := lock.LockDirectory(bk.dir)
		if err != nil {
			return wrapError("open", bk.dir, err)
		}
		bk.lockFile = lf
	} else {
		info, err := os.Stat(bk.dir)
		if err != nil {
			return wrapError("open", bk.dir, err)
		}
		if !info.IsDir() {
			return newError(KindIO, "open", bk.dir, errors.New("not a directory"))
		}
	}

	sources, err := bk.locateDatafiles()
	if err != nil {
		return wrapError("open", bk.dir, err)
	}

	if err := bk.loadDatafiles(sources); err != nil {
		return wrapError("open", bk.dir, err)
	}

	if bk.opts.ReadWrite {
		if err := bk.selectActive(); err != nil {
			return wrapError("open", bk.dir, err)
		}
	}

	bk.logger.Info().
		Str("dir", bk.dir).
		Bool("read_write", bk.opts.ReadWrite).
		Int("datafiles", len(bk.files)).
		Int("keys", bk.keyDir.Len()).
		Dur("took", time.Since(started)).
		Msg("datastore opened")

	return nil
}

// selectActive keeps appending to the newest datafile when it is still
// below the rotation threshold and no hint file describes it. Otherwise a
// fresh datafile becomes active.
func (bk *Bitcask) selectActive() error {
	var candidate *datafile.Datafile

	if bk.nextID > 0 {
		newest := bk.files[bk.nextID-1]
		if newest != nil &&
			newest.Writable() &&
			newest.Size() < bk.opts.MaxDatafileSize &&
			!utils.PathExists(datafile.HintFilePath(bk.dir, newest.ID())) {
			candidate = newest
		}
	}

	for _, df := range bk.files {
		if df == candidate {
			continue
		}
		if err := df.Freeze(); err != nil {
			return err
		}
	}

	if candidate != nil {
		bk.active = candidate
		bk.logger.Debug().Uint32("file_id", candidate.ID()).Int64("size", candidate.Size()).Msg("reusing datafile as active")
		return nil
	}

	return bk.openActive()
}

// openActive creates a new empty datafile and makes it active.
func (bk *Bitcask) openActive() error {
	df, err := datafile.Create(bk.dir, bk.nextID)
	if err != nil {
		return err
	}

	bk.files[df.ID()] = df
	bk.active = df
	bk.nextID++

	if err := utils.SyncDir(bk.dir); err != nil {
		bk.logger.Warn().Err(err).Str("dir", bk.dir).Msg("unable to sync data directory")
	}

	bk.logger.Debug().Uint32("file_id", df.ID()).Msg("new active datafile")
	return nil
}

// rotateIfNeeded freezes the active datafile and opens a new one when
// appending n more bytes would take it past the size limit. A record larger
// than the limit still goes into an empty datafile.
func (bk *Bitcask) rotateIfNeeded(n int64) error {
	size := bk.active.Size()
	if size == 0 || size+n <= bk.opts.MaxDatafileSize {
		return nil
	}

	if err := bk.active.Freeze(); err != nil {
		return err
	}
	frozen := bk.active.ID()

	if err := bk.openActive(); err != nil {
		return err
	}

	bk.logger.Debug().Uint32("frozen", frozen).Uint32("active", bk.active.ID()).Msg("rotated active datafile")
	return nil
}

// Get returns the latest value stored under key. A missing key is not an
// error: it returns (nil, false, nil).
func (bk *Bitcask) Get(key []byte) ([]byte, bool, error) {
	bk.mu.RLock()
	defer bk.mu.RUnlock()

	if bk.closed {
		return nil, false, newError(KindClosed, "get", "", nil)
	}

	entry, ok := bk.keyDir.Get(key)
	if !ok {
		return nil, false, nil
	}

	value, err := bk.readValue("get", key, entry)
	if err != nil {
		return nil, false, err
	}

	return value, true, nil
}

// Has reports whether key is live, without touching disk.
func (bk *Bitcask) Has(key []byte) (bool, error) {
	bk.mu.RLock()
	defer bk.mu.RUnlock()

	if bk.closed {
		return false, newError(KindClosed, "has", "", nil)
	}

	_, ok := bk.keyDir.Get(key)
	return ok, nil
}

// Len returns the number of live keys.
func (bk *Bitcask) Len() (int, error) {
	bk.mu.RLock()
	defer bk.mu.RUnlock()

	if bk.closed {
		return 0, newError(KindClosed, "len", "", nil)
	}

	return bk.keyDir.Len(), nil
}

// Put stores value under key. Empty keys and empty values are allowed.
func (bk *Bitcask) Put(key, value []byte) error {
	bk.mu.Lock()
	defer bk.mu.Unlock()

	if err := bk.checkWritable("put"); err != nil {
		return err
	}

	diskRecord := record.CreateRecord(key, value)
	entry, err := bk.appendRecord("put", &diskRecord)
	if err != nil {
		return err
	}
	bk.keyDir.Put(key, entry)

	return bk.syncOnPut("put")
}

// Delete removes key. Deleting a missing key still appends a tombstone and
// succeeds.
func (bk *Bitcask) Delete(key []byte) error {
	bk.mu.Lock()
	defer bk.mu.Unlock()

	if err := bk.checkWritable("delete"); err != nil {
		return err
	}

	tombstoneRecord := record.CreateTombstoneRecord(key)
	if _, err := bk.appendRecord("delete", &tombstoneRecord); err != nil {
		return err
	}
	bk.keyDir.Delete(key)

	return bk.syncOnPut("delete")
}

// ListKeys returns a copy of every live key in ascending byte order.
func (bk *Bitcask) ListKeys() ([][]byte, error) {
	bk.mu.RLock()
	defer bk.mu.RUnlock()

	if bk.closed {
		return nil, newError(KindClosed, "list keys", "", nil)
	}

	return bk.keyDir.Keys(), nil
}

// Fold calls fn once for every live key with its current value, threading
// an accumulator through the calls in ascending key order. The read lock
// is held while the fold runs, so fn must not call any method of bk, Get
// included: a queued writer would deadlock it. On a read error the fold
// stops and the zero value of A is returned with the error.
func Fold[A any](bk *Bitcask, fn func(key, value []byte, acc A) A, initial A) (A, error) {
	var zero A

	bk.mu.RLock()
	defer bk.mu.RUnlock()

	if bk.closed {
		return zero, newError(KindClosed, "fold", "", nil)
	}

	acc := initial
	var foldErr error

	bk.keyDir.Ascend(func(key []byte, entry KeyDirEntry) bool {
		value, err := bk.readValue("fold", key, entry)
		if err != nil {
			foldErr = err
			return false
		}

		acc = fn(bytes.Clone(key), value, acc)
		return true
	})

	if foldErr != nil {
		return zero, foldErr
	}

	return acc, nil
}

// Sync forces every pending write of the active datafile to disk. It is a
// no-op on read-only handles.
func (bk *Bitcask) Sync() error {
	bk.mu.Lock()
	defer bk.mu.Unlock()

	if bk.closed {
		return newError(KindClosed, "sync", "", nil)
	}
	if bk.active == nil {
		return nil
	}

	return wrapError("sync", bk.active.Path(), bk.active.Sync())
}

// Close syncs the active datafile, closes every file and releases the
// writer lock. Closing twice is a no-op.
func (bk *Bitcask) Close() error {
	bk.mu.Lock()
	defer bk.mu.Unlock()

	if bk.closed {
		return nil
	}
	bk.closed = true

	err := bk.release()
	if err != nil {
		bk.logger.Error().Err(err).Str("dir", bk.dir).Msg("datastore closed with errors")
		return wrapError("close", bk.dir, err)
	}

	bk.logger.Info().Str("dir", bk.dir).Msg("datastore closed")
	return nil
}

// release closes every datafile and drops the lock. Safe on a partially
// opened datastore.
func (bk *Bitcask) release() error {
	var errs []error

	for _, id := range bk.sortedFileIDs() {
		if err := bk.files[id].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	clear(bk.files)
	bk.active = nil

	if bk.lockFile != nil {
		if err := lock.UnlockDirectory(bk.lockFile); err != nil {
			errs = append(errs, err)
		}
		bk.lockFile = nil
	}

	return errors.Join(errs...)
}

// Stats reports key count, datafile count and bytes on disk.
func (bk *Bitcask) Stats() (Stats, error) {
	bk.mu.RLock()
	defer bk.mu.RUnlock()

	if bk.closed {
		return Stats{}, newError(KindClosed, "stats", "", nil)
	}

	stats := Stats{
		Keys:      bk.keyDir.Len(),
		Datafiles: len(bk.files),
	}

	for _, df := range bk.files {
		stats.DiskSize += df.Size()

		info, err := os.Stat(datafile.HintFilePath(bk.dir, df.ID()))
		if err == nil {
			stats.DiskSize += info.Size()
		}
	}

	return stats, nil
}

func (bk *Bitcask) checkWritable(op string) error {
	if bk.closed {
		return newError(KindClosed, op, "", nil)
	}
	if !bk.opts.ReadWrite {
		return newError(KindReadOnly, op, "", nil)
	}

	// A failed merge may leave no active datafile behind.
	if bk.active == nil {
		if err := bk.openActive(); err != nil {
			return wrapError(op, bk.dir, err)
		}
	}

	return nil
}

// appendRecord encodes diskRecord and appends it to the active datafile,
// rotating first when needed.
func (bk *Bitcask) appendRecord(op string, diskRecord *record.DiskRecord) (KeyDirEntry, error) {
	encoded, err := record.EncodeRecordToBytes(diskRecord)
	if err != nil {
		return KeyDirEntry{}, wrapError(op, "", err)
	}
	if int64(len(encoded)) > math.MaxUint32 {
		return KeyDirEntry{}, newError(KindInvalid, op, "", record.ErrTooLarge)
	}

	if err := bk.rotateIfNeeded(int64(len(encoded))); err != nil {
		return KeyDirEntry{}, wrapError(op, bk.active.Path(), err)
	}

	offset, err := bk.active.Append(encoded)
	if err != nil {
		return KeyDirEntry{}, wrapError(op, bk.active.Path(), err)
	}

	return KeyDirEntry{
		FileID:     bk.active.ID(),
		Offset:     offset,
		RecordSize: uint32(len(encoded)),
		ValueSize:  diskRecord.ValueSize,
		Timestamp:  diskRecord.Timestamp,
	}, nil
}

// syncOnPut runs after the KeyDir is updated: the record is already in the
// datafile whether or not the fsync succeeds.
func (bk *Bitcask) syncOnPut(op string) error {
	if !bk.opts.SyncOnPut {
		return nil
	}
	return wrapError(op, bk.active.Path(), bk.active.Sync())
}

// readValue loads and verifies the record entry points at.
func (bk *Bitcask) readValue(op string, key []byte, entry KeyDirEntry) ([]byte, error) {
	df, ok := bk.files[entry.FileID]
	if !ok {
		return nil, newError(KindIO, op, datafile.DataFilePath(bk.dir, entry.FileID), errors.New("datafile is not open"))
	}

	buf, err := df.ReadAt(entry.Offset, entry.RecordSize)
	if err != nil {
		return nil, wrapError(op, df.Path(), err)
	}

	diskRecord, err := record.DecodeRecordFromBytes(buf)
	if err != nil {
		return nil, wrapError(op, df.Path(), fmt.Errorf("record at offset %d: %w", entry.Offset, err))
	}

	if diskRecord.IsTombstone() || !bytes.Equal(diskRecord.Key, key) {
		return nil, newError(KindCorruption, op, df.Path(), fmt.Errorf("record at offset %d does not hold the indexed key", entry.Offset))
	}

	return diskRecord.Value, nil
}

func (bk *Bitcask) sortedFileIDs() []uint32 {
	ids := make([]uint32, 0, len(bk.files))
	for id := range bk.files {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
