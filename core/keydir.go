package core

import (
	"bytes"

	"github.com/google/btree"
)

// KeyDirEntry represents the in-memory index entry for a single key.
//
// Each entry points to the latest record written for a key. Older versions
// may still exist in immutable datafiles until a merge drops them; recency
// is decided by write order, Timestamp is informational only.
//
// The KeyDir is rebuilt on startup by scanning datafiles or reading
// hint files.
type KeyDirEntry struct {
	FileID     uint32 // Datafile id containing the record
	Offset     int64  // Byte offset in the datafile where the record starts
	RecordSize uint32 // Total size of the record on disk (header + key + value)
	ValueSize  uint32 // Size of the value in bytes
	Timestamp  int64  // Timestamp of the record
}

type keyDirItem struct {
	key   []byte
	entry KeyDirEntry
}

func lessKeyDirItem(a, b keyDirItem) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// KeyDir is the in-memory index mapping keys to their latest on-disk entries.
//
// It is the primary structure used to service read requests without
// scanning datafiles. It is not safe for concurrent mutation; the datastore
// serializes access to it.
type KeyDir struct {
	tree *btree.BTreeG[keyDirItem]
}

func NewKeyDir() *KeyDir {
	return &KeyDir{tree: btree.NewG(32, lessKeyDirItem)}
}

// Put stores entry for key, overwriting any previous entry. The key is copied.
func (kd *KeyDir) Put(key []byte, entry KeyDirEntry) {
	kd.tree.ReplaceOrInsert(keyDirItem{key: bytes.Clone(key), entry: entry})
}

func (kd *KeyDir) Get(key []byte) (KeyDirEntry, bool) {
	item, ok := kd.tree.Get(keyDirItem{key: key})
	return item.entry, ok
}

// Delete removes key and reports whether it was present.
func (kd *KeyDir) Delete(key []byte) bool {
	_, ok := kd.tree.Delete(keyDirItem{key: key})
	return ok
}

func (kd *KeyDir) Len() int {
	return kd.tree.Len()
}

// Ascend calls fn for every entry in key order until fn returns false.
// The key passed to fn is owned by the KeyDir and must not be modified.
func (kd *KeyDir) Ascend(fn func(key []byte, entry KeyDirEntry) bool) {
	kd.tree.Ascend(func(item keyDirItem) bool {
		return fn(item.key, item.entry)
	})
}

// Keys returns a copy of every key currently in the KeyDir.
func (kd *KeyDir) Keys() [][]byte {
	keys := make([][]byte, 0, kd.tree.Len())
	kd.Ascend(func(key []byte, _ KeyDirEntry) bool {
		keys = append(keys, bytes.Clone(key))
		return true
	})
	return keys
}
