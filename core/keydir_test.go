package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xRadioAc7iv/bitcaskdb/core"
)

func TestKeyDirPutGetDelete(t *testing.T) {
	kd := core.NewKeyDir()

	kd.Put([]byte("a"), core.KeyDirEntry{FileID: 1, Offset: 10})
	kd.Put([]byte("a"), core.KeyDirEntry{FileID: 2, Offset: 20})

	entry, ok := kd.Get([]byte("a"))
	require.True(t, ok)
	assert.Equal(t, uint32(2), entry.FileID)
	assert.Equal(t, int64(20), entry.Offset)
	assert.Equal(t, 1, kd.Len())

	assert.True(t, kd.Delete([]byte("a")))
	assert.False(t, kd.Delete([]byte("a")))

	_, ok = kd.Get([]byte("a"))
	assert.False(t, ok)
	assert.Equal(t, 0, kd.Len())
}

func TestKeyDirCopiesKeys(t *testing.T) {
	kd := core.NewKeyDir()

	key := []byte("key")
	kd.Put(key, core.KeyDirEntry{FileID: 7})
	key[0] = 'X'

	_, ok := kd.Get([]byte("key"))
	assert.True(t, ok)
	_, ok = kd.Get(key)
	assert.False(t, ok)
}

func TestKeyDirAscend(t *testing.T) {
	kd := core.NewKeyDir()

	for _, k := range []string{"c", "a", "b", ""} {
		kd.Put([]byte(k), core.KeyDirEntry{})
	}

	var seen []string
	kd.Ascend(func(key []byte, _ core.KeyDirEntry) bool {
		seen = append(seen, string(key))
		return len(seen) < 3
	})
	assert.Equal(t, []string{"", "a", "b"}, seen)

	assert.Equal(t, [][]byte{{}, []byte("a"), []byte("b"), []byte("c")}, kd.Keys())
}
