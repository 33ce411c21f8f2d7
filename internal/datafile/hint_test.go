package datafile

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xRadioAc7iv/bitcaskdb/internal/record"
)

func TestHintWriteAndRead(t *testing.T) {
	dir := t.TempDir()

	hw, err := CreateHint(dir, 4)
	require.NoError(t, err)

	for i, key := range []string{"alpha", "beta", "gamma"} {
		require.NoError(t, hw.Append(&record.HintRecord{
			Timestamp: int64(i),
			ValueSize: uint32(i + 1),
			Offset:    uint64(i * 100),
			Key:       []byte(key),
		}))
	}
	require.NoError(t, hw.Close())

	hints, err := ReadHints(HintFilePath(dir, 4))
	require.NoError(t, err)
	require.Len(t, hints, 3)

	assert.Equal(t, "gamma", string(hints[2].Key))
	assert.Equal(t, uint64(200), hints[2].Offset)
	assert.Equal(t, uint32(3), hints[2].ValueSize)
}

func TestReadHintsRejectsDamage(t *testing.T) {
	dir := t.TempDir()
	path := HintFilePath(dir, 0)

	hw, err := CreateHint(dir, 0)
	require.NoError(t, err)
	require.NoError(t, hw.Append(&record.HintRecord{Offset: 1, Key: []byte("k1")}))
	require.NoError(t, hw.Append(&record.HintRecord{Offset: 2, Key: []byte("k2")}))
	require.NoError(t, hw.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)

	t.Run("truncated", func(t *testing.T) {
		require.NoError(t, os.Truncate(path, info.Size()-1))

		_, err := ReadHints(path)
		assert.ErrorIs(t, err, record.ErrTruncated)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := ReadHints(HintFilePath(dir, 99))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
