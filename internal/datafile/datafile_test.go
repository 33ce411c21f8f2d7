package datafile

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xRadioAc7iv/bitcaskdb/internal/record"
)

func encode(t *testing.T, r record.DiskRecord) []byte {
	t.Helper()

	b, err := record.EncodeRecordToBytes(&r)
	require.NoError(t, err)
	return b
}

func writeRecords(t *testing.T, dir string, id uint32, n int) (*Datafile, []int64) {
	t.Helper()

	df, err := Create(dir, id)
	require.NoError(t, err)

	offsets := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		off, err := df.Append(encode(t, record.CreateRecord([]byte(fmt.Sprintf("key-%d", i)), []byte(fmt.Sprintf("value-%d", i)))))
		require.NoError(t, err)
		offsets = append(offsets, off)
	}

	return df, offsets
}

func TestNames(t *testing.T) {
	assert.Equal(t, "000000007.data", DataFileName(7))
	assert.Equal(t, "000000007.hint", HintFileName(7))

	id, ok := ParseID("000000042.data")
	assert.True(t, ok)
	assert.Equal(t, uint32(42), id)

	_, ok = ParseID("LOCK")
	assert.False(t, ok)
	_, ok = ParseID("abc.data")
	assert.False(t, ok)
}

func TestListIDs(t *testing.T) {
	dir := t.TempDir()

	for _, id := range []uint32{10, 2, 7} {
		df, err := Create(dir, id)
		require.NoError(t, err)
		require.NoError(t, df.Close())
	}
	require.NoError(t, os.WriteFile(HintFilePath(dir, 2), nil, 0644))
	require.NoError(t, os.WriteFile(dir+"/LOCK", nil, 0644))
	require.NoError(t, os.Mkdir(dir+"/merge", 0755))

	ids, err := ListIDs(dir)
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 7, 10}, ids)
}

func TestAppendAndReadAt(t *testing.T) {
	dir := t.TempDir()

	df, err := Create(dir, 0)
	require.NoError(t, err)
	defer df.Close()

	first := encode(t, record.CreateRecord([]byte("a"), []byte("1")))
	second := encode(t, record.CreateRecord([]byte("b"), []byte("22")))

	off1, err := df.Append(first)
	require.NoError(t, err)
	off2, err := df.Append(second)
	require.NoError(t, err)

	assert.Equal(t, int64(0), off1)
	assert.Equal(t, int64(len(first)), off2)
	assert.Equal(t, int64(len(first)+len(second)), df.Size())

	got, err := df.ReadAt(off2, uint32(len(second)))
	require.NoError(t, err)
	assert.Equal(t, second, got)

	_, err = df.ReadAt(off2, uint32(len(second))+1)
	assert.True(t, errors.Is(err, ErrShortRead))

	_, err = df.ReadAt(-1, 1)
	assert.True(t, errors.Is(err, ErrShortRead))
}

func TestCreateRefusesExistingFile(t *testing.T) {
	dir := t.TempDir()

	df, err := Create(dir, 3)
	require.NoError(t, err)
	require.NoError(t, df.Close())

	_, err = Create(dir, 3)
	assert.True(t, errors.Is(err, os.ErrExist))
}

func TestFreezeAndReadOnly(t *testing.T) {
	dir := t.TempDir()

	df, _ := writeRecords(t, dir, 1, 2)
	require.NoError(t, df.Freeze())
	assert.False(t, df.Writable())

	_, err := df.Append([]byte("x"))
	assert.ErrorIs(t, err, ErrImmutable)
	require.NoError(t, df.Close())

	ro, err := OpenReadOnly(dir, 1)
	require.NoError(t, err)
	defer ro.Close()

	_, err = ro.Append([]byte("x"))
	assert.ErrorIs(t, err, ErrImmutable)
	assert.ErrorIs(t, ro.Truncate(0), ErrImmutable)
}

func TestScan(t *testing.T) {
	dir := t.TempDir()

	df, offsets := writeRecords(t, dir, 0, 5)
	defer df.Close()

	sc := df.Scan()
	i := 0
	for sc.Next() {
		assert.Equal(t, offsets[i], sc.Offset())
		assert.Equal(t, fmt.Sprintf("key-%d", i), string(sc.Record().Key))
		assert.Equal(t, fmt.Sprintf("value-%d", i), string(sc.Record().Value))
		i++
	}

	require.NoError(t, sc.Err())
	assert.False(t, sc.Torn())
	assert.Equal(t, 5, i)
	assert.Equal(t, df.Size(), sc.TornAt())
}

func TestScanTornTail(t *testing.T) {
	dir := t.TempDir()

	df, offsets := writeRecords(t, dir, 0, 3)
	full := df.Size()
	require.NoError(t, df.Close())

	// every possible cut inside the last record must be treated as a torn tail;
	// walk downwards so each truncation only ever shrinks the file
	for cut := full - 1; cut > offsets[2]; cut-- {
		require.NoError(t, os.Truncate(DataFilePath(dir, 0), cut))

		ro, err := OpenReadOnly(dir, 0)
		require.NoError(t, err)

		sc := ro.Scan()
		n := 0
		for sc.Next() {
			n++
		}

		require.NoError(t, sc.Err(), "cut at %d", cut)
		assert.True(t, sc.Torn(), "cut at %d", cut)
		assert.Equal(t, 2, n, "cut at %d", cut)
		assert.Equal(t, offsets[2], sc.TornAt())
		require.NoError(t, ro.Close())
	}
}

func TestScanGarbledFinalRecordIsTorn(t *testing.T) {
	dir := t.TempDir()

	df, _ := writeRecords(t, dir, 0, 2)
	size := df.Size()
	require.NoError(t, df.Close())

	f, err := os.OpenFile(DataFilePath(dir, 0), os.O_RDWR, 0644)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{0xFF}, size-1)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	ro, err := OpenReadOnly(dir, 0)
	require.NoError(t, err)
	defer ro.Close()

	sc := ro.Scan()
	n := 0
	for sc.Next() {
		n++
	}

	require.NoError(t, sc.Err())
	assert.True(t, sc.Torn())
	assert.Equal(t, 1, n)
}

func TestScanCorruptionInTheMiddle(t *testing.T) {
	dir := t.TempDir()

	df, offsets := writeRecords(t, dir, 0, 3)
	require.NoError(t, df.Close())

	f, err := os.OpenFile(DataFilePath(dir, 0), os.O_RDWR, 0644)
	require.NoError(t, err)
	// last byte of the second record's value
	_, err = f.WriteAt([]byte{0x00}, offsets[2]-1)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	ro, err := OpenReadOnly(dir, 0)
	require.NoError(t, err)
	defer ro.Close()

	sc := ro.Scan()
	n := 0
	for sc.Next() {
		n++
	}

	assert.Equal(t, 1, n)
	assert.False(t, sc.Torn())

	var corruption *CorruptionError
	require.ErrorAs(t, sc.Err(), &corruption)
	assert.Equal(t, offsets[1], corruption.Offset)
	assert.ErrorIs(t, sc.Err(), record.ErrChecksumMismatch)
}

func TestTruncateAndSync(t *testing.T) {
	dir := t.TempDir()

	df, offsets := writeRecords(t, dir, 0, 3)
	defer df.Close()

	require.NoError(t, df.Sync())
	require.NoError(t, df.Sync()) // nothing pending

	require.NoError(t, df.Truncate(offsets[1]))
	assert.Equal(t, offsets[1], df.Size())

	info, err := os.Stat(df.Path())
	require.NoError(t, err)
	assert.Equal(t, offsets[1], info.Size())

	off, err := df.Append(encode(t, record.CreateRecord([]byte("z"), []byte("z"))))
	require.NoError(t, err)
	assert.Equal(t, offsets[1], off)
}
