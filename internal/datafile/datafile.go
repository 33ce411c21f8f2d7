// Package datafile implements the append-only files that hold bitcask records.
//
// A datafile is a plain concatenation of encoded records with no padding or
// frame markers; record boundaries come from the length fields of each header.
// Exactly one datafile per directory is active (appendable) at a time; every
// other datafile is immutable.
package datafile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/0xRadioAc7iv/bitcaskdb/internal/utils"
)

var (
	// ErrShortRead is returned when a requested range extends past the end of the datafile.
	ErrShortRead = errors.New("datafile: short read")

	// ErrImmutable is returned when appending to a frozen or read-only datafile.
	ErrImmutable = errors.New("datafile: immutable")
)

// CorruptionError reports a record that is complete on disk but fails to decode.
type CorruptionError struct {
	Path   string
	Offset int64
	Err    error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("corrupted record in %s at offset %d: %v", e.Path, e.Offset, e.Err)
}

func (e *CorruptionError) Unwrap() error { return e.Err }

type Datafile struct {
	id       uint32
	path     string
	file     *os.File
	size     int64
	writable bool
	dirty    bool // appended since last Sync
}

// Create creates a new, empty datafile opened for appends.
func Create(dir string, id uint32) (*Datafile, error) {
	path := DataFilePath(dir, id)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}

	return &Datafile{id: id, path: path, file: f, writable: true}, nil
}

// OpenWritable opens an existing datafile for reads and appends. New records
// are appended after the current end of the file.
func OpenWritable(dir string, id uint32) (*Datafile, error) {
	return open(DataFilePath(dir, id), id, os.O_RDWR, true)
}

// OpenReadOnly opens an existing datafile for reads only.
func OpenReadOnly(dir string, id uint32) (*Datafile, error) {
	return open(DataFilePath(dir, id), id, os.O_RDONLY, false)
}

func open(path string, id uint32, flag int, writable bool) (*Datafile, error) {
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Datafile{id: id, path: path, file: f, size: info.Size(), writable: writable}, nil
}

func (d *Datafile) ID() uint32   { return d.id }
func (d *Datafile) Path() string { return d.path }

// Size returns the number of bytes known to be in the datafile.
func (d *Datafile) Size() int64 { return d.size }

// Writable reports whether Append is allowed.
func (d *Datafile) Writable() bool { return d.writable }

// Append writes data at the end of the datafile and returns the offset at
// which it begins.
func (d *Datafile) Append(data []byte) (int64, error) {
	if !d.writable {
		return 0, ErrImmutable
	}

	offset := d.size

	n, err := d.file.WriteAt(data, offset)
	if err != nil {
		// A partial record must not sit in front of later appends.
		if n > 0 {
			if terr := d.file.Truncate(offset); terr != nil {
				d.size = offset + int64(n)
				d.writable = false
				return 0, errors.Join(err, terr)
			}
		}
		return 0, err
	}

	d.size += int64(n)
	d.dirty = true

	return offset, nil
}

// ReadAt returns exactly length bytes starting at offset.
func (d *Datafile) ReadAt(offset int64, length uint32) ([]byte, error) {
	if offset < 0 || offset+int64(length) > d.size {
		return nil, fmt.Errorf("%w: %s [%d, %d) beyond size %d", ErrShortRead, d.path, offset, offset+int64(length), d.size)
	}

	buf := make([]byte, length)

	n, err := d.file.ReadAt(buf, offset)
	if n == int(length) {
		return buf, nil
	}
	if err == nil || err == io.EOF {
		err = ErrShortRead
	}

	return nil, fmt.Errorf("%s at offset %d: %w", d.path, offset, err)
}

// Sync flushes appended bytes to stable storage. It is a no-op when nothing
// has been appended since the previous Sync.
func (d *Datafile) Sync() error {
	if !d.dirty {
		return nil
	}

	if err := d.file.Sync(); err != nil {
		return err
	}

	d.dirty = false
	return nil
}

// Truncate cuts the datafile at offset and syncs it. Used to drop a torn
// tail left by an interrupted append.
func (d *Datafile) Truncate(offset int64) error {
	if !d.writable {
		return ErrImmutable
	}

	if err := utils.TruncateAt(d.file, offset); err != nil {
		return err
	}

	d.size = offset
	d.dirty = false
	return nil
}

// Freeze syncs the datafile and makes it immutable. The file handle stays
// open for reads.
func (d *Datafile) Freeze() error {
	if err := d.Sync(); err != nil {
		return err
	}

	d.writable = false
	return nil
}

func (d *Datafile) Close() error {
	syncErr := d.Sync()
	closeErr := d.file.Close()

	return errors.Join(syncErr, closeErr)
}
