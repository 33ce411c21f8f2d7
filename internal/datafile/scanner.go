package datafile

import (
	"bufio"
	"errors"
	"io"

	"github.com/0xRadioAc7iv/bitcaskdb/internal/record"
)

// Scanner walks the records of a datafile from byte 0.
//
// Scanning stops at the end of the file or at a torn tail: a final record
// whose header or body runs past the end, or whose checksum fails while it
// ends exactly at the end of the file. A checksum failure on any record that
// is followed by more bytes is corruption and is reported by Err.
type Scanner struct {
	d      *Datafile
	r      *bufio.Reader
	limit  int64
	next   int64 // offset of the next unread record
	offset int64 // offset of the current record
	rec    *record.DiskRecord
	err    error
	torn   bool
	done   bool
}

// Scan returns a Scanner over the bytes present in the datafile when Scan is called.
func (d *Datafile) Scan() *Scanner {
	return &Scanner{
		d:     d,
		r:     bufio.NewReaderSize(io.NewSectionReader(d.file, 0, d.size), 64*1024),
		limit: d.size,
	}
}

// Next advances to the next complete record.
func (s *Scanner) Next() bool {
	if s.done {
		return false
	}

	remaining := s.limit - s.next
	if remaining == 0 {
		return s.stop()
	}
	if remaining < record.DiskRecordHeaderSizeBytes {
		return s.stopTorn()
	}

	header := make([]byte, record.DiskRecordHeaderSizeBytes)
	if _, err := io.ReadFull(s.r, header); err != nil {
		return s.fail(err)
	}

	h, err := record.DecodeHeader(header)
	if err != nil {
		return s.fail(err)
	}

	size := h.RecordSize()
	if size > remaining {
		return s.stopTorn()
	}

	buf := make([]byte, size)
	copy(buf, header)
	if _, err := io.ReadFull(s.r, buf[record.DiskRecordHeaderSizeBytes:]); err != nil {
		return s.fail(err)
	}

	rec, err := record.DecodeRecordFromBytes(buf)
	if err != nil {
		if size == remaining && errors.Is(err, record.ErrChecksumMismatch) {
			return s.stopTorn()
		}
		return s.fail(&CorruptionError{Path: s.d.path, Offset: s.next, Err: err})
	}

	s.rec = rec
	s.offset = s.next
	s.next += size
	return true
}

// Record returns the record read by the last successful Next.
func (s *Scanner) Record() *record.DiskRecord { return s.rec }

// Offset returns the byte offset at which the current record begins.
func (s *Scanner) Offset() int64 { return s.offset }

// Err returns the first error that stopped the scan, excluding a torn tail.
func (s *Scanner) Err() error { return s.err }

// Torn reports whether the scan stopped at an incomplete final record.
func (s *Scanner) Torn() bool { return s.torn }

// TornAt returns the offset at which the valid prefix of the datafile ends.
// It is only meaningful once Next has returned false.
func (s *Scanner) TornAt() int64 { return s.next }

func (s *Scanner) stop() bool {
	s.done = true
	s.rec = nil
	return false
}

func (s *Scanner) stopTorn() bool {
	s.torn = true
	return s.stop()
}

func (s *Scanner) fail(err error) bool {
	s.err = err
	return s.stop()
}
