package record

import (
	"encoding/binary"
	"errors"
	"math"
	"time"
)

var (
	// ErrTruncated is returned when a buffer ends before the record it describes.
	// While scanning a datafile this marks a write that never completed.
	ErrTruncated = errors.New("record: truncated")

	// ErrChecksumMismatch is returned when the stored CRC does not match the record bytes.
	ErrChecksumMismatch = errors.New("record: checksum mismatch")

	// ErrInvalidFlags is returned for unknown flag bits or a tombstone carrying a value.
	ErrInvalidFlags = errors.New("record: invalid flags")

	// ErrTooLarge is returned when a key or value does not fit a uint32 length field.
	ErrTooLarge = errors.New("record: key or value too large")
)

const (
	// FlagTombstone marks a record as a logical delete.
	FlagTombstone uint8 = 1 << 0

	knownFlags = FlagTombstone
)

// CRC (4) + Timestamp (8) + KeySize (4) + ValueSize (4) + Flags (1)
const DiskRecordHeaderSizeBytes = 21

type DiskRecord struct {
	CRC       uint32 // Checksum of everything after the CRC field
	Timestamp int64  // Unix Timestamp in Nanoseconds
	KeySize   uint32 // Length of Key in Bytes
	ValueSize uint32 // Length of Value in Bytes
	Flags     uint8
	Key       []byte
	Value     []byte
}

// Header holds the fixed-size prefix of a DiskRecord.
type Header struct {
	CRC       uint32
	Timestamp int64
	KeySize   uint32
	ValueSize uint32
	Flags     uint8
}

// RecordSize returns the full on-disk length of the record this header describes.
func (h Header) RecordSize() int64 {
	return DiskRecordHeaderSizeBytes + int64(h.KeySize) + int64(h.ValueSize)
}

func CreateRecord(key, value []byte) DiskRecord {
	return DiskRecord{
		Timestamp: time.Now().UnixNano(),
		KeySize:   uint32(len(key)),
		ValueSize: uint32(len(value)),
		Key:       key,
		Value:     value,
	}
}

func CreateTombstoneRecord(key []byte) DiskRecord {
	return DiskRecord{
		Timestamp: time.Now().UnixNano(),
		KeySize:   uint32(len(key)),
		Flags:     FlagTombstone,
		Key:       key,
	}
}

// IsTombstone reports whether the record is a logical delete.
func (r *DiskRecord) IsTombstone() bool {
	return r.Flags&FlagTombstone != 0
}

// Size returns the encoded length of the record.
func (r *DiskRecord) Size() int64 {
	return DiskRecordHeaderSizeBytes + int64(len(r.Key)) + int64(len(r.Value))
}

// EncodeRecordToBytes serializes the record and fills in its CRC.
//
// Layout (little-endian):
//
//	crc:uint32 | timestamp:int64 | key_size:uint32 | value_size:uint32 | flags:uint8 | key | value
func EncodeRecordToBytes(record *DiskRecord) ([]byte, error) {
	if len(record.Key) > math.MaxUint32 || len(record.Value) > math.MaxUint32 {
		return nil, ErrTooLarge
	}
	if record.Flags&^knownFlags != 0 || (record.IsTombstone() && len(record.Value) > 0) {
		return nil, ErrInvalidFlags
	}

	record.KeySize = uint32(len(record.Key))
	record.ValueSize = uint32(len(record.Value))

	buf := make([]byte, record.Size())
	binary.LittleEndian.PutUint64(buf[4:12], uint64(record.Timestamp))
	binary.LittleEndian.PutUint32(buf[12:16], record.KeySize)
	binary.LittleEndian.PutUint32(buf[16:20], record.ValueSize)
	buf[20] = record.Flags
	n := copy(buf[DiskRecordHeaderSizeBytes:], record.Key)
	copy(buf[DiskRecordHeaderSizeBytes+n:], record.Value)

	record.CRC = CalculateCRC(buf[4:])
	binary.LittleEndian.PutUint32(buf[0:4], record.CRC)

	return buf, nil
}

// DecodeHeader parses the fixed-size header at the start of data.
// It does not verify the checksum.
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < DiskRecordHeaderSizeBytes {
		return Header{}, ErrTruncated
	}

	h := Header{
		CRC:       binary.LittleEndian.Uint32(data[0:4]),
		Timestamp: int64(binary.LittleEndian.Uint64(data[4:12])),
		KeySize:   binary.LittleEndian.Uint32(data[12:16]),
		ValueSize: binary.LittleEndian.Uint32(data[16:20]),
		Flags:     data[20],
	}

	return h, nil
}

// DecodeRecordFromBytes decodes one record from the start of data and
// verifies its checksum. Bytes past the record are ignored.
func DecodeRecordFromBytes(data []byte) (*DiskRecord, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}

	size := h.RecordSize()
	if int64(len(data)) < size {
		return nil, ErrTruncated
	}

	if !ValidateCRC(h.CRC, data[4:size]) {
		return nil, ErrChecksumMismatch
	}

	if h.Flags&^knownFlags != 0 || (h.Flags&FlagTombstone != 0 && h.ValueSize > 0) {
		return nil, ErrInvalidFlags
	}

	keyEnd := DiskRecordHeaderSizeBytes + int64(h.KeySize)

	key := make([]byte, h.KeySize)
	copy(key, data[DiskRecordHeaderSizeBytes:keyEnd])

	value := make([]byte, h.ValueSize)
	copy(value, data[keyEnd:size])

	return &DiskRecord{
		CRC:       h.CRC,
		Timestamp: h.Timestamp,
		KeySize:   h.KeySize,
		ValueSize: h.ValueSize,
		Flags:     h.Flags,
		Key:       key,
		Value:     value,
	}, nil
}
