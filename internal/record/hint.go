package record

import (
	"encoding/binary"
	"math"
)

// HintRecord locates one live record inside a merged datafile without
// carrying its value.
type HintRecord struct {
	CRC       uint32
	Timestamp int64
	KeySize   uint32
	ValueSize uint32
	Offset    uint64 // Byte offset of the record inside its datafile
	Key       []byte
}

// CRC (4) + Timestamp (8) + KeySize (4) + ValueSize (4) + Offset (8)
const HintRecordHeaderSizeBytes = 28

// RecordSize returns the on-disk length of the datafile record the hint points at.
func (h *HintRecord) RecordSize() int64 {
	return DiskRecordHeaderSizeBytes + int64(h.KeySize) + int64(h.ValueSize)
}

// Size returns the encoded length of the hint entry itself.
func (h *HintRecord) Size() int64 {
	return HintRecordHeaderSizeBytes + int64(len(h.Key))
}

func EncodeHintRecordToBytes(hintRecord *HintRecord) ([]byte, error) {
	if len(hintRecord.Key) > math.MaxUint32 {
		return nil, ErrTooLarge
	}
	hintRecord.KeySize = uint32(len(hintRecord.Key))

	buf := make([]byte, hintRecord.Size())
	binary.LittleEndian.PutUint64(buf[4:12], uint64(hintRecord.Timestamp))
	binary.LittleEndian.PutUint32(buf[12:16], hintRecord.KeySize)
	binary.LittleEndian.PutUint32(buf[16:20], hintRecord.ValueSize)
	binary.LittleEndian.PutUint64(buf[20:28], hintRecord.Offset)
	copy(buf[HintRecordHeaderSizeBytes:], hintRecord.Key)

	hintRecord.CRC = CalculateCRC(buf[4:])
	binary.LittleEndian.PutUint32(buf[0:4], hintRecord.CRC)

	return buf, nil
}

// DecodeHintRecordFromBytes decodes one hint entry from the start of data and
// verifies its checksum. The second return value is the number of bytes consumed.
func DecodeHintRecordFromBytes(data []byte) (*HintRecord, int, error) {
	if len(data) < HintRecordHeaderSizeBytes {
		return nil, 0, ErrTruncated
	}

	crc := binary.LittleEndian.Uint32(data[0:4])
	keySize := binary.LittleEndian.Uint32(data[12:16])

	size := HintRecordHeaderSizeBytes + int(keySize)
	if len(data) < size {
		return nil, 0, ErrTruncated
	}

	if !ValidateCRC(crc, data[4:size]) {
		return nil, 0, ErrChecksumMismatch
	}

	key := make([]byte, keySize)
	copy(key, data[HintRecordHeaderSizeBytes:size])

	return &HintRecord{
		CRC:       crc,
		Timestamp: int64(binary.LittleEndian.Uint64(data[4:12])),
		KeySize:   keySize,
		ValueSize: binary.LittleEndian.Uint32(data[16:20]),
		Offset:    binary.LittleEndian.Uint64(data[20:28]),
		Key:       key,
	}, size, nil
}
