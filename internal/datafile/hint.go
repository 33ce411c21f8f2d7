package datafile

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/0xRadioAc7iv/bitcaskdb/internal/record"
)

// HintWriter appends hint entries to a hint file.
type HintWriter struct {
	file *os.File
	w    *bufio.Writer
}

// CreateHint creates the hint file for datafile id inside dir.
func CreateHint(dir string, id uint32) (*HintWriter, error) {
	f, err := os.OpenFile(HintFilePath(dir, id), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	return &HintWriter{file: f, w: bufio.NewWriterSize(f, 64*1024)}, nil
}

func (hw *HintWriter) Append(h *record.HintRecord) error {
	encoded, err := record.EncodeHintRecordToBytes(h)
	if err != nil {
		return err
	}

	_, err = hw.w.Write(encoded)
	return err
}

func (hw *HintWriter) Sync() error {
	if err := hw.w.Flush(); err != nil {
		return err
	}
	return hw.file.Sync()
}

// Close syncs and closes the hint file.
func (hw *HintWriter) Close() error {
	syncErr := hw.Sync()
	closeErr := hw.file.Close()

	return errors.Join(syncErr, closeErr)
}

// ReadHints loads every entry of the hint file at path. Any truncated or
// checksum-failing entry makes the whole file unusable.
func ReadHints(path string) ([]*record.HintRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	hints := []*record.HintRecord{}

	for offset := 0; offset < len(data); {
		h, n, err := record.DecodeHintRecordFromBytes(data[offset:])
		if err != nil {
			return nil, fmt.Errorf("hint file %s at offset %d: %w", path, offset, err)
		}

		hints = append(hints, h)
		offset += n
	}

	return hints, nil
}
