package datafile

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

const (
	DataFileExt = ".data"
	HintFileExt = ".hint"

	idDigits = 9
)

// DataFileName returns the base name of the datafile with the given id,
// e.g. "000000007.data". Zero padding keeps lexical and numeric order equal.
func DataFileName(id uint32) string {
	return fmt.Sprintf("%0*d%s", idDigits, id, DataFileExt)
}

// HintFileName returns the base name of the hint file paired with datafile id.
func HintFileName(id uint32) string {
	return fmt.Sprintf("%0*d%s", idDigits, id, HintFileExt)
}

func DataFilePath(dir string, id uint32) string {
	return filepath.Join(dir, DataFileName(id))
}

func HintFilePath(dir string, id uint32) string {
	return filepath.Join(dir, HintFileName(id))
}

// ParseID extracts the id from a datafile or hint file name.
func ParseID(name string) (uint32, bool) {
	ext := filepath.Ext(name)
	if ext != DataFileExt && ext != HintFileExt {
		return 0, false
	}

	n, err := strconv.ParseUint(strings.TrimSuffix(name, ext), 10, 32)
	if err != nil {
		return 0, false
	}

	return uint32(n), true
}

// ListIDs returns the ids of every '.data' file inside dir, in increasing order.
func ListIDs(dir string) ([]uint32, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	ids := []uint32{}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != DataFileExt {
			continue
		}

		if id, ok := ParseID(entry.Name()); ok {
			ids = append(ids, id)
		}
	}

	slices.Sort(ids)
	return ids, nil
}
