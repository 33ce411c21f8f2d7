package record

import (
	"hash/crc32"
	"testing"
)

func TestCRC(t *testing.T) {
	var key = []byte("language")
	var value = []byte("go")

	want := crc32.ChecksumIEEE([]byte("languagego"))

	t.Run("CalculateCRC matches checksum of the concatenated parts", func(t *testing.T) {
		got := CalculateCRC(key, value)
		if got != want {
			t.Errorf("CalculateCRC() = %v, want %v", got, want)
		}
	})

	t.Run("CalculateCRC does not modify its inputs", func(t *testing.T) {
		k := make([]byte, 3, 16)
		copy(k, "abc")
		CalculateCRC(k, []byte("zzz"))
		if string(k[:cap(k)][3:6]) == "zzz" {
			t.Errorf("CalculateCRC wrote into the spare capacity of its first argument")
		}
	})

	t.Run("ValidateCRC returns true for matching checksum", func(t *testing.T) {
		if !ValidateCRC(want, key, value) {
			t.Errorf("ValidateCRC() returned false, expected true")
		}
	})

	t.Run("ValidateCRC returns false for mismatched checksum", func(t *testing.T) {
		if ValidateCRC(want+1, key, value) {
			t.Errorf("ValidateCRC() returned true for wrong checksum")
		}
	})
}
