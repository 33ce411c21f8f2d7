package core

const (
	OneMegabyte = 1024 * 1024 // 1024 (1KB) * 1024 => 1MB

	DefaultMaxDatafileSize = 64 * OneMegabyte

	// Merge output is staged here, inside the data directory, until committed.
	MergeDirName = "merge"

	// Written last into MergeDirName; its presence commits the merge. It holds
	// the highest datafile id the merge replaces.
	MergeMarkerName = "MERGED"
)
