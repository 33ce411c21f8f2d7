// Package lock provides the exclusive directory lock that keeps a second
// writer out of a bitcask data directory.
package lock

import "errors"

// FileName is the name of the lock file created inside a locked directory.
const FileName = "LOCK"

// ErrLocked is returned when another writer already holds the directory lock.
var ErrLocked = errors.New("directory already in use by another bitcask writer")
