package core

import (
	"errors"
	"strings"

	"github.com/0xRadioAc7iv/bitcaskdb/internal/datafile"
	"github.com/0xRadioAc7iv/bitcaskdb/internal/lock"
	"github.com/0xRadioAc7iv/bitcaskdb/internal/record"
)

// ErrorKind classifies errors returned by the datastore.
type ErrorKind int

const (
	// KindIO covers filesystem failures: permissions, disk full, missing paths.
	KindIO ErrorKind = iota + 1

	// KindCorruption means a record that should be complete failed to decode.
	// Torn tails left by a crash are not reported with this kind; they are dropped.
	KindCorruption

	// KindAlreadyLocked means another writer holds the data directory.
	KindAlreadyLocked

	// KindReadOnly means a mutating call was made on a read-only handle.
	KindReadOnly

	// KindClosed means the handle was used after Close.
	KindClosed

	// KindInvalid means the arguments can not be stored, e.g. an oversized value.
	KindInvalid
)

func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "i/o error"
	case KindCorruption:
		return "data corrupted"
	case KindAlreadyLocked:
		return "directory already locked"
	case KindReadOnly:
		return "datastore is read-only"
	case KindClosed:
		return "datastore is closed"
	case KindInvalid:
		return "invalid argument"
	default:
		return "unknown error"
	}
}

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrIO            = &Error{Kind: KindIO}
	ErrCorrupted     = &Error{Kind: KindCorruption}
	ErrAlreadyLocked = &Error{Kind: KindAlreadyLocked}
	ErrReadOnly      = &Error{Kind: KindReadOnly}
	ErrClosed        = &Error{Kind: KindClosed}
	ErrInvalid       = &Error{Kind: KindInvalid}
)

// Error is the error type returned by every datastore operation.
type Error struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// Op is the operation that failed, e.g. "get", "merge", "open".
	Op string

	// Path is the file involved, when there is one.
	Path string

	// Err is the underlying cause.
	Err error
}

// Error formats as: bitcask: <op> <path>: <kind>: <cause>
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString("bitcask")
	if e.Op != "" {
		b.WriteString(": " + e.Op)
	}
	if e.Path != "" {
		b.WriteString(" " + e.Path)
	}
	b.WriteString(": " + e.Kind.String())
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the bare sentinels (ErrClosed, ErrCorrupted, ...) by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Path == "" && t.Err == nil && t.Kind == e.Kind
}

func newError(kind ErrorKind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// wrapError classifies an error coming from the lower layers. Errors that
// already carry a kind are returned unchanged.
func wrapError(op, path string, err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return err
	}

	var corruption *datafile.CorruptionError

	kind := KindIO
	switch {
	case errors.Is(err, lock.ErrLocked):
		kind = KindAlreadyLocked
	case errors.As(err, &corruption),
		errors.Is(err, record.ErrChecksumMismatch),
		errors.Is(err, record.ErrInvalidFlags),
		errors.Is(err, record.ErrTruncated):
		kind = KindCorruption
	case errors.Is(err, record.ErrTooLarge):
		kind = KindInvalid
	}

	return newError(kind, op, path, err)
}
