package core

import (
	"github.com/phuslu/log"

	"github.com/0xRadioAc7iv/bitcaskdb/internal/logging"
)

// Options control how a datastore is opened.
type Options struct {
	// ReadWrite takes the directory's writer lock and allows put, delete and merge.
	ReadWrite bool

	// SyncOnPut fsyncs the active datafile before every put or delete returns.
	SyncOnPut bool

	// MaxDatafileSize is the size at which the active datafile is rotated.
	MaxDatafileSize int64

	Logger log.Logger
}

type Option func(*Options)

func DefaultOptions() Options {
	return Options{
		ReadWrite:       false,
		SyncOnPut:       false,
		MaxDatafileSize: DefaultMaxDatafileSize,
		Logger:          logging.CreateDefaultLogger(),
	}
}

func WithReadWrite() Option {
	return func(o *Options) {
		o.ReadWrite = true
	}
}

func WithSyncOnPut() Option {
	return func(o *Options) {
		o.SyncOnPut = true
	}
}

func WithMaxDatafileSize(size int64) Option {
	return func(o *Options) {
		o.MaxDatafileSize = size
	}
}

func WithLogger(logger log.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}
