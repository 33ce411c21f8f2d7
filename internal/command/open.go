package command

import (
	"github.com/phuslu/log"

	"github.com/0xRadioAc7iv/bitcaskdb/core"
	"github.com/0xRadioAc7iv/bitcaskdb/internal"
)

// OpenStore opens the datastore described by cfg.
func OpenStore(cfg *internal.Config, logger log.Logger) (*core.Bitcask, error) {
	opts := []core.Option{
		core.WithLogger(logger),
		core.WithMaxDatafileSize(int64(cfg.MaxDatafileSizeMB) * core.OneMegabyte),
	}
	if cfg.ReadWrite {
		opts = append(opts, core.WithReadWrite())
	}
	if cfg.SyncOnPut {
		opts = append(opts, core.WithSyncOnPut())
	}

	return core.OpenWithOptions(cfg.Dir, opts...)
}
