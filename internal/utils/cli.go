package utils

import (
	"errors"
	"flag"

	"github.com/kballard/go-shellquote"

	"github.com/0xRadioAc7iv/bitcaskdb/internal"
)

// HandleCLIInputs registers the shared flags on fs, parses args and returns
// the resulting configuration.
func HandleCLIInputs(fs *flag.FlagSet, args []string) (*internal.Config, error) {
	cfg := internal.DefaultConfig()

	fs.StringVar(&cfg.Dir, "dir", cfg.Dir, "Data directory to open")
	fs.BoolVar(&cfg.ReadWrite, "rw", cfg.ReadWrite, "Open the directory read-write (takes the writer lock)")
	fs.BoolVar(&cfg.SyncOnPut, "sync", cfg.SyncOnPut, "Fsync after every put and delete")
	fs.IntVar(&cfg.MaxDatafileSizeMB, "dfsize", cfg.MaxDatafileSizeMB, "Max Datafile Size (in MB)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: trace, debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.MaxDatafileSizeMB <= 0 {
		return nil, errors.New("dfsize must be positive")
	}

	return cfg, nil
}

// SplitStringIntoCommandAndArguments splits a command line using shell
// quoting rules, so keys and values may contain spaces when quoted.
func SplitStringIntoCommandAndArguments(line string) (cmd string, args []string, err error) {
	words, err := shellquote.Split(line)
	if err != nil {
		return "", nil, err
	}

	if len(words) == 0 {
		return "", nil, errors.New("empty command")
	}

	return words[0], words[1:], nil
}
