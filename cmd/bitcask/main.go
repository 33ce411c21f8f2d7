package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kballard/go-shellquote"

	"github.com/0xRadioAc7iv/bitcaskdb/internal/command"
	"github.com/0xRadioAc7iv/bitcaskdb/internal/logging"
	"github.com/0xRadioAc7iv/bitcaskdb/internal/utils"
)

// Runs a single command against a data directory:
//
//	bitcask -dir ./data put city "new york"
//	bitcask -dir ./data get city
//	bitcask -dir ./data merge
func main() {
	fs := flag.NewFlagSet("bitcask", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: bitcask [flags] <command> [args...]")
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), command.Help())
	}

	cfg, err := utils.HandleCLIInputs(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	cmd, err := command.Parse(shellquote.Join(fs.Args()...))
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse error:", err)
		os.Exit(2)
	}

	if cmd.Cmd == "help" {
		fmt.Println(command.Help())
		return
	}

	// Mutating commands need the writer lock.
	if cmd.Mutating() {
		cfg.ReadWrite = true
	}

	logger := logging.CreateLogger(cfg.LogLevel, os.Stderr)

	bk, err := command.OpenStore(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Str("dir", cfg.Dir).Msg("unable to open datastore")
		os.Exit(1)
	}

	resp, execErr := command.Execute(bk, cmd)

	if err := bk.Close(); err != nil {
		logger.Error().Err(err).Msg("unable to close datastore")
	}

	if execErr != nil {
		fmt.Fprintln(os.Stderr, "error:", execErr)
		os.Exit(1)
	}

	fmt.Println(resp)
}
