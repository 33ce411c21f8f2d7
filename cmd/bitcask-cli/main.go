package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/0xRadioAc7iv/bitcaskdb/internal/command"
	"github.com/0xRadioAc7iv/bitcaskdb/internal/logging"
	"github.com/0xRadioAc7iv/bitcaskdb/internal/utils"
)

func main() {
	fs := flag.NewFlagSet("bitcask-cli", flag.ExitOnError)

	cfg, err := utils.HandleCLIInputs(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := logging.CreateLogger(cfg.LogLevel, os.Stderr)

	bk, err := command.OpenStore(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Str("dir", cfg.Dir).Msg("unable to open datastore")
		os.Exit(1)
	}

	// Close cleanly on Ctrl+C so the active datafile is synced and the lock released.
	go func() {
		sig := utils.ListenForProcessInterruptOrKill()
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		if err := bk.Close(); err != nil {
			logger.Error().Err(err).Msg("unable to close datastore")
			os.Exit(1)
		}
		os.Exit(0)
	}()
	defer bk.Close()

	mode := "read-only"
	if cfg.ReadWrite {
		mode = "read-write"
	}

	fmt.Printf("Opened %v (%s)\n", cfg.Dir, mode)
	fmt.Println("Type commands. 'help' for information or 'exit' to quit.")

	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("> ")

		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return
		}

		line = strings.TrimSpace(line)

		if line == "" {
			continue
		}

		if line == "exit" {
			return
		}

		cmd, err := command.Parse(line)
		if err != nil {
			fmt.Println("parse error:", err)
			continue
		}

		resp, err := command.Execute(bk, cmd)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}

		fmt.Println(resp)
	}
}
