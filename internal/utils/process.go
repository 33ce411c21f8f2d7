package utils

import (
	"os"
	"os/signal"
	"syscall"
)

// ListenForProcessInterruptOrKill blocks until it receives an interrupt (Ctrl+C)
// or termination signal (SIGTERM), then returns. The command line tools run it
// in a goroutine so the datastore can be closed cleanly before exiting.
func ListenForProcessInterruptOrKill() os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	return <-sigChan // block until signal arrives
}
