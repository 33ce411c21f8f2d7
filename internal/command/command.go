package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/0xRadioAc7iv/bitcaskdb/internal/utils"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrWrongArity     = errors.New("wrong number of arguments")
)

// Command represents a parsed text command.
//
// A Command consists of a lower-cased command name (Cmd) and its positional
// arguments. The meaning of Args depends on the command type (e.g. GET,
// PUT, DELETE).
type Command struct {
	Cmd  string   // Command name (e.g. "get", "put", "delete")
	Args []string // Positional arguments, already unquoted
}

// Arguments each command takes. "set" is kept as an alias of "put".
var arity = map[string]int{
	"get":    1,
	"put":    2,
	"set":    2,
	"delete": 1,
	"exists": 1,
	"count":  0,
	"list":   0,
	"merge":  0,
	"sync":   0,
	"stats":  0,
	"help":   0,
}

// Parse splits a line using shell quoting rules and validates the command
// name and its argument count.
func Parse(line string) (*Command, error) {
	cmd, args, err := utils.SplitStringIntoCommandAndArguments(line)
	if err != nil {
		return nil, err
	}

	return New(cmd, args...)
}

// New builds a Command from an already split name and arguments.
func New(cmd string, args ...string) (*Command, error) {
	cmd = strings.ToLower(cmd)

	want, ok := arity[cmd]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
	if len(args) != want {
		return nil, fmt.Errorf("%w: %s takes %d, got %d", ErrWrongArity, strings.ToUpper(cmd), want, len(args))
	}

	return &Command{Cmd: cmd, Args: args}, nil
}

// Mutating reports whether the command needs a read-write datastore.
func (c *Command) Mutating() bool {
	switch c.Cmd {
	case "put", "set", "delete", "merge":
		return true
	}
	return false
}
