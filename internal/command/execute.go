package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/0xRadioAc7iv/bitcaskdb/core"
)

// Store is the part of the datastore the commands use. *core.Bitcask
// implements it.
type Store interface {
	Get(key []byte) ([]byte, bool, error)
	Has(key []byte) (bool, error)
	Len() (int, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	ListKeys() ([][]byte, error)
	Merge() error
	Sync() error
	Stats() (core.Stats, error)
}

// Execute runs cmd against store and returns the text reply.
func Execute(store Store, cmd *Command) (string, error) {
	switch cmd.Cmd {
	case "get":
		return handleGet(store, cmd.Args[0])
	case "put", "set":
		return ok(store.Put([]byte(cmd.Args[0]), []byte(cmd.Args[1])))
	case "delete":
		return ok(store.Delete([]byte(cmd.Args[0])))
	case "exists":
		return handleExists(store, cmd.Args[0])
	case "count":
		return handleCount(store)
	case "list":
		return handleList(store)
	case "merge":
		return ok(store.Merge())
	case "sync":
		return ok(store.Sync())
	case "stats":
		return handleStats(store)
	case "help":
		return Help(), nil
	default:
		return "Invalid Command", nil
	}
}

func ok(err error) (string, error) {
	if err != nil {
		return "", err
	}
	return "ok", nil
}

func handleGet(store Store, key string) (string, error) {
	value, found, err := store.Get([]byte(key))
	if err != nil {
		return "", err
	}
	if !found {
		return "nil", nil
	}

	return string(value), nil
}

func handleExists(store Store, key string) (string, error) {
	found, err := store.Has([]byte(key))
	if err != nil {
		return "", err
	}

	return strconv.FormatBool(found), nil
}

func handleCount(store Store) (string, error) {
	count, err := store.Len()
	if err != nil {
		return "", err
	}

	return strconv.Itoa(count), nil
}

func handleList(store Store) (string, error) {
	keys, err := store.ListKeys()
	if err != nil {
		return "", err
	}

	if len(keys) == 0 {
		return "nil", nil
	}

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = string(k)
	}

	return "----- KEYS START -----\n" + strings.Join(lines, "\n") + "\n----- KEYS END -----", nil
}

func handleStats(store Store) (string, error) {
	stats, err := store.Stats()
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("keys: %d\ndatafiles: %d\ndisk bytes: %d", stats.Keys, stats.Datafiles, stats.DiskSize), nil
}

// Help returns the command reference shown by HELP.
func Help() string {
	helpString := `
Available Commands:

PUT <key> <value>   (alias: SET)
  Store a value for the given key.
  Overwrites the value if the key already exists.
  Quote keys or values containing spaces.
  Response: ok

GET <key>
  Retrieve the value associated with the key.
  Response: value | nil

DELETE <key>
  Delete the key and its value.
  Response: ok

EXISTS <key>
  Check if a key exists.
  Response: true | false

COUNT
  Return the total number of keys stored.
  Response: integer

LIST
  List all stored keys.
  Response: list of keys | nil

MERGE
  Compact datafiles, keeping only the latest value of each key.
  Response: ok

SYNC
  Flush pending writes to disk.
  Response: ok

STATS
  Show key count, datafile count and bytes on disk.

HELP
  Show this help message.

EXIT (cli only)
  Close the datastore and quit.
`

	return strings.TrimSpace(helpString)
}
