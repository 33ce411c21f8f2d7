/*
	Churn-heavy load generator: overwrites and deletes a small key universe
	from several goroutines so that many datafiles fill up with garbage, then
	merges and prints the datastore stats before and after.

	go run ./scripts -dir ./data -dfsize 1
*/

package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/0xRadioAc7iv/bitcaskdb/core"
	"github.com/0xRadioAc7iv/bitcaskdb/internal/command"
	"github.com/0xRadioAc7iv/bitcaskdb/internal/logging"
	"github.com/0xRadioAc7iv/bitcaskdb/internal/utils"
)

const (
	concurrency = 6

	// Fixed universe
	totalKeys   = 100
	totalValues = 100

	// Per-cycle behavior
	keysPerCycleWrite  = 20
	keysPerCycleDelete = 10
	cyclesPerWorker    = 5000

	progressEvery = 500
)

func main() {
	fs := flag.NewFlagSet("data-gen", flag.ExitOnError)

	cfg, err := utils.HandleCLIInputs(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.ReadWrite = true

	logger := logging.CreateLogger(cfg.LogLevel, os.Stderr)

	bk, err := command.OpenStore(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Str("dir", cfg.Dir).Msg("unable to open datastore")
		os.Exit(1)
	}
	defer bk.Close()

	start := time.Now()
	fmt.Println("Starting Bitcask churn-heavy load generator")

	keys := makeKeys(totalKeys)
	values := makeValues(totalValues)

	var g errgroup.Group
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			return runWorker(bk, i, keys, values)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("load failed")
		return
	}
	fmt.Printf("Load finished in %v\n", time.Since(start))

	printStats(bk, "before merge")

	mergeStart := time.Now()
	if err := bk.Merge(); err != nil {
		logger.Error().Err(err).Msg("merge failed")
		return
	}
	fmt.Printf("Merge finished in %v\n", time.Since(mergeStart))

	printStats(bk, "after merge")
}

func runWorker(bk *core.Bitcask, id int, keys [][]byte, values [][]byte) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))

	for cycle := 1; cycle <= cyclesPerWorker; cycle++ {

		// ---- WRITE / OVERWRITE PHASE ----
		for i := 0; i < keysPerCycleWrite; i++ {
			key := keys[rng.Intn(len(keys))]
			val := values[rng.Intn(len(values))]

			if err := bk.Put(key, val); err != nil {
				return fmt.Errorf("worker %d: put: %w", id, err)
			}
		}

		// ---- DELETE PHASE ----
		for i := 0; i < keysPerCycleDelete; i++ {
			key := keys[rng.Intn(len(keys))]

			if err := bk.Delete(key); err != nil {
				return fmt.Errorf("worker %d: delete: %w", id, err)
			}
		}

		// ---- REWRITE PHASE (forces overwrite garbage) ----
		for i := 0; i < keysPerCycleWrite/2; i++ {
			key := keys[rng.Intn(len(keys))]
			val := values[rng.Intn(len(values))]

			if err := bk.Put(key, val); err != nil {
				return fmt.Errorf("worker %d: rewrite: %w", id, err)
			}
		}

		if cycle%progressEvery == 0 {
			fmt.Printf("[worker %d] completed %d cycles\n", id, cycle)
		}
	}

	return nil
}

func printStats(bk *core.Bitcask, label string) {
	stats, err := bk.Stats()
	if err != nil {
		fmt.Printf("stats %s: %v\n", label, err)
		return
	}

	fmt.Printf("%s: %d keys, %d datafiles, %d bytes on disk\n", label, stats.Keys, stats.Datafiles, stats.DiskSize)
}

func makeKeys(n int) [][]byte {
	keys := make([][]byte, n)
	for i := 0; i < n; i++ {
		keys[i] = []byte(fmt.Sprintf("key-%03d", i))
	}
	return keys
}

func makeValues(n int) [][]byte {
	values := make([][]byte, n)
	for i := 0; i < n; i++ {
		values[i] = []byte(fmt.Sprintf("value-%03d-xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx", i))
	}
	return values
}
