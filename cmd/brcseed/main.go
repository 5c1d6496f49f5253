package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jittakal/onebrc/internal/aggregate"
	"github.com/jittakal/onebrc/internal/reference"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		stop()
		log.Fatalf("application error: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("brcseed", flag.ContinueOnError)
	fs.SetOutput(stderr)
	keysPath := fs.String("keys", "", "newline separated station names")
	measurementsPath := fs.String("measurements", "", "measurements file to take station names from")
	tableSize := fs.Int("table-size", 32768, "aggregate table slots")
	hashName := fs.String("hash", aggregate.HashFingerprint, "hash family: fingerprint or xxhash")
	seed := fs.Uint64("seed", 0, "seed to check")
	maxSeed := fs.Uint64("max-seed", 0, "search seeds 0..max-seed when the checked seed collides")
	if err := fs.Parse(args); err != nil {
		return err
	}

	family, err := aggregate.ByName(*hashName)
	if err != nil {
		return err
	}

	var keys []string
	switch {
	case *keysPath != "":
		keys, err = readKeys(*keysPath)
	case *measurementsPath != "":
		keys, err = stationNames(*measurementsPath)
	default:
		return fmt.Errorf("one of -keys or -measurements is required")
	}
	if err != nil {
		return err
	}

	collisions := aggregate.CheckCollisions(keys, *tableSize, family(*seed))
	fmt.Fprintf(stdout, "keys=%d table_size=%d hash=%s seed=%d collisions=%d\n",
		len(keys), *tableSize, *hashName, *seed, collisions)
	if collisions == 0 || *maxSeed == 0 {
		return nil
	}

	found, ok := aggregate.FindSeed(ctx, keys, *tableSize, *maxSeed, family)
	if !ok {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "no collision free seed in 0..%d\n", *maxSeed)
		return nil
	}
	fmt.Fprintf(stdout, "collision free seed=%d\n", found)
	return nil
}

func readKeys(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keys: %w", err)
	}
	defer f.Close()

	var keys []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if key := strings.TrimRight(sc.Text(), "\r"); key != "" {
			keys = append(keys, key)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read keys: %w", err)
	}
	return keys, nil
}

func stationNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open measurements: %w", err)
	}
	defer f.Close()

	table, err := reference.Aggregate(f)
	if err != nil {
		return nil, err
	}
	return table.Names(), nil
}
