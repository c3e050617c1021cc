package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/erasrts/server/internal/command"
	"github.com/erasrts/server/internal/config"
	"github.com/erasrts/server/internal/data"
	"github.com/erasrts/server/internal/match"
)

// checksum replays a command log and prints the per-tick state checksum.
// Feed it the same log on two builds (or two machines) and diff the output:
// the first differing line is the tick where determinism broke.
//
// Input is JSONL on stdin, one command per line, in canonical order.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	dataDir := flag.String("data", "data/yaml", "content directory")
	ticks := flag.Uint64("ticks", 0, "ticks to replay (0 = through last command)")
	full := flag.Bool("full", false, "print full 32-byte digests instead of 8-byte sums")
	flag.Parse()

	byTick, lastTick, err := readLog(os.Stdin)
	if err != nil {
		return err
	}
	end := lastTick + 1
	if *ticks > 0 {
		end = *ticks
	}

	content, err := data.LoadContent(*dataDir)
	if err != nil {
		return fmt.Errorf("load content: %w", err)
	}

	cfg := config.Defaults()
	cfg.Lockstep.Peers = 1

	log := zap.NewNop()
	session, err := match.NewSession(cfg, content, 1, []int32{1}, log, match.Options{})
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	defer session.Close()

	ctx := context.Background()
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	for tick := uint64(0); tick < end; tick++ {
		if err := session.SubmitLocal(tick, byTick[tick]); err != nil {
			return fmt.Errorf("tick %d: %w", tick, err)
		}
		advanced, err := session.Step(ctx, false)
		if err != nil {
			return err
		}
		if !advanced {
			return fmt.Errorf("tick %d did not resolve", tick)
		}
		if *full {
			fmt.Fprintf(out, "%d %064x\n", tick, session.Checksum())
		} else {
			fmt.Fprintf(out, "%d %016x\n", tick, session.LastChecksum())
		}
	}
	return nil
}

func readLog(f *os.File) (map[uint64][]command.Command, uint64, error) {
	byTick := make(map[uint64][]command.Command)
	var lastTick uint64

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var c command.Command
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, 0, fmt.Errorf("line %d: %w", line, err)
		}
		byTick[c.Tick] = append(byTick[c.Tick], c)
		if c.Tick > lastTick {
			lastTick = c.Tick
		}
	}
	if err := sc.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log: %w", err)
	}
	return byTick, lastTick, nil
}
