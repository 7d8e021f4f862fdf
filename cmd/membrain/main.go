// cmd/membrain is a thin smoke harness: it wires a brain.Brain from
// pkg/config and drives Process/Recall/Sleep from stdin lines. It is not a
// CLI or HTTP surface; it exists to exercise the library end to end the way
// a human would at a REPL.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/coldforge/membrain/internal/brain"
	"github.com/coldforge/membrain/internal/embedder"
	"github.com/coldforge/membrain/internal/embedder/external"
	"github.com/coldforge/membrain/pkg/config"
)

func main() {
	dbPath := flag.String("db", "", "database directory (overrides MEMBRAIN_DB_PATH and config file)")
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.LoadMembrainConfig(*configPath)
	if err != nil {
		log.Fatalf("[FATAL] membrain: load config: %v", err)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	emb, err := buildEmbedder(cfg)
	if err != nil {
		log.Fatalf("[FATAL] membrain: build embedder: %v", err)
	}

	b, err := brain.OpenWithConfig(cfg.DBPath, emb, brain.Config{
		CacheCapacity:    cfg.CacheCapacity,
		BloomExpected:    cfg.BloomExpected,
		BloomFPR:         cfg.BloomFPR,
		HNSWSeed:         cfg.HNSWSeed,
		MaxContentTokens: cfg.MaxContentTokens,
		SnapshotPath:     cfg.SnapshotPath,
	})
	if err != nil {
		log.Fatalf("[FATAL] membrain: open brain: %v", err)
	}
	defer b.Close()

	log.Printf("[OK] membrain: ready at %s (embedder=%s). Commands: process <text> | recall <query> | sleep | rebuild | strength <id> <value> | quit", cfg.DBPath, cfg.Embedder)
	runREPL(b, os.Stdin, os.Stdout)
}

func buildEmbedder(cfg *config.MembrainConfig) (embedder.Embedder, error) {
	switch cfg.Embedder {
	case "", "hash":
		dim := cfg.EmbeddingDim
		if dim <= 0 {
			dim = 384
		}
		return embedder.NewHashBag(dim), nil
	case "openai":
		return external.NewOpenAI(cfg.APIKey, cfg.EmbeddingModel, cfg.EmbeddingDim)
	default:
		return nil, fmt.Errorf("unknown embedder %q", cfg.Embedder)
	}
}

func runREPL(b *brain.Brain, in *os.File, out *os.File) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		switch strings.ToLower(cmd) {
		case "process":
			id, err := b.Process(arg, "")
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "ok id=%s\n", id)
		case "recall":
			results, err := b.Recall(context.Background(), arg, 5)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			for _, r := range results {
				fmt.Fprintf(out, "%s\t%.3f\t%s\n", r.ID, r.Strength, r.Content)
			}
		case "sleep":
			report, err := b.Sleep(time.Now().UnixMilli())
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "moved=%d decayed=%d forgotten=%d\n", report.Moved, report.Decayed, report.Forgotten)
		case "rebuild":
			stats, err := b.RebuildIndexes()
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "docs=%d keywords=%d ann=%d\n", stats.Docs, stats.Keywords, stats.AnnCount)
		case "strength":
			id, rest, ok := strings.Cut(arg, " ")
			if !ok {
				fmt.Fprintln(out, "error: usage: strength <id> <value>")
				continue
			}
			val, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			if err := b.UpdateStrength(id, val); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintln(out, "ok")
		case "quit", "exit":
			return
		default:
			fmt.Fprintf(out, "unknown command %q\n", cmd)
		}
	}
}
