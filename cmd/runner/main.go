// Command runner loads a manifest, runs it to completion without the HTTP
// control surface, and exits. Exit code 0 means the run reached a steady
// state regardless of how many individual tests failed; a non-zero exit
// means a setup error (manifest parse, cyclic dependency, I/O failure).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"thorust/internal/config"
	"thorust/internal/dag"
	"thorust/internal/logger"
	"thorust/internal/manifest"
	"thorust/internal/runner"
	"thorust/internal/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to config.yaml")
	manifestPath := flag.String("manifest", "./manifest", "path to a manifest file or directory")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		return 1
	}

	runID := logger.GenerateRunID()
	if err := logger.InitLogger(cfg.Log.Dir, runID); err != nil {
		fmt.Fprintf(os.Stderr, "initializing logger: %v\n", err)
		return 1
	}
	defer logger.Close()

	store, err := storage.NewSQLiteStorage(cfg.Storage.Database.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "initializing storage: %v\n", err)
		return 1
	}
	defer store.Close()

	nodes, err := manifest.Load(*manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading manifest %q: %v\n", *manifestPath, err)
		return 1
	}
	graph, err := dag.NewGraph(nodes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "building graph: %v\n", err)
		return 1
	}
	workflow := dag.NewWorkflowFromManifest(graph, func() ([]dag.TestNode, error) {
		return manifest.Load(*manifestPath)
	})

	run, err := runner.New(workflow, store, cfg.Concurrency.MaxWorkers, runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "initializing runner: %v\n", err)
		return 1
	}
	defer run.Shutdown()

	summary, err := run.RunUntilComplete(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
		return 1
	}

	fmt.Printf("run %s complete in %s\n", runID, summary.Duration)
	for status, count := range summary.Counts {
		fmt.Printf("  %-16s %d\n", status, count)
	}
	return 0
}
