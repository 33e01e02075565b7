// Command server runs the orchestrator as a long-lived HTTP service: it
// loads a manifest once at startup and exposes the runner/node control
// surface over HTTP until told to shut down.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // profiling endpoints
	"os"
	"os/signal"
	"syscall"
	"time"

	"thorust/internal/api"
	"thorust/internal/config"
	"thorust/internal/dag"
	"thorust/internal/logger"
	"thorust/internal/manifest"
	"thorust/internal/metrics"
	"thorust/internal/runner"
	"thorust/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	manifestPath := flag.String("manifest", "./manifest", "path to a manifest file or directory")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	runID := logger.GenerateRunID()
	if err := logger.InitLogger(cfg.Log.Dir, runID); err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Close()

	store, err := storage.NewSQLiteStorage(cfg.Storage.Database.Path)
	if err != nil {
		log.Fatalf("initializing storage: %v", err)
	}
	defer store.Close()

	nodes, err := manifest.Load(*manifestPath)
	if err != nil {
		log.Fatalf("loading manifest %q: %v", *manifestPath, err)
	}
	graph, err := dag.NewGraph(nodes)
	if err != nil {
		log.Fatalf("building graph: %v", err)
	}
	workflow := dag.NewWorkflowFromManifest(graph, func() ([]dag.TestNode, error) {
		return manifest.Load(*manifestPath)
	})

	run, err := runner.New(workflow, store, cfg.Concurrency.MaxWorkers, runID)
	if err != nil {
		log.Fatalf("initializing runner: %v", err)
	}
	defer run.Shutdown()

	mux := http.NewServeMux()
	api.NewServer(run).Routes(mux)
	mux.Handle("/metrics", metrics.Handler())

	addr := fmt.Sprintf(":%d", cfg.API.Port)
	httpServer := &http.Server{Addr: addr, Handler: mux}

	log.Printf("orchestrator server starting on %s (manifest=%s, run_id=%s)", addr, *manifestPath, runID)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("shutting down orchestrator server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			log.Printf("server shutdown error: %v", err)
		}
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
