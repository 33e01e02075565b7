package runner

import (
	"context"
	"testing"

	"thorust/internal/dag"
	"thorust/internal/storage"
)

func node(id, command string, deps ...string) dag.TestNode {
	return dag.TestNode{
		ID:            id,
		DependsOn:     deps,
		StatusHistory: []dag.Status{dag.StatusNotStarted},
		Executable: dag.TestExecutable{
			ID:      id,
			Name:    id,
			Kind:    dag.KindScripts,
			Command: command,
		},
	}
}

func newTestRunner(t *testing.T, nodes []dag.TestNode) (*Runner, storage.Storage) {
	t.Helper()
	g, err := dag.NewGraph(nodes)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	wf := dag.NewWorkflow(g)

	store, err := storage.NewSQLiteStorage(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	r, err := New(wf, store, 2, "test-run")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(r.Shutdown)
	return r, store
}

func TestRunUntilCompleteRunsLinearChain(t *testing.T) {
	r, _ := newTestRunner(t, []dag.TestNode{
		node("a", "exit 0"),
		node("b", "exit 0", "a"),
		node("c", "exit 0", "b"),
	})

	summary, err := r.RunUntilComplete(context.Background())
	if err != nil {
		t.Fatalf("RunUntilComplete: %v", err)
	}
	if summary.Counts[dag.StatusCompleted] != 3 {
		t.Fatalf("expected 3 completed nodes, got %v", summary.Counts)
	}
}

func TestRunUntilCompletePropagatesSkipOnFailure(t *testing.T) {
	r, _ := newTestRunner(t, []dag.TestNode{
		node("a", "exit 1"),
		node("b", "exit 0", "a"),
	})

	summary, err := r.RunUntilComplete(context.Background())
	if err != nil {
		t.Fatalf("RunUntilComplete: %v", err)
	}
	if summary.Counts[dag.StatusFailed] != 1 {
		t.Fatalf("expected 1 failed node, got %v", summary.Counts)
	}
	if summary.Counts[dag.StatusSkipped] != 1 {
		t.Fatalf("expected 1 skipped node, got %v", summary.Counts)
	}
}

func TestRunUntilCompletePersistsHistory(t *testing.T) {
	r, store := newTestRunner(t, []dag.TestNode{node("a", "exit 0")})

	if _, err := r.RunUntilComplete(context.Background()); err != nil {
		t.Fatalf("RunUntilComplete: %v", err)
	}

	history, err := store.GetNodeHistory(0)
	if err != nil {
		t.Fatalf("GetNodeHistory: %v", err)
	}
	if len(history) < 2 {
		t.Fatalf("expected at least Running and Completed rows, got %d", len(history))
	}
}

func TestResetRequiresManifestBackedWorkflow(t *testing.T) {
	r, _ := newTestRunner(t, []dag.TestNode{node("a", "exit 0")})

	if _, err := r.RunUntilComplete(context.Background()); err != nil {
		t.Fatalf("RunUntilComplete: %v", err)
	}
	if err := r.Reset(); err == nil {
		t.Fatal("expected Reset to fail on a graph-only workflow")
	}
}
