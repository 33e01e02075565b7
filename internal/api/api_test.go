package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"thorust/internal/dag"
	"thorust/internal/runner"
	"thorust/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	nodes := []dag.TestNode{
		{ID: "a", StatusHistory: []dag.Status{dag.StatusNotStarted}, Executable: dag.TestExecutable{Name: "a", Command: "exit 0"}},
		{ID: "b", DependsOn: []string{"a"}, StatusHistory: []dag.Status{dag.StatusNotStarted}, Executable: dag.TestExecutable{Name: "b", Command: "exit 0"}},
	}
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

	run, err := runner.New(wf, store, 2, "test-run")
	if err != nil {
		t.Fatalf("runner.New: %v", err)
	}
	t.Cleanup(run.Shutdown)

	mux := http.NewServeMux()
	NewServer(run).Routes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAvailableReturnsFrontier(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/runner/available")
	if err != nil {
		t.Fatalf("GET /runner/available: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if got := strings.TrimSpace(string(body)); got != "true" {
		t.Fatalf("expected non-empty frontier (true), got %q", got)
	}
}

func TestNodeByIDUnknownReturns400(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/nodes/does-not-exist")
	if err != nil {
		t.Fatalf("GET /nodes/does-not-exist: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestDotServesGraphvizText(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/dot")
	if err != nil {
		t.Fatalf("GET /dot: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/vnd.graphviz" {
		t.Fatalf("expected graphviz content type, got %q", ct)
	}
}

func TestRunningReturnsPlainTextBoolean(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/runner/running")
	if err != nil {
		t.Fatalf("GET /runner/running: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	got := strings.TrimSpace(string(body))
	if got != "true" && got != "false" {
		t.Fatalf("expected plain-text boolean, got %q", got)
	}
}

func TestAllDrivesRunToCompletionAndReturnsDot(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/runner/all")
	if err != nil {
		t.Fatalf("GET /runner/all: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/vnd.graphviz" {
		t.Fatalf("expected graphviz content type, got %q", ct)
	}

	available, err := http.Get(srv.URL + "/runner/available")
	if err != nil {
		t.Fatalf("GET /runner/available: %v", err)
	}
	defer available.Body.Close()
	body, _ := io.ReadAll(available.Body)
	if strings.TrimSpace(string(body)) != "false" {
		t.Fatalf("expected frontier to be empty after running to completion, got %q", string(body))
	}
}
