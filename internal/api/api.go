// Package api exposes the HTTP control surface over a running Runner: node
// listings and the DOT graph as JSON/Graphviz text, and the batch/running/
// available/reset control verbs as plain text.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"thorust/internal/dag"
	"thorust/internal/runner"
)

// Server wires a Runner into an http.ServeMux.
type Server struct {
	run *runner.Runner
}

// NewServer constructs an api.Server for run.
func NewServer(run *runner.Runner) *Server {
	return &Server{run: run}
}

// Routes registers every control-surface route on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/runner/batch", s.handleBatch)
	mux.HandleFunc("/runner/all", s.handleAll)
	mux.HandleFunc("/runner/running", s.handleRunning)
	mux.HandleFunc("/runner/available", s.handleAvailable)
	mux.HandleFunc("/runner/reset", s.handleReset)
	mux.HandleFunc("/nodes", s.handleNodes)
	mux.HandleFunc("/nodes/", s.handleNodeByID)
	mux.HandleFunc("/dot", s.handleDot)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	fmt.Fprintln(w, err.Error())
}

func writePlain(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, msg)
}

// handleBatch executes one batch over the current frontier and returns a
// plain-text confirmation once the batch has been joined.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	frontier := s.run.Workflow().Availables()
	if err := s.run.BatchExecute(r.Context(), frontier); err != nil {
		writeError(w, err)
		return
	}
	writePlain(w, fmt.Sprintf("batch executed: %d node(s)", len(frontier)))
}

// handleAll drives the run to completion and returns the resulting graph
// state as Graphviz DOT.
func (s *Server) handleAll(w http.ResponseWriter, r *http.Request) {
	if _, err := s.run.RunUntilComplete(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, s.run.Workflow().AsDot())
}

// handleRunning reports, as plain text, whether any node is currently Running.
func (s *Server) handleRunning(w http.ResponseWriter, r *http.Request) {
	view := s.run.Workflow().Filter(dag.RunningFilter())
	writePlain(w, fmt.Sprintf("%t", view.NodeCount() > 0))
}

// handleAvailable reports, as plain text, whether the current frontier is
// non-empty.
func (s *Server) handleAvailable(w http.ResponseWriter, r *http.Request) {
	writePlain(w, fmt.Sprintf("%t", len(s.run.Workflow().Availables()) > 0))
}

// handleReset clears persisted history and rebuilds the Workflow, returning
// a plain-text confirmation.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.run.Reset(); err != nil {
		writeError(w, err)
		return
	}
	writePlain(w, "reset complete")
}

// handleNodes returns every node in the graph as JSON.
func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.run.Workflow().AllNodes())
}

// handleNodeByID returns a single node by id, or 400 if it doesn't exist.
func (s *Server) handleNodeByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/nodes/")
	if id == "" {
		writeError(w, fmt.Errorf("node id is required"))
		return
	}
	node, ok := s.run.Workflow().Node(id)
	if !ok {
		writeError(w, fmt.Errorf("unknown node %q", id))
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// handleDot serves the current graph state in Graphviz DOT format.
func (s *Server) handleDot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, s.run.Workflow().AsDot())
}

