// Package runner drives a Workflow to completion: it schedules frontier
// nodes onto a bounded worker pool, persists every status transition, and
// emits logs, metrics, and trace spans for each run.
package runner

import (
	"context"
	"fmt"
	"time"

	"thorust/internal/concurrency"
	"thorust/internal/dag"
	"thorust/internal/executor"
	"thorust/internal/logger"
	"thorust/internal/metrics"
	"thorust/internal/storage"
)

// Runner wraps a Workflow, a Storage backend, and a worker pool, and owns
// the Execute/BatchExecute/RunUntilComplete protocol described for the
// orchestrator's core loop.
type Runner struct {
	workflow *dag.Workflow
	store    storage.Storage
	pool     *concurrency.WorkerPool
	runID    string
}

// New constructs a Runner and seeds storage with the Workflow's initial
// nodes and DOT snapshot.
func New(workflow *dag.Workflow, store storage.Storage, maxWorkers int, runID string) (*Runner, error) {
	pool := concurrency.NewWorkerPool(maxWorkers)
	if err := pool.Start(); err != nil {
		return nil, fmt.Errorf("starting worker pool: %w", err)
	}

	r := &Runner{
		workflow: workflow,
		store:    store,
		pool:     pool,
		runID:    runID,
	}

	if err := r.seed(); err != nil {
		return nil, err
	}
	return r, nil
}

// seed persists every node's initial definition and status, and a DOT
// snapshot of the fresh graph. Persistence failures are logged, not fatal.
func (r *Runner) seed() error {
	for _, n := range r.workflow.AllNodes() {
		row := storage.NodeRow{
			ID:          n.Index,
			TestID:      n.ID,
			Name:        n.Executable.Name,
			Description: n.Executable.Description,
			Service:     n.Executable.Service,
		}
		if err := r.store.InsertTestNode(row, string(n.CurrentStatus())); err != nil {
			logger.LogEvent(context.Background(), r.runID, "storage", "seed_node_failed", map[string]string{
				"node": n.ID, "error": err.Error(),
			})
		}
	}
	if _, err := r.store.InsertDot(r.workflow.AsDot()); err != nil {
		logger.LogEvent(context.Background(), r.runID, "storage", "seed_dot_failed", map[string]string{"error": err.Error()})
	}
	return nil
}

// onChange is the callback passed to every UpdateGraphState call: it
// persists the transition and logs it. It never returns an error — failures
// are recorded and swallowed per the best-effort persistence contract.
func (r *Runner) onChange(node dag.TestNode, dot string) {
	status := node.CurrentStatus()

	var data *string
	if node.Executable.Output != nil {
		data = node.Executable.Output
	}
	if _, err := r.store.InsertNodeHistory(string(status), node.Index, data); err != nil {
		logger.LogEvent(context.Background(), r.runID, "storage", "insert_history_failed", map[string]string{
			"node": node.ID, "error": err.Error(),
		})
	}
	if _, err := r.store.InsertDot(dot); err != nil {
		logger.LogEvent(context.Background(), r.runID, "storage", "insert_dot_failed", map[string]string{"error": err.Error()})
	}

	logger.LogEvent(context.Background(), r.runID, "runner", "node_status_change", map[string]string{
		"node": node.ID, "status": string(status),
	})
}

// Execute runs the single-node execution protocol for node: Running, then
// the executor adapter, then Completed/Failed/AssertionFailed. It returns
// the executor's result (possibly zero-value on an early error) alongside
// any error from either the execution itself or the bookkeeping writes.
func (r *Runner) Execute(ctx context.Context, node dag.TestNode) (executor.Result, error) {
	ctx, span := metrics.StartSpan(ctx, "runner.execute_node")
	defer span.End()

	start := time.Now()

	running := node.WithStatus(dag.StatusRunning)
	if err := r.workflow.UpdateGraphState(running, r.onChange); err != nil {
		return executor.Result{}, fmt.Errorf("marking %s running: %w", node.ID, err)
	}

	result, runErr := executor.Run(ctx, node.Executable)
	duration := time.Since(start).Seconds()

	var finalStatus dag.Status
	switch {
	case runErr != nil:
		finalStatus = dag.StatusFailed
		metrics.RecordSpanError(ctx, runErr)
	case result.AssertionFailed:
		finalStatus = dag.StatusAssertionFailed
	default:
		finalStatus = dag.StatusCompleted
	}

	output := result.Output
	finished := running
	finished.Executable.Output = &output
	finished.Executable.ExitCode = &result.ExitCode
	finished = finished.WithStatus(finalStatus)

	metrics.RecordNodeExecution(string(finalStatus), duration)

	if err := r.workflow.UpdateGraphState(finished, r.onChange); err != nil {
		return result, fmt.Errorf("recording terminal status for %s: %w", node.ID, err)
	}

	return result, runErr
}

// BatchExecute submits one task per node to the worker pool and blocks
// until every task has run, draining the pool's own result queue so workers
// never stall trying to report a completion nobody is waiting for. A
// failure in one task does not cancel others.
func (r *Runner) BatchExecute(ctx context.Context, nodes []dag.TestNode) error {
	if len(nodes) == 0 {
		return nil
	}

	var submitErr error
	counted := make(chan int, 1)
	go func() {
		submitted := 0
		for _, n := range nodes {
			n := n
			task := concurrency.Task{
				ID: n.ID,
				Execute: func(taskCtx context.Context) error {
					_, err := r.Execute(taskCtx, n)
					return err
				},
			}
			if err := r.pool.Submit(task); err != nil {
				if submitErr == nil {
					submitErr = err
				}
				continue
			}
			submitted++
		}
		counted <- submitted
	}()

	var first error
	for total, received := -1, 0; total < 0 || received < total; {
		select {
		case total = <-counted:
		case result := <-r.pool.Results():
			received++
			if result.Error != nil && first == nil {
				first = result.Error
			}
		}
	}
	if first == nil {
		first = submitErr
	}
	return first
}

// RunSummary is the per-status node count (every node, keyed by its current
// status) emitted at the end of a RunUntilComplete pass.
type RunSummary struct {
	Counts   map[dag.Status]int
	Duration time.Duration
}

// RunUntilComplete repeatedly batches the current frontier until it is
// empty. A cancelled context stops scheduling new batches, but an
// in-flight batch is always joined before returning.
func (r *Runner) RunUntilComplete(ctx context.Context) (RunSummary, error) {
	metrics.IncrementActiveRuns()
	defer metrics.DecrementActiveRuns()

	start := time.Now()
	for {
		frontier := r.workflow.Availables()
		if len(frontier) == 0 {
			break
		}
		if err := r.BatchExecute(ctx, frontier); err != nil {
			logger.LogEvent(ctx, r.runID, "runner", "batch_error", map[string]string{"error": err.Error()})
		}
		if ctx.Err() != nil {
			break
		}
	}

	duration := time.Since(start)
	metrics.RecordBatchDuration(duration.Seconds())

	summary := RunSummary{Counts: make(map[dag.Status]int), Duration: duration}
	for _, n := range r.workflow.AllNodes() {
		summary.Counts[n.CurrentStatus()]++
	}

	payload := map[string]interface{}{"duration_ms": duration.Milliseconds()}
	for status, count := range summary.Counts {
		payload[string(status)] = count
	}
	logger.LogEvent(ctx, r.runID, "runner", "run_summary", payload)

	return summary, nil
}

// Reset clears persisted history and rebuilds the Workflow from its
// originating manifest, then re-seeds storage.
func (r *Runner) Reset() error {
	if err := r.workflow.Reset(); err != nil {
		return err
	}
	if err := r.store.Reset(); err != nil {
		logger.LogEvent(context.Background(), r.runID, "storage", "reset_failed", map[string]string{"error": err.Error()})
	}
	return r.seed()
}

// Shutdown stops the worker pool, joining any in-flight tasks.
func (r *Runner) Shutdown() {
	r.pool.Shutdown()
}

// Workflow exposes the underlying Workflow for read-only queries (used by
// the API layer).
func (r *Runner) Workflow() *dag.Workflow {
	return r.workflow
}
