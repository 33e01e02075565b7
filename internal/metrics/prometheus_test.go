package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNodeExecutionMetrics(t *testing.T) {
	RecordNodeExecution("Completed", 1.2)
	if got := testutil.ToFloat64(nodeExecutions.WithLabelValues("Completed")); got < 1 {
		t.Fatalf("expected node execution counter >= 1, got %v", got)
	}
}

func TestActiveRunsGauge(t *testing.T) {
	IncrementActiveRuns()
	if got := testutil.ToFloat64(activeRuns); got != 1 {
		t.Fatalf("expected active runs 1, got %v", got)
	}
	DecrementActiveRuns()
	if got := testutil.ToFloat64(activeRuns); got != 0 {
		t.Fatalf("expected active runs 0, got %v", got)
	}
}

func TestBatchDurationObserves(t *testing.T) {
	RecordBatchDuration(0.5)
}
