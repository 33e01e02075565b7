package executor

import (
	"context"
	"testing"

	"thorust/internal/dag"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		expected *dag.ExpectedResponse
		wantErr  bool
		wantAF   bool
	}{
		{name: "success", command: "echo hello"},
		{name: "nonzero exit", command: "exit 1", wantErr: true},
		{
			name:     "assertion mismatch",
			command:  "echo hello",
			expected: &dag.ExpectedResponse{Body: strPtr("goodbye")},
			wantAF:   true,
		},
		{
			name:     "assertion match",
			command:  "echo hello world",
			expected: &dag.ExpectedResponse{Body: strPtr("hello")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executable := dag.TestExecutable{Name: tt.name, Command: tt.command, Expected: tt.expected}
			result, err := Run(context.Background(), executable)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Run() error = %v, wantErr %v", err, tt.wantErr)
			}
			if result.AssertionFailed != tt.wantAF {
				t.Fatalf("Run() AssertionFailed = %v, want %v", result.AssertionFailed, tt.wantAF)
			}
		})
	}
}

func strPtr(s string) *string { return &s }
