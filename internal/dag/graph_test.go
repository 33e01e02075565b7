package dag

import "testing"

func node(id string, deps ...string) TestNode {
	return TestNode{ID: id, DependsOn: deps, StatusHistory: []Status{StatusNotStarted}}
}

func TestNewGraph(t *testing.T) {
	tests := []struct {
		name    string
		nodes   []TestNode
		wantErr bool
	}{
		{
			name:  "linear chain",
			nodes: []TestNode{node("a"), node("b", "a"), node("c", "b")},
		},
		{
			name:    "unresolved dependency",
			nodes:   []TestNode{node("a", "missing")},
			wantErr: true,
		},
		{
			name:    "simple cycle",
			nodes:   []TestNode{node("a", "b"), node("b", "a")},
			wantErr: true,
		},
		{
			name:  "diamond",
			nodes: []TestNode{node("a"), node("b", "a"), node("c", "a"), node("d", "b", "c")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGraph(tt.nodes)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewGraph() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGraphFrontier(t *testing.T) {
	nodes := []TestNode{node("a"), node("b", "a"), node("c")}
	g, err := NewGraph(nodes)
	if err != nil {
		t.Fatalf("NewGraph() error = %v", err)
	}

	frontier := g.Frontier()
	if len(frontier) != 2 {
		t.Fatalf("expected 2 frontier nodes (a, c), got %d", len(frontier))
	}

	aIdx, _ := g.IndexOf("a")
	completed := g.Nodes[aIdx].WithStatus(StatusCompleted)
	if err := g.Set(completed); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	frontier = g.Frontier()
	if len(frontier) != 2 || frontier[0].ID != "b" || frontier[1].ID != "c" {
		t.Fatalf("expected frontier {b, c} once a is completed, got %v", frontier)
	}
}

func TestGraphFilterAndOrphans(t *testing.T) {
	nodes := []TestNode{node("a"), node("b", "a"), node("c", "b")}
	g, err := NewGraph(nodes)
	if err != nil {
		t.Fatalf("NewGraph() error = %v", err)
	}

	view := g.Filter(AllFilter())
	if view.NodeCount() != 3 {
		t.Fatalf("expected 3 nodes in full view, got %d", view.NodeCount())
	}
	orphans := view.Orphans()
	if len(orphans) != 1 || orphans[0].ID != "a" {
		t.Fatalf("expected orphan {a}, got %v", orphans)
	}

	notStarted := g.Filter(NotStartedFilter())
	if notStarted.NodeCount() != 3 {
		t.Fatalf("expected 3 not-started nodes, got %d", notStarted.NodeCount())
	}
}

func TestGraphAsDot(t *testing.T) {
	nodes := []TestNode{node("a"), node("b", "a")}
	g, err := NewGraph(nodes)
	if err != nil {
		t.Fatalf("NewGraph() error = %v", err)
	}
	dot := g.AsDot()
	if dot == "" {
		t.Fatal("AsDot() returned empty string")
	}
}
