package dag

import "encoding/json"

// dotView is the JSON-friendly shape of a Graph snapshot, as returned by
// Graph.AsJSON and Workflow.AsJSON.
type dotView struct {
	Nodes []TestNode `json:"nodes"`
	Edges []Edge     `json:"edges"`
}

// AsJSON renders the full graph — every node and edge — as JSON.
func (g *Graph) AsJSON() (string, error) {
	v := dotView{Nodes: g.Nodes, Edges: g.Edges}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// AsJSON renders the workflow's current graph state as JSON.
func (w *Workflow) AsJSON() (string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.graph.AsJSON()
}
