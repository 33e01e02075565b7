// Package manifest discovers, parses, merges, and normalizes test manifest
// files into dag.TestNode values.
package manifest

import (
	"fmt"
	"strings"

	"thorust/internal/dag"
)

// hasServicePrefix reports whether dep's leading dotted segment names one of
// the known services.
func hasServicePrefix(dep string, serviceNames []string) bool {
	head, _, _ := strings.Cut(dep, ".")
	for _, name := range serviceNames {
		if head == name {
			return true
		}
	}
	return false
}

// Base is the merged, kind-partitioned manifest: the scripts and grpc test
// definitions collected from one or more files.
type Base struct {
	Scripts *ScriptsFile
	Grpc    *GrpcFile
}

// Add merges other into a copy of b, concatenating each kind's services
// list. Matches the directory-discovery rule that same-kind manifests
// combine rather than override each other.
func (b Base) Add(other Base) Base {
	out := Base{}
	if b.Scripts != nil || other.Scripts != nil {
		merged := &ScriptsFile{}
		if b.Scripts != nil {
			merged.merge(b.Scripts)
		}
		if other.Scripts != nil {
			merged.merge(other.Scripts)
		}
		out.Scripts = merged
	}
	if b.Grpc != nil || other.Grpc != nil {
		merged := &GrpcFile{}
		if b.Grpc != nil {
			merged.merge(b.Grpc)
		}
		if other.Grpc != nil {
			merged.merge(other.Grpc)
		}
		out.Grpc = merged
	}
	return out
}

// Normalize rewrites ids in place and returns the resulting TestNodes.
// It fails with a ManifestError if any depends_on entry does not resolve to
// a known node id after rewriting — every dependency must resolve, not
// merely at least one.
func (b *Base) Normalize() ([]dag.TestNode, error) {
	if b.Scripts != nil {
		b.Scripts.formatTestIDs()
	}
	if b.Grpc != nil {
		b.Grpc.formatTestIDs()
	}

	var nodes []dag.TestNode
	if b.Scripts != nil {
		nodes = append(nodes, b.Scripts.asTestNodes()...)
	}
	if b.Grpc != nil {
		nodes = append(nodes, b.Grpc.asTestNodes()...)
	}

	if err := checkDependsOn(nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// checkDependsOn verifies every depends_on entry resolves to a known node
// id. Every dependency of every node must resolve, not merely one of them.
func checkDependsOn(nodes []dag.TestNode) error {
	ids := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = true
	}
	for _, n := range nodes {
		for _, dep := range n.DependsOn {
			if !ids[dep] {
				return &Error{Msg: fmt.Sprintf("test %q depends on %q which does not exist", n.ID, dep)}
			}
		}
	}
	return nil
}

// Error is returned for manifest parse/normalize failures.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }
