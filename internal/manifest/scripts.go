package manifest

import (
	"github.com/google/uuid"

	"thorust/internal/dag"
)

// ScriptsFile is the manifest shape for kind "scripts": shell commands run
// directly, grouped by owning service.
type ScriptsFile struct {
	Services []ScriptService `yaml:"services" json:"services"`
}

type ScriptService struct {
	Name  string      `yaml:"name" json:"name"`
	Tests []ScriptTest `yaml:"tests" json:"tests"`
}

type ScriptTest struct {
	Name        string   `yaml:"name" json:"name"`
	ID          string   `yaml:"id" json:"id"`
	DependsOn   []string `yaml:"depends_on" json:"depends_on"`
	Command     string   `yaml:"command" json:"command"`
	Description string   `yaml:"description" json:"description"`
}

// formatTestIDs rewrites every test id and depends_on entry to
// <service>.<local_id>, inferring the owning service for a depends_on entry
// whose leading dotted segment is not a recognized service name.
func (f *ScriptsFile) formatTestIDs() {
	names := make([]string, len(f.Services))
	for i, s := range f.Services {
		names[i] = s.Name
	}
	for i := range f.Services {
		svc := &f.Services[i]
		for j := range svc.Tests {
			test := &svc.Tests[j]
			if test.ID == "" {
				test.ID = uuid.NewString()
			}
			test.ID = svc.Name + "." + test.ID
			for k, dep := range test.DependsOn {
				if !hasServicePrefix(dep, names) {
					test.DependsOn[k] = svc.Name + "." + dep
				}
			}
		}
	}
}

// asTestNodes converts every test into a dag.TestNode. It assumes
// formatTestIDs has already been applied.
func (f *ScriptsFile) asTestNodes() []dag.TestNode {
	var nodes []dag.TestNode
	for _, svc := range f.Services {
		for _, test := range svc.Tests {
			nodes = append(nodes, dag.TestNode{
				ID:            test.ID,
				DependsOn:     test.DependsOn,
				StatusHistory: []dag.Status{dag.StatusNotStarted},
				Executable: dag.TestExecutable{
					ID:          test.ID,
					Service:     svc.Name,
					Name:        test.Name,
					Description: test.Description,
					Kind:        dag.KindScripts,
					Command:     test.Command,
				},
			})
		}
	}
	return nodes
}

// merge concatenates two ScriptsFiles' services lists, matching the
// directory-discovery merge rule for same-kind manifests.
func (f *ScriptsFile) merge(other *ScriptsFile) {
	if other == nil {
		return
	}
	f.Services = append(f.Services, other.Services...)
}
