package manifest

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"thorust/internal/dag"
)

// GrpcFile is the manifest shape for kind "grpc": requests materialized at
// normalization time into a grpcurl shell invocation.
type GrpcFile struct {
	Services []GrpcService `yaml:"services" json:"services"`
}

type GrpcService struct {
	Name    string     `yaml:"name" json:"name"`
	Address string     `yaml:"address" json:"address"`
	Tests   []GrpcTest `yaml:"tests" json:"tests"`
}

type GrpcTest struct {
	Name        string   `yaml:"name" json:"name"`
	ID          string   `yaml:"id" json:"id"`
	DependsOn   []string `yaml:"depends_on" json:"depends_on"`
	Description string   `yaml:"description" json:"description"`
	Method      string   `yaml:"method" json:"method"`
	Proto       string   `yaml:"proto" json:"proto"`
	Body        string   `yaml:"body" json:"body"`
	Headers     []string `yaml:"headers" json:"headers"`
	Expected    *ReqSpec `yaml:"expected" json:"expected"`
}

// ReqSpec is the optional assertion clause on a Grpc test: when present, the
// executor compares the captured response against it and reports
// AssertionFailed rather than Failed on mismatch.
type ReqSpec struct {
	Status *string `yaml:"status" json:"status"`
	Body   *string `yaml:"body" json:"body"`
}

func (r *ReqSpec) toDag() *dag.ExpectedResponse {
	if r == nil {
		return nil
	}
	return &dag.ExpectedResponse{Status: r.Status, Body: r.Body}
}

func (f *GrpcFile) formatTestIDs() {
	names := grpcServiceNames(f.Services)
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

func grpcServiceNames(services []GrpcService) []string {
	out := make([]string, len(services))
	for i, s := range services {
		out[i] = s.Name
	}
	return out
}

func (f *GrpcFile) asTestNodes() []dag.TestNode {
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
					Kind:        dag.KindGrpc,
					Command:     toGrpcurlCommand(test.Headers, test.Body, test.Proto, svc.Address, test.Method),
					Expected:    test.Expected.toDag(),
				},
			})
		}
	}
	return nodes
}

func (f *GrpcFile) merge(other *GrpcFile) {
	if other == nil {
		return
	}
	f.Services = append(f.Services, other.Services...)
}

// toGrpcurlCommand materializes the grpcurl invocation string for a Grpc
// test. The body passes through a minimal unescape so manifest-embedded
// escape sequences (\n, \t, \", \\, \r) become literal characters, matching
// how the request body is typically authored inline in YAML/JSON.
func toGrpcurlCommand(headers []string, body, proto, address, method string) string {
	unescaped := unescapeBody(body)
	hdrParts := make([]string, 0, len(headers))
	for _, h := range headers {
		hdrParts = append(hdrParts, fmt.Sprintf("-H '%s'", h))
	}
	return fmt.Sprintf(
		"grpcurl -plaintext %s -import-path . -proto %s -d '%s' %s %s",
		strings.Join(hdrParts, " "), proto, unescaped, address, method,
	)
}

func unescapeBody(body string) string {
	replacer := strings.NewReplacer(
		`\n`, "\n",
		`\t`, "\t",
		`\"`, `"`,
		`\r`, "\r",
		`\\`, `\`,
	)
	return replacer.Replace(body)
}
