package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"thorust/internal/dag"
)

// fileKind is the manifest kind a file name encodes (the middle dotted
// segment of <name>.<kind>.<ext>).
type fileKind string

const (
	kindScripts fileKind = "scripts"
	kindGrpc    fileKind = "grpc"
)

// parserType selects the decoder for a manifest file, dispatched on its
// actual file extension.
type parserType int

const (
	parserYAML parserType = iota
	parserJSON
)

// parserTypeFromPath inspects fp's real extension. Unknown or missing
// extensions default to YAML.
func parserTypeFromPath(fp string) parserType {
	switch strings.ToLower(filepath.Ext(fp)) {
	case ".json":
		return parserJSON
	case ".yaml", ".yml":
		return parserYAML
	default:
		return parserYAML
	}
}

// classifyFile extracts the manifest kind from a file name of the form
// <name>.<kind>.<ext>. It returns ok=false for names that don't match.
func classifyFile(name string) (fileKind, bool) {
	ext := filepath.Ext(name)
	trimmed := strings.TrimSuffix(name, ext)
	kindExt := filepath.Ext(trimmed)
	if kindExt == "" {
		return "", false
	}
	switch fileKind(strings.TrimPrefix(kindExt, ".")) {
	case kindScripts:
		return kindScripts, true
	case kindGrpc:
		return kindGrpc, true
	default:
		return "", false
	}
}

func decode(fp string, into interface{}) error {
	f, err := os.Open(fp)
	if err != nil {
		return &Error{Msg: fmt.Sprintf("opening manifest %q: %v", fp, err)}
	}
	defer f.Close()

	switch parserTypeFromPath(fp) {
	case parserJSON:
		if err := json.NewDecoder(f).Decode(into); err != nil {
			return &Error{Msg: fmt.Sprintf("parsing manifest %q: %v", fp, err)}
		}
	default:
		if err := yaml.NewDecoder(f).Decode(into); err != nil {
			return &Error{Msg: fmt.Sprintf("parsing manifest %q: %v", fp, err)}
		}
	}
	return nil
}

func parseFile(fp string) (Base, error) {
	kind, ok := classifyFile(fp)
	if !ok {
		return Base{}, &Error{Msg: fmt.Sprintf("manifest file %q does not match <name>.<kind>.<ext>", fp)}
	}

	switch kind {
	case kindScripts:
		var sf ScriptsFile
		if err := decode(fp, &sf); err != nil {
			return Base{}, err
		}
		return Base{Scripts: &sf}, nil
	case kindGrpc:
		var gf GrpcFile
		if err := decode(fp, &gf); err != nil {
			return Base{}, err
		}
		return Base{Grpc: &gf}, nil
	default:
		return Base{}, &Error{Msg: fmt.Sprintf("unknown manifest kind in %q", fp)}
	}
}

// discover resolves path to the list of manifest files to parse: path
// itself if it is a file, or every <name>.<kind>.<ext> entry directly inside
// it if it is a directory.
func discover(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &Error{Msg: fmt.Sprintf("stat manifest path %q: %v", path, err)}
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, &Error{Msg: fmt.Sprintf("reading manifest directory %q: %v", path, err)}
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := classifyFile(e.Name()); ok {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	return files, nil
}

// Load discovers, parses, merges, and normalizes the manifest(s) at path,
// returning the resulting test nodes.
func Load(path string) ([]dag.TestNode, error) {
	files, err := discover(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &Error{Msg: fmt.Sprintf("no manifest files found at %q", path)}
	}

	merged := Base{}
	for _, fp := range files {
		parsed, err := parseFile(fp)
		if err != nil {
			return nil, err
		}
		merged = merged.Add(parsed)
	}

	return merged.Normalize()
}
