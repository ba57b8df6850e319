// Package yaml_adapter reads scene files written in YAML.
//
//	nodes:
//	  - name: features
//	    type: command
//	    params:
//	      preset: normal
//	      cmd: ["features", "--sfm", "${node.camera_init.output.stdout}"]
//	    depends_on: [warmup]
//
// Parameter values are plain YAML. Strings containing `${...}` are HCL
// templates over upstream outputs and turn the parameter into a deferred one.
package yaml_adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	hcljson "github.com/hashicorp/hcl/v2/json"
	"github.com/specialistvlad/burstgraph/internal/config"
	"github.com/specialistvlad/burstgraph/internal/ctxlog"
	"github.com/specialistvlad/burstgraph/internal/node"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"gopkg.in/yaml.v3"
)

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new YAML scene loader.
func NewLoader() *Loader {
	return &Loader{}
}

type sceneDoc struct {
	Nodes []yaml.Node `yaml:"nodes"`
}

type nodeDoc struct {
	Name      string    `yaml:"name"`
	Type      string    `yaml:"type"`
	Params    yaml.Node `yaml:"params"`
	DependsOn []string  `yaml:"depends_on"`
}

// Load implements config.Loader.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Scene, error) {
	logger := ctxlog.FromContext(ctx)
	scene := &config.Scene{}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &config.SceneLoadError{Path: path, Err: err}
		}
		part, err := l.Parse(data, path)
		if err != nil {
			return nil, err
		}
		if err := scene.Merge(part); err != nil {
			return nil, &config.SceneLoadError{Path: path, Err: err}
		}
		logger.Debug("Loaded YAML scene file.", "path", path, "nodes", len(part.Nodes))
	}
	return scene, nil
}

// Parse translates YAML source held in memory.
func (l *Loader) Parse(data []byte, filename string) (*config.Scene, error) {
	scene, err := parse(data, filename)
	if err != nil {
		return nil, &config.SceneLoadError{Path: filename, Err: err}
	}
	return scene, nil
}

func parse(data []byte, filename string) (*config.Scene, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("scene is empty")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var doc sceneDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}

	scene := &config.Scene{Paths: []string{filename}}
	for i := range doc.Nodes {
		item := &doc.Nodes[i]
		var nd nodeDoc
		if err := item.Decode(&nd); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filename, item.Line, err)
		}
		decl := fmt.Sprintf("%s:%d", filename, item.Line)
		params, err := translateParams(&nd.Params, filename)
		if err != nil {
			return nil, fmt.Errorf("%s: node %q: %w", decl, nd.Name, err)
		}
		spec := &config.NodeSpec{
			Name:      nd.Name,
			Type:      nd.Type,
			Params:    params,
			DependsOn: nd.DependsOn,
			DeclRange: decl,
		}
		if err := scene.Merge(&config.Scene{Nodes: []*config.NodeSpec{spec}}); err != nil {
			return nil, err
		}
	}
	return scene, nil
}

func translateParams(m *yaml.Node, filename string) ([]node.Param, error) {
	if m.Kind == 0 {
		return nil, nil
	}
	if m.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("params must be a mapping (line %d)", m.Line)
	}
	params := make([]node.Param, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		key, val := m.Content[i], m.Content[i+1]
		p, err := translateParam(key.Value, val, filename)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", key.Value, err)
		}
		params = append(params, p)
	}
	return params, nil
}

// translateParam goes through JSON so that the value can be read both as a
// literal and as an HCL JSON-syntax expression.
func translateParam(name string, val *yaml.Node, filename string) (node.Param, error) {
	var raw any
	if err := val.Decode(&raw); err != nil {
		return node.Param{}, err
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return node.Param{}, fmt.Errorf("line %d: value cannot be represented as JSON: %w", val.Line, err)
	}

	expr, diags := hcljson.ParseExpressionWithStartPos(data, filename, hcl.Pos{Line: val.Line, Column: val.Column})
	if diags.HasErrors() {
		return node.Param{}, diags
	}
	if vars := expr.Variables(); len(vars) > 0 {
		for _, traversal := range vars {
			if _, ok := node.ReferencedNode(traversal); !ok {
				return node.Param{}, fmt.Errorf("line %d: unsupported reference to %q, expected %s.<id>", val.Line, traversal.RootName(), node.RefRoot)
			}
		}
		return node.Param{Name: name, Expr: expr, Source: string(data)}, nil
	}

	ty, err := ctyjson.ImpliedType(data)
	if err != nil {
		return node.Param{}, err
	}
	v, err := ctyjson.Unmarshal(data, ty)
	if err != nil {
		return node.Param{}, err
	}
	return node.Literal(name, v), nil
}
