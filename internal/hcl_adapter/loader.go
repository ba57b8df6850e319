package hcl_adapter

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/burstgraph/internal/bggoexpr"
	"github.com/specialistvlad/burstgraph/internal/config"
	"github.com/specialistvlad/burstgraph/internal/ctxlog"
	"github.com/specialistvlad/burstgraph/internal/node"
	"github.com/zclconf/go-cty/cty"
)

const dependsOnAttr = "depends_on"

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL scene loader.
func NewLoader() *Loader {
	return &Loader{}
}

var sceneSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "node", LabelNames: []string{"type", "name"}},
	},
}

// Load parses each file and translates its node blocks.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Scene, error) {
	logger := ctxlog.FromContext(ctx)
	scene := &config.Scene{}
	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, &config.SceneLoadError{Path: path, Err: err}
		}
		part, err := l.parse(src, path)
		if err != nil {
			return nil, &config.SceneLoadError{Path: path, Err: err}
		}
		if err := scene.Merge(part); err != nil {
			return nil, &config.SceneLoadError{Path: path, Err: err}
		}
		logger.Debug("Loaded HCL scene file.", "path", path, "nodes", len(part.Nodes))
	}
	return scene, nil
}

// Parse translates HCL source held in memory. filename is used for
// diagnostics only.
func (l *Loader) Parse(src []byte, filename string) (*config.Scene, error) {
	scene, err := l.parse(src, filename)
	if err != nil {
		return nil, &config.SceneLoadError{Path: filename, Err: err}
	}
	return scene, nil
}

func (l *Loader) parse(src []byte, filename string) (*config.Scene, error) {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, diags
	}

	content, diags := file.Body.Content(sceneSchema)
	if diags.HasErrors() {
		return nil, diags
	}

	scene := &config.Scene{Paths: []string{filename}}
	for _, b := range content.Blocks {
		spec, err := translateNode(b, file.Bytes)
		if err != nil {
			return nil, err
		}
		if err := scene.Merge(&config.Scene{Nodes: []*config.NodeSpec{spec}}); err != nil {
			return nil, err
		}
	}
	return scene, nil
}

func translateNode(b *hcl.Block, src []byte) (*config.NodeSpec, error) {
	attrs, diags := b.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	ordered := make([]*hcl.Attribute, 0, len(attrs))
	for _, a := range attrs {
		ordered = append(ordered, a)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Range.Start.Byte < ordered[j].Range.Start.Byte
	})

	name := b.Labels[1]
	spec := &config.NodeSpec{
		Name:      name,
		Type:      b.Labels[0],
		DeclRange: fmt.Sprintf("%s:%d", b.DefRange.Filename, b.DefRange.Start.Line),
	}
	for _, attr := range ordered {
		if attr.Name == dependsOnAttr {
			deps, err := dependsOn(attr.Expr)
			if err != nil {
				return nil, fmt.Errorf("%s: node %q: %w", attr.Range, name, err)
			}
			spec.DependsOn = deps
			continue
		}
		p, err := translateParam(attr, src)
		if err != nil {
			return nil, fmt.Errorf("%s: node %q: %w", attr.Range, name, err)
		}
		spec.Params = append(spec.Params, p)
	}
	return spec, nil
}

func translateParam(attr *hcl.Attribute, src []byte) (node.Param, error) {
	if err := bggoexpr.CheckFunctions(attr.Expr); err != nil {
		return node.Param{}, fmt.Errorf("parameter %q: %w", attr.Name, err)
	}
	vars := attr.Expr.Variables()
	if len(vars) == 0 {
		v, diags := attr.Expr.Value(bggoexpr.EvalContext(nil))
		if diags.HasErrors() {
			return node.Param{}, diags
		}
		return node.Literal(attr.Name, v), nil
	}
	for _, traversal := range vars {
		if _, ok := node.ReferencedNode(traversal); !ok {
			return node.Param{}, fmt.Errorf("parameter %q: unsupported reference %q, expected %s.<id>",
				attr.Name, bggoexpr.TraversalKey(traversal), node.RefRoot)
		}
	}
	return node.Param{
		Name:   attr.Name,
		Expr:   attr.Expr,
		Source: string(attr.Expr.Range().SliceBytes(src)),
	}, nil
}

// dependsOn accepts node ids either as strings or as `node.<id>` traversals.
func dependsOn(expr hcl.Expression) ([]string, error) {
	items, diags := hcl.ExprList(expr)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%s must be a list: %w", dependsOnAttr, diags)
	}
	deps := make([]string, 0, len(items))
	for _, item := range items {
		if traversal, d := hcl.AbsTraversalForExpr(item); !d.HasErrors() && traversal.RootName() == node.RefRoot {
			id, ok := node.ReferencedNode(traversal)
			if !ok || len(traversal) != 2 {
				return nil, fmt.Errorf("%s entries must look like %s.<id>, got %q", dependsOnAttr, node.RefRoot, bggoexpr.TraversalKey(traversal))
			}
			deps = append(deps, id)
			continue
		}
		v, d := item.Value(nil)
		if d.HasErrors() {
			return nil, d
		}
		if v.IsNull() || !v.Type().Equals(cty.String) {
			return nil, fmt.Errorf("%s entries must be node ids", dependsOnAttr)
		}
		deps = append(deps, v.AsString())
	}
	return deps, nil
}
