package hcl_adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/burstgraph/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

const photogrammetry = `
node "command" "camera_init" {
  cmd = ["camera_init", "--images", "/data/images"]
}

node "command" "features" {
  preset = "normal"
  cmd    = ["features", "--sfm", node.camera_init.output.stdout]
}

node "print" "report" {
  title      = upper("report")
  message    = "meshing done: ${node.features.output.exit_code}"
  depends_on = [node.camera_init, "features"]
}
`

func TestLoader_Parse(t *testing.T) {
	t.Parallel()

	// --- Act ---
	scene, err := NewLoader().Parse([]byte(photogrammetry), "scene.hcl")

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, scene.Nodes, 3)

	cam := scene.Nodes[0]
	assert.Equal(t, "camera_init", cam.Name)
	assert.Equal(t, "command", cam.Type)
	assert.Equal(t, "scene.hcl:2", cam.DeclRange)
	require.Len(t, cam.Params, 1)
	assert.False(t, cam.Params[0].IsDeferred())
	assert.Equal(t, cty.Tuple([]cty.Type{cty.String, cty.String, cty.String}), cam.Params[0].Value.Type())

	feat := scene.Nodes[1]
	require.Len(t, feat.Params, 2)
	assert.Equal(t, "preset", feat.Params[0].Name, "params keep source order")
	assert.Equal(t, "cmd", feat.Params[1].Name)
	assert.True(t, feat.Params[1].IsDeferred())
	assert.Equal(t, `["features", "--sfm", node.camera_init.output.stdout]`, feat.Params[1].Source)
	assert.Equal(t, []string{"camera_init"}, feat.Params[1].References())

	report := scene.Nodes[2]
	assert.Equal(t, []string{"camera_init", "features"}, report.DependsOn)
	require.Len(t, report.Params, 2)
	assert.Equal(t, "REPORT", report.Params[0].Value.AsString(), "literal function calls are evaluated at load")
	assert.Equal(t, []string{"features"}, report.Params[1].References())
}

func TestLoader_ParseErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		src     string
		wantErr string
	}{
		{name: "syntax", src: `node "print" "a" {`, wantErr: "Unclosed configuration block"},
		{name: "unknown block", src: `step "print" "a" {}`, wantErr: "Unsupported block type"},
		{name: "missing label", src: `node "print" {}`, wantErr: "Missing name for node"},
		{name: "nested block", src: "node \"print\" \"a\" {\n  inner {}\n}", wantErr: "Unexpected \"inner\" block"},
		{name: "foreign variable", src: `node "print" "a" { msg = var.x }`, wantErr: "unsupported reference"},
		{name: "bad depends_on", src: `node "print" "a" { depends_on = "b" }`, wantErr: "must be a list"},
		{name: "depends_on too deep", src: `node "print" "a" { depends_on = [node.b.output] }`, wantErr: "must look like node.<id>"},
		{name: "unknown function", src: `node "print" "a" { msg = file("x") }`, wantErr: `unknown function "file"`},
		{name: "duplicate node", src: "node \"print\" \"a\" {}\nnode \"print\" \"a\" {}", wantErr: "duplicate node"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewLoader().Parse([]byte(tc.src), "bad.hcl")
			var sle *config.SceneLoadError
			require.ErrorAs(t, err, &sle)
			assert.Equal(t, "bad.hcl", sle.Path)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestLoader_LoadFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	a := filepath.Join(dir, "a.hcl")
	b := filepath.Join(dir, "b.hcl")
	require.NoError(t, os.WriteFile(a, []byte(`node "print" "one" { message = "1" }`), 0o600))
	require.NoError(t, os.WriteFile(b, []byte(`node "print" "two" { message = node.one.output }`), 0o600))

	scene, err := NewLoader().Load(context.Background(), a, b)

	require.NoError(t, err)
	require.Len(t, scene.Nodes, 2)
	assert.Equal(t, []string{a, b}, scene.Paths)

	_, err = NewLoader().Load(context.Background(), filepath.Join(dir, "missing.hcl"))
	var sle *config.SceneLoadError
	assert.ErrorAs(t, err, &sle)
}
