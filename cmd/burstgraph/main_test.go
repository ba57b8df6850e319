package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/burstgraph/internal/cli"
	"github.com/specialistvlad/burstgraph/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Help(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	out := &testutil.SafeBuffer{}

	// --- Act ---
	err := run(context.Background(), out, []string{"-h"})

	// --- Assert ---
	require.NoError(t, err, "help must not be reported as an error")
	assert.Contains(t, out.String(), "compute-graph")
	assert.Contains(t, out.String(), "compute-node")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Act ---
	err := run(context.Background(), &testutil.SafeBuffer{}, []string{"--this-is-not-a-valid-flag"})

	// --- Assert ---
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, cli.ExitUsage, exitErr.Code)
	assert.Contains(t, exitErr.Message, "this-is-not-a-valid-flag")
}

func TestRun_ComputeGraph(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	scene := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(scene, []byte(`
node "print" "hello" {
  greeting = "hello"
}

node "print" "world" {
  message = "${node.hello.output.greeting} world"
}
`), 0o600))
	out := &testutil.SafeBuffer{}

	// --- Act ---
	err := run(context.Background(), out, []string{"--cache", "mem://", "compute-graph", scene})

	// --- Assert ---
	require.NoError(t, err)
	assert.Contains(t, out.String(), `message = "hello world"`)
	assert.Contains(t, out.String(), "2 computed")
}

func TestRun_SceneLoadFailure(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	scene := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(scene, []byte(`
		node "print" "A" {
		// Missing closing brace here
	`), 0o600))

	// --- Act ---
	err := run(context.Background(), &testutil.SafeBuffer{}, []string{"--cache", "mem://", "compute-graph", scene})

	// --- Assert ---
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, cli.ExitSceneLoad, exitErr.Code)
	assert.Contains(t, exitErr.Message, "main.hcl")
}
