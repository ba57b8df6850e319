package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/specialistvlad/burstgraph/internal/ctxlog"
	"github.com/specialistvlad/burstgraph/internal/fsutil"
)

// MultiLoader routes scene files to format loaders by file extension. It
// also expands directories into the scene files they contain.
type MultiLoader struct {
	byExt map[string]Loader
	exts  []string
}

// NewMultiLoader creates a loader for the given extension mapping. Keys
// include the leading dot, e.g. ".hcl".
func NewMultiLoader(byExt map[string]Loader) *MultiLoader {
	m := &MultiLoader{byExt: make(map[string]Loader, len(byExt))}
	for ext, l := range byExt {
		m.byExt[strings.ToLower(ext)] = l
		m.exts = append(m.exts, strings.ToLower(ext))
	}
	slices.Sort(m.exts)
	return m
}

// Load implements the Loader interface.
func (m *MultiLoader) Load(ctx context.Context, paths ...string) (*Scene, error) {
	logger := ctxlog.FromContext(ctx)
	if len(paths) == 0 {
		return nil, &SceneLoadError{Path: "", Err: errors.New("no scene path given")}
	}

	files, err := m.findSceneFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered scene files.", "count", len(files))

	scene := &Scene{}
	for _, file := range files {
		loader := m.byExt[strings.ToLower(filepath.Ext(file))]
		part, err := loader.Load(ctx, file)
		if err != nil {
			return nil, LoadError(file, err)
		}
		if err := scene.Merge(part); err != nil {
			return nil, &SceneLoadError{Path: file, Err: err}
		}
	}
	logger.Debug("Scene loading complete.", "files", len(files), "nodes", len(scene.Nodes))
	return scene, nil
}

// findSceneFiles walks all given paths and returns a sorted, de-duplicated
// list of files with a known extension.
func (m *MultiLoader) findSceneFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			all = append(all, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, &SceneLoadError{Path: path, Err: err}
		}
		if !info.IsDir() {
			if !fsutil.HasExtension(path, m.exts...) {
				return nil, &SceneLoadError{Path: path, Err: fmt.Errorf("unsupported scene format %q", filepath.Ext(path))}
			}
			add(path)
			continue
		}
		found, err := fsutil.FindFilesByExtension(path, m.exts...)
		if err != nil {
			return nil, &SceneLoadError{Path: path, Err: err}
		}
		for _, p := range found {
			add(p)
		}
	}
	if len(all) == 0 {
		return nil, &SceneLoadError{Path: strings.Join(paths, ", "), Err: errors.New("no scene files found")}
	}
	sort.Strings(all)
	return all, nil
}
