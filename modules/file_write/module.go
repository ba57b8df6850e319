// Package file_write provides the "file_write" node kind. Files are written
// to a temporary name and renamed into place, so readers never see a
// partial file.
package file_write

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/specialistvlad/burstgraph/internal/ctxlog"
	"github.com/specialistvlad/burstgraph/internal/ctyutil"
	"github.com/specialistvlad/burstgraph/internal/registry"
	"github.com/specialistvlad/burstgraph/internal/task"
	"github.com/zclconf/go-cty/cty"
)

const schema = `{
  "type": "object",
  "required": ["path"],
  "properties": {
    "path": {"type": "string", "minLength": 1},
    "content": {"type": "string"},
    "mode": {"type": "string", "pattern": "^0?[0-7]{3}$"},
    "mkdir": {"type": "boolean"}
  }
}`

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Func("file_write", schema, run)
}

// run writes content, or the JSON encoding of value when content is unset.
func run(ctx context.Context, t *task.Task) (cty.Value, error) {
	path, err := t.String("path", "")
	if err != nil {
		return cty.NilVal, err
	}
	data, err := payload(t)
	if err != nil {
		return cty.NilVal, err
	}
	modeStr, err := t.String("mode", "0644")
	if err != nil {
		return cty.NilVal, err
	}
	mode, err := strconv.ParseUint(modeStr, 8, 32)
	if err != nil {
		return cty.NilVal, fmt.Errorf("parameter \"mode\": %w", err)
	}
	mkdir, err := t.Bool("mkdir", true)
	if err != nil {
		return cty.NilVal, err
	}

	if mkdir {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return cty.NilVal, fmt.Errorf("create parent directory: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return cty.NilVal, err
	}
	if err := writeAtomic(path, data, os.FileMode(mode)); err != nil {
		return cty.NilVal, err
	}

	sum := sha256.Sum256(data)
	ctxlog.FromContext(ctx).Debug("File written.", "node", t.Node.ID, "path", path, "bytes", len(data))
	return cty.ObjectVal(map[string]cty.Value{
		"path":   cty.StringVal(path),
		"bytes":  cty.NumberIntVal(int64(len(data))),
		"sha256": cty.StringVal(hex.EncodeToString(sum[:])),
	}), nil
}

func payload(t *task.Task) ([]byte, error) {
	if t.Has("content") {
		s, err := t.String("content", "")
		return []byte(s), err
	}
	if t.Has("value") {
		raw, err := ctyutil.ToJSON(t.Params["value"])
		if err != nil {
			return nil, fmt.Errorf("parameter \"value\": %w", err)
		}
		return append(raw, '\n'), nil
	}
	return nil, errors.New("one of \"content\" or \"value\" is required")
}

func writeAtomic(path string, data []byte, mode os.FileMode) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	if _, err = f.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = f.Chmod(mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
