// Package filecache persists cache records as JSON files on local disk.
//
// Layout: <root>/<fp[0:2]>/<fp>.json. Writes go to a temporary file in the
// same directory followed by a rename, so a killed process leaves either the
// previous record or no record, never a truncated one.
package filecache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/specialistvlad/burstgraph/internal/cache"
)

var fingerprintPattern = regexp.MustCompile(`^[a-f0-9]{8,128}$`)

// Store is a cache.Store backed by a directory.
type Store struct {
	root string
}

var _ cache.Store = (*Store)(nil)

// New creates the root directory if needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("filecache: root directory is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("filecache: create root %s: %w", root, err)
	}
	return &Store{root: root}, nil
}

// Root returns the store directory.
func (s *Store) Root() string { return s.root }

func (s *Store) path(fingerprint string) (string, error) {
	if !fingerprintPattern.MatchString(fingerprint) {
		return "", fmt.Errorf("filecache: invalid fingerprint %q", fingerprint)
	}
	return filepath.Join(s.root, fingerprint[:2], fingerprint+".json"), nil
}

// Load implements cache.Store.
func (s *Store) Load(ctx context.Context, fingerprint string) (*cache.Record, error) {
	p, err := s.path(fingerprint)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("filecache: read %s: %w", p, err)
	}
	rec, err := cache.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("filecache: %s: %w", p, err)
	}
	return rec, nil
}

// Store implements cache.Store.
func (s *Store) Store(ctx context.Context, fingerprint string, rec *cache.Record) (err error) {
	p, err := s.path(fingerprint)
	if err != nil {
		return err
	}
	data, err := cache.Encode(rec)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("filecache: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+fingerprint+"-*")
	if err != nil {
		return fmt.Errorf("filecache: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("filecache: write %s: %w", tmpName, err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("filecache: sync %s: %w", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("filecache: close %s: %w", tmpName, err)
	}
	if err = os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("filecache: commit %s: %w", p, err)
	}
	return nil
}

// Close implements cache.Store.
func (s *Store) Close() error { return nil }
