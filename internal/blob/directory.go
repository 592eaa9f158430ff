package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/a3tai/mcp-minutes-reader/internal/pdf/security"
)

// Directory is a Store on a local folder. Names cannot leave the folder.
type Directory struct {
	root   string
	bounds *security.PathValidator
}

// NewDirectory creates a store rooted at dir
func NewDirectory(dir string) (*Directory, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory: %w", err)
	}
	bounds, err := security.NewPathValidator(root)
	if err != nil {
		return nil, err
	}
	return &Directory{root: root, bounds: bounds}, nil
}

// Root returns the absolute folder path
func (d *Directory) Root() string {
	return d.root
}

func (d *Directory) path(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("invalid blob name %q", name)
	}
	p, err := d.bounds.NormalizePath(filepath.FromSlash(name))
	if err != nil {
		return "", fmt.Errorf("invalid blob name %q: %w", name, err)
	}
	// the validator accepts anything while the folder does not exist yet
	if !strings.HasPrefix(p, d.root+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid blob name %q", name)
	}
	return p, nil
}

// Put writes data, creating parent folders as needed
func (d *Directory) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := d.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("put %s: %w", name, err)
	}
	return nil
}

// Get reads an object
func (d *Directory) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := d.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("get %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	return data, nil
}

// List returns the names below the folder that start with prefix. Hidden
// folders are skipped.
func (d *Directory) List(ctx context.Context, prefix string) ([]string, error) {
	names := []string{}
	if _, err := os.Stat(d.root); errors.Is(err, fs.ErrNotExist) {
		return names, nil
	}

	err := filepath.WalkDir(d.root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			if p != d.root && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(entry.Name(), ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", d.root, err)
	}
	sort.Strings(names)
	return names, nil
}
