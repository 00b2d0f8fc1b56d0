package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoCatalog indicates that no catalog file was found during discovery.
var ErrNoCatalog = errors.New("no suite catalog discovered")

// DefaultNames are the catalog files Discover looks for, in priority order.
var DefaultNames = []string{"suites.yml", "suites.yaml", "suites.hcl"}

// Discover returns the catalog path to load. An explicit path is validated and
// returned as is; otherwise the first of DefaultNames present under root wins.
func Discover(root, explicit string) (string, error) {
	if explicit != "" {
		path := explicit
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("catalog %q not found", explicit)
			}
			return "", fmt.Errorf("stat %q: %w", explicit, err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("catalog %q is a directory", explicit)
		}
		return path, nil
	}

	for _, name := range DefaultNames {
		path := filepath.Join(root, name)
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return "", fmt.Errorf("stat %q: %w", path, err)
		}
		if !info.IsDir() {
			return path, nil
		}
	}
	return "", ErrNoCatalog
}

// Load reads a catalog file. The format follows the extension: .yml/.yaml or
// .hcl. Relative working directories resolve against the file's directory.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "read", Err: err}
	}
	root, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "resolve directory", Err: err}
	}

	var c *Catalog
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		c, err = decodeYAML(bytes.NewReader(data), root)
	case ".hcl":
		c, err = decodeHCL(data, path, root)
	default:
		return nil, &LoadError{Path: path, Reason: "unsupported catalog extension (want .yml, .yaml or .hcl)"}
	}
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Path == "" {
			loadErr.Path = path
		}
		return nil, err
	}
	c.path = path
	return c, nil
}
