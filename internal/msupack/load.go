package msupack

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Loader reads pack files and memoizes them by cleaned filename, so a pack
// imported by several tracks is parsed once. A Loader's cache lives for one
// pipeline run. Loaders are not safe for concurrent use; the pipeline
// resolves every pack up front, before rendering fans out.
type Loader struct {
	packs   map[string]*Pack
	loading map[string]bool
}

// NewLoader creates an empty pack cache.
func NewLoader() *Loader {
	return &Loader{
		packs:   make(map[string]*Pack),
		loading: make(map[string]bool),
	}
}

// Load parses and validates the pack at path, loading its child-of chain
// eagerly. Repeated loads of the same file return the cached pack.
func (l *Loader) Load(path string) (*Pack, error) {
	path = filepath.Clean(path)

	if pack, ok := l.packs[path]; ok {
		return pack, nil
	}
	if l.loading[path] {
		return nil, fmt.Errorf("%w: pack cycle through %s", ErrConfig, path)
	}

	l.loading[path] = true
	defer delete(l.loading, path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	pack, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	pack.Path = path

	if pack.ChildOf != "" {
		parent, err := l.Load(Relative(path, pack.ChildOf))
		if err != nil {
			return nil, fmt.Errorf("loading parent of %s: %w", path, err)
		}
		pack.Parent = parent
	}

	l.packs[path] = pack

	return pack, nil
}

// Parse unmarshals pack YAML and validates it. Unknown fields are ignored
// for forward compatibility.
func Parse(data []byte) (*Pack, error) {
	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	if err := pack.Validate(); err != nil {
		return nil, err
	}

	return &pack, nil
}

// Relative resolves ref against the directory of the referencing pack file.
// Absolute refs pass through unchanged. Both import_from filenames and
// child_of use this, so a pack tree can be moved as a unit.
func Relative(fromFile, ref string) string {
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref)
	}

	return filepath.Clean(filepath.Join(filepath.Dir(fromFile), ref))
}
