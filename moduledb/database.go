// Package moduledb implements the module database: discovery of
// *.module recipe files on a search path, name resolution, and lazy
// recipe instantiation.
package moduledb

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pyenv/log"
)

// ManifestSuffix is the recipe file suffix this deployment uses.
const ManifestSuffix = ".module"

// Database is the module database: a name-to-absolute-path cache over
// one or more search roots.
type Database struct {
	searchPath []string
	logger     log.LibraryLogger
	cache      map[ModuleName]string
	diskCache  *DiscoveryCache
}

// NewDatabase constructs a Database over searchPath. logger may be nil,
// in which case a log.NoOpLogger is used.
func NewDatabase(searchPath []string, logger log.LibraryLogger) *Database {
	if logger == nil {
		logger = log.NoOpLogger{}
	}
	return &Database{
		searchPath: searchPath,
		logger:     logger,
		cache:      make(map[ModuleName]string),
	}
}

// WithDiskCache attaches an optional on-disk discovery cache. A nil
// cache (e.g. no cache path could be resolved) is a valid no-op.
func (d *Database) WithDiskCache(cache *DiscoveryCache) *Database {
	d.diskCache = cache
	return d
}

// Populate walks the search path, filling the name cache. filter, if
// non-nil, may veto a discovered name; a vetoed or already-cached name
// is skipped (first definition across roots wins, earlier roots shadow
// later ones; populate never overwrites an existing cache entry).
func (d *Database) Populate(filter func(ModuleName) bool) error {
	for _, root := range d.searchPath {
		if d.diskCache != nil {
			if names, ok := d.diskCache.Lookup(root); ok {
				for name, path := range names {
					d.considerName(name, path, filter)
				}
				continue
			}
		}

		found := make(map[ModuleName]string)
		if err := walkRoot(root, func(path string) {
			name, ok := d.deriveName(root, path)
			if !ok {
				return
			}
			found[name] = path
			d.considerName(name, path, filter)
		}); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("moduledb: walk %s: %w", root, err)
		}

		if d.diskCache != nil {
			if err := d.diskCache.Store(root, found); err != nil {
				d.logger.Warn("moduledb: failed to update discovery cache for %s: %v", root, err)
			}
		}
	}
	return nil
}

func (d *Database) considerName(name ModuleName, path string, filter func(ModuleName) bool) {
	if filter != nil && !filter(name) {
		return
	}
	if _, exists := d.cache[name]; exists {
		return
	}
	d.cache[name] = path
}

// deriveName computes the dotted module name for path relative to
// root, rejecting leaves with more than one period.
func (d *Database) deriveName(root, path string) (ModuleName, bool) {
	leaf := filepath.Base(path)
	if strings.Count(leaf, ".") > 1 {
		d.logger.Warn("moduledb: skipping %s: leaf has more than one period", path)
		return "", false
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		d.logger.Warn("moduledb: skipping %s: %v", path, err)
		return "", false
	}
	rel = strings.TrimSuffix(rel, ManifestSuffix)
	segments := strings.Split(rel, string(filepath.Separator))
	name := ModuleName(strings.Join(segments, "."))
	if !name.Valid() {
		d.logger.Warn("moduledb: skipping %s: invalid module name %q", path, name)
		return "", false
	}
	return name, true
}

// walkRoot walks root, following symlinked directories, and invokes fn
// for every regular file (or symlink to one) whose name ends in
// ManifestSuffix.
func walkRoot(root string, fn func(path string)) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())
		resolved, err := os.Stat(path)
		if err != nil {
			continue
		}
		if resolved.IsDir() {
			if err := walkRoot(path, fn); err != nil {
				return err
			}
			continue
		}
		if strings.HasSuffix(entry.Name(), ManifestSuffix) {
			fn(path)
		}
	}
	return nil
}

// FindModule resolves name to an absolute recipe path: cache first,
// else probes each root at the deterministic relative path derived
// from the dotted name. A hit populates the cache.
func (d *Database) FindModule(name ModuleName) (string, bool) {
	if path, ok := d.cache[name]; ok {
		return path, true
	}
	path, ok := d.probe(name)
	if !ok {
		return "", false
	}
	d.cache[name] = path
	return path, true
}

// probe checks each search root for name's recipe file without
// touching the cache.
func (d *Database) probe(name ModuleName) (string, bool) {
	rel := strings.Join(name.Segments(), string(filepath.Separator)) + ManifestSuffix
	for _, root := range d.searchPath {
		path := filepath.Join(root, rel)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// LoadModule instantiates the recipe for name. Side-effect-free with
// respect to the shell and environment: it only constructs the handle.
func (d *Database) LoadModule(name ModuleName) (Recipe, error) {
	path, ok := d.FindModule(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	return ParseManifest(path, name)
}

// GetAllModules returns every cached name, sorted. When checkSyntax,
// the cache is rebuilt first with a filter that attempts instantiation
// and keeps only names that parse.
func (d *Database) GetAllModules(checkSyntax bool) ([]ModuleName, error) {
	if checkSyntax {
		d.cache = make(map[ModuleName]string)
		if err := d.Populate(func(name ModuleName) bool {
			path, ok := d.probe(name)
			if !ok {
				return false
			}
			_, err := ParseManifest(path, name)
			return err == nil
		}); err != nil {
			return nil, err
		}
	}

	names := make([]ModuleName, 0, len(d.cache))
	for name := range d.cache {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names, nil
}
